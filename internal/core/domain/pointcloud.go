package domain

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UnknownPointCount is reported by engines that cannot count points cheaply.
const UnknownPointCount int64 = -1

// PointCloudFile is a read-only point cloud on disk.
// The pipeline never mutates it; crops produce new files.
type PointCloudFile struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"mod_time"`
}

// OpenPointCloud stats a cloud file and returns its descriptor.
// Returns ErrInputNotFound if the path does not exist or is a directory.
func OpenPointCloud(path string) (PointCloudFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PointCloudFile{}, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return PointCloudFile{}, fmt.Errorf("stat point cloud: %w", err)
	}
	if info.IsDir() {
		return PointCloudFile{}, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	return PointCloudFile{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Extension returns the lower-cased file extension including the dot.
func (f PointCloudFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// IsLASFamily reports whether the cloud is a LAS or LAZ file.
func (f PointCloudFile) IsLASFamily() bool {
	return IsLASExtension(f.Extension())
}

// IsLASExtension reports whether ext names a LAS-family container.
func IsLASExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".las", ".laz", ".copc.laz":
		return true
	default:
		return false
	}
}

// PointCloudInfo holds statistics reported by a point-cloud engine.
type PointCloudInfo struct {
	Path       string `json:"path"`
	PointCount int64  `json:"point_count"`
	Bounds     Bounds `json:"bounds"`
	SRS        string `json:"srs,omitempty"`
}

// Bounds is a 3D axis-aligned extent.
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MinZ float64 `json:"minz"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
	MaxZ float64 `json:"maxz"`
}

// EmptyBounds returns bounds that any point will extend.
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1), MinZ: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1), MaxZ: math.Inf(-1),
	}
}

// Extend grows the bounds to include the point.
func (b *Bounds) Extend(x, y, z float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MinZ = math.Min(b.MinZ, z)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
	b.MaxZ = math.Max(b.MaxZ, z)
}

// IsEmpty returns true if no point has been added.
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// BBox returns the 2D footprint of the bounds.
func (b Bounds) BBox() BBox {
	return BBox{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

// BBox is a 2D axis-aligned box in the cloud's spatial reference.
type BBox struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// Validate checks that the box has finite, ordered coordinates.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bbox has non-finite coordinate", ErrInvalidInput)
		}
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return fmt.Errorf("%w: bbox min exceeds max", ErrInvalidInput)
	}
	return nil
}

// Width returns the X extent.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y extent.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Contains reports whether the point lies inside or on the box.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// String renders the box in the point-cloud engine's bounds syntax.
func (b BBox) String() string {
	return fmt.Sprintf("([%g, %g], [%g, %g])", b.MinX, b.MaxX, b.MinY, b.MaxY)
}
