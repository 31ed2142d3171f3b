package domain

import (
	"fmt"
	"math"
)

// GeoTransform maps pixel coordinates to ground coordinates.
// The layout follows the affine convention used by raster engines:
// [originX, pixelWidth, rowRotation, originY, columnRotation, pixelHeight].
// PixelHeight is negative for north-up rasters.
type GeoTransform [6]float64

// NorthUp builds a transform with the top-left corner at (originX, originY)
// and square cells of the given size.
func NorthUp(originX, originY, cellSize float64) GeoTransform {
	return GeoTransform{originX, cellSize, 0, originY, 0, -cellSize}
}

// CellSize returns the absolute cell width in ground units.
func (g GeoTransform) CellSize() float64 {
	return math.Abs(g[1])
}

// CellArea returns the ground area covered by one cell.
func (g GeoTransform) CellArea() float64 {
	return math.Abs(g[1]*g[5] - g[2]*g[4])
}

// Determinant returns the signed determinant of the linear part.
// A negative value means the transform flips orientation.
func (g GeoTransform) Determinant() float64 {
	return g[1]*g[5] - g[2]*g[4]
}

// Apply converts fractional pixel coordinates into ground coordinates.
func (g GeoTransform) Apply(col, row float64) (x, y float64) {
	x = g[0] + col*g[1] + row*g[2]
	y = g[3] + col*g[4] + row*g[5]
	return x, y
}

// Equal compares two transforms with a relative tolerance that absorbs
// text round-tripping through engine output.
func (g GeoTransform) Equal(other GeoTransform) bool {
	for i := range g {
		a, b := g[i], other[i]
		if a == b {
			continue
		}
		scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
		if math.Abs(a-b) > 1e-9*scale {
			return false
		}
	}
	return true
}

// Raster data types understood by the pipeline.
const (
	DataTypeByte    = "Byte"
	DataTypeInt16   = "Int16"
	DataTypeUInt16  = "UInt16"
	DataTypeInt32   = "Int32"
	DataTypeUInt32  = "UInt32"
	DataTypeFloat32 = "Float32"
	DataTypeFloat64 = "Float64"
)

// IsNumericDataType reports whether a data type name is a plausible numeric cell type.
func IsNumericDataType(t string) bool {
	switch t {
	case DataTypeByte, DataTypeInt16, DataTypeUInt16, DataTypeInt32,
		DataTypeUInt32, DataTypeFloat32, DataTypeFloat64:
		return true
	default:
		return false
	}
}

// Grid is an in-memory raster. Bands are stored row-major.
type Grid struct {
	Width     int
	Height    int
	Transform GeoTransform
	NoData    float64
	HasNoData bool
	DataType  string
	SRS       string
	Bands     [][]float64
}

// NewGrid allocates a grid with the given number of zeroed bands.
func NewGrid(width, height, bands int, transform GeoTransform) *Grid {
	g := &Grid{
		Width:     width,
		Height:    height,
		Transform: transform,
		DataType:  DataTypeFloat64,
		Bands:     make([][]float64, bands),
	}
	for i := range g.Bands {
		g.Bands[i] = make([]float64, width*height)
	}
	return g
}

// CellCount returns the number of cells per band.
func (g *Grid) CellCount() int {
	return g.Width * g.Height
}

// BandCount returns the number of bands.
func (g *Grid) BandCount() int {
	return len(g.Bands)
}

// Index returns the offset of (col, row) inside a band.
func (g *Grid) Index(col, row int) int {
	return row*g.Width + col
}

// At returns the value of band 0 at (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Bands[0][g.Index(col, row)]
}

// IsNoData reports whether v equals the grid's nodata sentinel.
func (g *Grid) IsNoData(v float64) bool {
	if !g.HasNoData {
		return false
	}
	if math.IsNaN(g.NoData) {
		return math.IsNaN(v)
	}
	return v == g.NoData
}

// SetNoData sets the nodata sentinel.
func (g *Grid) SetNoData(v float64) {
	g.NoData = v
	g.HasNoData = true
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Bands = make([][]float64, len(g.Bands))
	for i, b := range g.Bands {
		c.Bands[i] = append([]float64(nil), b...)
	}
	return &c
}

// Validate checks the band buffers match the declared dimensions.
func (g *Grid) Validate() error {
	if g.Width < 0 || g.Height < 0 {
		return fmt.Errorf("%w: negative grid dimensions %dx%d", ErrInvalidInput, g.Width, g.Height)
	}
	if len(g.Bands) == 0 {
		return fmt.Errorf("%w: grid has no bands", ErrInvalidInput)
	}
	for i, b := range g.Bands {
		if len(b) != g.CellCount() {
			return fmt.Errorf("%w: band %d has %d cells, want %d", ErrInvalidInput, i+1, len(b), g.CellCount())
		}
	}
	return nil
}

// CheckCongruent returns ErrDimensionMismatch unless both grids share
// width, height and geotransform.
func (g *Grid) CheckCongruent(other *Grid) error {
	if g.Width != other.Width || g.Height != other.Height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, g.Width, g.Height, other.Width, other.Height)
	}
	if !g.Transform.Equal(other.Transform) {
		return fmt.Errorf("%w: geotransform %v vs %v", ErrDimensionMismatch, g.Transform, other.Transform)
	}
	return nil
}

// RasterInfo describes a raster file as reported by a raster engine.
type RasterInfo struct {
	Path      string       `json:"path"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	BandCount int          `json:"band_count"`
	Transform GeoTransform `json:"geotransform"`
	DataType  string       `json:"data_type"`
	NoData    *float64     `json:"nodata,omitempty"`
	SRS       string       `json:"srs,omitempty"`
	Stats     *RasterStats `json:"statistics,omitempty"`
}

// RasterStats summarises the valid cells of one band.
type RasterStats struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	ValidCount  int     `json:"valid_count"`
	NoDataCount int     `json:"nodata_count"`
}

// DensityRaster is a per-cell point count grid generated from a cloud.
type DensityRaster struct {
	Path         string       `json:"path"`
	SourcePath   string       `json:"source_path"`
	Resolution   float64      `json:"resolution"`
	NoData       int          `json:"nodata"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Transform    GeoTransform `json:"geotransform"`
	Stats        RasterStats  `json:"statistics"`
	PreviewPath  string       `json:"preview_path,omitempty"`
	MetadataPath string       `json:"metadata_path,omitempty"`
	Cached       bool         `json:"cached"`

	// Grid holds the pixels when they were loaded during generation.
	Grid *Grid `json:"-"`
}

// IsEmpty reports whether the raster has no cells at all.
func (d *DensityRaster) IsEmpty() bool {
	return d == nil || d.Width*d.Height == 0
}
