package domain

import "fmt"

// CropMode selects which side of the geometry to keep.
type CropMode string

// Available crop modes.
const (
	// CropInside keeps points inside the geometry.
	CropInside CropMode = "inside"

	// CropOutside keeps points outside the geometry.
	CropOutside CropMode = "outside"
)

// IsValid returns true if the crop mode is recognised.
func (m CropMode) IsValid() bool {
	return m == CropInside || m == CropOutside
}

// String returns the string representation.
func (m CropMode) String() string {
	return string(m)
}

// CropGeometry is either a footprint or a bounding box.
type CropGeometry struct {
	Footprint *Footprint
	BBox      *BBox
}

// Validate ensures exactly one geometry kind is set.
func (g CropGeometry) Validate() error {
	if (g.Footprint == nil) == (g.BBox == nil) {
		return fmt.Errorf("%w: crop geometry must be a footprint or a bbox", ErrInvalidInput)
	}
	return nil
}

// CroppedPointCloud is a new cloud derived by filtering an input cloud.
type CroppedPointCloud struct {
	Path             string   `json:"path"`
	SourcePath       string   `json:"source_path"`
	Mode             CropMode `json:"mode"`
	GeometryKind     string   `json:"geometry_kind"`
	PointsBefore     int64    `json:"points_before"`
	PointsAfter      int64    `json:"points_after"`
	RetentionPercent float64  `json:"retention_percent"`
	Degraded         bool     `json:"degraded"`
	Notes            []string `json:"notes,omitempty"`
	Cached           bool     `json:"cached"`
}

// RetentionPercent returns after/before as a percentage clamped to [0, 100].
// An empty input retains nothing.
func RetentionPercent(before, after int64) float64 {
	if before <= 0 || after <= 0 {
		return 0
	}
	pct := float64(after) / float64(before) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
