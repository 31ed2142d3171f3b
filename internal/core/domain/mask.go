package domain

// Mask cell values.
const (
	MaskArtifact = 0
	MaskValid    = 1
)

// MaskMethod names the execution path that produced a mask.
type MaskMethod string

// Available mask methods.
const (
	// MaskMethodArray thresholds the pixel buffer in memory.
	MaskMethodArray MaskMethod = "array"

	// MaskMethodFallback delegates to the raster engine's algebra tool.
	MaskMethodFallback MaskMethod = "fallback"
)

// BinaryMask marks each density cell as valid (1) or artifact (0).
// It is congruent with the density raster it was derived from.
type BinaryMask struct {
	Path        string       `json:"path"`
	SourcePath  string       `json:"source_path"`
	Threshold   float64      `json:"threshold"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Transform   GeoTransform `json:"geotransform"`
	Stats       MaskStats    `json:"statistics"`
	PreviewPath string       `json:"preview_path,omitempty"`
	Cached      bool         `json:"cached"`

	// Grid holds the 0/1 cells when they are in memory.
	Grid *Grid `json:"-"`
}

// MaskStats summarises mask coverage.
type MaskStats struct {
	Method          MaskMethod `json:"method"`
	TotalPixels     int        `json:"total_pixels"`
	ValidPixels     int        `json:"valid_pixels"`
	ArtifactPixels  int        `json:"artifact_pixels"`
	CoveragePercent float64    `json:"coverage_percent"`
	ArtifactPercent float64    `json:"artifact_percent"`
}

// NewMaskStats derives percentages from pixel counts.
// Coverage and artifact percentages always sum to 100.
func NewMaskStats(method MaskMethod, valid, total int) MaskStats {
	s := MaskStats{
		Method:         method,
		TotalPixels:    total,
		ValidPixels:    valid,
		ArtifactPixels: total - valid,
	}
	if total > 0 {
		s.CoveragePercent = float64(valid) / float64(total) * 100
	}
	s.ArtifactPercent = 100 - s.CoveragePercent
	return s
}

// MaskStatsFromCoverage builds statistics from a coverage fraction in [0, 1],
// as reported by engines that only expose a band mean.
func MaskStatsFromCoverage(method MaskMethod, fraction float64, total int) MaskStats {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	valid := int(fraction*float64(total) + 0.5)
	s := NewMaskStats(method, valid, total)
	s.CoveragePercent = fraction * 100
	s.ArtifactPercent = 100 - s.CoveragePercent
	return s
}
