package driven

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// MaskRequest asks a strategy to threshold a density raster.
type MaskRequest struct {
	SourcePath string
	OutputPath string
	Threshold  float64

	// Source is the density grid when already in memory.
	Source *domain.Grid
}

// MaskOutput is the result of thresholding.
type MaskOutput struct {
	Stats domain.MaskStats

	// Grid holds the mask cells; nil when the strategy never loaded pixels.
	Grid *domain.Grid
}

// MaskStrategy computes mask[c] = 1 if raster[c] > threshold else 0.
// Every strategy must produce the same cells for the same inputs.
type MaskStrategy interface {
	// Method names the execution path recorded in mask statistics.
	Method() domain.MaskMethod

	// Threshold writes the mask to req.OutputPath.
	Threshold(ctx context.Context, req MaskRequest) (*MaskOutput, error)
}
