package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// MaskRequest asks for a binary validity mask.
type MaskRequest struct {
	// Density is the source raster. Only Path is required.
	Density     *domain.DensityRaster
	OutputPath  string
	PreviewPath string
	Threshold   float64
	Force       bool
}

// MaskService thresholds density rasters.
type MaskService interface {
	// Generate builds or reuses the mask for a density raster.
	Generate(ctx context.Context, req MaskRequest) (*domain.BinaryMask, error)

	// Strategy names the active mask strategy.
	Strategy() domain.MaskMethod
}
