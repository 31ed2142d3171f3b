package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// DensityRequest asks for a point-count raster.
type DensityRequest struct {
	Cloud        domain.PointCloudFile
	OutputPath   string
	PreviewPath  string
	MetadataPath string
	Resolution   float64
	NoData       int
	Force        bool
}

// DensityService builds density rasters.
type DensityService interface {
	// Generate builds or reuses the density raster for a cloud.
	// An empty cloud yields an all-nodata raster, not an error.
	Generate(ctx context.Context, req DensityRequest) (*domain.DensityRaster, error)
}
