package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// CleanRequest asks for one raster masked against a mask.
type CleanRequest struct {
	RasterPath string
	MaskPath   string

	// OutputPath defaults to the raster's cleaned/ sibling.
	OutputPath string
}

// CleanService masks derivative rasters.
type CleanService interface {
	// Clean writes out[c] = raster[c] if mask[c] == 1 else nodata.
	// Returns domain.ErrDimensionMismatch when grids are not congruent.
	Clean(ctx context.Context, req CleanRequest) (*domain.CleanResult, error)

	// CleanBatch cleans every recognised derivative under regionDir.
	// Per-file failures are reported, not returned.
	CleanBatch(ctx context.Context, regionDir, maskPath string) (*domain.CleanBatchReport, error)
}
