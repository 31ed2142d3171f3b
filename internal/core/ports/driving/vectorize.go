package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// VectorizeRequest asks for a polygon footprint of a mask.
type VectorizeRequest struct {
	// Mask is the source mask. Only Path is required.
	Mask              *domain.BinaryMask
	SimplifyTolerance float64
	MinArea           float64

	// OutputPath without extension; the codec's extension is appended.
	// Empty skips writing.
	OutputPath string
	Format     string
}

// VectorizeService traces masks into footprints.
type VectorizeService interface {
	// Vectorize traces valid regions. Zero regions yields an empty
	// footprint, not an error.
	Vectorize(ctx context.Context, req VectorizeRequest) (*domain.Footprint, error)

	// ReadFootprint loads a previously written footprint file.
	ReadFootprint(path string) (*domain.Footprint, error)
}
