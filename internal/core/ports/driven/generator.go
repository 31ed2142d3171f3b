package driven

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// DerivativeGenerator produces one terrain derivative.
// Generators are opaque: the pipeline only knows their input and output paths.
type DerivativeGenerator interface {
	// Type is the derivative produced.
	Type() domain.RasterType

	// Source is domain.GeneratorSourcePointCloud or domain.GeneratorSourceDTM.
	Source() string

	// Generate writes the derivative and returns its path.
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// GeneratorRegistry looks up generators by type.
type GeneratorRegistry interface {
	// Get returns the generator for a type.
	Get(t domain.RasterType) (DerivativeGenerator, bool)

	// Types lists the registered types in generation order.
	Types() []domain.RasterType
}
