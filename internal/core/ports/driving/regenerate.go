package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// RegenerateRequest asks for derivatives from a clean cloud.
type RegenerateRequest struct {
	Region     string
	CloudPath  string
	Types      []domain.RasterType
	OutputDir  string
	Resolution float64
}

// RegenerateService re-runs derivative generators.
type RegenerateService interface {
	// Regenerate runs each type in isolation; one failure never aborts the others.
	Regenerate(ctx context.Context, req RegenerateRequest) *domain.RegenerationReport
}
