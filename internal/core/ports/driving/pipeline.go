package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// QualityPipeline sequences the stages for one region.
type QualityPipeline interface {
	// Run executes the mode's workflow. It never returns an error:
	// failures are recorded in the returned metadata.
	Run(ctx context.Context, req domain.QualityRequest) *domain.RunMetadata
}

// RunHistory exposes persisted runs.
type RunHistory interface {
	// List returns run summaries, newest first.
	List(ctx context.Context, filter domain.RunFilter) ([]domain.RunSummary, error)

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*domain.RunMetadata, error)
}
