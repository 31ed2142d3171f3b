package driven

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// RunStore persists finished pipeline runs.
// Runs are written once and never updated.
type RunStore interface {
	// Save stores a sealed run. Saving an existing ID is an error.
	Save(ctx context.Context, run *domain.RunMetadata) error

	// Get retrieves a run by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.RunMetadata, error)

	// List returns summaries, newest first.
	List(ctx context.Context, filter domain.RunFilter) ([]domain.RunSummary, error)
}
