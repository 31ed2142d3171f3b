package services

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

// Ensure RunHistoryService implements the interface.
var _ driving.RunHistory = (*RunHistoryService)(nil)

// RunHistoryService reads persisted runs.
type RunHistoryService struct {
	store driven.RunStore
}

// NewRunHistoryService creates a history service. store may be nil.
func NewRunHistoryService(store driven.RunStore) *RunHistoryService {
	return &RunHistoryService{store: store}
}

// List returns run summaries, newest first.
func (s *RunHistoryService) List(ctx context.Context, filter domain.RunFilter) ([]domain.RunSummary, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.store.List(ctx, filter)
}

// Get retrieves one run.
func (s *RunHistoryService) Get(ctx context.Context, id string) (*domain.RunMetadata, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.Get(ctx, id)
}
