package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
// Runs are stored as JSON so callers cannot mutate stored records.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
	sums map[string]domain.RunSummary
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string][]byte),
		sums: make(map[string]domain.RunSummary),
	}
}

// Save stores a sealed run.
func (s *RunStore) Save(_ context.Context, run *domain.RunMetadata) error {
	if !run.Sealed() {
		return fmt.Errorf("%w: run %s is still in progress", domain.ErrInvalidInput, run.ID)
	}
	doc, err := json.Marshal(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("%w: run %s", domain.ErrAlreadyExists, run.ID)
	}
	s.runs[run.ID] = doc
	s.sums[run.ID] = run.Summary()
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.RunMetadata, error) {
	s.mu.RLock()
	doc, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}

	var run domain.RunMetadata
	if err := json.Unmarshal(doc, &run); err != nil {
		return nil, err
	}
	run.Seal()
	return &run, nil
}

// List returns summaries, newest first.
func (s *RunStore) List(_ context.Context, filter domain.RunFilter) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.RunSummary, 0, len(s.sums))
	for _, sum := range s.sums {
		if filter.Matches(sum) {
			result = append(result, sum)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
