package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func TestRunHistoryService(t *testing.T) {
	store := memory.NewRunStore()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, region := range []string{"r1", "r2", "r1"} {
		run := domain.NewRunMetadata(region+"-"+string(rune('a'+i)), domain.QualityRequest{
			Region: region, Mode: domain.ModeStandard,
		}, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, run.Finish(domain.StateStandardDone, true, start.Add(time.Hour)))
		require.NoError(t, store.Save(context.Background(), run))
	}
	svc := NewRunHistoryService(store)

	all, err := svc.List(context.Background(), domain.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1-c", all[0].ID)

	r1, err := svc.List(context.Background(), domain.RunFilter{Region: "r1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, "r1-c", r1[0].ID)

	run, err := svc.Get(context.Background(), "r2-b")
	require.NoError(t, err)
	assert.Equal(t, "r2", run.Region)

	_, err = svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunHistoryService_NoStore(t *testing.T) {
	svc := NewRunHistoryService(nil)

	_, err := svc.List(context.Background(), domain.RunFilter{})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Get(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
