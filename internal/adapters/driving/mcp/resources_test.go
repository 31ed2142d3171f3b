package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid URI", uri: "lidarqc://runs/abc-123", expected: "abc-123"},
		{name: "list URI", uri: "lidarqc://runs", expected: ""},
		{name: "empty ID", uri: "lidarqc://runs/", expected: ""},
		{name: "nested path", uri: "lidarqc://runs/abc/stages", expected: ""},
		{name: "wrong scheme", uri: "other://runs/abc", expected: ""},
		{name: "empty string", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractRunID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleRunsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil history returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}})

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("lidarqc://runs"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	})

	t.Run("returns run summaries", func(t *testing.T) {
		history := &mockHistory{runs: []domain.RunSummary{{
			ID:        "run-1",
			Region:    "r1",
			Mode:      domain.ModeQualityFirst,
			State:     domain.StateRegenerationDone,
			Success:   true,
			StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		}}}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		result, err := server.handleRunsResource(ctx, makeReadResourceRequest("lidarqc://runs"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		text := result.Contents[0].Text
		assert.Contains(t, text, `"id": "run-1"`)
		assert.Contains(t, text, `"mode": "quality_first"`)
		assert.Contains(t, text, `"state": "regeneration_done"`)
		assert.Equal(t, runsListLimit, history.listed.Limit)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		history := &mockHistory{err: errors.New("database error")}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		_, err := server.handleRunsResource(ctx, makeReadResourceRequest("lidarqc://runs"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing runs")
	})
}

func TestServer_handleRunResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil history returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}})

		_, err := server.handleRunResource(ctx, makeReadResourceRequest("lidarqc://runs/run-1"))

		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		history := &mockHistory{}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		_, err := server.handleRunResource(ctx, makeReadResourceRequest("lidarqc://invalid/uri"))

		require.Error(t, err)
		assert.Empty(t, history.fetched)
	})

	t.Run("returns run metadata", func(t *testing.T) {
		history := &mockHistory{run: &domain.RunMetadata{
			ID:      "run-1",
			Region:  "r1",
			Mode:    domain.ModeStandard,
			State:   domain.StateStandardDone,
			Success: true,
			Stages:  []domain.StageResult{{Stage: domain.StageDensity, Success: true, Cached: true}},
		}}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		result, err := server.handleRunResource(ctx, makeReadResourceRequest("lidarqc://runs/run-1"))

		require.NoError(t, err)
		assert.Equal(t, "run-1", history.fetched)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"stage": "density"`)
		assert.Contains(t, result.Contents[0].Text, `"cached": true`)
	})

	t.Run("unknown run returns not found", func(t *testing.T) {
		history := &mockHistory{err: fmt.Errorf("run %s: %w", "nope", domain.ErrNotFound)}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		_, err := server.handleRunResource(ctx, makeReadResourceRequest("lidarqc://runs/nope"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting run")
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		history := &mockHistory{err: errors.New("disk I/O error")}
		server := newTestServer(t, &Ports{Pipeline: &mockPipeline{}, History: history})

		_, err := server.handleRunResource(ctx, makeReadResourceRequest("lidarqc://runs/run-1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting run")
	})
}
