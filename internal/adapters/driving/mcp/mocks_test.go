package mcp

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// mockPipeline is a mock implementation of driving.QualityPipeline.
type mockPipeline struct {
	run *domain.RunMetadata
	req domain.QualityRequest
}

func (m *mockPipeline) Run(_ context.Context, req domain.QualityRequest) *domain.RunMetadata {
	m.req = req
	if m.run != nil {
		return m.run
	}
	return &domain.RunMetadata{ID: "run-1", Region: req.Region, Mode: req.Mode, State: domain.StateStandardDone, Success: true}
}

// mockStatistics is a mock implementation of driving.StatisticsService.
type mockStatistics struct {
	info *domain.PointCloudInfo
	err  error
}

func (m *mockStatistics) Info(_ context.Context, _ string) (*domain.PointCloudInfo, error) {
	return m.info, m.err
}

func (m *mockStatistics) PointCount(_ context.Context, _ string) (int64, error) {
	if m.info == nil {
		return 0, m.err
	}
	return m.info.PointCount, m.err
}

// mockHistory is a mock implementation of driving.RunHistory.
type mockHistory struct {
	runs    []domain.RunSummary
	run     *domain.RunMetadata
	err     error
	listed  domain.RunFilter
	fetched string
}

func (m *mockHistory) List(_ context.Context, filter domain.RunFilter) ([]domain.RunSummary, error) {
	m.listed = filter
	return m.runs, m.err
}

func (m *mockHistory) Get(_ context.Context, id string) (*domain.RunMetadata, error) {
	m.fetched = id
	return m.run, m.err
}
