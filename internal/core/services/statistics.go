package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure StatisticsService implements the interface.
var _ driving.StatisticsService = (*StatisticsService)(nil)

// StatisticsService queries point-cloud statistics and memoises them per
// file version.
type StatisticsService struct {
	engine  driven.PointCloudEngine
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]statsEntry
}

type statsEntry struct {
	modTime time.Time
	size    int64
	info    domain.PointCloudInfo
}

// NewStatisticsService creates a statistics service.
func NewStatisticsService(engine driven.PointCloudEngine, timeout time.Duration) *StatisticsService {
	return &StatisticsService{
		engine:  engine,
		timeout: timeout,
		cache:   make(map[string]statsEntry),
	}
}

// Info returns the cloud's point count, bounds and SRS.
func (s *StatisticsService) Info(ctx context.Context, path string) (*domain.PointCloudInfo, error) {
	cloud, err := domain.OpenPointCloud(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry, ok := s.cache[path]
	s.mu.Unlock()
	if ok && entry.modTime.Equal(cloud.ModTime) && entry.size == cloud.Size {
		info := entry.info
		return &info, nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	logger.Debug("statistics: querying %s with %s", path, s.engine.Name())
	info, err := s.engine.Info(ctx, path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[path] = statsEntry{modTime: cloud.ModTime, size: cloud.Size, info: *info}
	s.mu.Unlock()
	return info, nil
}

// PointCount returns the number of points in the cloud.
func (s *StatisticsService) PointCount(ctx context.Context, path string) (int64, error) {
	info, err := s.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.PointCount, nil
}

// withTimeout bounds ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
