package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// StatisticsService reports point counts and bounds of cloud files.
type StatisticsService interface {
	// Info returns engine-reported statistics. Results are cached per
	// path and modification time.
	Info(ctx context.Context, path string) (*domain.PointCloudInfo, error)

	// PointCount returns the number of points in a cloud.
	PointCount(ctx context.Context, path string) (int64, error)
}
