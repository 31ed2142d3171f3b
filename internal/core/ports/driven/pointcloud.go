package driven

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// PointCloudEngine executes point-cloud pipelines.
// Calls block until the engine finishes or ctx expires; there is no
// other cancellation once a run has started.
type PointCloudEngine interface {
	// Name identifies the engine in logs and metadata.
	Name() string

	// Run executes the pipeline and returns the number of points read,
	// or domain.UnknownPointCount when the engine does not report it.
	// Failures are reported as *domain.EngineError.
	Run(ctx context.Context, p domain.Pipeline) (int64, error)

	// Info returns point count, bounds and SRS of a cloud file.
	Info(ctx context.Context, path string) (*domain.PointCloudInfo, error)
}
