package driving

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// CropRequest asks for a cloud filtered against a geometry.
type CropRequest struct {
	Cloud      domain.PointCloudFile
	Geometry   domain.CropGeometry
	Mode       domain.CropMode
	OutputPath string
	Force      bool
}

// CropService filters point clouds.
type CropService interface {
	// Crop writes a new cloud and reports retention.
	Crop(ctx context.Context, req CropRequest) (*domain.CroppedPointCloud, error)
}
