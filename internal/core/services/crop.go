package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/geometry"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure CropService implements the interface.
var _ driving.CropService = (*CropService)(nil)

// PlanetExtent is the half-width of the box substituted for footprints
// that cannot be expressed as WKT. It covers geographic degrees, Web
// Mercator and UTM coordinates.
const PlanetExtent = 20037508.342789244

// Geometry kinds recorded on cropped clouds.
const (
	GeometryFootprint = "footprint"
	GeometryBBox      = "bbox"
	GeometryPlanet    = "planet"
)

// cropParams are the inputs a cached crop must have been built from.
type cropParams struct {
	Source   string          `json:"source"`
	Mode     domain.CropMode `json:"mode"`
	Geometry string          `json:"geometry"`
}

// CropService filters clouds against footprints or boxes.
type CropService struct {
	engine  driven.PointCloudEngine
	stats   driving.StatisticsService
	cache   *StageCache
	timeout time.Duration
	strict  bool
}

// NewCropService creates a crop service. With strict set, footprints
// that cannot be converted fail instead of falling back to the planet box.
func NewCropService(
	engine driven.PointCloudEngine,
	stats driving.StatisticsService,
	timeout time.Duration,
	strict bool,
) *CropService {
	return &CropService{
		engine:  engine,
		stats:   stats,
		cache:   NewStageCache(nil),
		timeout: timeout,
		strict:  strict,
	}
}

// Crop writes the filtered cloud and reports point retention.
func (s *CropService) Crop(ctx context.Context, req driving.CropRequest) (*domain.CroppedPointCloud, error) {
	if err := req.Geometry.Validate(); err != nil {
		return nil, err
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("%w: crop output path is required", domain.ErrInvalidInput)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.CropInside
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown crop mode %q", domain.ErrInvalidInput, mode)
	}
	cloud, err := domain.OpenPointCloud(req.Cloud.Path)
	if err != nil {
		return nil, err
	}

	result := &domain.CroppedPointCloud{
		Path:       req.OutputPath,
		SourcePath: cloud.Path,
		Mode:       mode,
	}
	stage, geom, err := s.cropStage(req.Geometry, mode, result)
	if err != nil {
		return nil, err
	}
	params := cropParams{Source: filepath.Clean(cloud.Path), Mode: mode, Geometry: geom}
	var footprintPath string
	if req.Geometry.Footprint != nil {
		footprintPath = req.Geometry.Footprint.Path
	}

	before, err := s.stats.PointCount(ctx, cloud.Path)
	if err != nil {
		return nil, fmt.Errorf("count input points: %w", err)
	}
	result.PointsBefore = before

	if !req.Force && s.cache.File(cloud.Path, req.OutputPath, footprintPath) && s.cache.Matches(req.OutputPath, params) {
		if after, err := s.stats.PointCount(ctx, req.OutputPath); err == nil {
			logger.Info("crop: reusing %s", req.OutputPath)
			result.PointsAfter = after
			result.RetentionPercent = domain.RetentionPercent(before, after)
			result.Cached = true
			return result, nil
		}
	}

	logger.Info("crop: filtering %s (%s, %s)", cloud.Path, result.GeometryKind, mode)
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, err
	}
	s.cache.Forget(req.OutputPath)
	pipeline := domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud.Path),
		stage,
		domain.CloudWriterStage(req.OutputPath),
	}}
	runCtx, cancel := withTimeout(ctx, s.timeout)
	_, err = s.engine.Run(runCtx, pipeline)
	cancel()
	if err != nil {
		os.Remove(req.OutputPath)
		return nil, err
	}

	after, err := s.stats.PointCount(ctx, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("count cropped points: %w", err)
	}
	result.PointsAfter = after
	result.RetentionPercent = domain.RetentionPercent(before, after)
	if err := s.cache.Record(req.OutputPath, params); err != nil {
		logger.Warn("crop: parameters not recorded, the crop will be rerun next time: %v", err)
	}
	logger.Info("crop: kept %d of %d points (%.2f%%)", after, before, result.RetentionPercent)
	return result, nil
}

// cropStage converts the geometry into a filter stage and records its
// kind. The returned text identifies the geometry for the stage cache.
func (s *CropService) cropStage(g domain.CropGeometry, mode domain.CropMode, result *domain.CroppedPointCloud) (domain.PipelineStage, string, error) {
	if g.BBox != nil {
		if err := g.BBox.Validate(); err != nil {
			return nil, "", err
		}
		result.GeometryKind = GeometryBBox
		return domain.CropBoundsStage(*g.BBox, mode), bboxText(*g.BBox), nil
	}

	if g.Footprint.IsEmpty() {
		return nil, "", domain.ErrEmptyFootprint
	}
	text, err := geometry.MarshalWKT(g.Footprint.Polygons)
	if err == nil {
		result.GeometryKind = GeometryFootprint
		return domain.CropPolygonStage(text, mode), text, nil
	}
	if s.strict {
		return nil, "", fmt.Errorf("%w: footprint cannot be converted to WKT: %v", domain.ErrInvalidInput, err)
	}

	note := fmt.Sprintf("%v: footprint not convertible (%v), cropping with the planet extent", domain.ErrDegradedCapability, err)
	logger.Warn("crop: %s", note)
	result.GeometryKind = GeometryPlanet
	result.Degraded = true
	result.Notes = append(result.Notes, note)
	return domain.CropBoundsStage(PlanetBox(), mode), GeometryPlanet, nil
}

func bboxText(b domain.BBox) string {
	return fmt.Sprintf("BBOX(%g %g, %g %g)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// PlanetBox returns the box substituted for unconvertible footprints.
func PlanetBox() domain.BBox {
	return domain.BBox{MinX: -PlanetExtent, MinY: -PlanetExtent, MaxX: PlanetExtent, MaxY: PlanetExtent}
}
