package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure DensityService implements the interface.
var _ driving.DensityService = (*DensityService)(nil)

// DensityService bins a cloud into a point-count raster with the
// point-cloud engine and reads it back with the raster engine.
type DensityService struct {
	pointcloud   driven.PointCloudEngine
	raster       driven.RasterEngine
	renderer     driven.PreviewRenderer
	cache        *StageCache
	timeout      time.Duration
	queryTimeout time.Duration
}

// NewDensityService creates a density service. renderer may be nil.
func NewDensityService(
	pointcloud driven.PointCloudEngine,
	raster driven.RasterEngine,
	renderer driven.PreviewRenderer,
	timeouts domain.TimeoutSettings,
) *DensityService {
	return &DensityService{
		pointcloud:   pointcloud,
		raster:       raster,
		renderer:     renderer,
		cache:        NewStageCache(raster),
		timeout:      timeouts.Density.Std(),
		queryTimeout: timeouts.Query.Std(),
	}
}

// Generate builds or reuses the density raster.
func (s *DensityService) Generate(ctx context.Context, req driving.DensityRequest) (*domain.DensityRaster, error) {
	if req.Resolution <= 0 || math.IsNaN(req.Resolution) {
		return nil, fmt.Errorf("%w: resolution must be > 0, got %g", domain.ErrInvalidInput, req.Resolution)
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("%w: density output path is required", domain.ErrInvalidInput)
	}
	cloud, err := domain.OpenPointCloud(req.Cloud.Path)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		if d, ok := s.cached(ctx, cloud, req); ok {
			logger.Info("density: reusing %s", req.OutputPath)
			return d, nil
		}
	}

	logger.Info("density: binning %s at %g with %s", cloud.Path, req.Resolution, s.pointcloud.Name())
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, err
	}
	pipeline := domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud.Path),
		domain.CountGridStage(req.OutputPath, req.Resolution, req.NoData),
	}}
	runCtx, cancel := withTimeout(ctx, s.timeout)
	_, err = s.pointcloud.Run(runCtx, pipeline)
	cancel()
	if err != nil {
		os.Remove(req.OutputPath)
		return nil, err
	}

	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	info, err := s.raster.Info(qctx, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("inspect density raster: %w", err)
	}

	d := densityFromInfo(cloud.Path, req, info)
	if grid, err := s.raster.Read(qctx, req.OutputPath); err == nil {
		d.Grid = grid
	} else {
		logger.Debug("density: pixels not loaded: %v", err)
	}
	s.preview(req.PreviewPath, d)
	if req.MetadataPath != "" {
		if err := writeJSON(req.MetadataPath, d); err != nil {
			logger.Warn("density: metadata sidecar not written: %v", err)
		} else {
			d.MetadataPath = req.MetadataPath
		}
	}
	return d, nil
}

// cached returns the previous raster when it is fresh and its sidecar
// matches the requested parameters.
func (s *DensityService) cached(ctx context.Context, cloud domain.PointCloudFile, req driving.DensityRequest) (*domain.DensityRaster, bool) {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	info, ok := s.cache.Raster(qctx, cloud.Path, req.OutputPath, 1)
	if !ok {
		return nil, false
	}
	if math.Abs(info.Transform.CellSize()-req.Resolution) > 1e-9*req.Resolution {
		return nil, false
	}

	d := densityFromInfo(cloud.Path, req, info)
	if req.MetadataPath != "" {
		var prev domain.DensityRaster
		if err := readJSON(req.MetadataPath, &prev); err == nil && prev.NoData == req.NoData {
			d.Stats = prev.Stats
			d.MetadataPath = req.MetadataPath
		} else if info.NoData == nil || *info.NoData != float64(req.NoData) {
			return nil, false
		}
	}
	if req.PreviewPath != "" {
		if _, err := os.Stat(req.PreviewPath); err == nil {
			d.PreviewPath = req.PreviewPath
		}
	}
	d.Cached = true
	return d, true
}

func (s *DensityService) preview(path string, d *domain.DensityRaster) {
	if path == "" || s.renderer == nil || d.Grid == nil {
		return
	}
	if err := s.renderer.Render(path, d.Grid, driven.PreviewDensity); err != nil {
		logger.Warn("density: preview not rendered: %v", err)
		return
	}
	d.PreviewPath = path
}

func densityFromInfo(source string, req driving.DensityRequest, info *domain.RasterInfo) *domain.DensityRaster {
	d := &domain.DensityRaster{
		Path:       req.OutputPath,
		SourcePath: source,
		Resolution: info.Transform.CellSize(),
		NoData:     req.NoData,
		Width:      info.Width,
		Height:     info.Height,
		Transform:  info.Transform,
	}
	if info.Stats != nil {
		d.Stats = *info.Stats
	}
	return d
}

// writeJSON replaces path with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
