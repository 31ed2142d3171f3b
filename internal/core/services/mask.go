package services

import (
	"context"
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

// Ensure MaskService implements the interface.
var _ driving.MaskService = (*MaskService)(nil)

// MaskService thresholds density rasters into binary masks.
type MaskService struct {
	raster   driven.RasterEngine
	strategy driven.MaskStrategy
	renderer driven.PreviewRenderer
	cache    *StageCache
	timeout  time.Duration
}

// NewMaskService creates a mask service. renderer may be nil.
func NewMaskService(
	raster driven.RasterEngine,
	strategy driven.MaskStrategy,
	renderer driven.PreviewRenderer,
	timeout time.Duration,
) *MaskService {
	return &MaskService{
		raster:   raster,
		strategy: strategy,
		renderer: renderer,
		cache:    NewStageCache(raster),
		timeout:  timeout,
	}
}

// Strategy names the active strategy.
func (s *MaskService) Strategy() domain.MaskMethod {
	return s.strategy.Method()
}

// maskParams are the inputs a cached mask must have been built from.
type maskParams struct {
	Density   string  `json:"density"`
	Threshold float64 `json:"threshold"`
}

func newMaskParams(req driving.MaskRequest) maskParams {
	return maskParams{Density: filepath.Clean(req.Density.Path), Threshold: req.Threshold}
}

// Generate thresholds the density raster. Cells strictly greater than
// the threshold are valid.
func (s *MaskService) Generate(ctx context.Context, req driving.MaskRequest) (*domain.BinaryMask, error) {
	if req.Density == nil || req.Density.Path == "" {
		return nil, fmt.Errorf("%w: density raster is required", domain.ErrInvalidInput)
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("%w: mask output path is required", domain.ErrInvalidInput)
	}
	if req.Threshold < 0 || math.IsNaN(req.Threshold) {
		return nil, fmt.Errorf("%w: threshold must be >= 0, got %g", domain.ErrInvalidInput, req.Threshold)
	}
	if _, err := os.Stat(req.Density.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, req.Density.Path)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if !req.Force {
		if m, ok := s.cached(ctx, req); ok {
			logger.Info("mask: reusing %s", req.OutputPath)
			return m, nil
		}
	}

	logger.Info("mask: thresholding %s at > %g (%s)", req.Density.Path, req.Threshold, s.strategy.Method())
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, err
	}
	s.cache.Forget(req.OutputPath)
	out, err := s.strategy.Threshold(ctx, driven.MaskRequest{
		SourcePath: req.Density.Path,
		OutputPath: req.OutputPath,
		Threshold:  req.Threshold,
		Source:     req.Density.Grid,
	})
	if err != nil {
		return nil, err
	}
	if out.Stats.Method == domain.MaskMethodFallback {
		logger.Warn("mask: %v: thresholding through %s algebra", domain.ErrDegradedCapability, s.raster.Name())
	}

	info, err := s.raster.Info(ctx, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("inspect mask: %w", err)
	}
	if err := s.congruent(ctx, req.Density, info); err != nil {
		return nil, err
	}

	m := &domain.BinaryMask{
		Path:       req.OutputPath,
		SourcePath: req.Density.Path,
		Threshold:  req.Threshold,
		Width:      info.Width,
		Height:     info.Height,
		Transform:  info.Transform,
		Stats:      out.Stats,
		Grid:       out.Grid,
	}
	if m.Grid == nil && s.raster.Capabilities().PixelAccess {
		if g, err := s.raster.Read(ctx, req.OutputPath); err == nil {
			m.Grid = g
		}
	}
	if err := s.cache.Record(req.OutputPath, newMaskParams(req)); err != nil {
		logger.Warn("mask: parameters not recorded, the mask will be rebuilt next run: %v", err)
	}
	s.preview(req.PreviewPath, m)
	return m, nil
}

func (s *MaskService) cached(ctx context.Context, req driving.MaskRequest) (*domain.BinaryMask, bool) {
	if !s.cache.Matches(req.OutputPath, newMaskParams(req)) {
		return nil, false
	}
	info, ok := s.cache.Raster(ctx, req.Density.Path, req.OutputPath, 1)
	if !ok || s.congruent(ctx, req.Density, info) != nil {
		return nil, false
	}
	fraction := 0.0
	if info.Stats != nil {
		fraction = info.Stats.Mean
	}
	m := &domain.BinaryMask{
		Path:       req.OutputPath,
		SourcePath: req.Density.Path,
		Threshold:  req.Threshold,
		Width:      info.Width,
		Height:     info.Height,
		Transform:  info.Transform,
		Stats:      domain.MaskStatsFromCoverage(s.strategy.Method(), fraction, info.Width*info.Height),
		Cached:     true,
	}
	if req.PreviewPath != "" {
		if _, err := os.Stat(req.PreviewPath); err == nil {
			m.PreviewPath = req.PreviewPath
		}
	}
	return m, true
}

// congruent checks the mask against the density raster's grid.
func (s *MaskService) congruent(ctx context.Context, d *domain.DensityRaster, mask *domain.RasterInfo) error {
	width, height, gt := d.Width, d.Height, d.Transform
	if width*height == 0 {
		info, err := s.raster.Info(ctx, d.Path)
		if err != nil {
			return err
		}
		width, height, gt = info.Width, info.Height, info.Transform
	}
	if width != mask.Width || height != mask.Height || !gt.Equal(mask.Transform) {
		return fmt.Errorf("%w: mask %dx%d does not match density %dx%d",
			domain.ErrDimensionMismatch, mask.Width, mask.Height, width, height)
	}
	return nil
}

func (s *MaskService) preview(path string, m *domain.BinaryMask) {
	if path == "" || s.renderer == nil || m.Grid == nil {
		return
	}
	if err := s.renderer.Render(path, m.Grid, driven.PreviewMask); err != nil {
		logger.Warn("mask: preview not rendered: %v", err)
		return
	}
	m.PreviewPath = path
}
