package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure CleanService implements the interface.
var _ driving.CleanService = (*CleanService)(nil)

// skipDirs are never searched for derivatives during a batch clean.
var skipDirs = map[string]bool{
	domain.CleanedDir: true,
	"density":         true,
	"clean_rasters":   true,
}

// CleanService replaces masked-out cells of derivative rasters with nodata.
type CleanService struct {
	raster  driven.RasterEngine
	nodata  float64
	timeout time.Duration
}

// NewCleanService creates a clean service. nodata is used for rasters
// that declare none.
func NewCleanService(raster driven.RasterEngine, nodata float64, timeout time.Duration) *CleanService {
	return &CleanService{raster: raster, nodata: nodata, timeout: timeout}
}

// Clean masks one raster.
func (s *CleanService) Clean(ctx context.Context, req driving.CleanRequest) (*domain.CleanResult, error) {
	if req.RasterPath == "" || req.MaskPath == "" {
		return nil, fmt.Errorf("%w: raster and mask paths are required", domain.ErrInvalidInput)
	}
	for _, p := range []string{req.RasterPath, req.MaskPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, p)
		}
	}
	out := req.OutputPath
	if out == "" {
		out = domain.CleanedPath(req.RasterPath)
	}
	if filepath.Clean(out) == filepath.Clean(req.RasterPath) {
		return nil, fmt.Errorf("%w: cleaned output would overwrite %s", domain.ErrInvalidInput, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result := &domain.CleanResult{InputPath: req.RasterPath, OutputPath: out}
	if t, ok := domain.MatchRasterType(req.RasterPath); ok {
		result.Type = t
	}

	var err error
	if s.raster.Capabilities().PixelAccess {
		err = s.cleanArray(ctx, req.RasterPath, req.MaskPath, out, result)
	} else {
		err = s.cleanCalc(ctx, req.RasterPath, req.MaskPath, out, result)
	}
	if err != nil {
		return nil, err
	}
	result.Success = true
	logger.Debug("clean: %s -> %s (%d cells masked)", req.RasterPath, out, result.CellsMasked)
	return result, nil
}

func (s *CleanService) cleanArray(ctx context.Context, rasterPath, maskPath, out string, result *domain.CleanResult) error {
	src, err := s.raster.Read(ctx, rasterPath)
	if err != nil {
		return fmt.Errorf("read raster: %w", err)
	}
	mask, err := s.raster.Read(ctx, maskPath)
	if err != nil {
		return fmt.Errorf("read mask: %w", err)
	}
	if err := src.CheckCongruent(mask); err != nil {
		return err
	}

	nodata := s.nodata
	if src.HasNoData {
		nodata = src.NoData
	}
	dst := src.Clone()
	dst.SetNoData(nodata)
	cells := mask.Bands[0]
	for i, m := range cells {
		if m == domain.MaskValid {
			continue
		}
		result.CellsMasked++
		for _, band := range dst.Bands {
			band[i] = nodata
		}
	}
	result.BandsCleaned = dst.BandCount()
	return s.raster.Write(ctx, out, dst)
}

func (s *CleanService) cleanCalc(ctx context.Context, rasterPath, maskPath, out string, result *domain.CleanResult) error {
	src, err := s.raster.Info(ctx, rasterPath)
	if err != nil {
		return fmt.Errorf("inspect raster: %w", err)
	}
	mask, err := s.raster.Info(ctx, maskPath)
	if err != nil {
		return fmt.Errorf("inspect mask: %w", err)
	}
	if src.Width != mask.Width || src.Height != mask.Height || !src.Transform.Equal(mask.Transform) {
		return fmt.Errorf("%w: raster %dx%d vs mask %dx%d",
			domain.ErrDimensionMismatch, src.Width, src.Height, mask.Width, mask.Height)
	}

	nodata := s.nodata
	if src.NoData != nil {
		nodata = *src.NoData
	}
	err = s.raster.Calc(ctx, driven.CalcRequest{
		Expression: CleanExpression(nodata),
		Inputs:     map[string]string{"A": rasterPath, "B": maskPath},
		Output:     out,
		DataType:   src.DataType,
		NoData:     &nodata,
		AllBands:   src.BandCount > 1,
	})
	if err != nil {
		return err
	}

	total := mask.Width * mask.Height
	if mask.Stats != nil {
		valid := int(math.Round(mask.Stats.Mean * float64(total)))
		result.CellsMasked = total - valid
	}
	result.BandsCleaned = src.BandCount
	return nil
}

// CleanExpression keeps A where mask B is valid and writes nodata elsewhere.
func CleanExpression(nodata float64) string {
	return "A*(B==1) + (" + strconv.FormatFloat(nodata, 'g', -1, 64) + ")*(B!=1)"
}

// CleanBatch cleans every recognised derivative below regionDir. Output
// directories of earlier runs are not searched.
func (s *CleanService) CleanBatch(ctx context.Context, regionDir, maskPath string) (*domain.CleanBatchReport, error) {
	if info, err := os.Stat(regionDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: region directory %s", domain.ErrInputNotFound, regionDir)
	}
	if _, err := os.Stat(maskPath); err != nil {
		return nil, fmt.Errorf("%w: mask %s", domain.ErrInputNotFound, maskPath)
	}

	var files []string
	err := filepath.WalkDir(regionDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != regionDir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Clean(path) == filepath.Clean(maskPath) {
			return nil
		}
		if _, ok := domain.MatchRasterType(path); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", regionDir, err)
	}

	report := &domain.CleanBatchReport{RegionDir: regionDir}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		res, err := s.Clean(ctx, driving.CleanRequest{RasterPath: path, MaskPath: maskPath})
		if err != nil {
			t, _ := domain.MatchRasterType(path)
			res = &domain.CleanResult{InputPath: path, Type: t, Error: err.Error()}
			report.Failed++
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("clean: %s skipped: %v", path, err)
			} else {
				logger.Error("clean: %s failed: %v", path, err)
			}
		} else {
			report.Successful++
		}
		report.Results = append(report.Results, *res)
	}
	logger.Info("clean: %d processed, %d successful, %d failed", report.Processed, report.Successful, report.Failed)
	return report, nil
}
