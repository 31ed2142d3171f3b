package services

import (
	"context"
	"fmt"
	"math"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/geometry"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure VectorizeService implements the interface.
var _ driving.VectorizeService = (*VectorizeService)(nil)

// VectorizeService traces masks into polygon footprints.
type VectorizeService struct {
	raster driven.RasterEngine
	codecs driven.FootprintCodecs
}

// NewVectorizeService creates a vectorize service.
func NewVectorizeService(raster driven.RasterEngine, codecs driven.FootprintCodecs) *VectorizeService {
	return &VectorizeService{raster: raster, codecs: codecs}
}

// Vectorize traces 4-connected valid regions, drops those smaller than
// MinArea and simplifies the rest.
func (s *VectorizeService) Vectorize(ctx context.Context, req driving.VectorizeRequest) (*domain.Footprint, error) {
	if req.Mask == nil || req.Mask.Path == "" {
		return nil, fmt.Errorf("%w: mask is required", domain.ErrInvalidInput)
	}
	if req.SimplifyTolerance < 0 || req.MinArea < 0 || math.IsNaN(req.SimplifyTolerance) || math.IsNaN(req.MinArea) {
		return nil, fmt.Errorf("%w: simplify tolerance and min area must be >= 0", domain.ErrInvalidInput)
	}

	var codec driven.FootprintCodec
	if req.OutputPath != "" {
		c, err := s.codecs.Get(req.Format)
		if err != nil {
			return nil, err
		}
		codec = c
	}

	grid := req.Mask.Grid
	if grid == nil {
		g, err := s.raster.Read(ctx, req.Mask.Path)
		if err != nil {
			return nil, fmt.Errorf("read mask: %w", err)
		}
		grid = g
	}

	traced := geometry.Trace(grid)
	fp := &domain.Footprint{
		SourcePath:        req.Mask.Path,
		SimplifyTolerance: req.SimplifyTolerance,
		MinArea:           req.MinArea,
		SRS:               grid.SRS,
	}
	for _, p := range traced {
		if geometry.PolygonArea(geometry.ToOrb(p)) < req.MinArea {
			fp.DiscardedCount++
			continue
		}
		fp.Polygons = append(fp.Polygons, geometry.Simplify(p, req.SimplifyTolerance))
	}
	fp.PolygonCount = len(fp.Polygons)
	fp.TotalArea = geometry.TotalArea(fp.Polygons)
	logger.Info("vectorize: %d polygons, %d below %g discarded", fp.PolygonCount, fp.DiscardedCount, req.MinArea)

	if codec == nil {
		return fp, nil
	}
	path := req.OutputPath + codec.Extension()
	if err := codec.Write(path, fp); err != nil {
		return nil, fmt.Errorf("write footprint: %w", err)
	}
	fp.Path = path
	fp.Format = codec.Format()
	return fp, nil
}

// ReadFootprint loads a footprint, picking the codec by extension.
func (s *VectorizeService) ReadFootprint(path string) (*domain.Footprint, error) {
	codec, err := s.codecs.ForPath(path)
	if err != nil {
		return nil, err
	}
	return codec.Read(path)
}
