package maskmath

import (
	"context"
	"fmt"
	"strconv"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/rasterstats"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure strategies implement the interface.
var (
	_ driven.MaskStrategy = (*Array)(nil)
	_ driven.MaskStrategy = (*Calc)(nil)
)

// Array thresholds the pixel buffer in memory.
type Array struct {
	raster driven.RasterEngine
}

// NewArray creates the in-memory strategy.
func NewArray(raster driven.RasterEngine) *Array {
	return &Array{raster: raster}
}

// Method returns domain.MaskMethodArray.
func (a *Array) Method() domain.MaskMethod {
	return domain.MaskMethodArray
}

// Threshold compares each cell of band 1 and writes a Byte mask.
func (a *Array) Threshold(ctx context.Context, req driven.MaskRequest) (*driven.MaskOutput, error) {
	src := req.Source
	if src == nil {
		g, err := a.raster.Read(ctx, req.SourcePath)
		if err != nil {
			return nil, err
		}
		src = g
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	mask := Apply(src, req.Threshold)
	if err := a.raster.Write(ctx, req.OutputPath, mask); err != nil {
		return nil, fmt.Errorf("write mask: %w", err)
	}

	return &driven.MaskOutput{
		Stats: domain.NewMaskStats(domain.MaskMethodArray, rasterstats.CountAbove(src, 0, req.Threshold), mask.CellCount()),
		Grid:  mask,
	}, nil
}

// Apply returns the mask of band 1: 1 where the cell exceeds t, else 0.
// The mask carries no nodata value.
func Apply(src *domain.Grid, t float64) *domain.Grid {
	mask := domain.NewGrid(src.Width, src.Height, 1, src.Transform)
	mask.DataType = domain.DataTypeByte
	mask.SRS = src.SRS
	dst := mask.Bands[0]
	for i, v := range src.Bands[0] {
		if v > t {
			dst[i] = domain.MaskValid
		} else {
			dst[i] = domain.MaskArtifact
		}
	}
	return mask
}

// Calc delegates thresholding to the raster engine's algebra tool.
type Calc struct {
	raster driven.RasterEngine
}

// NewCalc creates the tool-based fallback strategy.
func NewCalc(raster driven.RasterEngine) *Calc {
	return &Calc{raster: raster}
}

// Method returns domain.MaskMethodFallback.
func (c *Calc) Method() domain.MaskMethod {
	return domain.MaskMethodFallback
}

// Threshold runs "A > t" and reads coverage back from the result's mean.
func (c *Calc) Threshold(ctx context.Context, req driven.MaskRequest) (*driven.MaskOutput, error) {
	err := c.raster.Calc(ctx, driven.CalcRequest{
		Expression: Expression(req.Threshold),
		Inputs:     map[string]string{"A": req.SourcePath},
		Output:     req.OutputPath,
		DataType:   domain.DataTypeByte,
	})
	if err != nil {
		return nil, err
	}

	info, err := c.raster.Info(ctx, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("inspect mask: %w", err)
	}
	total := info.Width * info.Height
	stats := domain.NewMaskStats(domain.MaskMethodFallback, 0, total)
	if info.Stats != nil {
		stats = domain.MaskStatsFromCoverage(domain.MaskMethodFallback, info.Stats.Mean, total)
	}
	return &driven.MaskOutput{Stats: stats}, nil
}

// Expression renders the threshold expression for input A.
func Expression(t float64) string {
	return "A > " + strconv.FormatFloat(t, 'g', -1, 64)
}

// Select picks a strategy for the configured name and engine capabilities.
// "auto" prefers the array path and falls back to the algebra tool.
func Select(name string, raster driven.RasterEngine) (driven.MaskStrategy, error) {
	caps := raster.Capabilities()
	switch name {
	case domain.MaskStrategyArray:
		return NewArray(raster), nil
	case domain.MaskStrategyCalc:
		if !caps.Algebra {
			return nil, fmt.Errorf("%w: %s has no raster algebra", domain.ErrEngineUnavailable, raster.Name())
		}
		return NewCalc(raster), nil
	case domain.MaskStrategyAuto, "":
		if caps.PixelAccess {
			return NewArray(raster), nil
		}
		if caps.Algebra {
			logger.Warn("%v: %s has no pixel access, masks use the algebra fallback", domain.ErrDegradedCapability, raster.Name())
			return NewCalc(raster), nil
		}
		return NewArray(raster), nil
	default:
		return nil, fmt.Errorf("%w: unknown mask strategy %q", domain.ErrInvalidInput, name)
	}
}
