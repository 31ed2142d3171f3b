package ascgrid

import (
	"context"
	"fmt"
	"math"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/rasterstats"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.RasterEngine = (*Engine)(nil)

// Engine is the in-process ASCII grid raster engine.
type Engine struct{}

// New creates an ASCII grid engine.
func New() *Engine {
	return &Engine{}
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "ascgrid"
}

// Capabilities reports full pixel access and algebra support.
func (e *Engine) Capabilities() driven.RasterCapabilities {
	return driven.RasterCapabilities{PixelAccess: true, Algebra: true}
}

// DefaultExtension returns ".asc".
func (e *Engine) DefaultExtension() string {
	return ".asc"
}

// Info reads the grid and summarises band 1.
func (e *Engine) Info(ctx context.Context, path string) (*domain.RasterInfo, error) {
	g, err := e.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	info := &domain.RasterInfo{
		Path:      path,
		Width:     g.Width,
		Height:    g.Height,
		BandCount: g.BandCount(),
		Transform: g.Transform,
		DataType:  g.DataType,
		SRS:       g.SRS,
	}
	if g.HasNoData {
		nd := g.NoData
		info.NoData = &nd
	}
	stats := rasterstats.Compute(g, 0)
	info.Stats = &stats
	return info, nil
}

// Read loads the grid.
func (e *Engine) Read(ctx context.Context, path string) (*domain.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(path)
}

// Write stores the grid.
func (e *Engine) Write(ctx context.Context, path string, g *domain.Grid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFile(path, g)
}

// Calc evaluates the expression cell by cell. Input nodata values are
// treated as ordinary numbers.
func (e *Engine) Calc(ctx context.Context, req driven.CalcRequest) error {
	expr, err := Compile(req.Expression)
	if err != nil {
		return err
	}

	for _, v := range expr.Vars() {
		if _, ok := req.Inputs[string(v)]; !ok {
			return fmt.Errorf("%w: expression uses %c but no input was given", domain.ErrInvalidInput, v)
		}
	}

	inputs := make(map[byte]*domain.Grid, len(expr.Vars()))
	var ref *domain.Grid
	for _, v := range expr.Vars() {
		g, err := e.Read(ctx, req.Inputs[string(v)])
		if err != nil {
			return err
		}
		if ref == nil {
			ref = g
		} else if err := ref.CheckCongruent(g); err != nil {
			return fmt.Errorf("input %c: %w", v, err)
		}
		inputs[v] = g
	}
	if ref == nil {
		return fmt.Errorf("%w: expression %q references no inputs", domain.ErrInvalidInput, req.Expression)
	}

	out := domain.NewGrid(ref.Width, ref.Height, 1, ref.Transform)
	out.SRS = ref.SRS
	out.DataType = domain.DataTypeFloat64
	if req.DataType != "" {
		out.DataType = req.DataType
	}
	if req.NoData != nil {
		out.SetNoData(*req.NoData)
	}

	var vars [26]float64
	dst := out.Bands[0]
	for i := range dst {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return &domain.EngineError{Engine: e.Name(), Operation: "calc", TimedOut: true, Err: err}
			}
		}
		for v, g := range inputs {
			vars[v-'A'] = g.Bands[0][i]
		}
		r := expr.Eval(&vars)
		if math.IsInf(r, 0) {
			r = math.NaN()
		}
		dst[i] = r
	}
	return e.Write(ctx, req.Output, out)
}
