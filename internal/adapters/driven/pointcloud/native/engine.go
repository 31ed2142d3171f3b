package native

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.PointCloudEngine = (*Engine)(nil)

// Engine runs pipelines over text clouds in memory.
type Engine struct {
	raster driven.RasterEngine
}

// New creates a native engine writing count rasters through raster.
func New(raster driven.RasterEngine) *Engine {
	return &Engine{raster: raster}
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "native"
}

// Info reads the cloud and reports its count and bounds. An empty cloud
// reports zero bounds.
func (e *Engine) Info(ctx context.Context, path string) (*domain.PointCloudInfo, error) {
	pts, err := e.read(ctx, domain.ReaderStage(path))
	if err != nil {
		return nil, err
	}
	info := &domain.PointCloudInfo{Path: path, PointCount: int64(len(pts))}
	if b := BoundsOf(pts); !b.IsEmpty() {
		info.Bounds = b
	}
	return info, nil
}

// Run executes the stages in order and returns the number of points read.
func (e *Engine) Run(ctx context.Context, p domain.Pipeline) (int64, error) {
	if len(p.Stages) == 0 {
		return 0, fmt.Errorf("%w: empty pipeline", domain.ErrInvalidInput)
	}

	var (
		pts  []Point
		read int64
	)
	for i, stage := range p.Stages {
		if err := ctx.Err(); err != nil {
			return 0, &domain.EngineError{Engine: e.Name(), Operation: "pipeline", TimedOut: true, Err: err}
		}
		kind := stage.Type()
		if kind == "" && i == 0 {
			kind = domain.StageReadersText
		}
		logger.Debug("native: stage %d %s", i, kind)

		switch {
		case strings.HasPrefix(kind, "readers."):
			next, err := e.read(ctx, stage)
			if err != nil {
				return 0, err
			}
			pts = append(pts, next...)
			read += int64(len(next))

		case kind == domain.StageFiltersCrop:
			f, err := newCropFilter(stage)
			if err != nil {
				return 0, err
			}
			pts = f.apply(pts)

		case kind == domain.StageWritersGDAL:
			if err := e.writeGrid(ctx, stage, pts); err != nil {
				return 0, err
			}

		case kind == domain.StageWritersText:
			if err := WriteXYZFile(stage.Text("filename"), pts); err != nil {
				return 0, fmt.Errorf("write text cloud: %w", err)
			}

		default:
			return 0, fmt.Errorf("%w: native engine cannot run stage %q", domain.ErrUnsupportedFormat, kind)
		}
	}
	return read, nil
}

func (e *Engine) read(ctx context.Context, stage domain.PipelineStage) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := stage.Text("filename")
	kind := stage.Type()
	if kind != "" && kind != domain.StageReadersText {
		return nil, fmt.Errorf("%w: native engine reads text clouds only, got %s (%s)",
			domain.ErrUnsupportedFormat, kind, path)
	}
	return ReadXYZFile(path)
}

// writeGrid bins points into a count raster anchored at (minx, maxy).
// Cells without points hold nodata; an empty cloud yields a single
// nodata cell.
func (e *Engine) writeGrid(ctx context.Context, stage domain.PipelineStage, pts []Point) error {
	if e.raster == nil {
		return fmt.Errorf("%w: no raster engine to write %s", domain.ErrEngineUnavailable, stage.Text("filename"))
	}
	if ot := stage.Text("output_type"); ot != "" && ot != domain.OutputTypeCount {
		return fmt.Errorf("%w: native writers.gdal supports output_type=count, got %q", domain.ErrUnsupportedFormat, ot)
	}
	res, ok := stage.Float("resolution")
	if !ok || res <= 0 {
		return fmt.Errorf("%w: writers.gdal resolution must be > 0", domain.ErrInvalidInput)
	}
	nodata, ok := stage.Float("nodata")
	if !ok {
		nodata = -9999
	}

	b := BoundsOf(pts)
	width, height := 1, 1
	originX, originY := 0.0, 0.0
	if !b.IsEmpty() {
		width = int(math.Floor((b.MaxX-b.MinX)/res)) + 1
		height = int(math.Floor((b.MaxY-b.MinY)/res)) + 1
		originX, originY = b.MinX, b.MaxY
	}

	g := domain.NewGrid(width, height, 1, domain.NorthUp(originX, originY, res))
	g.DataType = domain.DataTypeInt32
	g.SetNoData(nodata)
	cells := g.Bands[0]
	for _, p := range pts {
		col := int(math.Floor((p.X - originX) / res))
		row := int(math.Floor((originY - p.Y) / res))
		cells[g.Index(col, row)]++
	}
	for i, v := range cells {
		if v == 0 {
			cells[i] = nodata
		}
	}
	return e.raster.Write(ctx, stage.Text("filename"), g)
}
