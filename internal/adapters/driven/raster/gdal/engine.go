// Package gdal implements the raster engine with the GDAL command line
// utilities: gdalinfo for metadata and statistics, gdal_translate and
// gdalbuildvrt for format conversion and gdal_calc.py for algebra.
package gdal

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/ascgrid"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.RasterEngine = (*Engine)(nil)

// Binaries locates the GDAL tools. Empty fields use the tool name on PATH.
type Binaries struct {
	Info      string
	Translate string
	Calc      string
	BuildVRT  string
}

func (b Binaries) withDefaults() Binaries {
	if b.Info == "" {
		b.Info = "gdalinfo"
	}
	if b.Translate == "" {
		b.Translate = "gdal_translate"
	}
	if b.Calc == "" {
		b.Calc = "gdal_calc.py"
	}
	if b.BuildVRT == "" {
		b.BuildVRT = "gdalbuildvrt"
	}
	return b
}

// Engine shells out to GDAL.
type Engine struct {
	runner process.Runner
	bin    Binaries
}

// New creates a GDAL engine.
func New(runner process.Runner, bin Binaries) *Engine {
	return &Engine{runner: runner, bin: bin.withDefaults()}
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "gdal"
}

// Capabilities reports algebra support. Pixel buffers are only reachable
// through text conversion, so the array mask path is not preferred.
func (e *Engine) Capabilities() driven.RasterCapabilities {
	return driven.RasterCapabilities{PixelAccess: false, Algebra: true}
}

// DefaultExtension returns ".tif".
func (e *Engine) DefaultExtension() string {
	return ".tif"
}

// infoDoc mirrors the parts of `gdalinfo -json` we read.
type infoDoc struct {
	Size             []int     `json:"size"`
	GeoTransform     []float64 `json:"geoTransform"`
	CoordinateSystem struct {
		WKT string `json:"wkt"`
	} `json:"coordinateSystem"`
	Bands []struct {
		Band        int                          `json:"band"`
		Type        string                       `json:"type"`
		NoDataValue json.RawMessage              `json:"noDataValue"`
		Minimum     *float64                     `json:"minimum"`
		Maximum     *float64                     `json:"maximum"`
		Mean        *float64                     `json:"mean"`
		StdDev      *float64                     `json:"stdDev"`
		Metadata    map[string]map[string]string `json:"metadata"`
	} `json:"bands"`
}

// Info runs `gdalinfo -json -stats`.
func (e *Engine) Info(ctx context.Context, path string) (*domain.RasterInfo, error) {
	return e.info(ctx, path, true)
}

func (e *Engine) info(ctx context.Context, path string, stats bool) (*domain.RasterInfo, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, err
	}
	args := []string{"-json"}
	if stats {
		args = append(args, "-stats")
	}
	res, err := e.runner.Run(ctx, process.Command{Path: e.bin.Info, Args: append(args, path), Operation: "info"})
	if err != nil {
		return nil, err
	}
	return parseInfo(path, res.Stdout)
}

func parseInfo(path string, data []byte) (*domain.RasterInfo, error) {
	var doc infoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse gdalinfo output: %w", err)
	}
	if len(doc.Size) != 2 {
		return nil, fmt.Errorf("%w: gdalinfo reported no size for %s", domain.ErrUnsupportedFormat, path)
	}

	info := &domain.RasterInfo{
		Path:      path,
		Width:     doc.Size[0],
		Height:    doc.Size[1],
		BandCount: len(doc.Bands),
		SRS:       doc.CoordinateSystem.WKT,
		Transform: domain.GeoTransform{0, 1, 0, 0, 0, 1},
	}
	if len(doc.GeoTransform) == 6 {
		copy(info.Transform[:], doc.GeoTransform)
	}
	if len(doc.Bands) == 0 {
		return info, nil
	}

	b := doc.Bands[0]
	info.DataType = b.Type
	if nd, ok := parseNoData(b.NoDataValue); ok {
		info.NoData = &nd
	}
	if b.Minimum != nil && b.Maximum != nil && b.Mean != nil {
		s := &domain.RasterStats{Min: *b.Minimum, Max: *b.Maximum, Mean: *b.Mean}
		if b.StdDev != nil {
			s.StdDev = *b.StdDev
		}
		total := info.Width * info.Height
		s.ValidCount = total
		if pct, err := strconv.ParseFloat(b.Metadata[""]["STATISTICS_VALID_PERCENT"], 64); err == nil {
			s.ValidCount = int(math.Round(pct / 100 * float64(total)))
		}
		s.NoDataCount = total - s.ValidCount
		info.Stats = s
	}
	return info, nil
}

// parseNoData accepts numeric values and the "nan"/"inf" strings gdalinfo emits.
func parseNoData(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// Read converts each band to an ASCII grid in a scratch directory and
// parses it.
func (e *Engine) Read(ctx context.Context, path string) (*domain.Grid, error) {
	info, err := e.info(ctx, path, false)
	if err != nil {
		return nil, err
	}
	if info.BandCount == 0 {
		return nil, fmt.Errorf("%w: %s has no bands", domain.ErrUnsupportedFormat, path)
	}

	var g *domain.Grid
	err = process.WithTempDir("lidarqc-read-*", func(dir string) error {
		for band := 1; band <= info.BandCount; band++ {
			out := filepath.Join(dir, fmt.Sprintf("band%d.asc", band))
			_, err := e.runner.Run(ctx, process.Command{
				Path:      e.bin.Translate,
				Args:      []string{"-q", "-b", strconv.Itoa(band), "-of", "AAIGrid", path, out},
				Operation: "translate",
			})
			if err != nil {
				return err
			}
			bg, err := ascgrid.ReadFile(out)
			if err != nil {
				return err
			}
			if g == nil {
				g = bg
				g.Bands = g.Bands[:1]
				continue
			}
			g.Bands = append(g.Bands, bg.Bands[0])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.Transform = info.Transform
	g.SRS = info.SRS
	if info.DataType != "" {
		g.DataType = info.DataType
	}
	if info.NoData != nil {
		g.SetNoData(*info.NoData)
	}
	return g, nil
}

// Write stores the grid by converting per-band ASCII grids. Multi-band
// grids are stacked with a VRT first.
func (e *Engine) Write(ctx context.Context, path string, g *domain.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return process.WithTempDir("lidarqc-write-*", func(dir string) error {
		sources := make([]string, 0, g.BandCount())
		for i, band := range g.Bands {
			bg := *g
			bg.Bands = [][]float64{band}
			src := filepath.Join(dir, fmt.Sprintf("band%d.asc", i+1))
			if err := ascgrid.WriteFile(src, &bg); err != nil {
				return err
			}
			sources = append(sources, src)
		}

		input := sources[0]
		if len(sources) > 1 {
			input = filepath.Join(dir, "stack.vrt")
			args := append([]string{"-q", "-separate", input}, sources...)
			if _, err := e.runner.Run(ctx, process.Command{Path: e.bin.BuildVRT, Args: args, Operation: "buildvrt"}); err != nil {
				return err
			}
		}

		args := []string{"-q", "-of", driverFor(path)}
		if g.DataType != "" {
			args = append(args, "-ot", g.DataType)
		}
		if g.HasNoData {
			args = append(args, "-a_nodata", formatNoData(g.NoData))
		}
		if driverFor(path) == "GTiff" {
			args = append(args, "-co", "COMPRESS=LZW")
		}
		args = append(args, input, path)
		_, err := e.runner.Run(ctx, process.Command{Path: e.bin.Translate, Args: args, Operation: "translate"})
		return err
	})
}

// Calc runs gdal_calc.py. Input nodata values are treated as ordinary
// numbers (--hideNoData) so every cell is evaluated.
func (e *Engine) Calc(ctx context.Context, req driven.CalcRequest) error {
	if len(req.Inputs) == 0 {
		return fmt.Errorf("%w: calc needs at least one input", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return err
	}
	args := []string{"--quiet", "--overwrite", "--hideNoData", "--calc=" + req.Expression}
	for _, name := range slices.Sorted(maps.Keys(req.Inputs)) {
		args = append(args, "-"+name, req.Inputs[name])
	}
	args = append(args, "--outfile="+req.Output, "--format="+driverFor(req.Output))
	if req.DataType != "" {
		args = append(args, "--type="+req.DataType)
	}
	if req.NoData != nil {
		args = append(args, "--NoDataValue="+formatNoData(*req.NoData))
	} else {
		args = append(args, "--NoDataValue=none")
	}
	if req.AllBands {
		args = append(args, "--allBands=A")
	}
	_, err := e.runner.Run(ctx, process.Command{Path: e.bin.Calc, Args: args, Operation: "calc"})
	return err
}

func driverFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		return "AAIGrid"
	case ".vrt":
		return "VRT"
	default:
		return "GTiff"
	}
}

func formatNoData(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
