// Package plotpng renders raster previews as PNG heat maps.
package plotpng

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.PreviewRenderer = (*Renderer)(nil)

var (
	artifactColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	validColor    = color.RGBA{R: 40, G: 160, B: 70, A: 255}
	noDataColor   = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// Renderer draws band 0 of a grid with gonum/plot.
type Renderer struct {
	// Width is the image width; height follows the grid aspect ratio.
	Width vg.Length
}

// New returns a renderer producing 6 inch wide images.
func New() *Renderer {
	return &Renderer{Width: 6 * vg.Inch}
}

// Render writes a PNG preview of the grid.
func (r *Renderer) Render(path string, g *domain.Grid, kind driven.PreviewKind) error {
	if g == nil || g.CellCount() == 0 || len(g.Bands) == 0 {
		return fmt.Errorf("%w: nothing to render", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	p := plot.New()
	p.HideAxes()

	grid := gridXYZ{g: g}
	var hm *plotter.HeatMap
	switch kind {
	case driven.PreviewMask:
		p.Title.Text = "Valid mask"
		hm = plotter.NewHeatMap(grid, binaryPalette{})
		hm.Min, hm.Max = domain.MaskArtifact, domain.MaskValid
	default:
		p.Title.Text = "Point density"
		hm = plotter.NewHeatMap(grid, palette.Heat(64, 1))
	}
	hm.NaN = noDataColor
	if math.IsInf(hm.Min, 0) || math.IsInf(hm.Max, 0) {
		hm.Min, hm.Max = 0, 1
	}
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	height := r.Width * vg.Length(float64(g.Height)/float64(g.Width))
	if height < vg.Inch {
		height = vg.Inch
	}
	if err := p.Save(r.Width, height, path); err != nil {
		return fmt.Errorf("save preview %s: %w", path, err)
	}
	return nil
}

// gridXYZ exposes a grid to the heat map with row 0 at the top.
// Nodata cells read as NaN.
type gridXYZ struct {
	g *domain.Grid
}

func (x gridXYZ) Dims() (c, r int) { return x.g.Width, x.g.Height }

func (x gridXYZ) Z(c, r int) float64 {
	v := x.g.At(c, x.g.Height-1-r)
	if x.g.IsNoData(v) {
		return math.NaN()
	}
	return v
}

func (x gridXYZ) X(c int) float64 { return float64(c) }

func (x gridXYZ) Y(r int) float64 { return float64(r) }

type binaryPalette struct{}

func (binaryPalette) Colors() []color.Color {
	return []color.Color{artifactColor, validColor}
}
