// Package rasterstats summarises grid bands with gonum.
package rasterstats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// Compute returns statistics over the valid cells of one band (0-based).
// NaN cells and cells equal to the grid's nodata are excluded. A band
// with no valid cells yields zero min, max, mean and stddev.
func Compute(g *domain.Grid, band int) domain.RasterStats {
	values := Valid(g, band)
	s := domain.RasterStats{
		ValidCount:  len(values),
		NoDataCount: g.CellCount() - len(values),
	}
	if len(values) == 0 {
		return s
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	return s
}

// Valid returns the band's cells that are neither nodata nor NaN.
func Valid(g *domain.Grid, band int) []float64 {
	src := g.Bands[band]
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || g.IsNoData(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// CountAbove returns the number of band cells strictly greater than t.
func CountAbove(g *domain.Grid, band int, t float64) int {
	n := 0
	for _, v := range g.Bands[band] {
		if v > t {
			n++
		}
	}
	return n
}
