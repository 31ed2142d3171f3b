package rasterstats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func grid(values ...float64) *domain.Grid {
	g := domain.NewGrid(len(values), 1, 1, domain.NorthUp(0, 1, 1))
	copy(g.Bands[0], values)
	g.SetNoData(-9999)
	return g
}

func TestCompute_ExcludesNoData(t *testing.T) {
	s := Compute(grid(2, -9999, 4, math.NaN()), 0)

	assert.Equal(t, 2, s.ValidCount)
	assert.Equal(t, 2, s.NoDataCount)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)
	assert.InDelta(t, 1.0, s.StdDev, 1e-12)
}

func TestCompute_AllNoData(t *testing.T) {
	s := Compute(grid(-9999, -9999), 0)

	assert.Equal(t, domain.RasterStats{NoDataCount: 2}, s)
}

func TestCountAbove(t *testing.T) {
	assert.Equal(t, 2, CountAbove(grid(0, 0, 5, 5), 0, 2))
	assert.Equal(t, 0, CountAbove(grid(-9999, 1), 0, 1))
}
