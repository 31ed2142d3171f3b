package ascgrid

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

func writeGrid(t *testing.T, path string, w, h int, values ...float64) {
	t.Helper()
	g := domain.NewGrid(w, h, 1, domain.NorthUp(0, float64(h), 1))
	copy(g.Bands[0], values)
	g.SetNoData(-9999)
	require.NoError(t, WriteFile(path, g))
}

func TestEngine_Info(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.asc")
	writeGrid(t, path, 2, 2, 0, 2, 4, -9999)

	info, err := New().Info(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 2, info.Width)
	assert.Equal(t, 1, info.BandCount)
	require.NotNil(t, info.NoData)
	assert.Equal(t, -9999.0, *info.NoData)
	require.NotNil(t, info.Stats)
	assert.Equal(t, 3, info.Stats.ValidCount)
	assert.Equal(t, 4.0, info.Stats.Max)
	assert.Equal(t, 2.0, info.Stats.Mean)
}

func TestEngine_CalcMask(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "d.asc")
	out := filepath.Join(dir, "m.asc")
	writeGrid(t, src, 4, 1, 0, 0, 5, 5)

	err := New().Calc(context.Background(), driven.CalcRequest{
		Expression: "A > 2",
		Inputs:     map[string]string{"A": src},
		Output:     out,
		DataType:   domain.DataTypeByte,
	})
	require.NoError(t, err)

	m, err := ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, m.Bands[0])
	assert.False(t, m.HasNoData)
}

func TestEngine_CalcDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.asc")
	b := filepath.Join(dir, "b.asc")
	writeGrid(t, a, 2, 1, 1, 2)
	writeGrid(t, b, 3, 1, 1, 1, 1)

	err := New().Calc(context.Background(), driven.CalcRequest{
		Expression: "A*(B==1)",
		Inputs:     map[string]string{"A": a, "B": b},
		Output:     filepath.Join(dir, "c.asc"),
	})

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEngine_CalcMissingInput(t *testing.T) {
	err := New().Calc(context.Background(), driven.CalcRequest{
		Expression: "A + B",
		Inputs:     map[string]string{"A": "x.asc"},
		Output:     "y.asc",
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
