package native

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/ascgrid"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func writeCloud(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "cloud.xyz")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestReadXYZ_SkipsHeaders(t *testing.T) {
	pts, err := ReadXYZ(strings.NewReader("X,Y,Z\n# comment\n1,2,3\n4 5 6 9\n\n7;8;9\n"))

	require.NoError(t, err)
	assert.Equal(t, []Point{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, pts)
}

func TestReadXYZ_ShortLine(t *testing.T) {
	_, err := ReadXYZ(strings.NewReader("1,2\n"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestParseBounds(t *testing.T) {
	box, err := ParseBounds("([1, 3], [2, 4])")
	require.NoError(t, err)
	assert.Equal(t, domain.BBox{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}, box)

	box, err = ParseBounds("([0,10],[0,5],[0,100])")
	require.NoError(t, err)
	assert.Equal(t, 5.0, box.MaxY)

	_, err = ParseBounds("1,2,3,4")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_Info(t *testing.T) {
	path := writeCloud(t, t.TempDir(), "0 0 1", "2 4 3", "1 1 2")

	info, err := New(nil).Info(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, int64(3), info.PointCount)
	assert.Equal(t, domain.Bounds{MinX: 0, MinY: 0, MinZ: 1, MaxX: 2, MaxY: 4, MaxZ: 3}, info.Bounds)
}

func TestEngine_Info_EmptyCloud(t *testing.T) {
	path := writeCloud(t, t.TempDir(), "X Y Z")

	info, err := New(nil).Info(context.Background(), path)

	require.NoError(t, err)
	assert.Zero(t, info.PointCount)
	assert.Equal(t, domain.Bounds{}, info.Bounds)
}

func TestEngine_Info_Missing(t *testing.T) {
	_, err := New(nil).Info(context.Background(), filepath.Join(t.TempDir(), "none.xyz"))

	assert.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestEngine_Run_CountGrid(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, dir,
		"0.5 1.5 0", "0.5 1.5 0",
		"1.5 1.5 0",
		"0.5 0.5 0", "0.2 0.2 0", "0.1 0.9 0",
	)
	out := filepath.Join(dir, "density.asc")

	n, err := New(ascgrid.New()).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud),
		domain.CountGridStage(out, 1, -9999),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	g, err := ascgrid.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width)
	assert.Equal(t, 2, g.Height)
	assert.Equal(t, 1.0, g.Transform.CellSize())
	assert.Equal(t, []float64{3, 1, 2, -9999}, g.Bands[0])
}

func TestEngine_Run_EmptyCloudYieldsNoDataGrid(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, dir, "X,Y,Z")
	out := filepath.Join(dir, "density.asc")

	n, err := New(ascgrid.New()).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud),
		domain.CountGridStage(out, 2, -9999),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	g, err := ascgrid.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []float64{-9999}, g.Bands[0])
}

func TestEngine_Run_CropPolygon(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, dir, "1 1 0", "5 5 0", "2 2 0", "0.5 2.5 0")
	out := filepath.Join(dir, "cropped.xyz")

	_, err := New(nil).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud),
		domain.CropPolygonStage("POLYGON((0 0,3 0,3 3,0 3,0 0))", domain.CropInside),
		domain.CloudWriterStage(out),
	}})
	require.NoError(t, err)

	pts, err := ReadXYZFile(out)
	require.NoError(t, err)
	assert.Equal(t, []Point{{1, 1, 0}, {2, 2, 0}, {0.5, 2.5, 0}}, pts)
}

func TestEngine_Run_CropBoundsOutside(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, dir, "1 1 0", "5 5 0")
	out := filepath.Join(dir, "cropped.xyz")

	_, err := New(nil).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud),
		domain.CropBoundsStage(domain.BBox{MaxX: 2, MaxY: 2}, domain.CropOutside),
		domain.CloudWriterStage(out),
	}})
	require.NoError(t, err)

	pts, err := ReadXYZFile(out)
	require.NoError(t, err)
	assert.Equal(t, []Point{{5, 5, 0}}, pts)
}

func TestEngine_Run_RejectsLAS(t *testing.T) {
	_, err := New(nil).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage("/data/r1.laz"),
	}})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestEngine_Run_MalformedPolygon(t *testing.T) {
	cloud := writeCloud(t, t.TempDir(), "1 1 0")

	_, err := New(nil).Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage(cloud),
		domain.CropPolygonStage("POLYGON((0 0, 1", domain.CropInside),
	}})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
