package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/ascgrid"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/render/plotpng"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

func newDensityService() *DensityService {
	pc, raster := engines()
	return NewDensityService(pc, raster, plotpng.New(), testTimeouts)
}

func densityRequest(dir, cloud string) driving.DensityRequest {
	return driving.DensityRequest{
		Cloud:        domain.PointCloudFile{Path: cloud},
		OutputPath:   filepath.Join(dir, "out", "r1_density.asc"),
		PreviewPath:  filepath.Join(dir, "out", "r1_density.png"),
		MetadataPath: filepath.Join(dir, "out", "r1_density_metadata.json"),
		Resolution:   1,
		NoData:       -9999,
	}
}

func TestDensityService_Generate(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{0, 4, 1}, [3]float64{0, 4, 2}, [3]float64{3, 4, 1}, [3]float64{0, 0, 1})
	req := densityRequest(dir, cloud)

	d, err := newDensityService().Generate(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, d.Cached)
	assert.Equal(t, 4, d.Width)
	assert.Equal(t, 5, d.Height)
	assert.Equal(t, 1.0, d.Resolution)
	assert.Equal(t, 1.0, d.Transform.CellSize())
	assert.Equal(t, 3, d.Stats.ValidCount)
	assert.Equal(t, 17, d.Stats.NoDataCount)
	assert.Equal(t, 2.0, d.Stats.Max)
	assert.FileExists(t, req.PreviewPath)
	assert.FileExists(t, req.MetadataPath)
	assert.Equal(t, req.PreviewPath, d.PreviewPath)

	g, err := ascgrid.ReadFile(req.OutputPath)
	require.NoError(t, err)
	require.True(t, g.HasNoData)
	assert.Equal(t, -9999.0, g.NoData)
	assert.Equal(t, 2.0, g.At(0, 0))
	assert.Equal(t, 1.0, g.At(3, 0))
	assert.Equal(t, 1.0, g.At(0, 4))
	for i, v := range g.Bands[0] {
		if v != 1 && v != 2 {
			assert.Equal(t, -9999.0, v, "cell %d", i)
		}
	}
}

func TestDensityService_CellSizeFollowsResolution(t *testing.T) {
	for _, res := range []float64{0.5, 1, 2.5} {
		dir := t.TempDir()
		cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)
		req := densityRequest(dir, cloud)
		req.Resolution = res
		req.NoData = -1

		d, err := newDensityService().Generate(context.Background(), req)

		require.NoError(t, err)
		assert.InDelta(t, res, d.Transform.CellSize(), 1e-12)
		g, err := ascgrid.ReadFile(req.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, -1.0, g.NoData)
		for _, v := range g.Bands[0] {
			assert.True(t, v == -1 || v >= 1, "cell value %g", v)
		}
	}
}

func TestDensityService_ReusesFreshOutput(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)
	req := densityRequest(dir, cloud)
	svc := newDensityService()

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Transform, second.Transform)

	req.Force = true
	forced, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
}

func TestDensityService_ResolutionChangeInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)
	req := densityRequest(dir, cloud)
	svc := newDensityService()

	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	req.Resolution = 2
	d, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, d.Cached)
	assert.Equal(t, 2.0, d.Resolution)
}

func TestDensityService_StaleOutputRegenerated(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)
	req := densityRequest(dir, cloud)
	svc := newDensityService()

	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	backdate(t, req.OutputPath)
	require.NoError(t, os.Chtimes(cloud, timeNow(), timeNow()))

	d, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, d.Cached)
}

func TestDensityService_EmptyCloud(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "empty.xyz"))

	d, err := newDensityService().Generate(context.Background(), densityRequest(dir, cloud))

	require.NoError(t, err)
	assert.False(t, d.IsEmpty())
	assert.Zero(t, d.Stats.ValidCount)
	assert.Equal(t, d.Width*d.Height, d.Stats.NoDataCount)
}

func TestDensityService_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)
	svc := newDensityService()

	req := densityRequest(dir, cloud)
	req.Resolution = 0
	_, err := svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = densityRequest(dir, cloud)
	req.OutputPath = ""
	_, err = svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Generate(context.Background(), densityRequest(dir, filepath.Join(dir, "missing.xyz")))
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestDensityService_EngineFailureRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.laz"), blockCloud()...)
	req := densityRequest(dir, cloud)

	_, err := newDensityService().Generate(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.NoFileExists(t, req.OutputPath)
}
