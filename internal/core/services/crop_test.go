package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/maskmath"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/vector"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

func newCropService(strict bool) *CropService {
	pc, _ := engines()
	return NewCropService(pc, NewStatisticsService(pc, 0), testTimeouts.Crop.Std(), strict)
}

func square(x0, y0, size float64) domain.Polygon {
	return domain.Polygon{domain.Ring{
		{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size}, {X: x0, Y: y0},
	}}
}

func TestCropService_Footprint(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{1, 1, 0}, [3]float64{2, 2, 0}, [3]float64{8, 8, 0}, [3]float64{9, 9, 0})
	fp := &domain.Footprint{Polygons: []domain.Polygon{square(0, 0, 5)}}

	tests := []struct {
		mode  domain.CropMode
		after int64
	}{
		{domain.CropInside, 2},
		{domain.CropOutside, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			out := filepath.Join(dir, string(tt.mode), "r1_cropped.xyz")
			c, err := newCropService(false).Crop(context.Background(), driving.CropRequest{
				Cloud:      domain.PointCloudFile{Path: cloud},
				Geometry:   domain.CropGeometry{Footprint: fp},
				Mode:       tt.mode,
				OutputPath: out,
			})

			require.NoError(t, err)
			assert.Equal(t, GeometryFootprint, c.GeometryKind)
			assert.Equal(t, int64(4), c.PointsBefore)
			assert.Equal(t, tt.after, c.PointsAfter)
			assert.InDelta(t, 50.0, c.RetentionPercent, 1e-9)
			assert.False(t, c.Degraded)
			assert.FileExists(t, out)
		})
	}
}

func TestCropService_BBox(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{1, 1, 0}, [3]float64{2, 2, 0}, [3]float64{3, 3, 0}, [3]float64{9, 9, 0})

	c, err := newCropService(false).Crop(context.Background(), driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{BBox: &domain.BBox{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3}},
		OutputPath: filepath.Join(dir, "out.xyz"),
	})

	require.NoError(t, err)
	assert.Equal(t, GeometryBBox, c.GeometryKind)
	assert.Equal(t, domain.CropInside, c.Mode)
	assert.Equal(t, int64(3), c.PointsAfter)
	assert.InDelta(t, 75.0, c.RetentionPercent, 1e-9)
}

func TestCropService_MalformedFootprintFallsBackToPlanet(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{500000, 4100000, 10}, [3]float64{-73.9, 40.7, 5}, [3]float64{1, 1, 1})
	open := domain.Polygon{domain.Ring{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}

	c, err := newCropService(false).Crop(context.Background(), driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{Footprint: &domain.Footprint{Polygons: []domain.Polygon{open}}},
		OutputPath: filepath.Join(dir, "out.xyz"),
	})

	require.NoError(t, err)
	assert.Equal(t, GeometryPlanet, c.GeometryKind)
	assert.True(t, c.Degraded)
	assert.InDelta(t, 100.0, c.RetentionPercent, 1e-9)
	require.Len(t, c.Notes, 1)
	assert.Contains(t, c.Notes[0], domain.ErrDegradedCapability.Error())
}

func TestCropService_StrictRejectsMalformedFootprint(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), [3]float64{1, 1, 1})
	open := domain.Polygon{domain.Ring{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}

	_, err := newCropService(true).Crop(context.Background(), driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{Footprint: &domain.Footprint{Polygons: []domain.Polygon{open}}},
		OutputPath: filepath.Join(dir, "out.xyz"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCropService_SelfCropRetainsEverything(t *testing.T) {
	dir := t.TempDir()
	pc, raster := engines()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), blockCloud()...)

	d, err := NewDensityService(pc, raster, nil, testTimeouts).Generate(context.Background(), driving.DensityRequest{
		Cloud: domain.PointCloudFile{Path: cloud}, OutputPath: filepath.Join(dir, "density.asc"), Resolution: 1, NoData: -9999,
	})
	require.NoError(t, err)
	m, err := NewMaskService(raster, maskmath.NewArray(raster), nil, 0).Generate(context.Background(), driving.MaskRequest{
		Density: d, OutputPath: filepath.Join(dir, "mask.asc"), Threshold: 0,
	})
	require.NoError(t, err)
	require.InDelta(t, 100.0, m.Stats.CoveragePercent, 1e-9)
	fp, err := NewVectorizeService(raster, vector.NewRegistry()).Vectorize(context.Background(), driving.VectorizeRequest{Mask: m})
	require.NoError(t, err)
	require.Equal(t, 1, fp.PolygonCount)

	c, err := newCropService(false).Crop(context.Background(), driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{Footprint: fp},
		OutputPath: filepath.Join(dir, "cropped.xyz"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(16), c.PointsBefore)
	assert.Equal(t, int64(16), c.PointsAfter)
	assert.Equal(t, 100.0, c.RetentionPercent)
}

func TestCropService_ReusesFreshOutput(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), [3]float64{1, 1, 0}, [3]float64{9, 9, 0})
	req := driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{BBox: &domain.BBox{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}},
		OutputPath: filepath.Join(dir, "out.xyz"),
	}
	svc := newCropService(false)

	first, err := svc.Crop(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Crop(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.PointsAfter, second.PointsAfter)
}

func TestCropService_ParameterChangeInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{1, 1, 0}, [3]float64{2, 2, 0}, [3]float64{9, 9, 0})
	out := filepath.Join(dir, "out.xyz")
	svc := newCropService(false)
	crop := func(box domain.BBox, mode domain.CropMode) *domain.CroppedPointCloud {
		t.Helper()
		c, err := svc.Crop(context.Background(), driving.CropRequest{
			Cloud:      domain.PointCloudFile{Path: cloud},
			Geometry:   domain.CropGeometry{BBox: &box},
			Mode:       mode,
			OutputPath: out,
		})
		require.NoError(t, err)
		return c
	}
	box := domain.BBox{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}

	inside := crop(box, domain.CropInside)
	assert.False(t, inside.Cached)
	assert.Equal(t, int64(2), inside.PointsAfter)

	outside := crop(box, domain.CropOutside)
	assert.False(t, outside.Cached)
	assert.Equal(t, domain.CropOutside, outside.Mode)
	assert.Equal(t, int64(1), outside.PointsAfter)

	smaller := crop(domain.BBox{MinX: 0, MinY: 0, MaxX: 1.5, MaxY: 1.5}, domain.CropInside)
	assert.False(t, smaller.Cached)
	assert.Equal(t, int64(1), smaller.PointsAfter)

	repeated := crop(domain.BBox{MinX: 0, MinY: 0, MaxX: 1.5, MaxY: 1.5}, domain.CropInside)
	assert.True(t, repeated.Cached)
	assert.Equal(t, int64(1), repeated.PointsAfter)
}

func TestCropService_NewerFootprintInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"),
		[3]float64{1, 1, 0}, [3]float64{2, 2, 0}, [3]float64{9, 9, 0})
	fpPath := filepath.Join(dir, "r1_footprint.geojson")
	require.NoError(t, os.WriteFile(fpPath, []byte("{}"), 0o644))
	backdate(t, fpPath)
	req := driving.CropRequest{
		Cloud:      domain.PointCloudFile{Path: cloud},
		Geometry:   domain.CropGeometry{Footprint: &domain.Footprint{Path: fpPath, Polygons: []domain.Polygon{square(0, 0, 5)}}},
		OutputPath: filepath.Join(dir, "out.xyz"),
	}
	svc := newCropService(false)

	_, err := svc.Crop(context.Background(), req)
	require.NoError(t, err)
	reused, err := svc.Crop(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, reused.Cached)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(fpPath, later, later))
	rerun, err := svc.Crop(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, rerun.Cached)
	assert.Equal(t, int64(2), rerun.PointsAfter)
}

func TestCropService_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	cloud := writeCloud(t, filepath.Join(dir, "r1.xyz"), [3]float64{1, 1, 0})
	svc := newCropService(false)
	box := &domain.BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	tests := []struct {
		name string
		req  driving.CropRequest
		want error
	}{
		{"no geometry", driving.CropRequest{Cloud: domain.PointCloudFile{Path: cloud}, OutputPath: "o.xyz"}, domain.ErrInvalidInput},
		{"empty footprint", driving.CropRequest{
			Cloud: domain.PointCloudFile{Path: cloud}, Geometry: domain.CropGeometry{Footprint: &domain.Footprint{}}, OutputPath: "o.xyz",
		}, domain.ErrEmptyFootprint},
		{"inverted bbox", driving.CropRequest{
			Cloud: domain.PointCloudFile{Path: cloud}, Geometry: domain.CropGeometry{BBox: &domain.BBox{MinX: 2, MaxX: 1}}, OutputPath: "o.xyz",
		}, domain.ErrInvalidInput},
		{"bad mode", driving.CropRequest{
			Cloud: domain.PointCloudFile{Path: cloud}, Geometry: domain.CropGeometry{BBox: box}, Mode: "sideways", OutputPath: "o.xyz",
		}, domain.ErrInvalidInput},
		{"missing cloud", driving.CropRequest{
			Cloud: domain.PointCloudFile{Path: filepath.Join(dir, "nope.xyz")}, Geometry: domain.CropGeometry{BBox: box}, OutputPath: "o.xyz",
		}, domain.ErrInputNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Crop(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
