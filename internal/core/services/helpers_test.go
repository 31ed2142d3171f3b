package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/pointcloud/native"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/ascgrid"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// testTimeouts keeps engine calls short in tests.
var testTimeouts = domain.TimeoutSettings{
	Query:         domain.Duration(10 * time.Second),
	RasterAlgebra: domain.Duration(10 * time.Second),
	Density:       domain.Duration(10 * time.Second),
	Crop:          domain.Duration(10 * time.Second),
	Generator:     domain.Duration(10 * time.Second),
}

// engines returns the pure-Go point-cloud and raster engines.
func engines() (*native.Engine, *ascgrid.Engine) {
	raster := ascgrid.New()
	return native.New(raster), raster
}

// writeCloud writes an X,Y,Z text cloud and backdates it so outputs
// created afterwards are strictly newer.
func writeCloud(t *testing.T, path string, pts ...[3]float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("X,Y,Z\n")
	for _, p := range pts {
		fmt.Fprintf(&b, "%g,%g,%g\n", p[0], p[1], p[2])
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	backdate(t, path)
	return path
}

func backdate(t *testing.T, path string) {
	t.Helper()
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
}

// blockCloud returns one point in the middle of each cell of a 4x4 block
// anchored at (10.5, 23.5) when binned at resolution 1.
func blockCloud() [][3]float64 {
	var pts [][3]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			pts = append(pts, [3]float64{10.5 + float64(i), 20.5 + float64(j), 100})
		}
	}
	return pts
}

// writeGrid writes a single band grid with square cells of size 1
// anchored at (originX, originY).
func writeGrid(t *testing.T, path string, w, h int, originX, originY float64, nodata *float64, cells ...float64) string {
	t.Helper()
	g := domain.NewGrid(w, h, 1, domain.NorthUp(originX, originY, 1))
	g.DataType = domain.DataTypeFloat64
	if nodata != nil {
		g.SetNoData(*nodata)
	}
	copy(g.Bands[0], cells)
	require.NoError(t, ascgrid.WriteFile(path, g))
	return path
}

func ptr(v float64) *float64 { return &v }

func timeNow() time.Time { return time.Now() }
