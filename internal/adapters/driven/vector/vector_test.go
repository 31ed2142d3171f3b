package vector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func ring(pts ...float64) domain.Ring {
	r := make(domain.Ring, 0, len(pts)/2)
	for i := 0; i+1 < len(pts); i += 2 {
		r = append(r, domain.Point{X: pts[i], Y: pts[i+1]})
	}
	return r
}

// footprint has a square with a hole plus a separate square.
func footprint() *domain.Footprint {
	return &domain.Footprint{
		SRS: `PROJCS["test"]`,
		Polygons: []domain.Polygon{
			{
				ring(0, 0, 10, 0, 10, 10, 0, 10, 0, 0),
				ring(4, 4, 4, 6, 6, 6, 6, 4, 4, 4),
			},
			{
				ring(20, 0, 22, 0, 22, 2, 20, 2, 20, 0),
			},
		},
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, codec := range []interface {
		Format() string
		Extension() string
		Write(string, *domain.Footprint) error
		Read(string) (*domain.Footprint, error)
	}{GeoJSON{}, Shapefile{}, WKT{}} {
		t.Run(codec.Format(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "footprint"+codec.Extension())
			in := footprint()

			require.NoError(t, codec.Write(path, in))
			out, err := codec.Read(path)
			require.NoError(t, err)

			assert.Equal(t, in.Polygons, out.Polygons)
			assert.Equal(t, 2, out.PolygonCount)
			assert.InDelta(t, 100.0, out.TotalArea, 1e-9)
			assert.Equal(t, codec.Format(), out.Format)
		})
	}
}

func TestGeoJSON_ValueProperty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.geojson")
	require.NoError(t, GeoJSON{}.Write(path, footprint()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Equal(t, 2, strings.Count(string(data), `"value":1`))
}

func TestShapefile_WritesSidecars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fp.shp")
	require.NoError(t, Shapefile{}.Write(path, footprint()))

	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		assert.FileExists(t, filepath.Join(dir, "fp"+ext))
	}
	out, err := Shapefile{}.Read(path)
	require.NoError(t, err)
	assert.Equal(t, `PROJCS["test"]`, out.SRS)
}

func TestWKT_LineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.wkt")
	require.NoError(t, WKT{}.Write(path, footprint()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "1;POLYGON"), l)
	}
}

func TestCodecs_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := GeoJSON{}.Read(missing + ".geojson")
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	_, err = Shapefile{}.Read(missing + ".shp")
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	_, err = WKT{}.Read(missing + ".wkt")
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestGeoJSON_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.geojson")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := GeoJSON{}.Read(path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"geojson", "shapefile", "wkt"}, r.Formats())

	c, err := r.Get(domain.VectorShapefile)
	require.NoError(t, err)
	assert.Equal(t, ".shp", c.Extension())

	c, err = r.ForPath("/tmp/x/footprint.GeoJSON")
	require.NoError(t, err)
	assert.Equal(t, domain.VectorGeoJSON, c.Format())

	_, err = r.Get("kml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	_, err = r.ForPath("a.kml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
