package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/geometry"
)

// Ensure GeoJSON implements the interface.
var _ driven.FootprintCodec = (*GeoJSON)(nil)

// GeoJSON writes one Polygon feature per footprint polygon.
type GeoJSON struct{}

// Format returns "geojson".
func (GeoJSON) Format() string { return domain.VectorGeoJSON }

// Extension returns ".geojson".
func (GeoJSON) Extension() string { return ".geojson" }

// Write encodes the footprint as a FeatureCollection.
func (GeoJSON) Write(path string, fp *domain.Footprint) error {
	fc := geojson.NewFeatureCollection()
	for _, p := range fp.Polygons {
		f := geojson.NewFeature(geometry.ToOrb(p))
		f.Properties["value"] = 1
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return writeFile(path, data)
}

// Read decodes Polygon and MultiPolygon features.
func (GeoJSON) Read(path string) (*domain.Footprint, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedFormat, path, err)
	}
	fp := &domain.Footprint{Path: path, Format: domain.VectorGeoJSON}
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			fp.Polygons = append(fp.Polygons, geometry.FromOrb(g))
		case orb.MultiPolygon:
			for _, p := range g {
				fp.Polygons = append(fp.Polygons, geometry.FromOrb(p))
			}
		}
	}
	return finish(fp), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

// finish fills the summary fields derived from polygons.
func finish(fp *domain.Footprint) *domain.Footprint {
	fp.PolygonCount = len(fp.Polygons)
	fp.TotalArea = geometry.TotalArea(fp.Polygons)
	return fp
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
