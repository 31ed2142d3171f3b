package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/geometry"
)

// Ensure Shapefile implements the interface.
var _ driven.FootprintCodec = (*Shapefile)(nil)

// Shapefile writes a POLYGON shapefile with .shp, .shx and .dbf parts.
// Outer rings are stored clockwise as the format requires.
type Shapefile struct{}

// Format returns "shapefile".
func (Shapefile) Format() string { return domain.VectorShapefile }

// Extension returns ".shp".
func (Shapefile) Extension() string { return ".shp" }

// Write creates the shapefile and an optional .prj sidecar.
func (Shapefile) Write(path string, fp *domain.Footprint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile: %w", err)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.NumberField("value", 10)}); err != nil {
		return fmt.Errorf("shapefile fields: %w", err)
	}
	for _, p := range fp.Polygons {
		parts := make([][]shp.Point, 0, len(p))
		for _, r := range p {
			parts = append(parts, toShpRing(r))
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := w.Write(&poly)
		if err := w.WriteAttribute(int(row), 0, 1); err != nil {
			return fmt.Errorf("shapefile attribute: %w", err)
		}
	}
	if fp.SRS != "" {
		prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
		if err := os.WriteFile(prj, []byte(fp.SRS), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Read groups rings into polygons: each clockwise ring opens a polygon
// and the counter-clockwise rings after it are its holes.
func (Shapefile) Read(path string) (*domain.Footprint, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, err
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedFormat, path, err)
	}
	defer r.Close()

	fp := &domain.Footprint{Path: path, Format: domain.VectorShapefile}
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, fmt.Errorf("%w: %s: expected polygons, got %T", domain.ErrUnsupportedFormat, path, shape)
		}
		for _, ring := range shpRings(poly) {
			if ring.Orientation() == orb.CW || len(fp.Polygons) == 0 {
				fp.Polygons = append(fp.Polygons, domain.Polygon{})
			}
			last := &fp.Polygons[len(fp.Polygons)-1]
			*last = append(*last, geometry.FromOrb(orb.Polygon{reversed(ring)})[0])
		}
	}
	if data, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"); err == nil {
		fp.SRS = strings.TrimSpace(string(data))
	}
	return finish(fp), nil
}

// toShpRing reverses a ring into shapefile winding.
func toShpRing(r domain.Ring) []shp.Point {
	pts := make([]shp.Point, len(r))
	for i, p := range r {
		pts[len(r)-1-i] = shp.Point{X: p.X, Y: p.Y}
	}
	return pts
}

func shpRings(p *shp.Polygon) []orb.Ring {
	rings := make([]orb.Ring, 0, len(p.Parts))
	for i, start := range p.Parts {
		end := int32(len(p.Points))
		if i+1 < len(p.Parts) {
			end = p.Parts[i+1]
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

func reversed(r orb.Ring) orb.Ring {
	out := slices.Clone(r)
	slices.Reverse(out)
	return out
}
