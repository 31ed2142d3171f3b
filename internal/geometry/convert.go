package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// ToOrb converts a domain polygon.
func ToOrb(p domain.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := make(orb.Ring, len(r))
		for j, pt := range r {
			ring[j] = orb.Point{pt.X, pt.Y}
		}
		out[i] = ring
	}
	return out
}

// FromOrb converts an orb polygon.
func FromOrb(p orb.Polygon) domain.Polygon {
	out := make(domain.Polygon, len(p))
	for i, r := range p {
		ring := make(domain.Ring, len(r))
		for j, pt := range r {
			ring[j] = domain.Point{X: pt[0], Y: pt[1]}
		}
		out[i] = ring
	}
	return out
}

// MultiPolygon converts all footprint polygons.
func MultiPolygon(polys []domain.Polygon) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, len(polys))
	for i, p := range polys {
		mp[i] = ToOrb(p)
	}
	return mp
}

// PolygonArea returns the outer ring area minus hole areas.
func PolygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	a := planar.Area(p[0])
	for _, hole := range p[1:] {
		a -= planar.Area(hole)
	}
	return a
}

// TotalArea sums PolygonArea over a footprint.
func TotalArea(polys []domain.Polygon) float64 {
	total := 0.0
	for _, p := range polys {
		total += PolygonArea(ToOrb(p))
	}
	return total
}

// MarshalWKT renders polygons as a single WKT MULTIPOLYGON.
func MarshalWKT(polys []domain.Polygon) (string, error) {
	if len(polys) == 0 {
		return "", fmt.Errorf("%w: no polygons to encode", domain.ErrInvalidInput)
	}
	mp := MultiPolygon(polys)
	for i, p := range mp {
		if err := checkPolygon(p); err != nil {
			return "", fmt.Errorf("polygon %d: %w", i, err)
		}
	}
	return wkt.MarshalString(mp), nil
}

// MarshalPolygonWKT renders one polygon as a WKT POLYGON.
func MarshalPolygonWKT(p domain.Polygon) (string, error) {
	op := ToOrb(p)
	if err := checkPolygon(op); err != nil {
		return "", err
	}
	return wkt.MarshalString(op), nil
}

// UnmarshalWKT parses a POLYGON or MULTIPOLYGON.
func UnmarshalWKT(s string) ([]domain.Polygon, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	switch g := g.(type) {
	case orb.Polygon:
		return []domain.Polygon{FromOrb(g)}, nil
	case orb.MultiPolygon:
		out := make([]domain.Polygon, len(g))
		for i, p := range g {
			out[i] = FromOrb(p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected polygon, got %s", domain.ErrUnsupportedFormat, g.GeoJSONType())
	}
}

// checkPolygon rejects rings that cannot describe an area.
func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", domain.ErrInvalidInput)
	}
	for i, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("%w: ring %d has %d points", domain.ErrInvalidInput, i, len(r))
		}
		if r[0] != r[len(r)-1] {
			return fmt.Errorf("%w: ring %d is not closed", domain.ErrInvalidInput, i)
		}
		for _, pt := range r {
			if !finite(pt[0]) || !finite(pt[1]) {
				return fmt.Errorf("%w: ring %d has a non-finite coordinate", domain.ErrInvalidInput, i)
			}
		}
	}
	return nil
}
