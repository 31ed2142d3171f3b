package native

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

var boundsPattern = regexp.MustCompile(
	`^\(\s*\[\s*([^,\]]+)\s*,\s*([^,\]]+)\s*\]\s*,\s*\[\s*([^,\]]+)\s*,\s*([^,\]]+)\s*\]`)

// ParseBounds reads the "([minx, maxx], [miny, maxy])" syntax. A trailing
// Z range is ignored.
func ParseBounds(s string) (domain.BBox, error) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return domain.BBox{}, fmt.Errorf("%w: bounds %q", domain.ErrInvalidInput, s)
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return domain.BBox{}, fmt.Errorf("%w: bounds %q: %v", domain.ErrInvalidInput, s, err)
		}
		v[i] = f
	}
	box := domain.BBox{MinX: v[0], MaxX: v[1], MinY: v[2], MaxY: v[3]}
	return box, box.Validate()
}

// cropFilter keeps points on one side of a region.
type cropFilter struct {
	contains func(x, y float64) bool
	outside  bool
}

func newCropFilter(stage domain.PipelineStage) (*cropFilter, error) {
	f := &cropFilter{outside: stage.Bool("outside")}

	if poly := stage.Text("polygon"); poly != "" {
		geom, err := wkt.Unmarshal(poly)
		if err != nil {
			return nil, fmt.Errorf("%w: crop polygon: %v", domain.ErrInvalidInput, err)
		}
		var mp orb.MultiPolygon
		switch g := geom.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			return nil, fmt.Errorf("%w: crop polygon is a %s", domain.ErrUnsupportedFormat, geom.GeoJSONType())
		}
		bound := mp.Bound()
		f.contains = func(x, y float64) bool {
			p := orb.Point{x, y}
			return bound.Contains(p) && planar.MultiPolygonContains(mp, p)
		}
		return f, nil
	}

	if bounds := stage.Text("bounds"); bounds != "" {
		box, err := ParseBounds(bounds)
		if err != nil {
			return nil, err
		}
		f.contains = box.Contains
		return f, nil
	}
	return nil, fmt.Errorf("%w: filters.crop needs polygon or bounds", domain.ErrInvalidInput)
}

func (f *cropFilter) apply(pts []Point) []Point {
	out := pts[:0:0]
	for _, p := range pts {
		if f.contains(p.X, p.Y) != f.outside {
			out = append(out, p)
		}
	}
	return out
}
