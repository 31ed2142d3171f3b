package domain

// Point is a 2D coordinate in the footprint's spatial reference.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is a closed sequence of points; the first point repeats at the end.
type Ring []Point

// Polygon is an outer ring followed by zero or more holes.
// Outer rings wind counter-clockwise, holes clockwise.
type Polygon []Ring

// Footprint is the set of polygons approximating a mask's valid regions.
type Footprint struct {
	Polygons          []Polygon `json:"-"`
	SourcePath        string    `json:"source_path"`
	Path              string    `json:"path,omitempty"`
	Format            string    `json:"format,omitempty"`
	SimplifyTolerance float64   `json:"simplify_tolerance"`
	MinArea           float64   `json:"min_area"`
	PolygonCount      int       `json:"polygon_count"`
	DiscardedCount    int       `json:"discarded_count"`
	TotalArea         float64   `json:"total_area"`
	SRS               string    `json:"srs,omitempty"`
}

// IsEmpty reports whether the footprint holds no polygons.
func (f *Footprint) IsEmpty() bool {
	return f == nil || len(f.Polygons) == 0
}
