package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// simplifyAttempts is the number of halvings tried before a polygon is
// kept unsimplified.
const simplifyAttempts = 4

// Simplify applies Douglas-Peucker to every ring of the polygon without
// breaking topology: rings keep their winding, stay simple, do not cross
// each other and keep at least three distinct vertices. When a tolerance
// breaks any of these, it is halved; after simplifyAttempts failures the
// original polygon is returned.
func Simplify(p domain.Polygon, tolerance float64) domain.Polygon {
	if tolerance <= 0 || len(p) == 0 {
		return p
	}
	src := ToOrb(p)
	tol := tolerance
	for attempt := 0; attempt < simplifyAttempts; attempt++ {
		candidate := make(orb.Polygon, len(src))
		for i, r := range src {
			candidate[i] = simplifyRing(r, tol)
		}
		if validSimplification(src, candidate) {
			return FromOrb(candidate)
		}
		tol /= 2
	}
	return p
}

func simplifyRing(r orb.Ring, tol float64) orb.Ring {
	s := simplify.DouglasPeucker(tol).Simplify(orb.LineString(r).Clone())
	ls, ok := s.(orb.LineString)
	if !ok || len(ls) < 4 {
		return nil
	}
	out := orb.Ring(ls)
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

func validSimplification(orig, cand orb.Polygon) bool {
	for i, r := range cand {
		if len(r) < 4 || r.Orientation() != orig[i].Orientation() {
			return false
		}
	}
	for i := range cand {
		for j := i; j < len(cand); j++ {
			if ringsCross(cand[i], cand[j], i == j) {
				return false
			}
		}
	}
	for _, hole := range cand[1:] {
		if !pointInRing(cand[0], hole[0]) {
			return false
		}
	}
	return true
}

// ringsCross reports whether any two segments of a and b properly
// intersect. With same set, adjacent segments of one ring are skipped.
func ringsCross(a, b orb.Ring, same bool) bool {
	na, nb := len(a)-1, len(b)-1
	for i := 0; i < na; i++ {
		a1, a2 := a[i], a[i+1]
		start := 0
		if same {
			start = i + 1
		}
		for j := start; j < nb; j++ {
			if same && (j == i || j == i+1 || (i == 0 && j == na-1)) {
				continue
			}
			if segmentsIntersect(a1, a2, b[j], b[j+1], same) {
				return true
			}
		}
	}
	return false
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsIntersect reports crossings of p1p2 and q1q2. Touching at a
// single point is allowed between different rings.
func segmentsIntersect(p1, p2, q1, q2 orb.Point, strict bool) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if !strict {
		return false
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) || (d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) || (d4 == 0 && onSegment(p1, p2, q2))
}

// pointInRing is an even-odd test; boundary points count as inside.
func pointInRing(r orb.Ring, p orb.Point) bool {
	in := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if orient(a, b, p) == 0 && onSegment(a, b, p) {
			return true
		}
		if (a[1] > p[1]) != (b[1] > p[1]) &&
			p[0] < (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1])+a[0] {
			in = !in
		}
	}
	return in
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
