package geometry

import (
	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// vertex is a cell corner in grid coordinates (x = column, y = row).
type vertex struct{ x, y int }

// edge is a directed cell side with the valid cell on its right when
// viewed with rows growing downwards.
type edge struct {
	from, to vertex
	used     bool
}

// Trace returns one polygon per 4-connected region of cells equal to
// domain.MaskValid, in ground coordinates. Collinear vertices are dropped.
func Trace(mask *domain.Grid) []domain.Polygon {
	if mask == nil || mask.CellCount() == 0 || mask.BandCount() == 0 {
		return nil
	}
	labels, count := label(mask)
	if count == 0 {
		return nil
	}

	edges := make([][]edge, count)
	w, h := mask.Width, mask.Height
	valid := func(c, r int) bool {
		return c >= 0 && r >= 0 && c < w && r < h && labels[r*w+c] != 0
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			id := labels[r*w+c]
			if id == 0 {
				continue
			}
			e := &edges[id-1]
			if !valid(c, r-1) {
				*e = append(*e, edge{from: vertex{c, r}, to: vertex{c + 1, r}})
			}
			if !valid(c+1, r) {
				*e = append(*e, edge{from: vertex{c + 1, r}, to: vertex{c + 1, r + 1}})
			}
			if !valid(c, r+1) {
				*e = append(*e, edge{from: vertex{c + 1, r + 1}, to: vertex{c, r + 1}})
			}
			if !valid(c-1, r) {
				*e = append(*e, edge{from: vertex{c, r + 1}, to: vertex{c, r}})
			}
		}
	}

	gt := mask.Transform
	flip := gt.Determinant() < 0
	polys := make([]domain.Polygon, 0, count)
	for _, es := range edges {
		rings := linkRings(es)
		var shell []vertex
		var holes [][]vertex
		for _, r := range rings {
			if signedArea2(r) > 0 {
				shell = r
			} else {
				holes = append(holes, r)
			}
		}
		if shell == nil {
			continue
		}
		poly := domain.Polygon{toWorld(shell, gt, flip)}
		for _, hole := range holes {
			poly = append(poly, toWorld(hole, gt, flip))
		}
		polys = append(polys, poly)
	}
	return polys
}

// label assigns 4-connected component IDs starting at 1; 0 marks
// cells that are not valid.
func label(mask *domain.Grid) ([]int32, int) {
	w, h := mask.Width, mask.Height
	cells := mask.Bands[0]
	labels := make([]int32, len(cells))
	var next int32
	var stack []int
	for start, v := range cells {
		if v != domain.MaskValid || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c, r := i%w, i/w
			for _, n := range [4][2]int{{c - 1, r}, {c + 1, r}, {c, r - 1}, {c, r + 1}} {
				if n[0] < 0 || n[1] < 0 || n[0] >= w || n[1] >= h {
					continue
				}
				j := n[1]*w + n[0]
				if cells[j] == domain.MaskValid && labels[j] == 0 {
					labels[j] = next
					stack = append(stack, j)
				}
			}
		}
	}
	return labels, int(next)
}

// linkRings chains directed edges into closed rings. Where two edges
// leave the same vertex, the left turn is taken so that diagonal cells of
// one region stay on a single simple ring.
func linkRings(es []edge) [][]vertex {
	out := make(map[vertex][]int, len(es))
	for i, e := range es {
		out[e.from] = append(out[e.from], i)
	}

	var rings [][]vertex
	for start := range es {
		if es[start].used {
			continue
		}
		ring := []vertex{es[start].from}
		cur := start
		for {
			es[cur].used = true
			end := es[cur].to
			if end == es[start].from {
				break
			}
			ring = append(ring, end)
			next := -1
			for _, cand := range out[end] {
				if es[cand].used {
					continue
				}
				if next == -1 || turn(es[cur], es[cand]) < turn(es[cur], es[next]) {
					next = cand
				}
			}
			if next == -1 {
				break
			}
			cur = next
		}
		rings = append(rings, dropCollinear(ring))
	}
	return rings
}

// turn is the cross product of two edge directions; negative is a left
// turn with rows growing downwards.
func turn(a, b edge) int {
	ax, ay := a.to.x-a.from.x, a.to.y-a.from.y
	bx, by := b.to.x-b.from.x, b.to.y-b.from.y
	return ax*by - ay*bx
}

// dropCollinear removes vertices lying on a straight run. The ring is
// open (first vertex not repeated).
func dropCollinear(ring []vertex) []vertex {
	n := len(ring)
	if n < 4 {
		return ring
	}
	out := make([]vertex, 0, n)
	for i := range ring {
		prev, cur, next := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		if (cur.x-prev.x)*(next.y-cur.y)-(cur.y-prev.y)*(next.x-cur.x) != 0 {
			out = append(out, cur)
		}
	}
	return out
}

// signedArea2 returns twice the shoelace area of an open ring in grid
// coordinates. Shells are positive, holes negative.
func signedArea2(ring []vertex) int {
	a := 0
	for i := range ring {
		p, q := ring[i], ring[(i+1)%len(ring)]
		a += p.x*q.y - q.x*p.y
	}
	return a
}

// toWorld applies the geotransform and closes the ring. Rings are
// reversed when the transform flips orientation.
func toWorld(ring []vertex, gt domain.GeoTransform, flip bool) domain.Ring {
	out := make(domain.Ring, 0, len(ring)+1)
	for _, v := range ring {
		x, y := gt.Apply(float64(v.x), float64(v.y))
		out = append(out, domain.Point{X: x, Y: y})
	}
	out = append(out, out[0])
	if flip {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
