package aruco

import (
	"math"
	"sort"
)

type point struct {
	X, Y float64
}

func cross(o, a, b point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// convexHull returns the hull of pts with Andrew's monotone chain. Collinear
// points are dropped. pts is sorted in place.
func convexHull(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// signedArea is positive for polygons that run clockwise on screen
// (y pointing down).
func signedArea(poly []point) float64 {
	var s float64
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

func dist(a, b point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func segmentDistance(p, a, b point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-a.X-t*dx, p.Y-a.Y-t*dy)
}

// fitQuad approximates a convex hull with a quadrilateral.
//
// The hull's diameter gives one diagonal; the hull vertex farthest from it on
// each side gives the other two corners. The fit is rejected when a side is
// shorter than minSide, when the quad covers less than minFill of the hull
// area, or when some hull vertex strays more than maxDev (relative to the mean
// side) from the quad outline.
func fitQuad(hull []point, minSide, minFill, maxDev float64) ([4]point, bool) {
	var q [4]point
	n := len(hull)
	if n < 4 {
		return q, false
	}

	ai, ci, best := 0, 0, -1.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := dist(hull[i], hull[j]); d > best {
				ai, ci, best = i, j, d
			}
		}
	}
	a, c := hull[ai], hull[ci]

	farthest := func(from, to int) (int, bool) {
		idx, far := -1, 0.0
		for i := (from + 1) % n; i != to; i = (i + 1) % n {
			if d := math.Abs(cross(a, c, hull[i])) / best; d > far {
				idx, far = i, d
			}
		}
		return idx, idx >= 0
	}
	bi, ok1 := farthest(ai, ci)
	di, ok2 := farthest(ci, ai)
	if !ok1 || !ok2 {
		return q, false
	}
	q = [4]point{a, hull[bi], c, hull[di]}

	var perimeter float64
	for i := range q {
		side := dist(q[i], q[(i+1)%4])
		if side < minSide {
			return q, false
		}
		perimeter += side
	}

	hullArea := math.Abs(signedArea(hull))
	if hullArea == 0 || math.Abs(signedArea(q[:]))/hullArea < minFill {
		return q, false
	}

	tol := maxDev*perimeter/4 + 1
	for _, p := range hull {
		nearest := math.Inf(1)
		for i := range q {
			nearest = math.Min(nearest, segmentDistance(p, q[i], q[(i+1)%4]))
		}
		if nearest > tol {
			return q, false
		}
	}

	if signedArea(q[:]) < 0 {
		q[1], q[3] = q[3], q[1]
	}
	return q, true
}
