package geom

import "math"

// point2 is a vertex in a wall's local 2D frame.
type point2 struct{ x, y float64 }

func signedArea2(p []point2) float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].x*p[j].y - p[j].x*p[i].y
	}
	return a / 2
}

func orient2(a, b, c point2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

func onSegment2(a, b, p point2, tol float64) bool {
	return math.Min(a.x, b.x)-tol <= p.x && p.x <= math.Max(a.x, b.x)+tol &&
		math.Min(a.y, b.y)-tol <= p.y && p.y <= math.Max(a.y, b.y)+tol
}

// segmentsIntersect2 reports whether segments ab and cd touch or cross.
func segmentsIntersect2(a, b, c, d point2, tol float64) bool {
	d1 := orient2(c, d, a)
	d2 := orient2(c, d, b)
	d3 := orient2(a, b, c)
	d4 := orient2(a, b, d)

	if ((d1 > tol && d2 < -tol) || (d1 < -tol && d2 > tol)) &&
		((d3 > tol && d4 < -tol) || (d3 < -tol && d4 > tol)) {
		return true
	}

	switch {
	case math.Abs(d1) <= tol && onSegment2(c, d, a, tol):
		return true
	case math.Abs(d2) <= tol && onSegment2(c, d, b, tol):
		return true
	case math.Abs(d3) <= tol && onSegment2(a, b, c, tol):
		return true
	case math.Abs(d4) <= tol && onSegment2(a, b, d, tol):
		return true
	}

	return false
}

// simple2 reports whether the closed polygon p has no repeated vertices and
// no intersecting non-adjacent edges.
func simple2(p []point2, tol float64) bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		if math.Hypot(b.x-a.x, b.y-a.y) <= tol {
			return false
		}

		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect2(a, b, p[j], p[(j+1)%n], tol) {
				return false
			}
		}
	}
	return true
}

// distToSegment2 returns the distance from q to segment ab.
func distToSegment2(a, b, q point2) float64 {
	dx, dy := b.x-a.x, b.y-a.y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(q.x-a.x, q.y-a.y)
	}

	t := ((q.x-a.x)*dx + (q.y-a.y)*dy) / l2
	t = math.Max(0, math.Min(1, t))

	return math.Hypot(q.x-(a.x+t*dx), q.y-(a.y+t*dy))
}

// inside2 is the crossing-number test; points within tol of an edge count as
// inside.
func inside2(p []point2, q point2, tol float64) bool {
	n := len(p)
	for i := 0; i < n; i++ {
		if distToSegment2(p[i], p[(i+1)%n], q) <= tol {
			return true
		}
	}

	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.y > q.y) != (b.y > q.y) {
			x := a.x + (q.y-a.y)*(b.x-a.x)/(b.y-a.y)
			if q.x < x {
				in = !in
			}
		}
	}
	return in
}

// interiorPoint2 returns a point strictly inside the polygon close to the
// midpoint of its longest edge.
func interiorPoint2(p []point2, tol float64) point2 {
	ccw := signedArea2(p) > 0

	best, bestLen := 0, -1.0
	for i := range p {
		j := (i + 1) % len(p)
		if l := math.Hypot(p[j].x-p[i].x, p[j].y-p[i].y); l > bestLen {
			best, bestLen = i, l
		}
	}

	a, b := p[best], p[(best+1)%len(p)]
	mx, my := (a.x+b.x)/2, (a.y+b.y)/2
	nx, ny := -(b.y-a.y)/bestLen, (b.x-a.x)/bestLen
	if !ccw {
		nx, ny = -nx, -ny
	}

	for step := bestLen * 1e-3; step > tol; step /= 4 {
		q := point2{mx + nx*step, my + ny*step}
		if inside2(p, q, 0) && distToSegment2(a, b, q) > tol {
			return q
		}
	}

	return point2{mx + nx*tol*2, my + ny*tol*2}
}
