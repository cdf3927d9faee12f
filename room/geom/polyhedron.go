package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Polyhedron is a closed room boundary. It is immutable once built.
type Polyhedron struct {
	walls  []*Wall
	bounds r3.Box
	volume float64
	area   float64

	isBox   bool
	boxSize r3.Vec
}

// Hit describes a ray/wall intersection.
type Hit struct {
	T     float64
	Point r3.Vec
	Wall  int
}

// Test directions for the parity vote in Contains. Chosen off-axis so rays
// rarely graze edges of axis-aligned or extruded rooms.
var parityDirs = []r3.Vec{
	r3.Unit(r3.Vec{X: 0.5773502691896258, Y: 0.5773502691896257, Z: 0.5773502691896259}),
	r3.Unit(r3.Vec{X: -0.3141592653589793, Y: 0.8660254037844386, Z: 0.2718281828459045}),
	r3.Unit(r3.Vec{X: 0.1414213562373095, Y: -0.4142135623730951, Z: -0.7320508075688772}),
}

// NewPolyhedron builds a closed polyhedron from walls. Every edge must be
// shared by exactly two walls; wall normals are re-oriented to point outward.
// The walls are owned by the polyhedron afterwards.
func NewPolyhedron(walls []*Wall) (*Polyhedron, error) {
	if len(walls) < 4 {
		return nil, fmt.Errorf("%w: %d walls cannot enclose a volume", ErrNotClosed, len(walls))
	}

	names := make(map[string]bool, len(walls))
	for _, w := range walls {
		if w == nil {
			return nil, fmt.Errorf("%w: nil wall", ErrInvalidGeometry)
		}
		if names[w.name] {
			return nil, fmt.Errorf("%w: duplicate wall name %q", ErrInvalidGeometry, w.name)
		}
		names[w.name] = true
	}

	p := &Polyhedron{walls: walls}
	p.bounds = boundsOf(walls)

	if err := p.checkClosed(); err != nil {
		return nil, err
	}

	// Orient each wall so that a point just outside it along the normal
	// really lies outside the room.
	scale := r3.Norm(r3.Sub(p.bounds.Max, p.bounds.Min))
	for _, w := range walls {
		probe := r3.Add(w.interiorPoint(), r3.Scale(1e-6*scale, w.normal))
		if p.parity(probe) {
			w.flip()
		}
	}

	for _, w := range walls {
		p.area += w.area
		p.volume += w.offset * w.area
	}
	p.volume /= 3

	if !(p.volume > 0) {
		return nil, fmt.Errorf("%w: polyhedron has no volume", ErrInvalidGeometry)
	}

	return p, nil
}

func boundsOf(walls []*Wall) r3.Box {
	inf := math.Inf(1)
	b := r3.Box{Min: r3.Vec{X: inf, Y: inf, Z: inf}, Max: r3.Vec{X: -inf, Y: -inf, Z: -inf}}

	for _, w := range walls {
		for _, v := range w.vertices {
			b.Min = r3.Vec{X: math.Min(b.Min.X, v.X), Y: math.Min(b.Min.Y, v.Y), Z: math.Min(b.Min.Z, v.Z)}
			b.Max = r3.Vec{X: math.Max(b.Max.X, v.X), Y: math.Max(b.Max.Y, v.Y), Z: math.Max(b.Max.Z, v.Z)}
		}
	}

	return b
}

type vertexKey [3]int64

type edgeKey [2]vertexKey

func quantize(v r3.Vec) vertexKey {
	const q = 1e7
	return vertexKey{int64(math.Round(v.X * q)), int64(math.Round(v.Y * q)), int64(math.Round(v.Z * q))}
}

func makeEdgeKey(a, b r3.Vec) edgeKey {
	ka, kb := quantize(a), quantize(b)
	if kb[0] < ka[0] || (kb[0] == ka[0] && (kb[1] < ka[1] || (kb[1] == ka[1] && kb[2] < ka[2]))) {
		ka, kb = kb, ka
	}
	return edgeKey{ka, kb}
}

// checkClosed verifies that every edge is shared by exactly two walls.
func (p *Polyhedron) checkClosed() error {
	count := make(map[edgeKey]int)
	for _, w := range p.walls {
		for i := range w.vertices {
			count[makeEdgeKey(w.vertices[i], w.vertices[(i+1)%len(w.vertices)])]++
		}
	}

	for k, n := range count {
		if n != 2 {
			return fmt.Errorf("%w: edge %v-%v shared by %d walls", ErrNotClosed, k[0], k[1], n)
		}
	}

	return nil
}

// parity reports whether a ray cast from q crosses the boundary an odd number
// of times, by majority over the fixed test directions.
func (p *Polyhedron) parity(q r3.Vec) bool {
	votes := 0
	for _, d := range parityDirs {
		crossings := 0
		for _, w := range p.walls {
			if t, ok := w.Intersect(q, d); ok && t > Eps {
				crossings++
			}
		}
		if crossings%2 == 1 {
			votes++
		}
	}
	return votes*2 > len(parityDirs)
}

// Contains reports whether q lies strictly inside the room. Points on a wall
// are outside.
func (p *Polyhedron) Contains(q r3.Vec) bool {
	if !finite(q) {
		return false
	}

	b := p.bounds
	if q.X <= b.Min.X || q.Y <= b.Min.Y || q.Z <= b.Min.Z ||
		q.X >= b.Max.X || q.Y >= b.Max.Y || q.Z >= b.Max.Z {
		return false
	}

	for _, w := range p.walls {
		if math.Abs(w.SignedDistance(q)) <= Eps && w.ContainsPoint(q) {
			return false
		}
	}

	return p.parity(q)
}

// Intersect returns the nearest wall hit by origin + t·dir with tMin < t < tMax.
func (p *Polyhedron) Intersect(origin, dir r3.Vec, tMin, tMax float64) (Hit, bool) {
	best := Hit{T: tMax, Wall: -1}
	for i, w := range p.walls {
		// A box is convex: rays only leave through walls they move towards.
		if p.isBox && r3.Dot(w.normal, dir) <= 0 {
			continue
		}
		t, ok := w.Intersect(origin, dir)
		if ok && t > tMin && t < best.T {
			best = Hit{T: t, Wall: i}
		}
	}

	if best.Wall < 0 {
		return Hit{}, false
	}

	best.Point = r3.Add(origin, r3.Scale(best.T, dir))
	return best, true
}

// Visible reports whether the open segment between a and b is unobstructed.
// Walls touched at the endpoints themselves do not block.
func (p *Polyhedron) Visible(a, b r3.Vec) bool {
	d := r3.Sub(b, a)
	length := r3.Norm(d)
	if length <= Eps {
		return true
	}

	lo := Eps / length * 10
	hi := 1 - lo
	for _, w := range p.walls {
		if t, ok := w.Intersect(a, d); ok && t > lo && t < hi {
			return false
		}
	}
	return true
}

// Walls returns the walls in construction order.
func (p *Polyhedron) Walls() []*Wall { return p.walls }

// NumWalls returns the number of walls.
func (p *Polyhedron) NumWalls() int { return len(p.walls) }

// Wall returns wall i.
func (p *Polyhedron) Wall(i int) *Wall { return p.walls[i] }

// WallByName returns the index of the wall called name.
func (p *Polyhedron) WallByName(name string) (int, bool) {
	for i, w := range p.walls {
		if w.name == name {
			return i, true
		}
	}
	return -1, false
}

// Volume returns the enclosed volume in m³.
func (p *Polyhedron) Volume() float64 { return p.volume }

// SurfaceArea returns the total wall area in m².
func (p *Polyhedron) SurfaceArea() float64 { return p.area }

// Bounds returns the axis-aligned bounding box.
func (p *Polyhedron) Bounds() r3.Box { return p.bounds }

// Diameter returns the length of the bounding box diagonal.
func (p *Polyhedron) Diameter() float64 {
	return r3.Norm(r3.Sub(p.bounds.Max, p.bounds.Min))
}

// BoxSize returns the extents of a shoebox room built by [NewBox].
func (p *Polyhedron) BoxSize() (r3.Vec, bool) {
	return p.boxSize, p.isBox
}
