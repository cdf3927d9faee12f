package geom

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/material"
)

// Eps is the distance tolerance in metres for on-surface tests.
const Eps = 1e-9

// Errors returned by geometry construction.
var (
	ErrInvalidGeometry = errors.New("geom: invalid geometry")
	ErrNotClosed       = errors.New("geom: polyhedron is not closed")
)

// Wall is a planar polygon with an outward normal and one material.
type Wall struct {
	name     string
	group    material.Group
	vertices []r3.Vec
	material material.Material

	normal r3.Vec
	offset float64
	area   float64

	// local frame for 2D polygon tests
	origin r3.Vec
	u, v   r3.Vec
	local  []point2
	tol    float64
}

// NewWall validates and builds a wall. The vertex order defines the initial
// normal direction (right-hand rule); [NewPolyhedron] flips walls as needed so
// that normals point outward. A repeated closing vertex is dropped.
func NewWall(name string, group material.Group, vertices []r3.Vec, m material.Material) (*Wall, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("%w: wall %q has no material", ErrInvalidGeometry, name)
	}

	vs := slices.Clone(vertices)
	if len(vs) > 1 && r3.Norm(r3.Sub(vs[0], vs[len(vs)-1])) <= Eps {
		vs = vs[:len(vs)-1]
	}

	if len(vs) < 3 {
		return nil, fmt.Errorf("%w: wall %q needs at least 3 vertices, got %d",
			ErrInvalidGeometry, name, len(vs))
	}

	extent := 0.0
	for _, p := range vs {
		if !finite(p) {
			return nil, fmt.Errorf("%w: wall %q has non-finite vertex %v", ErrInvalidGeometry, name, p)
		}
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	}

	w := &Wall{
		name:     name,
		group:    group,
		vertices: vs,
		material: m,
		tol:      1e-9 * math.Max(1, extent),
	}

	// Newell's method: robust normal and area for any planar polygon.
	var n r3.Vec
	for i := range vs {
		a, b := vs[i], vs[(i+1)%len(vs)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}

	mag := r3.Norm(n)
	if mag/2 <= w.tol*w.tol*1e3 {
		return nil, fmt.Errorf("%w: wall %q has zero area", ErrInvalidGeometry, name)
	}

	w.normal = r3.Scale(1/mag, n)
	w.area = mag / 2
	w.origin = vs[0]
	w.offset = r3.Dot(w.normal, vs[0])

	planarTol := 1e-6 * math.Max(1, extent)
	for _, p := range vs {
		if d := math.Abs(r3.Dot(w.normal, p) - w.offset); d > planarTol {
			return nil, fmt.Errorf("%w: wall %q is not planar (vertex %v off by %g m)",
				ErrInvalidGeometry, name, p, d)
		}
	}

	w.buildFrame()

	if !simple2(w.local, w.tol) {
		return nil, fmt.Errorf("%w: wall %q is self-intersecting", ErrInvalidGeometry, name)
	}

	return w, nil
}

func (w *Wall) buildFrame() {
	var edge r3.Vec
	for i := range w.vertices {
		edge = r3.Sub(w.vertices[(i+1)%len(w.vertices)], w.vertices[i])
		if r3.Norm(edge) > w.tol {
			break
		}
	}

	w.u = r3.Unit(edge)
	w.v = r3.Cross(w.normal, w.u)

	w.local = make([]point2, len(w.vertices))
	for i, p := range w.vertices {
		w.local[i] = w.project(p)
	}
}

func (w *Wall) project(p r3.Vec) point2 {
	d := r3.Sub(p, w.origin)
	return point2{r3.Dot(d, w.u), r3.Dot(d, w.v)}
}

// flip reverses the wall orientation.
func (w *Wall) flip() {
	slices.Reverse(w.vertices)
	w.normal = r3.Scale(-1, w.normal)
	w.offset = -w.offset
	w.origin = w.vertices[0]
	w.buildFrame()
}

// Name returns the wall name.
func (w *Wall) Name() string { return w.name }

// Group returns the face group used for default material assignment.
func (w *Wall) Group() material.Group { return w.group }

// Material returns the wall material.
func (w *Wall) Material() material.Material { return w.material }

// Normal returns the outward unit normal.
func (w *Wall) Normal() r3.Vec { return w.normal }

// Area returns the wall area in m².
func (w *Wall) Area() float64 { return w.area }

// Vertices returns a copy of the polygon vertices.
func (w *Wall) Vertices() []r3.Vec { return slices.Clone(w.vertices) }

// Centroid returns the vertex average.
func (w *Wall) Centroid() r3.Vec {
	var c r3.Vec
	for _, p := range w.vertices {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(w.vertices)), c)
}

// SignedDistance returns the distance of p from the wall plane, positive on
// the outward side.
func (w *Wall) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(w.normal, p) - w.offset
}

// Reflect mirrors p across the wall plane.
func (w *Wall) Reflect(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(2*w.SignedDistance(p), w.normal))
}

// ReflectDir mirrors a direction vector across the wall plane.
func (w *Wall) ReflectDir(d r3.Vec) r3.Vec {
	return r3.Sub(d, r3.Scale(2*r3.Dot(d, w.normal), w.normal))
}

// ContainsPoint reports whether p, assumed to lie on the wall plane, falls
// inside the polygon (edges included).
func (w *Wall) ContainsPoint(p r3.Vec) bool {
	return inside2(w.local, w.project(p), w.tol)
}

// Intersect returns the ray parameter t at which origin + t·dir crosses the
// wall polygon.
func (w *Wall) Intersect(origin, dir r3.Vec) (float64, bool) {
	denom := r3.Dot(w.normal, dir)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}

	t := (w.offset - r3.Dot(w.normal, origin)) / denom
	if !w.ContainsPoint(r3.Add(origin, r3.Scale(t, dir))) {
		return 0, false
	}

	return t, true
}

// interiorPoint returns a point strictly inside the wall polygon.
func (w *Wall) interiorPoint() r3.Vec {
	q := interiorPoint2(w.local, w.tol)
	return r3.Add(w.origin, r3.Add(r3.Scale(q.x, w.u), r3.Scale(q.y, w.v)))
}

func finite(p r3.Vec) bool {
	for _, c := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
