package geom

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/material"
)

// Box wall indices, in the order [NewBox] creates them.
const (
	West = iota
	East
	South
	North
	FloorWall
	CeilingWall
)

var boxNames = [6]string{"west", "east", "south", "north", "floor", "ceiling"}

// BoxWallName returns the name of box wall i.
func BoxWallName(i int) string { return boxNames[i] }

// NewBox builds an axis-aligned shoebox spanning [0,lx]×[0,ly]×[0,lz] with z
// pointing up. Walls are west (x=0), east (x=lx), south (y=0), north (y=ly),
// floor (z=0) and ceiling (z=lz).
func NewBox(lx, ly, lz float64, faces material.Faces) (*Polyhedron, error) {
	for _, d := range []float64{lx, ly, lz} {
		if !(d > 0) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: box extents must be positive and finite, got %g×%g×%g",
				ErrInvalidGeometry, lx, ly, lz)
		}
	}

	v := func(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

	quads := [6][]r3.Vec{
		West:        {v(0, 0, 0), v(0, 0, lz), v(0, ly, lz), v(0, ly, 0)},
		East:        {v(lx, 0, 0), v(lx, ly, 0), v(lx, ly, lz), v(lx, 0, lz)},
		South:       {v(0, 0, 0), v(lx, 0, 0), v(lx, 0, lz), v(0, 0, lz)},
		North:       {v(0, ly, 0), v(0, ly, lz), v(lx, ly, lz), v(lx, ly, 0)},
		FloorWall:   {v(0, 0, 0), v(0, ly, 0), v(lx, ly, 0), v(lx, 0, 0)},
		CeilingWall: {v(0, 0, lz), v(lx, 0, lz), v(lx, ly, lz), v(0, ly, lz)},
	}

	walls := make([]*Wall, len(quads))
	for i, q := range quads {
		g := material.Side
		switch i {
		case FloorWall:
			g = material.Floor
		case CeilingWall:
			g = material.Ceiling
		}

		w, err := NewWall(boxNames[i], g, q, faces.For(boxNames[i], g))
		if err != nil {
			return nil, err
		}
		walls[i] = w
	}
	if err := checkOverrides(faces, walls); err != nil {
		return nil, err
	}

	p, err := NewPolyhedron(walls)
	if err != nil {
		return nil, err
	}

	p.isBox = true
	p.boxSize = v(lx, ly, lz)

	return p, nil
}

// ValidateFloorPlan checks that corners describe a simple polygon with
// non-zero area. A repeated closing corner is accepted.
func ValidateFloorPlan(corners [][2]float64) error {
	_, err := floorPlan(corners)
	return err
}

// floorPlan validates corners and returns them counter-clockwise.
func floorPlan(corners [][2]float64) ([]point2, error) {
	pts := make([]point2, 0, len(corners))
	for _, c := range corners {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsInf(c[0], 0) || math.IsInf(c[1], 0) {
			return nil, fmt.Errorf("%w: non-finite corner %v", ErrInvalidGeometry, c)
		}
		pts = append(pts, point2{c[0], c[1]})
	}

	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}

	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: floor plan needs at least 3 corners, got %d", ErrInvalidGeometry, len(pts))
	}

	area := signedArea2(pts)
	if math.Abs(area) <= 1e-12 {
		return nil, fmt.Errorf("%w: floor plan has zero area", ErrInvalidGeometry)
	}

	if !simple2(pts, 1e-9) {
		return nil, fmt.Errorf("%w: floor plan is self-intersecting", ErrInvalidGeometry)
	}

	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	return pts, nil
}

// Extrude builds a prism from a floor plan in the z=0 plane and a height.
// Side walls are named wall0, wall1, ... following the counter-clockwise
// corner order.
func Extrude(corners [][2]float64, height float64, faces material.Faces) (*Polyhedron, error) {
	if !(height > 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("%w: extrusion height must be positive and finite, got %g",
			ErrInvalidGeometry, height)
	}

	pts, err := floorPlan(corners)
	if err != nil {
		return nil, err
	}

	n := len(pts)
	floor := make([]r3.Vec, n)
	ceiling := make([]r3.Vec, n)
	for i, p := range pts {
		floor[n-1-i] = r3.Vec{X: p.x, Y: p.y}
		ceiling[i] = r3.Vec{X: p.x, Y: p.y, Z: height}
	}

	walls := make([]*Wall, 0, n+2)

	fw, err := NewWall("floor", material.Floor, floor, faces.For("floor", material.Floor))
	if err != nil {
		return nil, err
	}
	cw, err := NewWall("ceiling", material.Ceiling, ceiling, faces.For("ceiling", material.Ceiling))
	if err != nil {
		return nil, err
	}
	walls = append(walls, fw, cw)

	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		name := fmt.Sprintf("wall%d", i)
		quad := []r3.Vec{
			{X: a.x, Y: a.y},
			{X: b.x, Y: b.y},
			{X: b.x, Y: b.y, Z: height},
			{X: a.x, Y: a.y, Z: height},
		}

		w, err := NewWall(name, material.Side, quad, faces.For(name, material.Side))
		if err != nil {
			return nil, err
		}
		walls = append(walls, w)
	}
	if err := checkOverrides(faces, walls); err != nil {
		return nil, err
	}

	return NewPolyhedron(walls)
}

// checkOverrides rejects material overrides that name none of walls.
func checkOverrides(faces material.Faces, walls []*Wall) error {
	for _, name := range faces.Overrides() {
		if !slices.ContainsFunc(walls, func(w *Wall) bool { return w.Name() == name }) {
			return fmt.Errorf("%w: material override for unknown wall %q", ErrInvalidGeometry, name)
		}
	}
	return nil
}
