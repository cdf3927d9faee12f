package geom

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/material"
)

func testFaces(t *testing.T) material.Faces {
	t.Helper()
	m, err := material.Uniform(0.2, 0.1)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	return material.AllFaces(m)
}

var lShape = [][2]float64{{0, 0}, {0, 3}, {5, 3}, {5, 1}, {3, 1}, {3, 0}}

func TestNewBox(t *testing.T) {
	p, err := NewBox(5, 3, 2, testFaces(t))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	if got := p.Volume(); math.Abs(got-30) > 1e-9 {
		t.Fatalf("Volume = %v, want 30", got)
	}
	if got := p.SurfaceArea(); math.Abs(got-62) > 1e-9 {
		t.Fatalf("SurfaceArea = %v, want 62", got)
	}

	size, ok := p.BoxSize()
	if !ok || size != (r3.Vec{X: 5, Y: 3, Z: 2}) {
		t.Fatalf("BoxSize = %v, %v", size, ok)
	}

	wantNormals := []r3.Vec{
		West:        {X: -1},
		East:        {X: 1},
		South:       {Y: -1},
		North:       {Y: 1},
		FloorWall:   {Z: -1},
		CeilingWall: {Z: 1},
	}
	for i, want := range wantNormals {
		w := p.Wall(i)
		if w.Name() != BoxWallName(i) {
			t.Fatalf("wall %d name = %q, want %q", i, w.Name(), BoxWallName(i))
		}
		if r3.Norm(r3.Sub(w.Normal(), want)) > 1e-12 {
			t.Fatalf("wall %q normal = %v, want %v", w.Name(), w.Normal(), want)
		}
	}

	if w := p.Wall(FloorWall); w.Group() != material.Floor {
		t.Fatalf("floor group = %v", w.Group())
	}
}

func TestNewBoxInvalid(t *testing.T) {
	faces := testFaces(t)
	for _, dims := range [][3]float64{{0, 1, 1}, {1, -2, 1}, {1, 1, math.Inf(1)}, {math.NaN(), 1, 1}} {
		if _, err := NewBox(dims[0], dims[1], dims[2], faces); !errors.Is(err, ErrInvalidGeometry) {
			t.Fatalf("NewBox(%v) error = %v, want ErrInvalidGeometry", dims, err)
		}
	}
}

func TestUnknownOverride(t *testing.T) {
	glass, err := material.Uniform(0.05, 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewBox(5, 3, 2, testFaces(t).WithOverride("eest", glass)); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("NewBox with unknown override error = %v, want ErrInvalidGeometry", err)
	}
	if _, err := Extrude(lShape, 2, testFaces(t).WithOverride("wall6", glass)); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("Extrude with unknown override error = %v, want ErrInvalidGeometry", err)
	}

	box, err := NewBox(5, 3, 2, testFaces(t).WithOverride("east", glass))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	if !box.Wall(East).Material().Equal(glass) {
		t.Fatal("east override not applied")
	}
	prism, err := Extrude(lShape, 2, testFaces(t).WithOverride("wall5", glass))
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	i, _ := prism.WallByName("wall5")
	if !prism.Wall(i).Material().Equal(glass) {
		t.Fatal("wall5 override not applied")
	}
}

func TestContains(t *testing.T) {
	box, err := NewBox(5, 3, 2, testFaces(t))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	prism, err := Extrude(lShape, 2, testFaces(t))
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}

	tests := []struct {
		name string
		p    *Polyhedron
		q    r3.Vec
		want bool
	}{
		{"box centre", box, r3.Vec{X: 2.5, Y: 1.5, Z: 1}, true},
		{"box near corner", box, r3.Vec{X: 0.01, Y: 0.01, Z: 0.01}, true},
		{"box outside", box, r3.Vec{X: 10, Y: 10, Z: 10}, false},
		{"box on wall", box, r3.Vec{X: 0, Y: 1, Z: 1}, false},
		{"box on edge", box, r3.Vec{X: 5, Y: 3, Z: 1}, false},
		{"L inside long arm", prism, r3.Vec{X: 1, Y: 1, Z: 1}, true},
		{"L inside short arm", prism, r3.Vec{X: 4, Y: 2, Z: 1}, true},
		{"L in notch", prism, r3.Vec{X: 4, Y: 0.5, Z: 1}, false},
		{"L on re-entrant wall", prism, r3.Vec{X: 3, Y: 0.5, Z: 1}, false},
		{"L above", prism, r3.Vec{X: 1, Y: 1, Z: 2.5}, false},
		{"NaN", box, r3.Vec{X: math.NaN(), Y: 1, Z: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Contains(tt.q); got != tt.want {
				t.Fatalf("Contains(%v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestExtrude(t *testing.T) {
	p, err := Extrude(lShape, 2, testFaces(t))
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}

	if got := p.NumWalls(); got != 8 {
		t.Fatalf("NumWalls = %d, want 8", got)
	}
	if got := p.Volume(); math.Abs(got-26) > 1e-9 {
		t.Fatalf("Volume = %v, want 26", got)
	}
	if _, ok := p.BoxSize(); ok {
		t.Fatal("extruded prism reported as box")
	}

	i, ok := p.WallByName("ceiling")
	if !ok || r3.Norm(r3.Sub(p.Wall(i).Normal(), r3.Vec{Z: 1})) > 1e-12 {
		t.Fatalf("ceiling normal = %v", p.Wall(i).Normal())
	}

	// Clockwise input gives the same room.
	cw := make([][2]float64, len(lShape))
	for i, c := range lShape {
		cw[len(lShape)-1-i] = c
	}
	q, err := Extrude(cw, 2, testFaces(t))
	if err != nil {
		t.Fatalf("Extrude(cw): %v", err)
	}
	if math.Abs(q.Volume()-p.Volume()) > 1e-9 {
		t.Fatalf("clockwise volume = %v, want %v", q.Volume(), p.Volume())
	}
}

func TestFloorPlanInvalid(t *testing.T) {
	tests := []struct {
		name    string
		corners [][2]float64
	}{
		{"too few", [][2]float64{{0, 0}, {1, 0}}},
		{"collinear", [][2]float64{{0, 0}, {1, 0}, {2, 0}}},
		{"bow tie", [][2]float64{{0, 0}, {2, 2}, {2, 0}, {0, 2}}},
		{"nan", [][2]float64{{0, 0}, {1, math.NaN()}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateFloorPlan(tt.corners); !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("error = %v, want ErrInvalidGeometry", err)
			}
		})
	}

	if err := ValidateFloorPlan(append(lShape, lShape[0])); err != nil {
		t.Fatalf("closed L-shape: %v", err)
	}
}

func TestNewWallInvalid(t *testing.T) {
	m, _ := material.Uniform(0.1, 0)
	tests := []struct {
		name string
		vs   []r3.Vec
		m    material.Material
	}{
		{"no material", []r3.Vec{{}, {X: 1}, {Y: 1}}, material.Material{}},
		{"two vertices", []r3.Vec{{}, {X: 1}}, m},
		{"degenerate", []r3.Vec{{}, {X: 1}, {X: 2}}, m},
		{"non-planar", []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1, Z: 0.5}}, m},
		{"self-intersecting", []r3.Vec{{}, {X: 1, Y: 1}, {X: 1}, {Y: 1}}, m},
		{"infinite", []r3.Vec{{}, {X: math.Inf(1)}, {Y: 1}}, m},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWall("w", material.Side, tt.vs, tt.m); !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("error = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestNotClosed(t *testing.T) {
	box, err := NewBox(2, 2, 2, testFaces(t))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	// Rebuild from fresh walls with the ceiling missing.
	var walls []*Wall
	for _, w := range box.Walls()[:5] {
		nw, err := NewWall(w.Name(), w.Group(), w.Vertices(), w.Material())
		if err != nil {
			t.Fatalf("NewWall: %v", err)
		}
		walls = append(walls, nw)
	}

	if _, err := NewPolyhedron(walls); !errors.Is(err, ErrNotClosed) {
		t.Fatalf("error = %v, want ErrNotClosed", err)
	}
}

func TestIntersectAndReflect(t *testing.T) {
	p, err := Extrude(lShape, 2, testFaces(t))
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}

	// From the long arm towards +x at y=0.5 the ray meets the re-entrant wall at x=3.
	hit, ok := p.Intersect(r3.Vec{X: 1, Y: 0.5, Z: 1}, r3.Vec{X: 1}, Eps, math.Inf(1))
	if !ok || math.Abs(hit.T-2) > 1e-9 {
		t.Fatalf("hit = %+v, %v; want t=2", hit, ok)
	}

	w := p.Wall(hit.Wall)
	if got := w.ReflectDir(r3.Vec{X: 1}); r3.Norm(r3.Sub(got, r3.Vec{X: -1})) > 1e-12 {
		t.Fatalf("ReflectDir = %v", got)
	}
	if got := w.Reflect(r3.Vec{X: 1, Y: 0.5, Z: 1}); r3.Norm(r3.Sub(got, r3.Vec{X: 5, Y: 0.5, Z: 1})) > 1e-12 {
		t.Fatalf("Reflect = %v", got)
	}

	if p.Visible(r3.Vec{X: 2, Y: 0.2, Z: 1}, r3.Vec{X: 4, Y: 1.5, Z: 1}) {
		t.Fatal("segment across the re-entrant wall reported visible")
	}
	if !p.Visible(r3.Vec{X: 1, Y: 2, Z: 1}, r3.Vec{X: 4, Y: 2, Z: 1}) {
		t.Fatal("segment inside the room reported blocked")
	}
}
