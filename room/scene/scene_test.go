package scene

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/cwbudde/algo-room/room"
	"github.com/cwbudde/algo-room/room/material"
)

const officeYAML = `
sample_rate: 16000
max_order: 3
seed: 42
ray_budget: 2s
air_absorption: true
humidity: 20C_50-70%
room:
  corners: [[0, 0], [0, 3], [5, 3], [5, 1], [3, 1], [3, 0]]
  height: 2.5
materials:
  floor: carpet_thin
  walls: {coeffs: [0.1, 0.1, 0.2], scattering: [0.1]}
  overrides:
    wall2: curtains_velvet
sources:
  - position: [1, 1, 1.2]
    delay: 0.01
    directivity: {pattern: cardioid, orientation: [1, 0, 0]}
mics:
  - position: [4, 2, 1.2]
  - position: [1, 2.5, 1]
    directivity:
      pattern: measured
      orientation: [0, -1, 0]
      up: [0, 0, 1]
      horizontal: {0: 0, 90: -6, 180: -20}
      vertical: {0: 0, 90: -6}
`

func TestParseAndBuild(t *testing.T) {
	sc, err := Parse([]byte(officeYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if sc.RayBudget != 2*time.Second {
		t.Fatalf("RayBudget = %v, want 2s", sc.RayBudget)
	}
	if sc.Seed == nil || *sc.Seed != 42 {
		t.Fatalf("Seed = %v, want 42", sc.Seed)
	}

	table := material.DefaultTable()
	r, err := sc.Build(table)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if v := r.Volume(); v < 32.49 || v > 32.51 {
		t.Fatalf("Volume = %v, want 32.5", v)
	}
	if len(r.Sources()) != 1 || len(r.Mics()) != 2 {
		t.Fatalf("%d sources, %d mics, want 1 and 2", len(r.Sources()), len(r.Mics()))
	}
	if r.Sources()[0].Delay != 0.01 || r.Sources()[0].Directivity == nil {
		t.Fatalf("source = %+v", r.Sources()[0])
	}
	if r.Mics()[0].Directivity != nil || r.Mics()[1].Directivity == nil {
		t.Fatal("microphone directivities not applied")
	}

	curtains, _ := table.Resolve("curtains_velvet")
	got, ok := r.WallMaterial("wall2")
	if !ok || !slices.Equal(got.Absorption(), curtains.Absorption()) {
		t.Fatalf("wall2 material = %v, want curtains_velvet", got.Absorption())
	}
	walls, _ := r.WallMaterial("wall0")
	if !slices.Equal(walls.Absorption(), []float64{0.1, 0.1, 0.2}) ||
		!slices.Equal(walls.CenterFreqs(), []float64{125, 250, 500}) {
		t.Fatalf("wall0 material = %v @ %v", walls.Absorption(), walls.CenterFreqs())
	}
	ceiling, _ := r.WallMaterial("ceiling")
	def, _ := table.Resolve("ceiling_plasterboard")
	if !slices.Equal(ceiling.Absorption(), def.Absorption()) {
		t.Fatal("ceiling did not fall back to the default material")
	}

	res, err := r.ComputeRIR(context.Background())
	if err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}
	if res.NumMics() != 2 {
		t.Fatalf("NumMics = %d, want 2", res.NumMics())
	}
}

func TestBuildBoxWithExtraOptions(t *testing.T) {
	sc, err := Parse([]byte(`
room: {box: [5, 3, 2]}
sources: [{position: [1, 1, 0.7]}]
mics: [{position: [1.5, 1.5, 0.7]}]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r, err := sc.Build(material.DefaultTable(), room.WithSampleRate(8000))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.SampleRate() != 8000 {
		t.Fatalf("SampleRate = %v, want 8000", r.SampleRate())
	}
	if len(r.Materials()) != 6 {
		t.Fatalf("%d walls, want 6", len(r.Materials()))
	}
}

func TestBuildValidatesLiteralScene(t *testing.T) {
	tests := []struct {
		name string
		sc   Scene
	}{
		{"short box", Scene{Room: Geometry{Box: []float64{5, 3}}}},
		{"no geometry", Scene{}},
		{"plan without height", Scene{Room: Geometry{Corners: [][2]float64{{0, 0}, {1, 0}, {0, 1}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sc.Build(material.DefaultTable()); !errors.Is(err, ErrInvalidScene) {
				t.Fatalf("Build error = %v, want ErrInvalidScene", err)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ``},
		{"no room", `sources: []`},
		{"box and corners", `room: {box: [1, 2, 3], corners: [[0, 0], [1, 0], [0, 1]], height: 1}`},
		{"short box", `room: {box: [1, 2]}`},
		{"no height", `room: {corners: [[0, 0], [1, 0], [0, 1]]}`},
		{"box with height", `room: {box: [1, 2, 3], height: 3}`},
		{"unknown key", `room: {box: [1, 2, 3]}
colour: blue`},
		{"bad position", `room: {box: [1, 2, 3]}
mics: [{position: [1, 2]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidScene) {
				t.Fatalf("error = %v, want ErrInvalidScene", err)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			"mic outside",
			"room: {box: [5, 3, 2]}\nsources: [{position: [1, 1, 1]}]\nmics: [{position: [10, 10, 10]}]",
			room.ErrOutOfBounds,
		},
		{
			"unknown material",
			"room: {box: [5, 3, 2]}\nmaterials: {floor: lava}",
			material.ErrUnknownMaterial,
		},
		{
			"unknown pattern",
			"room: {box: [5, 3, 2]}\nmics: [{position: [1, 1, 1], directivity: {pattern: shotgun}}]",
			ErrInvalidScene,
		},
		{
			"mic delay",
			"room: {box: [5, 3, 2]}\nmics: [{position: [1, 1, 1], delay: 0.1}]",
			ErrInvalidScene,
		},
		{
			"degenerate plan",
			"room: {corners: [[0, 0], [1, 0], [2, 0]], height: 2}",
			room.ErrInvalidGeometry,
		},
		{
			"override names no wall",
			"room: {box: [5, 3, 2]}\nmaterials: {overrides: {eest: brickwork}}",
			room.ErrInvalidGeometry,
		},
		{
			"override names no plan wall",
			"room: {corners: [[0, 0], [4, 0], [4, 3], [0, 3]], height: 2}\nmaterials: {overrides: {wall4: brickwork}}",
			room.ErrInvalidGeometry,
		},
		{
			"scattering without absorption",
			"room: {box: [5, 3, 2]}\nmaterials: {walls: {scattering_preset: rpg_qrd}}",
			material.ErrInvalidMaterial,
		},
		{
			"bad option",
			"room: {box: [5, 3, 2]}\nrays: -3",
			room.ErrInvalidOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if _, err := sc.Build(material.DefaultTable()); !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "office.yaml")
	if err := os.WriteFile(path, []byte(officeYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sc.Room.Corners) != 6 {
		t.Fatalf("%d corners, want 6", len(sc.Room.Corners))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}
