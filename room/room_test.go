package room

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/internal/testutil"
	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/geom"
	"github.com/cwbudde/algo-room/room/material"
)

func defaultFaces(t *testing.T) material.Faces {
	t.Helper()
	f, err := material.DefaultFaces(material.DefaultTable())
	if err != nil {
		t.Fatalf("DefaultFaces: %v", err)
	}
	return f
}

func uniformFaces(t *testing.T, alpha float64) material.Faces {
	t.Helper()
	m, err := material.Uniform(alpha, 0)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	return material.AllFaces(m)
}

// newScenarioRoom is a 5×3×2 m box with a source at (1,1,0.7) and a
// microphone at (1.5,1.5,0.7).
func newScenarioRoom(t *testing.T, opts ...Option) *Room {
	t.Helper()
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t), opts...)
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	if _, err := r.AddSource(r3.Vec{X: 1, Y: 1, Z: 0.7}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if _, err := r.AddMic(r3.Vec{X: 1.5, Y: 1.5, Z: 0.7}, nil); err != nil {
		t.Fatalf("AddMic: %v", err)
	}
	return r
}

func TestDirectPathOnly(t *testing.T) {
	r := newScenarioRoom(t, WithSampleRate(16000), WithMaxOrder(0))

	res, err := r.ComputeRIR(context.Background())
	if err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}

	rir := res.At(0, 0)
	testutil.RequireFinite(t, rir)

	d := math.Sqrt(0.5)
	tau := d / 343 * 16000

	peak, v := testutil.Peak(rir)
	if want := int(math.Round(tau)); peak != want {
		t.Fatalf("peak at sample %d, want %d", peak, want)
	}
	if math.Abs(v-1/d)/(1/d) > 0.01 {
		t.Fatalf("peak amplitude = %v, want about %v", v, 1/d)
	}

	// One band-limited pulse: no energy outside its support.
	half := 40
	for k, x := range rir {
		if (k < peak-half || k > peak+half) && math.Abs(x) > 1e-12 {
			t.Fatalf("rir[%d] = %v outside the direct pulse", k, x)
		}
	}
}

func TestComputeRIRNoSources(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	if _, err := r.AddMic(r3.Vec{X: 1, Y: 1, Z: 1}, nil); err != nil {
		t.Fatalf("AddMic: %v", err)
	}

	if _, err := r.ComputeRIR(context.Background()); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("ComputeRIR error = %v, want ErrEmptyResult", err)
	}
	if r.Locked() {
		t.Fatal("room locked after a rejected computation")
	}
}

func TestAddOutOfBounds(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	for _, p := range []r3.Vec{
		{X: 10, Y: 10, Z: 10},
		{X: 0, Y: 1, Z: 1},
		{X: 2.5, Y: 1.5, Z: 2},
		{X: -1, Y: 1, Z: 1},
	} {
		if _, err := r.AddMic(p, nil); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("AddMic(%v) error = %v, want ErrOutOfBounds", p, err)
		}
		if _, err := r.AddSource(p); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("AddSource(%v) error = %v, want ErrOutOfBounds", p, err)
		}
	}

	if n := len(r.Mics()) + len(r.Sources()); n != 0 {
		t.Fatalf("%d devices registered after rejected calls", n)
	}
}

func TestIndicesAreSequential(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	for want := 0; want < 3; want++ {
		got, err := r.AddSource(r3.Vec{X: 1 + float64(want), Y: 1, Z: 1})
		if err != nil || got != want {
			t.Fatalf("AddSource = (%d, %v), want %d", got, err, want)
		}
		got, err = r.AddMic(r3.Vec{X: 1, Y: 2, Z: 0.5 + float64(want)*0.4}, nil)
		if err != nil || got != want {
			t.Fatalf("AddMic = (%d, %v), want %d", got, err, want)
		}
	}
}

func TestDeterministicWithoutRayTracing(t *testing.T) {
	compute := func() []float64 {
		r := newScenarioRoom(t, WithMaxOrder(6))
		res, err := r.ComputeRIR(context.Background())
		if err != nil {
			t.Fatalf("ComputeRIR: %v", err)
		}
		return res.At(0, 0)
	}

	a, b := compute(), compute()
	if !slices.Equal(a, b) {
		t.Fatal("image-source responses differ between runs")
	}
}

func TestRayTracingSameSeed(t *testing.T) {
	compute := func(seed int64) []float64 {
		r := newScenarioRoom(t,
			WithMaxOrder(3),
			WithRayTracing(true),
			WithNumRays(2000),
			WithRandomISM(0),
			WithSeed(seed),
		)
		res, err := r.ComputeRIR(context.Background())
		if err != nil {
			t.Fatalf("ComputeRIR: %v", err)
		}
		return res.At(0, 0)
	}

	a, b := compute(7), compute(7)
	if !slices.Equal(a, b) {
		t.Fatal("same seed gave different responses")
	}
	testutil.RequireFinite(t, a)

	c := compute(8)
	if slices.Equal(a, c) {
		t.Fatal("different seeds gave identical responses")
	}
}

func TestRoomLocked(t *testing.T) {
	r := newScenarioRoom(t, WithMaxOrder(1))
	if _, err := r.ComputeRIR(context.Background()); err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}
	if !r.Locked() {
		t.Fatal("room not locked after ComputeRIR")
	}

	if _, err := r.AddSource(r3.Vec{X: 2, Y: 2, Z: 1}); !errors.Is(err, ErrRoomLocked) {
		t.Fatalf("AddSource error = %v, want ErrRoomLocked", err)
	}
	if _, err := r.AddMic(r3.Vec{X: 2, Y: 2, Z: 1}, nil); !errors.Is(err, ErrRoomLocked) {
		t.Fatalf("AddMic error = %v, want ErrRoomLocked", err)
	}

	// A second computation on a locked room is allowed.
	if _, err := r.ComputeRIR(context.Background()); err != nil {
		t.Fatalf("second ComputeRIR: %v", err)
	}
}

func TestMaterialRoundTrip(t *testing.T) {
	table := material.DefaultTable()
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	for wall, preset := range map[string]string{
		"ceiling": "ceiling_plasterboard",
		"floor":   "carpet_thin",
		"east":    "plywood_thin",
	} {
		want, err := table.Resolve(preset)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", preset, err)
		}
		got, ok := r.WallMaterial(wall)
		if !ok {
			t.Fatalf("WallMaterial(%q) not found", wall)
		}
		if !slices.Equal(got.Absorption(), want.Absorption()) ||
			!slices.Equal(got.CenterFreqs(), want.CenterFreqs()) {
			t.Errorf("%s: got %v @ %v, want %v @ %v", wall,
				got.Absorption(), got.CenterFreqs(), want.Absorption(), want.CenterFreqs())
		}
	}

	if n := len(r.Materials()); n != 6 {
		t.Fatalf("Materials has %d walls, want 6", n)
	}
	if _, ok := r.WallMaterial("attic"); ok {
		t.Fatal("WallMaterial found a wall that does not exist")
	}
}

func TestFromCornersNeedsExtrusion(t *testing.T) {
	corners := [][2]float64{{0, 0}, {0, 3}, {5, 3}, {5, 1}, {3, 1}, {3, 0}}
	r, err := FromCorners(corners, defaultFaces(t), WithMaxOrder(3))
	if err != nil {
		t.Fatalf("FromCorners: %v", err)
	}

	if _, err := r.AddMic(r3.Vec{X: 1, Y: 1, Z: 1}, nil); !errors.Is(err, ErrIncompleteGeometry) {
		t.Fatalf("AddMic before Extrude error = %v, want ErrIncompleteGeometry", err)
	}
	if _, err := r.ComputeRIR(context.Background()); !errors.Is(err, ErrIncompleteGeometry) {
		t.Fatalf("ComputeRIR before Extrude error = %v, want ErrIncompleteGeometry", err)
	}
	if _, err := r.RT60Theory(Sabine); !errors.Is(err, ErrIncompleteGeometry) {
		t.Fatalf("RT60Theory before Extrude error = %v, want ErrIncompleteGeometry", err)
	}

	if err := r.Extrude(2); err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	if err := r.Extrude(2); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("second Extrude error = %v, want ErrInvalidGeometry", err)
	}
	if v := r.Volume(); math.Abs(v-26) > 1e-9 {
		t.Fatalf("Volume = %v, want 26", v)
	}

	// (4, 0.5) lies in the notch of the L.
	if _, err := r.AddMic(r3.Vec{X: 4, Y: 0.5, Z: 1}, nil); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("AddMic in notch error = %v, want ErrOutOfBounds", err)
	}
	if _, err := r.AddMic(r3.Vec{X: 4, Y: 2, Z: 1}, nil); err != nil {
		t.Fatalf("AddMic: %v", err)
	}
	if _, err := r.AddSource(r3.Vec{X: 1, Y: 0.5, Z: 1}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	res, err := r.ComputeRIR(context.Background())
	if err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}
	testutil.RequireFinite(t, res.At(0, 0))

	if err := r.Extrude(3); !errors.Is(err, ErrRoomLocked) {
		t.Fatalf("Extrude after ComputeRIR error = %v, want ErrRoomLocked", err)
	}
}

func TestInvalidFloorPlan(t *testing.T) {
	bowtie := [][2]float64{{0, 0}, {2, 2}, {2, 0}, {0, 2}}
	if _, err := FromCorners(bowtie, defaultFaces(t)); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("FromCorners error = %v, want ErrInvalidGeometry", err)
	}
	if _, err := NewShoeBox(5, -3, 2, defaultFaces(t)); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("NewShoeBox error = %v, want ErrInvalidGeometry", err)
	}
}

func TestNewFromWalls(t *testing.T) {
	faces := uniformFaces(t, 0.3)
	box, err := geom.NewBox(4, 3, 2.5, faces)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	r, err := NewFromWalls(box.Walls())
	if err != nil {
		t.Fatalf("NewFromWalls: %v", err)
	}
	if v := r.Volume(); math.Abs(v-30) > 1e-9 {
		t.Fatalf("Volume = %v, want 30", v)
	}

	open := box.Walls()[:5]
	_, err = NewFromWalls(open)
	if !errors.Is(err, ErrIncompleteGeometry) || !errors.Is(err, geom.ErrNotClosed) {
		t.Fatalf("NewFromWalls(open) error = %v, want ErrIncompleteGeometry wrapping ErrNotClosed", err)
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"sample rate", WithSampleRate(0)},
		{"sample rate too low", WithSampleRate(200)},
		{"max order", WithMaxOrder(-1)},
		{"energy threshold", WithEnergyThreshold(1)},
		{"rays", WithNumRays(0)},
		{"receiver radius", WithReceiverRadius(-0.5)},
		{"random ism", WithRandomISM(-1)},
		{"speed of sound", WithSpeedOfSound(math.Inf(1))},
		{"temperature", WithTemperature(-600)},
		{"humidity", WithHumidityPreset("tropical")},
		{"budget", WithRayBudget(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShoeBox(5, 3, 2, defaultFaces(t), tt.opt); !errors.Is(err, ErrInvalidOption) {
				t.Fatalf("error = %v, want ErrInvalidOption", err)
			}
		})
	}

	r, err := NewShoeBox(5, 3, 2, defaultFaces(t))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	if _, err := r.AddSource(r3.Vec{X: 1, Y: 1, Z: 1}, WithDelay(-1)); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("AddSource error = %v, want ErrInvalidOption", err)
	}
}

func TestOptionsApplied(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t),
		WithSampleRate(48000),
		WithTemperature(25),
		nil,
	)
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	if r.SampleRate() != 48000 {
		t.Fatalf("SampleRate = %v, want 48000", r.SampleRate())
	}
	if want := 331.4 + 0.6*25; r.SpeedOfSound() != want {
		t.Fatalf("SpeedOfSound = %v, want %v", r.SpeedOfSound(), want)
	}
	if r.Bands().Len() != 8 {
		t.Fatalf("%d bands at 48 kHz, want 8", r.Bands().Len())
	}
}

func TestResultMap(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t), WithMaxOrder(2))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	for _, p := range []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 4, Y: 2, Z: 1.5}} {
		if _, err := r.AddSource(p); err != nil {
			t.Fatalf("AddSource: %v", err)
		}
	}
	cardioid, err := directivity.Cardioid(r3.Vec{X: 1})
	if err != nil {
		t.Fatalf("Cardioid: %v", err)
	}
	for _, p := range []r3.Vec{{X: 2, Y: 1, Z: 1}, {X: 3, Y: 2.5, Z: 0.5}, {X: 2.5, Y: 1.5, Z: 1}} {
		if _, err := r.AddMic(p, cardioid); err != nil {
			t.Fatalf("AddMic: %v", err)
		}
	}

	res, err := r.ComputeRIR(context.Background())
	if err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}
	if res.NumSources() != 2 || res.NumMics() != 3 {
		t.Fatalf("result is %d×%d, want 2×3", res.NumSources(), res.NumMics())
	}

	m := res.Map()
	if len(m) != 6 {
		t.Fatalf("Map has %d entries, want 6", len(m))
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			rir, ok := m[Key(i, j)]
			if !ok {
				t.Fatalf("missing %s", Key(i, j))
			}
			if !slices.Equal(rir, res.At(i, j)) || len(rir) > res.Len() || len(rir) == 0 {
				t.Fatalf("%s does not match At", Key(i, j))
			}
		}
	}
	if Key(1, 2) != "src1_mic2" {
		t.Fatalf("Key(1, 2) = %q", Key(1, 2))
	}
}

func TestComputeRIRCancelled(t *testing.T) {
	r := newScenarioRoom(t, WithRayTracing(true), WithSeed(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.ComputeRIR(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ComputeRIR error = %v, want context.Canceled", err)
	}
}

func TestProgress(t *testing.T) {
	var last atomic.Int64
	r := newScenarioRoom(t,
		WithMaxOrder(2),
		WithRayTracing(true),
		WithNumRays(500),
		WithSeed(3),
		WithProgress(func(source, done, total int) {
			if source == 0 && total == 500 {
				last.Store(int64(done))
			}
		}),
	)

	if _, err := r.ComputeRIR(context.Background()); err != nil {
		t.Fatalf("ComputeRIR: %v", err)
	}
	if last.Load() != 500 {
		t.Fatalf("last progress = %d, want 500", last.Load())
	}
}

func TestSimulate(t *testing.T) {
	r, err := NewShoeBox(5, 3, 2, defaultFaces(t), WithMaxOrder(2))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	const shift = 10
	if _, err := r.AddSource(r3.Vec{X: 1, Y: 1, Z: 0.7}, WithSignal([]float64{1}), WithDelay(shift/r.SampleRate())); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if _, err := r.AddSource(r3.Vec{X: 4, Y: 2, Z: 1}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if _, err := r.AddMic(r3.Vec{X: 1.5, Y: 1.5, Z: 0.7}, nil); err != nil {
		t.Fatalf("AddMic: %v", err)
	}

	sim, err := r.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	rir := sim.RIR.At(0, 0)
	got := sim.Signals[0]
	if len(got) != len(rir)+shift {
		t.Fatalf("len = %d, want %d", len(got), len(rir)+shift)
	}
	want := append(make([]float64, shift), rir...)
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestSimulateWithoutSignals(t *testing.T) {
	r := newScenarioRoom(t, WithMaxOrder(1))
	if _, err := r.Simulate(context.Background()); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("Simulate error = %v, want ErrEmptyResult", err)
	}
}

func TestRT60Theory(t *testing.T) {
	const alpha = 0.2
	r, err := NewShoeBox(5, 3, 2, uniformFaces(t, alpha))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	sabine, err := r.RT60Theory(Sabine)
	if err != nil {
		t.Fatalf("RT60Theory(Sabine): %v", err)
	}
	eyring, err := r.RT60Theory(Eyring)
	if err != nil {
		t.Fatalf("RT60Theory(Eyring): %v", err)
	}

	k := 24 * math.Ln10 / 343
	wantSabine := k * 30 / (62 * alpha)
	wantEyring := k * 30 / (-62 * math.Log(1-alpha))

	for b := range sabine {
		if math.Abs(sabine[b]-wantSabine) > 1e-9 {
			t.Errorf("band %d: Sabine = %v, want %v", b, sabine[b], wantSabine)
		}
		if math.Abs(eyring[b]-wantEyring) > 1e-9 {
			t.Errorf("band %d: Eyring = %v, want %v", b, eyring[b], wantEyring)
		}
		if eyring[b] >= sabine[b] {
			t.Errorf("band %d: Eyring %v not below Sabine %v", b, eyring[b], sabine[b])
		}
	}

	if _, err := r.RT60Theory(RT60Method(9)); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("RT60Theory(9) error = %v, want ErrUnknownMethod", err)
	}
}

func TestAirAbsorptionShortensRT60(t *testing.T) {
	dry, err := NewShoeBox(5, 3, 2, uniformFaces(t, 0.1))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	humid, err := NewShoeBox(5, 3, 2, uniformFaces(t, 0.1), WithAirAbsorption(true))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}

	a, _ := dry.RT60Theory(Sabine)
	b, _ := humid.RT60Theory(Sabine)
	last := len(a) - 1
	if !(b[last] < a[last]) {
		t.Fatalf("air absorption did not shorten the high band: %v vs %v", b[last], a[last])
	}
}

func TestInverseSabine(t *testing.T) {
	alpha, order, err := InverseSabine(0.5, 5, 3, 2, 343)
	if err != nil {
		t.Fatalf("InverseSabine: %v", err)
	}
	if order <= 0 {
		t.Fatalf("max order = %d, want > 0", order)
	}

	r, err := NewShoeBox(5, 3, 2, uniformFaces(t, alpha))
	if err != nil {
		t.Fatalf("NewShoeBox: %v", err)
	}
	rt, err := r.RT60Theory(Sabine)
	if err != nil {
		t.Fatalf("RT60Theory: %v", err)
	}
	if math.Abs(rt[0]-0.5) > 1e-9 {
		t.Fatalf("RT60 of inverted absorption = %v, want 0.5", rt[0])
	}

	if _, _, err := InverseSabine(0.01, 5, 3, 2, 343); !errors.Is(err, ErrUnreachableRT60) {
		t.Fatalf("InverseSabine(0.01) error = %v, want ErrUnreachableRT60", err)
	}
	if _, _, err := InverseSabine(0.5, 0, 3, 2, 343); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("InverseSabine with zero extent error = %v, want ErrInvalidOption", err)
	}
}
