package ir

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-room/internal/testutil"
	"github.com/cwbudde/algo-room/room/band"
)

// exponentialDecay is a noiseless envelope that falls by 60 dB in rt60
// seconds, preceded by delay zeros.
func exponentialDecay(fs, rt60, seconds float64, delay int) []float64 {
	n := int(fs * seconds)
	out := make([]float64, delay+n)
	k := 3 * math.Ln10 / rt60
	for i := 0; i < n; i++ {
		out[delay+i] = math.Exp(-k * float64(i) / fs)
	}
	return out
}

func newAnalyzer(t testing.TB, fs float64) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(fs)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestNewAnalyzer(t *testing.T) {
	for _, fs := range []float64{0, -1, math.Inf(1), math.NaN()} {
		if _, err := NewAnalyzer(fs); !errors.Is(err, ErrInvalidSampleRate) {
			t.Errorf("NewAnalyzer(%v) error = %v, want ErrInvalidSampleRate", fs, err)
		}
	}
	if a := newAnalyzer(t, 16000); a.SampleRate() != 16000 {
		t.Fatalf("SampleRate = %v", a.SampleRate())
	}
}

func TestAnalyzeExponentialDecay(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)

	for _, rt60 := range []float64{0.3, 0.8, 1.5} {
		// A propagation delay must not change the decay parameters.
		m, err := a.Analyze(exponentialDecay(fs, rt60, 2*rt60, 37))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}

		if m.PeakIndex != 37 {
			t.Errorf("rt60 %g: PeakIndex = %d, want 37", rt60, m.PeakIndex)
		}
		for name, got := range map[string]float64{"RT60": m.RT60, "EDT": m.EDT, "T20": m.T20, "T30": m.T30} {
			if math.Abs(got-rt60) > 0.01*rt60 {
				t.Errorf("rt60 %g: %s = %.4f", rt60, name, got)
			}
		}
		if !(m.D50 > 0 && m.D50 < m.D80 && m.D80 < 1) {
			t.Errorf("rt60 %g: D50 = %v, D80 = %v", rt60, m.D50, m.D80)
		}
		if !(m.C50 < m.C80) {
			t.Errorf("rt60 %g: C50 = %v not below C80 = %v", rt60, m.C50, m.C80)
		}
	}
}

func TestAnalyzeDecayingNoise(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)

	rir := testutil.DecayingNoise(11, fs, 0.5, 20, int(fs))
	m, err := a.Analyze(rir)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(m.T30-0.5) > 0.05*0.5 {
		t.Fatalf("T30 = %.3f, want about 0.5", m.T30)
	}
}

func TestSchroederIntegral(t *testing.T) {
	a := newAnalyzer(t, 16000)
	s, err := a.SchroederIntegral(exponentialDecay(16000, 0.5, 1, 0))
	if err != nil {
		t.Fatalf("SchroederIntegral: %v", err)
	}

	if s[0] != 0 {
		t.Fatalf("S(0) = %v dB, want 0", s[0])
	}
	for i := 1; i < len(s); i++ {
		if s[i] > s[i-1] {
			t.Fatalf("decay curve rises at %d: %v > %v", i, s[i], s[i-1])
		}
	}

	silent, _ := a.SchroederIntegral(make([]float64, 4))
	for _, v := range silent {
		if v != schroederFloor {
			t.Fatalf("silent response level %v, want %v", v, schroederFloor)
		}
	}

	if _, err := a.SchroederIntegral(nil); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("error = %v, want ErrEmptyIR", err)
	}
}

func TestReverbTime(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)
	rir := exponentialDecay(fs, 0.6, 1.5, 0)

	for _, decay := range []float64{10, 20, 30, 60} {
		rt, err := a.ReverbTime(rir, decay)
		if err != nil {
			t.Fatalf("ReverbTime(%g): %v", decay, err)
		}
		if math.Abs(rt-0.6) > 0.006 {
			t.Errorf("ReverbTime(%g) = %.4f, want 0.6", decay, rt)
		}
	}

	// A flat response never decays by 35 dB.
	if _, err := a.ReverbTime([]float64{1, 1, 1, 1}, 30); !errors.Is(err, ErrNoDecay) {
		t.Fatalf("ReverbTime on flat response error = %v, want ErrNoDecay", err)
	}
	if _, err := a.ReverbTime(rir, 0); err == nil {
		t.Fatal("ReverbTime with zero range succeeded")
	}
}

func TestRT60(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)

	rt, err := a.RT60(exponentialDecay(fs, 1, 2, 0))
	if err != nil {
		t.Fatalf("RT60: %v", err)
	}
	if math.Abs(rt-1) > 0.01 {
		t.Fatalf("RT60 = %v, want 1", rt)
	}

	if _, err := a.RT60([]float64{1, 1, 1, 1}); !errors.Is(err, ErrNoDecay) {
		t.Fatalf("RT60 of flat response error = %v, want ErrNoDecay", err)
	}
	if _, err := a.RT60(nil); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("RT60(nil) error = %v, want ErrEmptyIR", err)
	}
}

func TestEnergyRatios(t *testing.T) {
	const fs = 1000.0
	a := newAnalyzer(t, fs)

	// Direct sound of unit energy, one reflection of energy 0.25 at 100 ms.
	rir := testutil.Impulse(200, 0)
	rir[100] = 0.5

	tests := []struct {
		name string
		fn   func() (float64, error)
		want float64
	}{
		{"D50", func() (float64, error) { return a.Definition(rir, 50) }, 0.8},
		{"D150", func() (float64, error) { return a.Definition(rir, 150) }, 1},
		{"C50", func() (float64, error) { return a.Clarity(rir, 50) }, 10 * math.Log10(4)},
		{"C150", func() (float64, error) { return a.Clarity(rir, 150) }, math.Inf(1)},
		{"center time", func() (float64, error) { return a.CenterTime(rir) }, 0.1 * 0.25 / 1.25},
		{"DRR", func() (float64, error) { return a.DRR(rir) }, 10 * math.Log10(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want && math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := a.Clarity(rir, 0); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("Clarity(0) error = %v, want ErrInvalidTime", err)
	}
	if _, err := a.Definition(nil, 50); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("Definition(nil) error = %v, want ErrEmptyIR", err)
	}
}

func TestFindImpulseStart(t *testing.T) {
	a := newAnalyzer(t, 16000)
	rir := make([]float64, 100)
	rir[10] = 0.05
	rir[20] = 0.5
	rir[22] = -1

	start, err := a.FindImpulseStart(rir)
	if err != nil {
		t.Fatal(err)
	}
	if start != 20 {
		t.Fatalf("start = %d, want 20", start)
	}
}

func TestSplitBandsSumsToInput(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)
	b, err := band.Default(fs)
	if err != nil {
		t.Fatal(err)
	}

	rir := testutil.DecayingNoise(5, fs, 0.3, 10, 4000)
	split, err := a.SplitBands(rir, b)
	if err != nil {
		t.Fatalf("SplitBands: %v", err)
	}
	if len(split) != b.Len() {
		t.Fatalf("%d band signals, want %d", len(split), b.Len())
	}

	sum := make([]float64, len(rir))
	for _, sig := range split {
		for i, v := range sig {
			sum[i] += v
		}
	}
	testutil.RequireSliceNearlyEqual(t, sum, rir, 1e-9)

	other, _ := band.Default(48000)
	if _, err := a.SplitBands(rir, other); !errors.Is(err, ErrBandMismatch) {
		t.Fatalf("SplitBands error = %v, want ErrBandMismatch", err)
	}
}

func TestAnalyzeBands(t *testing.T) {
	const fs = 16000.0
	a := newAnalyzer(t, fs)
	b, err := band.Default(fs)
	if err != nil {
		t.Fatal(err)
	}

	rir := testutil.DecayingNoise(9, fs, 1, 0, int(2*fs))
	metrics, err := a.AnalyzeBands(rir, b)
	if err != nil {
		t.Fatalf("AnalyzeBands: %v", err)
	}

	for i, m := range metrics {
		if !(m.RT60 > 0) {
			t.Errorf("band %g Hz: RT60 = %v", b.Center(i), m.RT60)
			continue
		}
		// Narrow low bands fluctuate too much for a tight bound.
		if b.Center(i) >= 1000 && math.Abs(m.RT60-1) > 0.15 {
			t.Errorf("band %g Hz: RT60 = %.3f, want about 1", b.Center(i), m.RT60)
		}
	}
}
