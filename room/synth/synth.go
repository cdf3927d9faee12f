package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-room/room/band"
	"github.com/cwbudde/algo-room/room/ism"
	"github.com/cwbudde/algo-room/room/physics"
	"github.com/cwbudde/algo-room/room/raytrace"
)

// Defaults applied by [New] for zero fields of [Config].
const (
	DefaultPulseLength    = 81
	DefaultCrossfadeWidth = 5e-3
	DefaultMaxDensity     = 10000.0
	DefaultFloor          = 1e-6
)

// ErrInvalidConfig is returned by [New] for unusable settings.
var ErrInvalidConfig = errors.New("synth: invalid config")

// Config controls the synthesis.
type Config struct {
	// Bands is the band layout of path amplitudes and histograms. Its
	// sample rate is the output sample rate.
	Bands band.Bands

	// PulseLength is the odd number of taps of each arrival pulse.
	PulseLength int

	// CrossfadeWidth is the length in seconds of the early/late crossfade.
	CrossfadeWidth float64

	SpeedOfSound float64

	// Volume of the room in m³, used for the reflection density of the tail.
	Volume float64

	// MaxDensity caps the tail impulse density in impulses per second.
	MaxDensity float64

	// Floor is the relative energy below which trailing histogram bins are
	// ignored when deciding the output length.
	Floor float64
}

// Synthesizer renders impulse responses. It is safe for concurrent use.
type Synthesizer struct {
	cfg Config
	fs  float64
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Synthesizer, error) {
	if cfg.PulseLength == 0 {
		cfg.PulseLength = DefaultPulseLength
	}
	if cfg.CrossfadeWidth == 0 {
		cfg.CrossfadeWidth = DefaultCrossfadeWidth
	}
	if cfg.SpeedOfSound == 0 {
		cfg.SpeedOfSound = physics.DefaultSpeedOfSound
	}
	if cfg.MaxDensity == 0 {
		cfg.MaxDensity = DefaultMaxDensity
	}
	if cfg.Floor == 0 {
		cfg.Floor = DefaultFloor
	}

	switch {
	case cfg.Bands.Len() == 0:
		return nil, fmt.Errorf("%w: no frequency bands", ErrInvalidConfig)
	case cfg.PulseLength < 1 || cfg.PulseLength%2 == 0:
		return nil, fmt.Errorf("%w: pulse length %d must be odd and positive", ErrInvalidConfig, cfg.PulseLength)
	case !(cfg.CrossfadeWidth > 0):
		return nil, fmt.Errorf("%w: crossfade width %g", ErrInvalidConfig, cfg.CrossfadeWidth)
	case !(cfg.SpeedOfSound > 0):
		return nil, fmt.Errorf("%w: speed of sound %g", ErrInvalidConfig, cfg.SpeedOfSound)
	case !(cfg.Volume >= 0):
		return nil, fmt.Errorf("%w: volume %g", ErrInvalidConfig, cfg.Volume)
	case !(cfg.MaxDensity > 0):
		return nil, fmt.Errorf("%w: max density %g", ErrInvalidConfig, cfg.MaxDensity)
	case !(cfg.Floor > 0 && cfg.Floor < 1):
		return nil, fmt.Errorf("%w: floor %g outside (0,1)", ErrInvalidConfig, cfg.Floor)
	}

	return &Synthesizer{cfg: cfg, fs: cfg.Bands.SampleRate()}, nil
}

// Config returns the configuration with defaults filled in.
func (s *Synthesizer) Config() Config { return s.cfg }

// Render synthesizes one impulse response from paths, ordered by delay, and
// an optional histogram. horizon is the image-source horizon in seconds;
// the histogram is used only from there on and is ignored when horizon is
// infinite. rng drives the tail and may be nil when hist is nil.
//
// The output ends at the latest significant arrival: the last pulse that is
// not faded out, or the last histogram bin above the energy floor.
func (s *Synthesizer) Render(paths []ism.Path, horizon float64, hist *raytrace.Histogram, rng *rand.Rand) ([]float64, error) {
	bands := s.cfg.Bands.Len()

	useTail := hist != nil && hist.Len() > 0 && !math.IsInf(horizon, 1)
	if useTail {
		if rng == nil {
			return nil, fmt.Errorf("%w: tail synthesis needs a random source", ErrInvalidConfig)
		}
		if hist.Bands() != bands {
			return nil, fmt.Errorf("%w: histogram with %d bands, want %d", ErrInvalidConfig, hist.Bands(), bands)
		}
	}

	half := s.cfg.PulseLength / 2
	fadeStart := horizon - s.cfg.CrossfadeWidth/2
	fadeEnd := horizon + s.cfg.CrossfadeWidth/2

	var tailEnd int
	if useTail {
		tailEnd = int(math.Ceil(float64(lastBin(hist, s.cfg.Floor)+1) * hist.BinWidth() * s.fs))
		if float64(tailEnd) <= fadeStart*s.fs {
			useTail, tailEnd = false, 0
		}
	}

	n := tailEnd
	for _, p := range paths {
		if useTail && p.Delay > fadeEnd {
			break
		}
		n = max(n, int(math.Ceil(p.Delay*s.fs))+half+1)
	}

	if n == 0 {
		return []float64{0}, nil
	}

	buf, err := s.place(paths, n)
	if err != nil {
		return nil, err
	}

	if useTail {
		seq := s.poisson(rng, math.Max(fadeStart, 0), n)
		s.mix(buf, seq, hist, fadeStart)
	}

	return s.combine(buf)
}

// crossfade returns power-complementary gains for position x in [0,1].
func crossfade(x float64) (out, in float64) {
	x = math.Max(0, math.Min(1, x))
	return math.Cos(math.Pi / 2 * x), math.Sin(math.Pi / 2 * x)
}

// lastBin returns the index of the last histogram bin above floor times the
// peak bin in any band.
func lastBin(h *raytrace.Histogram, floor float64) int {
	var peak float64
	for b := 0; b < h.Bands(); b++ {
		for _, v := range h.Band(b) {
			peak = math.Max(peak, v)
		}
	}

	for i := h.Len() - 1; i >= 0; i-- {
		for b := 0; b < h.Bands(); b++ {
			if h.At(b, i) > floor*peak {
				return i
			}
		}
	}
	return -1
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
