package raytrace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/band"
	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/geom"
	"github.com/cwbudde/algo-room/room/physics"
)

// Defaults applied by [New] for zero fields of [Config].
const (
	DefaultNumRays         = 10000
	DefaultReceiverRadius  = 0.5
	DefaultBinWidth        = 1e-3
	DefaultEnergyThreshold = 1e-7
	DefaultMaxBounces      = 10000
	DefaultChunks          = 64
)

// maxDurationCap bounds the derived ray lifetime in seconds.
const maxDurationCap = 20.0

// ErrInvalidConfig is returned by [New] for unusable tracer settings.
var ErrInvalidConfig = errors.New("raytrace: invalid config")

// Config controls the ray tracer.
type Config struct {
	Bands band.Bands

	// NumRays is the number of rays per source.
	NumRays int

	// ReceiverRadius is the radius in metres of the detection sphere.
	ReceiverRadius float64

	// BinWidth is the histogram bin width in seconds.
	BinWidth float64

	// EnergyThreshold stops a ray once its largest band energy falls below
	// this fraction of the initial energy.
	EnergyThreshold float64

	// MaxBounces stops a ray after that many reflections.
	MaxBounces int

	// MaxDuration stops a ray once its travel time exceeds it, in seconds.
	// Zero derives it from the Sabine reverberation time of the room.
	MaxDuration float64

	SpeedOfSound float64

	// AirAbsorption holds energy attenuation coefficients in 1/m per band.
	// Nil disables air absorption.
	AirAbsorption []float64

	// Seed seeds the per-chunk generators.
	Seed int64

	// Chunks is the number of independently seeded ray batches per source.
	Chunks int

	// Budget limits the wall-clock time spent per [Tracer.Trace] call.
	// Zero means no limit.
	Budget time.Duration

	// Progress, when set, is called after every finished chunk with the
	// source index, the number of its rays traced so far and the total.
	// Calls for one source never overlap.
	Progress func(source, done, total int)
}

// Source is an emitter position with an optional directivity.
type Source struct {
	Position    r3.Vec
	Directivity directivity.Pattern
}

// Mic is a receiver position with an optional directivity.
type Mic struct {
	Position    r3.Vec
	Directivity directivity.Pattern
}

// Result holds the histograms of one source.
type Result struct {
	// Histograms has one entry per microphone. Energies are normalised
	// so that a free-field point source at distance d yields 1/d² in total.
	Histograms []*Histogram

	// Rays is the number of rays actually traced.
	Rays int
}

// Tracer traces rays through one room. It is safe for concurrent use.
type Tracer struct {
	room *geom.Polyhedron
	cfg  Config

	// per wall and band
	alpha, scat [][]float64
	// per wall, band-averaged scattering
	meanScat []float64
}

// New builds a tracer for room with cfg, filling in defaults.
func New(room *geom.Polyhedron, cfg Config) (*Tracer, error) {
	if room == nil {
		return nil, fmt.Errorf("%w: nil room", ErrInvalidConfig)
	}

	setDefault(&cfg.NumRays, DefaultNumRays)
	setDefault(&cfg.ReceiverRadius, DefaultReceiverRadius)
	setDefault(&cfg.BinWidth, DefaultBinWidth)
	setDefault(&cfg.EnergyThreshold, DefaultEnergyThreshold)
	setDefault(&cfg.MaxBounces, DefaultMaxBounces)
	setDefault(&cfg.SpeedOfSound, physics.DefaultSpeedOfSound)
	setDefault(&cfg.Chunks, DefaultChunks)

	switch {
	case cfg.Bands.Len() == 0:
		return nil, fmt.Errorf("%w: no frequency bands", ErrInvalidConfig)
	case cfg.NumRays < 0:
		return nil, fmt.Errorf("%w: %d rays", ErrInvalidConfig, cfg.NumRays)
	case !(cfg.ReceiverRadius > 0):
		return nil, fmt.Errorf("%w: receiver radius %g", ErrInvalidConfig, cfg.ReceiverRadius)
	case !(cfg.BinWidth > 0):
		return nil, fmt.Errorf("%w: bin width %g", ErrInvalidConfig, cfg.BinWidth)
	case !(cfg.EnergyThreshold > 0 && cfg.EnergyThreshold < 1):
		return nil, fmt.Errorf("%w: energy threshold %g outside (0,1)", ErrInvalidConfig, cfg.EnergyThreshold)
	case cfg.MaxBounces < 0 || cfg.Chunks < 0 || cfg.Budget < 0:
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidConfig)
	case !(cfg.SpeedOfSound > 0) || math.IsInf(cfg.SpeedOfSound, 0):
		return nil, fmt.Errorf("%w: speed of sound %g", ErrInvalidConfig, cfg.SpeedOfSound)
	case !(cfg.MaxDuration >= 0):
		return nil, fmt.Errorf("%w: max duration %g", ErrInvalidConfig, cfg.MaxDuration)
	case cfg.AirAbsorption != nil && len(cfg.AirAbsorption) != cfg.Bands.Len():
		return nil, fmt.Errorf("%w: %d air absorption coefficients for %d bands",
			ErrInvalidConfig, len(cfg.AirAbsorption), cfg.Bands.Len())
	}

	cfg.AirAbsorption = slices.Clone(cfg.AirAbsorption)
	t := &Tracer{room: room, cfg: cfg}

	for _, w := range room.Walls() {
		a := w.Material().AbsorptionAt(cfg.Bands)
		s := w.Material().ScatteringAt(cfg.Bands)

		var mean float64
		for _, v := range s {
			mean += v
		}
		mean /= float64(len(s))

		t.alpha = append(t.alpha, a)
		t.scat = append(t.scat, s)
		t.meanScat = append(t.meanScat, mean)
	}

	if t.cfg.MaxDuration == 0 {
		t.cfg.MaxDuration = t.sabineLifetime()
	}

	return t, nil
}

func setDefault[T int | float64](v *T, def T) {
	if *v == 0 {
		*v = def
	}
}

// sabineLifetime returns the time the least damped band needs to decay by
// the energy threshold according to Sabine, capped at maxDurationCap.
func (t *Tracer) sabineLifetime() float64 {
	minAbs := math.Inf(1)
	for b := 0; b < t.cfg.Bands.Len(); b++ {
		var a float64
		for w, wall := range t.room.Walls() {
			a += wall.Area() * t.alpha[w][b]
		}
		if t.cfg.AirAbsorption != nil {
			a += 4 * t.cfg.AirAbsorption[b] * t.room.Volume()
		}
		minAbs = math.Min(minAbs, a)
	}

	if !(minAbs > 0) {
		return maxDurationCap
	}

	// Energy decays as exp(-c·A·t / 4V).
	life := 4 * t.room.Volume() * -math.Log(t.cfg.EnergyThreshold) / (t.cfg.SpeedOfSound * minAbs)
	return math.Min(life, maxDurationCap)
}

// Config returns the tracer configuration with defaults filled in.
func (t *Tracer) Config() Config { return t.cfg }

type chunk struct {
	index      int
	start, end int
}

type chunkResult struct {
	hist []*Histogram
	rays int
}

// Trace emits the rays of source src (with index idx) and returns one
// histogram per microphone. A cancelled ctx aborts with its error; an
// exhausted budget stops early and normalises by the rays traced so far.
func (t *Tracer) Trace(ctx context.Context, idx int, src Source, mics []Mic) (*Result, error) {
	res := &Result{Histograms: make([]*Histogram, len(mics))}
	for j := range res.Histograms {
		res.Histograms[j] = NewHistogram(t.cfg.Bands.Len(), t.cfg.BinWidth)
	}
	if len(mics) == 0 || t.cfg.NumRays == 0 {
		return res, nil
	}

	var deadline time.Time
	if t.cfg.Budget > 0 {
		deadline = time.Now().Add(t.cfg.Budget)
	}

	chunks := min(t.cfg.Chunks, t.cfg.NumRays)
	results := make([]chunkResult, chunks)

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for c := range chunks {
		g.Go(func() error {
			r, err := t.traceChunk(gctx, deadline, idx, chunk{
				index: c,
				start: c * t.cfg.NumRays / chunks,
				end:   (c + 1) * t.cfg.NumRays / chunks,
			}, src, mics)
			if err != nil {
				return err
			}
			results[c] = r

			mu.Lock()
			defer mu.Unlock()
			done += r.rays
			if t.cfg.Progress != nil {
				t.cfg.Progress(idx, done, t.cfg.NumRays)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		res.Rays += r.rays
		for j, h := range r.hist {
			res.Histograms[j].Merge(h)
		}
	}

	if res.Rays > 0 {
		for _, h := range res.Histograms {
			h.Scale(1 / float64(res.Rays))
		}
	}

	return res, nil
}

// chunkSeed derives the generator seed of one chunk with a splitmix64 step
// so that neighbouring chunks get unrelated streams.
func chunkSeed(seed int64, source, chunk int) int64 {
	z := uint64(seed) + 0x9e3779b97f4a7c15*uint64(source+1) + 0xbf58476d1ce4e5b9*uint64(chunk+1)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// checkEvery is the number of rays between context and budget checks.
const checkEvery = 32

func (t *Tracer) traceChunk(ctx context.Context, deadline time.Time, idx int, c chunk, src Source, mics []Mic) (chunkResult, error) {
	rng := rand.New(rand.NewSource(chunkSeed(t.cfg.Seed, idx, c.index)))

	r := chunkResult{hist: make([]*Histogram, len(mics))}
	for j := range r.hist {
		r.hist[j] = NewHistogram(t.cfg.Bands.Len(), t.cfg.BinWidth)
	}

	st := newRayState(t.cfg.Bands.Len())
	for i := c.start; i < c.end; i++ {
		if (i-c.start)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return r, err
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return r, nil
			}
		}

		t.traceRay(rng, st, src, mics, r.hist)
		r.rays++
	}

	return r, nil
}
