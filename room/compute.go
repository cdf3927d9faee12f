package room

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-room/room/ism"
	"github.com/cwbudde/algo-room/room/raytrace"
	"github.com/cwbudde/algo-room/room/synth"
)

// stream separates the random streams derived from one seed.
const (
	streamImages = iota + 1
	streamTail
)

// snapshot is the immutable input of one computation.
type snapshot struct {
	sources []Source
	mics    []Microphone
	seed    int64
}

// lock validates the room and locks it. It returns a copy of the devices
// so the computation runs without holding r.mu.
func (r *Room) lock() (snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poly == nil {
		return snapshot{}, fmt.Errorf("%w: floor plan has not been extruded", ErrIncompleteGeometry)
	}

	if len(r.sources) == 0 || len(r.mics) == 0 {
		return snapshot{}, fmt.Errorf("%w: %d sources, %d microphones",
			ErrEmptyResult, len(r.sources), len(r.mics))
	}

	r.locked = true

	seed := r.cfg.seed
	if !r.cfg.seeded {
		seed = time.Now().UnixNano()
	}

	return snapshot{
		sources: append([]Source(nil), r.sources...),
		mics:    append([]Microphone(nil), r.mics...),
		seed:    seed,
	}, nil
}

// early holds the solver output of one source.
type early struct {
	paths   [][]ism.Path
	horizon []float64
	hists   []*raytrace.Histogram
}

// ComputeRIR computes the impulse response of every source and microphone
// pair. Once the room is found complete it is locked for good, even if
// the computation then fails.
//
// Image sources and ray tracing run in parallel per source, synthesis in
// parallel per pair. Cancelling ctx aborts the computation.
func (r *Room) ComputeRIR(ctx context.Context) (*Result, error) {
	snap, err := r.lock()
	if err != nil {
		return nil, err
	}

	solver, err := ism.New(r.poly, ism.Config{
		Bands:              r.bands,
		MaxOrder:           r.cfg.maxOrder,
		EnergyThreshold:    r.cfg.energyThreshold,
		SpeedOfSound:       r.cfg.speedOfSound,
		AirAbsorption:      r.air,
		RandomDisplacement: r.cfg.randomISM,
	})
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}

	var tracer *raytrace.Tracer
	if r.cfg.rayTracing {
		tracer, err = raytrace.New(r.poly, raytrace.Config{
			Bands:           r.bands,
			NumRays:         r.cfg.numRays,
			ReceiverRadius:  r.cfg.receiverRadius,
			EnergyThreshold: r.cfg.energyThreshold,
			SpeedOfSound:    r.cfg.speedOfSound,
			AirAbsorption:   r.air,
			Seed:            snap.seed,
			Budget:          r.cfg.rayBudget,
			Progress:        r.cfg.progress,
		})
		if err != nil {
			return nil, fmt.Errorf("room: %w", err)
		}
	}

	synthesizer, err := synth.New(synth.Config{
		Bands:        r.bands,
		SpeedOfSound: r.cfg.speedOfSound,
		Volume:       r.poly.Volume(),
	})
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}

	ismMics := make([]ism.Mic, len(snap.mics))
	rtMics := make([]raytrace.Mic, len(snap.mics))
	for j, m := range snap.mics {
		ismMics[j] = ism.Mic{Position: m.Position, Directivity: m.Directivity}
		rtMics[j] = raytrace.Mic{Position: m.Position, Directivity: m.Directivity}
	}

	limit := runtime.GOMAXPROCS(0)

	perSource := make([]early, len(snap.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, src := range snap.sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(deriveSeed(snap.seed, streamImages, i, 0)))
			set := solver.Images(i, ism.Source{Position: src.Position, Directivity: src.Directivity}, rng)

			e := early{
				paths:   make([][]ism.Path, len(ismMics)),
				horizon: make([]float64, len(ismMics)),
			}
			for j, m := range ismMics {
				e.paths[j], e.horizon[j] = solver.Paths(set, j, m)
			}

			if tracer != nil {
				res, err := tracer.Trace(gctx, i, raytrace.Source{Position: src.Position, Directivity: src.Directivity}, rtMics)
				if err != nil {
					return fmt.Errorf("room: source %d: %w", i, err)
				}
				e.hists = res.Histograms
			}

			perSource[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := newResult(r.cfg.sampleRate, len(snap.sources), len(snap.mics))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range snap.sources {
		for j := range snap.mics {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				e := perSource[i]

				var (
					hist *raytrace.Histogram
					rng  *rand.Rand
				)
				if e.hists != nil {
					hist = e.hists[j]
					rng = rand.New(rand.NewSource(deriveSeed(snap.seed, streamTail, i, j)))
				}

				rir, err := synthesizer.Render(e.paths[j], e.horizon[j], hist, rng)
				if err != nil {
					return fmt.Errorf("room: %s: %w", Key(i, j), err)
				}

				res.rirs[i][j] = rir
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}

// deriveSeed mixes seed with a stream and two indices into an independent
// generator seed.
func deriveSeed(seed int64, stream, a, b int) int64 {
	x := uint64(seed)
	for _, v := range [...]int{stream, a, b} {
		x ^= uint64(v) + 0x9e3779b97f4a7c15 + (x << 6) + (x >> 2)
		x = splitmix(x)
	}
	return int64(x & math.MaxInt64)
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
