package ism

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/geom"
)

// Solver finds image-source paths in one room. It is safe for concurrent
// use once built.
type Solver struct {
	room *geom.Polyhedron
	cfg  Config

	// amplitude reflection factor per wall and band
	beta [][]float64

	isBox bool
	size  r3.Vec
}

// New builds a solver for room with the given configuration.
func New(room *geom.Polyhedron, cfg Config) (*Solver, error) {
	if room == nil {
		return nil, fmt.Errorf("%w: nil room", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Solver{room: room, cfg: cfg}
	s.cfg.AirAbsorption = slices.Clone(cfg.AirAbsorption)
	s.size, s.isBox = room.BoxSize()

	for _, w := range room.Walls() {
		s.beta = append(s.beta, w.Material().Reflection(cfg.Bands))
	}

	return s, nil
}

// Config returns the solver configuration with defaults filled in.
func (s *Solver) Config() Config { return s.cfg }

// Solution holds the paths of every (source, microphone) pair.
type Solution struct {
	// Paths[i][j] lists the paths from source i to microphone j by
	// increasing delay.
	Paths [][][]Path

	// Horizon[i][j] is the earliest arrival time in seconds of a reflection
	// the search did not cover. Later parts of the response are incomplete.
	Horizon [][]float64
}

// Solve computes the paths of every source/microphone pair, drawing random
// displacements from rng in source order. With no sources or no microphones
// the solution is empty.
func (s *Solver) Solve(sources []Source, mics []Mic, rng *rand.Rand) *Solution {
	sol := &Solution{
		Paths:   make([][][]Path, len(sources)),
		Horizon: make([][]float64, len(sources)),
	}
	if len(mics) == 0 {
		return sol
	}

	for i, src := range sources {
		set := s.Images(i, src, rng)
		sol.Paths[i] = make([][]Path, len(mics))
		sol.Horizon[i] = make([]float64, len(mics))
		for j, mic := range mics {
			sol.Paths[i][j], sol.Horizon[i][j] = s.Paths(set, j, mic)
		}
	}

	return sol
}

// Paths returns the valid paths from the images in set to microphone mic
// (with index idx), sorted by delay, and the horizon time in seconds.
func (s *Solver) Paths(set *ImageSet, idx int, mic Mic) ([]Path, float64) {
	var paths []Path

	for i := range set.Images {
		walls, ok := s.walls(set, i, mic.Position)
		if !ok {
			continue
		}

		p, ok := s.path(set, i, walls, mic)
		if !ok {
			continue
		}
		p.Mic = idx
		paths = append(paths, p)
	}

	slices.SortStableFunc(paths, func(a, b Path) int { return cmp.Compare(a.Delay, b.Delay) })

	return paths, s.horizon(set, mic.Position) / s.cfg.SpeedOfSound
}

// walls returns the reflection sequence of image i as seen from p, or false
// when the path is not realisable.
func (s *Solver) walls(set *ImageSet, i int, p r3.Vec) ([]int, bool) {
	img := set.Images[i]
	if set.lattice {
		return s.latticeWalls(img, p), true
	}

	seq := make([]int, img.Order)
	for j := i; set.Images[j].Parent >= 0; j = set.Images[j].Parent {
		im := set.Images[j]
		wall := s.room.Wall(im.Wall)

		d := r3.Sub(im.exact, p)
		t, ok := wall.Intersect(p, d)
		if !ok || t <= geom.Eps || t >= 1-geom.Eps {
			return nil, false
		}

		r := r3.Add(p, r3.Scale(t, d))
		if !s.room.Visible(p, r) {
			return nil, false
		}

		seq[im.Order-1] = im.Wall
		p = r
	}

	if !s.room.Visible(p, set.Source.Position) {
		return nil, false
	}

	return seq, true
}

// latticeWalls orders the reflections of a shoebox image by the lattice
// planes the straight line from the image to p crosses.
func (s *Solver) latticeWalls(img Image, p r3.Vec) []int {
	type crossing struct {
		t    float64
		wall int
	}

	var cs []crossing
	from := [3]float64{img.exact.X, img.exact.Y, img.exact.Z}
	to := [3]float64{p.X, p.Y, p.Z}
	size := [3]float64{s.size.X, s.size.Y, s.size.Z}

	for axis, n := range img.lattice {
		lo, hi := 1, n
		if n < 0 {
			lo, hi = n+1, 0
		}
		for j := lo; j <= hi; j++ {
			t := (float64(j)*size[axis] - from[axis]) / (to[axis] - from[axis])
			cs = append(cs, crossing{t: t, wall: boxWall(axis, j%2 != 0)})
		}
	}

	slices.SortStableFunc(cs, func(a, b crossing) int { return cmp.Compare(a.t, b.t) })

	seq := make([]int, len(cs))
	for i, c := range cs {
		seq[i] = c.wall
	}
	return seq
}

func (s *Solver) path(set *ImageSet, i int, walls []int, mic Mic) (Path, bool) {
	img := set.Images[i]

	arrival := r3.Sub(mic.Position, img.Position)
	length := r3.Norm(arrival)
	if length <= geom.Eps {
		return Path{}, false
	}
	arrival = r3.Scale(1/length, arrival)

	// Undo the reflections in reverse to get the emission direction.
	emit := arrival
	for k := len(walls) - 1; k >= 0; k-- {
		emit = s.room.Wall(walls[k]).ReflectDir(emit)
	}

	gain := directivity.Gain(set.Source.Directivity, emit) *
		directivity.Gain(mic.Directivity, r3.Scale(-1, arrival))

	amp := make([]float64, len(img.Reflection))
	for b, r := range img.Reflection {
		amp[b] = gain * r / length
		if s.cfg.AirAbsorption != nil {
			amp[b] *= math.Exp(-s.cfg.AirAbsorption[b] * length / 2)
		}
	}

	return Path{
		Source:    set.Index,
		Order:     img.Order,
		Length:    length,
		Delay:     length / s.cfg.SpeedOfSound,
		Amplitude: amp,
		Walls:     walls,
		Image:     i,
	}, true
}

// horizon returns the distance from p to the nearest image one order beyond
// the search limit, or +Inf when every such image was pruned.
func (s *Solver) horizon(set *ImageSet, p r3.Vec) float64 {
	best := math.Inf(1)

	if set.lattice {
		forShell(s.cfg.MaxOrder+1, func(n [3]int) {
			if s.pruned(s.latticeReflection(n)) {
				return
			}
			img := s.latticePosition(set.Source.Position, n)
			best = math.Min(best, r3.Norm(r3.Sub(img, p)))
		})
		return best
	}

	walls := s.room.Walls()
	for _, f := range set.frontier {
		img := set.Images[f]
		for w, wall := range walls {
			if w == img.Wall || wall.SignedDistance(img.exact) >= -geom.Eps {
				continue
			}
			if s.pruned(mulBands(img.Reflection, s.beta[w])) {
				continue
			}
			best = math.Min(best, r3.Norm(r3.Sub(wall.Reflect(img.exact), p)))
		}
	}

	return best
}
