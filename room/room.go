package room

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/band"
	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/geom"
	"github.com/cwbudde/algo-room/room/material"
	"github.com/cwbudde/algo-room/room/physics"
)

// Source is a registered sound source.
type Source struct {
	Position r3.Vec

	// Signal is the dry signal emitted by the source, used by
	// [Room.Simulate]. It may be nil.
	Signal []float64

	// Delay in seconds before Signal starts.
	Delay float64

	// Directivity is nil for an omnidirectional source.
	Directivity directivity.Pattern
}

// Microphone is a registered receiver.
type Microphone struct {
	Position r3.Vec

	// Directivity is nil for an omnidirectional microphone.
	Directivity directivity.Pattern
}

// SourceOption configures a source in [Room.AddSource].
type SourceOption func(*Source) error

// WithSignal attaches a dry signal to the source. The slice is copied.
func WithSignal(signal []float64) SourceOption {
	return func(s *Source) error {
		s.Signal = slices.Clone(signal)
		return nil
	}
}

// WithDelay delays the source signal by d seconds.
func WithDelay(d float64) SourceOption {
	return func(s *Source) error {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: source delay must be >= 0 and finite: %f", ErrInvalidOption, d)
		}
		s.Delay = d
		return nil
	}
}

// WithSourceDirectivity sets the radiation pattern of the source.
func WithSourceDirectivity(p directivity.Pattern) SourceOption {
	return func(s *Source) error {
		s.Directivity = p
		return nil
	}
}

// Room is an enclosure with materials, sources and microphones.
// Its methods are safe for concurrent use.
type Room struct {
	mu sync.Mutex

	cfg   config
	bands band.Bands
	air   []float64
	faces material.Faces

	// poly is nil while only a floor plan is known.
	poly    *geom.Polyhedron
	corners [][2]float64

	sources []Source
	mics    []Microphone
	locked  bool
}

func newRoom(faces material.Faces, opts []Option) (*Room, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	bands, err := band.Default(cfg.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	r := &Room{cfg: cfg, bands: bands, faces: faces}

	if cfg.airAbsorption {
		r.air, err = physics.AirAbsorption(cfg.airCondition, bands)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}

	return r, nil
}

// NewShoeBox builds an axis-aligned box room spanning [0,lx]×[0,ly]×[0,lz].
func NewShoeBox(lx, ly, lz float64, faces material.Faces, opts ...Option) (*Room, error) {
	r, err := newRoom(faces, opts)
	if err != nil {
		return nil, err
	}

	r.poly, err = geom.NewBox(lx, ly, lz, faces)
	if err != nil {
		return nil, fmt.Errorf("room: shoebox: %w", err)
	}

	return r, nil
}

// FromCorners starts a room from a floor plan in the z=0 plane. The room
// has no volume until [Room.Extrude] is called; sources and microphones
// cannot be added before that.
func FromCorners(corners [][2]float64, faces material.Faces, opts ...Option) (*Room, error) {
	if err := geom.ValidateFloorPlan(corners); err != nil {
		return nil, fmt.Errorf("room: floor plan: %w", err)
	}

	r, err := newRoom(faces, opts)
	if err != nil {
		return nil, err
	}

	r.corners = slices.Clone(corners)

	return r, nil
}

// NewFromWalls builds a room from walls that together enclose a volume.
// Every wall carries its own material.
func NewFromWalls(walls []*geom.Wall, opts ...Option) (*Room, error) {
	poly, err := geom.NewPolyhedron(walls)
	if err != nil {
		if errors.Is(err, geom.ErrNotClosed) {
			return nil, fmt.Errorf("%w: %w", ErrIncompleteGeometry, err)
		}
		return nil, fmt.Errorf("room: walls: %w", err)
	}

	r, err := newRoom(material.Faces{}, opts)
	if err != nil {
		return nil, err
	}

	r.poly = poly

	return r, nil
}

// Extrude lifts the floor plan given to [FromCorners] to height metres.
func (r *Room) Extrude(height float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return ErrRoomLocked
	}

	if r.poly != nil {
		return fmt.Errorf("%w: room is already three-dimensional", ErrInvalidGeometry)
	}

	poly, err := geom.Extrude(r.corners, height, r.faces)
	if err != nil {
		return fmt.Errorf("room: extrude: %w", err)
	}

	r.poly = poly

	return nil
}

// checkPosition must be called with r.mu held.
func (r *Room) checkPosition(pos r3.Vec, what string) error {
	if r.locked {
		return ErrRoomLocked
	}

	if r.poly == nil {
		return fmt.Errorf("%w: cannot place a %s before extrusion", ErrIncompleteGeometry, what)
	}

	if !r.poly.Contains(pos) {
		return fmt.Errorf("%w: %s at (%g, %g, %g)", ErrOutOfBounds, what, pos.X, pos.Y, pos.Z)
	}

	return nil
}

// AddSource registers a source at pos and returns its index.
func (r *Room) AddSource(pos r3.Vec, opts ...SourceOption) (int, error) {
	src := Source{Position: pos}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&src); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkPosition(pos, "source"); err != nil {
		return 0, err
	}

	r.sources = append(r.sources, src)

	return len(r.sources) - 1, nil
}

// AddMic registers a microphone at pos and returns its index. A nil
// pattern is omnidirectional.
func (r *Room) AddMic(pos r3.Vec, pattern directivity.Pattern) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkPosition(pos, "microphone"); err != nil {
		return 0, err
	}

	r.mics = append(r.mics, Microphone{Position: pos, Directivity: pattern})

	return len(r.mics) - 1, nil
}

// Sources returns a copy of the registered sources.
func (r *Room) Sources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sources)
}

// Mics returns a copy of the registered microphones.
func (r *Room) Mics() []Microphone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.mics)
}

// Locked reports whether a computation has started.
func (r *Room) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

// SampleRate returns the output sample rate in Hz.
func (r *Room) SampleRate() float64 { return r.cfg.sampleRate }

// SpeedOfSound returns the speed of sound in m/s.
func (r *Room) SpeedOfSound() float64 { return r.cfg.speedOfSound }

// Bands returns the frequency band layout.
func (r *Room) Bands() band.Bands { return r.bands }

// Geometry returns the polyhedron of the room, or nil before extrusion.
func (r *Room) Geometry() *geom.Polyhedron {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poly
}

// Volume returns the room volume in m³, or zero before extrusion.
func (r *Room) Volume() float64 {
	if p := r.Geometry(); p != nil {
		return p.Volume()
	}
	return 0
}

// SurfaceArea returns the total wall area in m², or zero before extrusion.
func (r *Room) SurfaceArea() float64 {
	if p := r.Geometry(); p != nil {
		return p.SurfaceArea()
	}
	return 0
}

// Materials returns the material of every wall keyed by wall name.
func (r *Room) Materials() map[string]material.Material {
	p := r.Geometry()
	if p == nil {
		return nil
	}

	out := make(map[string]material.Material, p.NumWalls())
	for _, w := range p.Walls() {
		out[w.Name()] = w.Material()
	}
	return out
}

// WallMaterial returns the material of the wall called name.
func (r *Room) WallMaterial(name string) (material.Material, bool) {
	p := r.Geometry()
	if p == nil {
		return material.Material{}, false
	}

	i, ok := p.WallByName(name)
	if !ok {
		return material.Material{}, false
	}
	return p.Wall(i).Material(), true
}
