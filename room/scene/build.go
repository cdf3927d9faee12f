package scene

import (
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room"
	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/material"
)

// Materials assigns materials per face group with per-wall overrides.
type Materials struct {
	Ceiling   material.Spec            `yaml:"ceiling,omitempty"`
	Floor     material.Spec            `yaml:"floor,omitempty"`
	Walls     material.Spec            `yaml:"walls,omitempty"`
	Overrides map[string]material.Spec `yaml:"overrides,omitempty"`
}

// Directivity selects a pattern for a device.
type Directivity struct {
	// Pattern is omni, subcardioid, cardioid, hypercardioid, figure8 or
	// measured.
	Pattern     string     `yaml:"pattern"`
	Orientation [3]float64 `yaml:"orientation"`

	// Up, Horizontal and Vertical describe a measured pattern: gains in dB
	// keyed by angle in degrees.
	Up         [3]float64          `yaml:"up,omitempty"`
	Horizontal map[float64]float64 `yaml:"horizontal,omitempty"`
	Vertical   map[float64]float64 `yaml:"vertical,omitempty"`
}

func vec(p [3]float64) r3.Vec {
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// Build returns the directivity pattern, nil for omni.
func (d *Directivity) Build() (directivity.Pattern, error) {
	if d == nil {
		return nil, nil
	}

	o := vec(d.Orientation)

	var (
		p   directivity.Pattern
		err error
	)
	switch d.Pattern {
	case "", "omni":
		return nil, nil
	case "subcardioid":
		p, err = directivity.Subcardioid(o)
	case "cardioid":
		p, err = directivity.Cardioid(o)
	case "hypercardioid":
		p, err = directivity.Hypercardioid(o)
	case "figure8":
		p, err = directivity.Figure8(o)
	case "measured":
		p, err = directivity.NewMeasured(o, vec(d.Up), d.Horizontal, d.Vertical)
	default:
		return nil, fmt.Errorf("%w: unknown directivity pattern %q", ErrInvalidScene, d.Pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("scene: %s directivity: %w", d.Pattern, err)
	}
	return p, nil
}

// Faces resolves the material assignment against t. Unset face groups use
// the defaults of material.DefaultFaces.
func (m Materials) Faces(t *material.Table) (material.Faces, error) {
	def, err := material.DefaultFaces(t)
	if err != nil {
		return material.Faces{}, err
	}

	resolve := func(s material.Spec, fallback material.Material, what string) (material.Material, error) {
		if s.IsZero() {
			return fallback, nil
		}
		mat, err := t.ResolveSpec(s)
		if err != nil {
			return material.Material{}, fmt.Errorf("scene: %s material: %w", what, err)
		}
		return mat, nil
	}

	ceiling, err := resolve(m.Ceiling, def.Ceiling(), "ceiling")
	if err != nil {
		return material.Faces{}, err
	}
	floor, err := resolve(m.Floor, def.Floor(), "floor")
	if err != nil {
		return material.Faces{}, err
	}
	walls, err := resolve(m.Walls, def.Wall(), "walls")
	if err != nil {
		return material.Faces{}, err
	}

	faces := material.NewFaces(ceiling, floor, walls)
	for _, name := range slices.Sorted(maps.Keys(m.Overrides)) {
		mat, err := resolve(m.Overrides[name], material.Material{}, name)
		if err != nil {
			return material.Faces{}, err
		}
		if mat.IsZero() {
			return material.Faces{}, fmt.Errorf("%w: empty override for %q", ErrInvalidScene, name)
		}
		faces = faces.WithOverride(name, mat)
	}

	return faces, nil
}

// Options returns the room options set by the scene.
func (sc *Scene) Options() []room.Option {
	var opts []room.Option

	if sc.SampleRate != 0 {
		opts = append(opts, room.WithSampleRate(sc.SampleRate))
	}
	if sc.MaxOrder != nil {
		opts = append(opts, room.WithMaxOrder(*sc.MaxOrder))
	}
	if sc.EnergyThreshold != nil {
		opts = append(opts, room.WithEnergyThreshold(*sc.EnergyThreshold))
	}
	if sc.RayTracing {
		opts = append(opts, room.WithRayTracing(true))
	}
	if sc.Rays != 0 {
		opts = append(opts, room.WithNumRays(sc.Rays))
	}
	if sc.ReceiverRadius != 0 {
		opts = append(opts, room.WithReceiverRadius(sc.ReceiverRadius))
	}
	if sc.RayBudget != 0 {
		opts = append(opts, room.WithRayBudget(sc.RayBudget))
	}
	if sc.Seed != nil {
		opts = append(opts, room.WithSeed(*sc.Seed))
	}
	if sc.RandomISM != nil {
		opts = append(opts, room.WithRandomISM(*sc.RandomISM))
	}
	if sc.AirAbsorption {
		opts = append(opts, room.WithAirAbsorption(true))
	}
	if sc.Humidity != "" {
		opts = append(opts, room.WithHumidityPreset(sc.Humidity))
	}
	if sc.Temperature != nil {
		opts = append(opts, room.WithTemperature(*sc.Temperature))
	}
	if sc.SpeedOfSound != 0 {
		opts = append(opts, room.WithSpeedOfSound(sc.SpeedOfSound))
	}

	return opts
}

// Build creates the room with its sources and microphones. Materials are
// resolved against t. Extra options are applied after the scene's own.
func (sc *Scene) Build(t *material.Table, extra ...room.Option) (*room.Room, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}

	faces, err := sc.Materials.Faces(t)
	if err != nil {
		return nil, err
	}

	opts := append(sc.Options(), extra...)

	var r *room.Room
	if len(sc.Room.Box) > 0 {
		b := sc.Room.Box
		r, err = room.NewShoeBox(b[0], b[1], b[2], faces, opts...)
		if err != nil {
			return nil, err
		}
	} else {
		r, err = room.FromCorners(sc.Room.Corners, faces, opts...)
		if err != nil {
			return nil, err
		}
		if err := r.Extrude(sc.Room.Height); err != nil {
			return nil, err
		}
	}

	for i, d := range sc.Sources {
		p, err := d.Directivity.Build()
		if err != nil {
			return nil, fmt.Errorf("scene: source %d: %w", i, err)
		}
		if _, err := r.AddSource(vec(d.Position), room.WithDelay(d.Delay), room.WithSourceDirectivity(p)); err != nil {
			return nil, fmt.Errorf("scene: source %d: %w", i, err)
		}
	}

	for j, d := range sc.Mics {
		if d.Delay != 0 {
			return nil, fmt.Errorf("%w: microphone %d has a delay", ErrInvalidScene, j)
		}
		p, err := d.Directivity.Build()
		if err != nil {
			return nil, fmt.Errorf("scene: microphone %d: %w", j, err)
		}
		if _, err := r.AddMic(vec(d.Position), p); err != nil {
			return nil, fmt.Errorf("scene: microphone %d: %w", j, err)
		}
	}

	return r, nil
}
