package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScene is returned for scenes that cannot describe a room.
var ErrInvalidScene = errors.New("scene: invalid scene")

// Scene is the decoded form of a scene file. Optional settings are
// pointers or zero values; unset settings keep the room defaults.
type Scene struct {
	SampleRate      float64       `yaml:"sample_rate,omitempty"`
	MaxOrder        *int          `yaml:"max_order,omitempty"`
	EnergyThreshold *float64      `yaml:"energy_threshold,omitempty"`
	RayTracing      bool          `yaml:"ray_tracing,omitempty"`
	Rays            int           `yaml:"rays,omitempty"`
	ReceiverRadius  float64       `yaml:"receiver_radius,omitempty"`
	RayBudget       time.Duration `yaml:"ray_budget,omitempty"`
	Seed            *int64        `yaml:"seed,omitempty"`
	RandomISM       *float64      `yaml:"random_ism,omitempty"`
	AirAbsorption   bool          `yaml:"air_absorption,omitempty"`
	Humidity        string        `yaml:"humidity,omitempty"`
	Temperature     *float64      `yaml:"temperature,omitempty"`
	SpeedOfSound    float64       `yaml:"speed_of_sound,omitempty"`

	Room      Geometry  `yaml:"room"`
	Materials Materials `yaml:"materials,omitempty"`
	Sources   []Device  `yaml:"sources"`
	Mics      []Device  `yaml:"mics"`
}

// Geometry is either a box or an extruded floor plan.
type Geometry struct {
	// Box holds the extents [lx, ly, lz] of a shoebox room.
	Box []float64 `yaml:"box,omitempty"`

	// Corners and Height describe a floor plan in the z=0 plane and its
	// extrusion.
	Corners [][2]float64 `yaml:"corners,omitempty"`
	Height  float64      `yaml:"height,omitempty"`
}

// Device is a source or microphone.
type Device struct {
	Position    [3]float64   `yaml:"position"`
	Delay       float64      `yaml:"delay,omitempty"`
	Directivity *Directivity `yaml:"directivity,omitempty"`
}

// Parse decodes a scene from YAML. Unknown keys are rejected.
func Parse(data []byte) (*Scene, error) {
	return decode(bytes.NewReader(data))
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	defer f.Close()

	sc, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func decode(r io.Reader) (*Scene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scene
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScene)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	if err := sc.validate(); err != nil {
		return nil, err
	}

	return &sc, nil
}

func (sc *Scene) validate() error {
	box := len(sc.Room.Box) > 0
	plan := len(sc.Room.Corners) > 0

	switch {
	case box && plan:
		return fmt.Errorf("%w: room has both box and corners", ErrInvalidScene)
	case !box && !plan:
		return fmt.Errorf("%w: room needs box or corners", ErrInvalidScene)
	case box && len(sc.Room.Box) != 3:
		return fmt.Errorf("%w: box needs 3 extents, got %d", ErrInvalidScene, len(sc.Room.Box))
	case plan && sc.Room.Height == 0:
		return fmt.Errorf("%w: floor plan without height", ErrInvalidScene)
	case box && sc.Room.Height != 0:
		return fmt.Errorf("%w: height is only used with corners", ErrInvalidScene)
	}

	return nil
}
