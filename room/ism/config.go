package ism

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/band"
	"github.com/cwbudde/algo-room/room/directivity"
	"github.com/cwbudde/algo-room/room/physics"
)

// DefaultRandomDisplacement is the image displacement radius in metres used
// when randomization is requested without an explicit radius.
const DefaultRandomDisplacement = 0.08

// ErrInvalidConfig is returned by [New] for unusable solver settings.
var ErrInvalidConfig = errors.New("ism: invalid config")

// Config controls the image-source search.
type Config struct {
	// Bands is the frequency band layout of the amplitudes.
	Bands band.Bands

	// MaxOrder is the highest reflection order searched.
	MaxOrder int

	// EnergyThreshold prunes images whose largest band energy attenuation
	// drops below it. Zero disables pruning.
	EnergyThreshold float64

	// SpeedOfSound in m/s; zero selects physics.DefaultSpeedOfSound.
	SpeedOfSound float64

	// AirAbsorption holds energy attenuation coefficients in 1/m per band.
	// Nil disables air absorption.
	AirAbsorption []float64

	// RandomDisplacement is the radius in metres of the random image
	// displacement. Zero disables randomization.
	RandomDisplacement float64
}

func (c *Config) validate() error {
	if c.SpeedOfSound == 0 {
		c.SpeedOfSound = physics.DefaultSpeedOfSound
	}

	switch {
	case c.Bands.Len() == 0:
		return fmt.Errorf("%w: no frequency bands", ErrInvalidConfig)
	case c.MaxOrder < 0:
		return fmt.Errorf("%w: max order %d", ErrInvalidConfig, c.MaxOrder)
	case !(c.EnergyThreshold >= 0 && c.EnergyThreshold < 1):
		return fmt.Errorf("%w: energy threshold %g outside [0,1)", ErrInvalidConfig, c.EnergyThreshold)
	case !(c.SpeedOfSound > 0) || math.IsInf(c.SpeedOfSound, 0):
		return fmt.Errorf("%w: speed of sound %g", ErrInvalidConfig, c.SpeedOfSound)
	case !(c.RandomDisplacement >= 0) || math.IsInf(c.RandomDisplacement, 0):
		return fmt.Errorf("%w: random displacement %g", ErrInvalidConfig, c.RandomDisplacement)
	case c.AirAbsorption != nil && len(c.AirAbsorption) != c.Bands.Len():
		return fmt.Errorf("%w: %d air absorption coefficients for %d bands",
			ErrInvalidConfig, len(c.AirAbsorption), c.Bands.Len())
	}

	for _, m := range c.AirAbsorption {
		if !(m >= 0) || math.IsInf(m, 0) {
			return fmt.Errorf("%w: air absorption coefficient %g", ErrInvalidConfig, m)
		}
	}

	return nil
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

// Path is one propagation path from a source to a microphone.
type Path struct {
	Source, Mic int

	// Order is the number of reflections.
	Order int

	// Length in metres and Delay in seconds of the path.
	Length float64
	Delay  float64

	// Amplitude holds the per-band pressure amplitude at the microphone for
	// a unit source: directivity gains × reflection factors × air
	// absorption / Length.
	Amplitude []float64

	// Walls lists the reflecting walls in the order the sound meets them.
	Walls []int

	// Image is the index of the generating image in its [ImageSet].
	Image int
}

// MaxAmplitude returns the largest band amplitude of p.
func (p Path) MaxAmplitude() float64 {
	var m float64
	for _, a := range p.Amplitude {
		m = math.Max(m, a)
	}
	return m
}
