package room

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/cwbudde/algo-room/room/ism"
	"github.com/cwbudde/algo-room/room/physics"
	"github.com/cwbudde/algo-room/room/raytrace"
)

const (
	// DefaultSampleRate is the output sample rate in Hz.
	DefaultSampleRate = 16000.0

	// DefaultMaxOrder is the highest image-source reflection order.
	DefaultMaxOrder = 8

	// DefaultEnergyThreshold is the relative energy below which images are
	// pruned and rays terminated.
	DefaultEnergyThreshold = 1e-7
)

// Option configures a [Room] at construction.
type Option func(*config) error

// ProgressFunc receives ray tracing progress for one source.
type ProgressFunc func(source, done, total int)

type config struct {
	sampleRate      float64
	maxOrder        int
	rayTracing      bool
	airAbsorption   bool
	airCondition    string
	energyThreshold float64
	numRays         int
	receiverRadius  float64
	seed            int64
	seeded          bool
	randomISM       float64
	speedOfSound    float64
	rayBudget       time.Duration
	progress        ProgressFunc
}

func defaultConfig() config {
	return config{
		sampleRate:      DefaultSampleRate,
		maxOrder:        DefaultMaxOrder,
		airCondition:    physics.DefaultAirCondition,
		energyThreshold: DefaultEnergyThreshold,
		numRays:         raytrace.DefaultNumRays,
		receiverRadius:  raytrace.DefaultReceiverRadius,
		speedOfSound:    physics.DefaultSpeedOfSound,
	}
}

func applyOptions(opts []Option) (config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}
	return cfg, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// WithSampleRate sets the sample rate of the impulse responses in Hz.
func WithSampleRate(fs float64) Option {
	return func(cfg *config) error {
		if !positiveFinite(fs) {
			return fmt.Errorf("%w: sample rate must be > 0 and finite: %f", ErrInvalidOption, fs)
		}
		cfg.sampleRate = fs
		return nil
	}
}

// WithMaxOrder sets the highest image-source reflection order.
func WithMaxOrder(order int) Option {
	return func(cfg *config) error {
		if order < 0 {
			return fmt.Errorf("%w: max order must be >= 0: %d", ErrInvalidOption, order)
		}
		cfg.maxOrder = order
		return nil
	}
}

// WithRayTracing enables or disables the ray-traced late tail.
func WithRayTracing(enabled bool) Option {
	return func(cfg *config) error {
		cfg.rayTracing = enabled
		return nil
	}
}

// WithAirAbsorption enables or disables frequency-dependent air absorption.
func WithAirAbsorption(enabled bool) Option {
	return func(cfg *config) error {
		cfg.airAbsorption = enabled
		return nil
	}
}

// WithHumidityPreset selects the air absorption table, for example
// "20C_50-70%". See physics.AirConditions for the available names.
func WithHumidityPreset(name string) Option {
	return func(cfg *config) error {
		if !slices.Contains(physics.AirConditions(), name) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidOption, physics.ErrUnknownCondition, name)
		}
		cfg.airCondition = name
		return nil
	}
}

// WithEnergyThreshold sets the relative energy in [0, 1) below which image
// sources are pruned and rays are terminated.
func WithEnergyThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if threshold < 0 || threshold >= 1 || math.IsNaN(threshold) {
			return fmt.Errorf("%w: energy threshold must be in [0, 1): %g", ErrInvalidOption, threshold)
		}
		cfg.energyThreshold = threshold
		return nil
	}
}

// WithNumRays sets the number of rays traced per source.
func WithNumRays(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: number of rays must be > 0: %d", ErrInvalidOption, n)
		}
		cfg.numRays = n
		return nil
	}
}

// WithReceiverRadius sets the radius in metres of the ray tracing
// detection sphere around every microphone.
func WithReceiverRadius(radius float64) Option {
	return func(cfg *config) error {
		if !positiveFinite(radius) {
			return fmt.Errorf("%w: receiver radius must be > 0 and finite: %f", ErrInvalidOption, radius)
		}
		cfg.receiverRadius = radius
		return nil
	}
}

// WithSeed fixes the seed of all random draws. Without it every computation
// is seeded from the clock.
func WithSeed(seed int64) Option {
	return func(cfg *config) error {
		cfg.seed = seed
		cfg.seeded = true
		return nil
	}
}

// WithRandomISM enables randomized image positions with the given
// displacement radius in metres. Zero selects ism.DefaultRandomDisplacement.
func WithRandomISM(displacement float64) Option {
	return func(cfg *config) error {
		if displacement < 0 || math.IsNaN(displacement) || math.IsInf(displacement, 0) {
			return fmt.Errorf("%w: random displacement must be >= 0 and finite: %f", ErrInvalidOption, displacement)
		}
		if displacement == 0 {
			displacement = ism.DefaultRandomDisplacement
		}
		cfg.randomISM = displacement
		return nil
	}
}

// WithSpeedOfSound sets the speed of sound in m/s.
func WithSpeedOfSound(c float64) Option {
	return func(cfg *config) error {
		if !positiveFinite(c) {
			return fmt.Errorf("%w: speed of sound must be > 0 and finite: %f", ErrInvalidOption, c)
		}
		cfg.speedOfSound = c
		return nil
	}
}

// WithTemperature derives the speed of sound from the air temperature in
// degrees Celsius.
func WithTemperature(tempC float64) Option {
	return func(cfg *config) error {
		c := physics.SpeedOfSound(tempC)
		if math.IsNaN(tempC) || !positiveFinite(c) {
			return fmt.Errorf("%w: temperature out of range: %f", ErrInvalidOption, tempC)
		}
		cfg.speedOfSound = c
		return nil
	}
}

// WithRayBudget limits the wall-clock time spent tracing rays per source.
// Tracing stops early once the budget is spent and the histograms are
// normalised by the rays actually traced.
func WithRayBudget(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return fmt.Errorf("%w: ray budget must be >= 0: %s", ErrInvalidOption, d)
		}
		cfg.rayBudget = d
		return nil
	}
}

// WithProgress installs a callback for ray tracing progress.
func WithProgress(fn ProgressFunc) Option {
	return func(cfg *config) error {
		cfg.progress = fn
		return nil
	}
}
