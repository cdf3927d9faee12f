// Package physics holds the propagation constants used by the room solvers:
// the speed of sound and the frequency-dependent absorption of air.
package physics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-room/room/band"
)

// DefaultSpeedOfSound is the speed of sound in m/s at roughly 20 °C.
const DefaultSpeedOfSound = 343.0

// DefaultAirCondition names the air absorption preset used when none is set.
const DefaultAirCondition = "20C_30-50%"

// ErrUnknownCondition is returned for an air absorption preset that does not exist.
var ErrUnknownCondition = errors.New("physics: unknown air condition")

// airFreqs are the centre frequencies of the air absorption tables.
var airFreqs = []float64{125, 250, 500, 1000, 2000, 4000, 8000}

// airCoeffs holds energy attenuation coefficients in 1/m, by temperature and
// relative humidity range.
var airCoeffs = map[string][]float64{
	"10C_30-50%": {0.1e-3, 0.2e-3, 0.5e-3, 1.1e-3, 2.7e-3, 9.4e-3, 29.0e-3},
	"10C_50-70%": {0.1e-3, 0.2e-3, 0.5e-3, 0.8e-3, 1.8e-3, 5.9e-3, 21.1e-3},
	"10C_70-90%": {0.1e-3, 0.2e-3, 0.5e-3, 0.7e-3, 1.4e-3, 4.4e-3, 15.8e-3},
	"20C_30-50%": {0.1e-3, 0.3e-3, 0.6e-3, 1.0e-3, 1.9e-3, 5.8e-3, 20.3e-3},
	"20C_50-70%": {0.1e-3, 0.3e-3, 0.6e-3, 1.0e-3, 1.7e-3, 4.1e-3, 13.5e-3},
	"20C_70-90%": {0.1e-3, 0.3e-3, 0.6e-3, 1.1e-3, 1.7e-3, 3.5e-3, 10.6e-3},
}

// SpeedOfSound returns the speed of sound in m/s for air at tempC degrees Celsius.
func SpeedOfSound(tempC float64) float64 {
	return 331.4 + 0.6*tempC
}

// AirConditions lists the available air absorption presets.
func AirConditions() []string {
	out := make([]string, 0, len(airCoeffs))
	for k := range airCoeffs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AirAbsorption returns the energy attenuation coefficient of air in 1/m for
// every band of b. A path of length d keeps exp(-m·d) of its energy.
func AirAbsorption(condition string, b band.Bands) ([]float64, error) {
	if condition == "" {
		condition = DefaultAirCondition
	}

	coeffs, ok := airCoeffs[condition]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, condition)
	}

	return b.Interpolate(airFreqs, coeffs), nil
}
