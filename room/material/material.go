package material

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-room/room/band"
)

// Errors returned by material construction and lookup.
var (
	ErrInvalidMaterial = errors.New("material: invalid material")
	ErrUnknownMaterial = errors.New("material: unknown material")
)

// Material is an immutable set of absorption and scattering coefficients.
//
// Absorption is the fraction of incident energy a surface absorbs per band;
// scattering is the fraction of reflected energy redirected diffusely. A
// material with a single absorption value is frequency independent.
type Material struct {
	description string
	centerFreqs []float64
	absorption  []float64
	scatFreqs   []float64
	scattering  []float64
}

// New validates and builds a material. centerFreqs must be strictly
// increasing and positive, with one entry per absorption coefficient (it may
// be empty when a single coefficient is given). scattering may be empty, hold
// one frequency-independent value, or one value per absorption band.
func New(centerFreqs, absorption, scattering []float64, description string) (Material, error) {
	if err := validateBands(centerFreqs, absorption, "absorption"); err != nil {
		return Material{}, err
	}

	if len(scattering) > 1 && len(scattering) != len(absorption) {
		return Material{}, fmt.Errorf("%w: %d scattering coefficients for %d bands",
			ErrInvalidMaterial, len(scattering), len(absorption))
	}

	if err := validateCoeffs(scattering, "scattering"); err != nil {
		return Material{}, err
	}

	m := Material{
		description: description,
		centerFreqs: slices.Clone(centerFreqs),
		absorption:  slices.Clone(absorption),
		scattering:  slices.Clone(scattering),
	}

	if len(scattering) > 1 {
		m.scatFreqs = slices.Clone(centerFreqs)
	}

	return m, nil
}

// Uniform builds a frequency-independent material.
func Uniform(absorption, scattering float64) (Material, error) {
	return New(nil, []float64{absorption}, []float64{scattering},
		fmt.Sprintf("uniform absorption %.3g", absorption))
}

// WithScattering returns a copy of m whose scattering coefficients are given
// at their own centre frequencies (as stored in a scattering preset).
func (m Material) WithScattering(centerFreqs, coeffs []float64) (Material, error) {
	if err := validateBands(centerFreqs, coeffs, "scattering"); err != nil {
		return Material{}, err
	}

	out := m.clone()
	out.scattering = slices.Clone(coeffs)
	out.scatFreqs = slices.Clone(centerFreqs)

	return out, nil
}

// IsZero reports whether m is the zero value (no coefficients).
func (m Material) IsZero() bool { return len(m.absorption) == 0 }

// Description returns the human-readable description.
func (m Material) Description() string { return m.description }

// CenterFreqs returns a copy of the absorption band centre frequencies.
func (m Material) CenterFreqs() []float64 { return slices.Clone(m.centerFreqs) }

// Absorption returns a copy of the absorption coefficients.
func (m Material) Absorption() []float64 { return slices.Clone(m.absorption) }

// Scattering returns a copy of the scattering coefficients.
func (m Material) Scattering() []float64 { return slices.Clone(m.scattering) }

// Equal reports whether two materials carry identical coefficients.
func (m Material) Equal(o Material) bool {
	return m.description == o.description &&
		slices.Equal(m.centerFreqs, o.centerFreqs) &&
		slices.Equal(m.absorption, o.absorption) &&
		slices.Equal(m.scatFreqs, o.scatFreqs) &&
		slices.Equal(m.scattering, o.scattering)
}

// AbsorptionAt returns the absorption coefficient at every band centre.
func (m Material) AbsorptionAt(b band.Bands) []float64 {
	return b.Interpolate(m.centerFreqs, m.absorption)
}

// ScatteringAt returns the scattering coefficient at every band centre; zero
// when the material has no scattering data.
func (m Material) ScatteringAt(b band.Bands) []float64 {
	return b.Interpolate(m.scatFreqs, m.scattering)
}

// Reflection returns the amplitude reflection factor sqrt(1-α) per band.
func (m Material) Reflection(b band.Bands) []float64 {
	alpha := m.AbsorptionAt(b)
	for i, a := range alpha {
		alpha[i] = math.Sqrt(1 - a)
	}
	return alpha
}

// MeanAbsorption returns the band-averaged absorption coefficient.
func (m Material) MeanAbsorption(b band.Bands) float64 {
	alpha := m.AbsorptionAt(b)
	if len(alpha) == 0 {
		return 0
	}

	var sum float64
	for _, a := range alpha {
		sum += a
	}

	return sum / float64(len(alpha))
}

func (m Material) clone() Material {
	return Material{
		description: m.description,
		centerFreqs: slices.Clone(m.centerFreqs),
		absorption:  slices.Clone(m.absorption),
		scatFreqs:   slices.Clone(m.scatFreqs),
		scattering:  slices.Clone(m.scattering),
	}
}

func validateBands(freqs, coeffs []float64, what string) error {
	if len(coeffs) == 0 {
		return fmt.Errorf("%w: no %s coefficients", ErrInvalidMaterial, what)
	}

	if len(coeffs) > 1 || len(freqs) > 0 {
		if len(freqs) != len(coeffs) {
			return fmt.Errorf("%w: %d center frequencies for %d %s coefficients",
				ErrInvalidMaterial, len(freqs), len(coeffs), what)
		}
	}

	for i, f := range freqs {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: center frequency %g", ErrInvalidMaterial, f)
		}
		if i > 0 && f <= freqs[i-1] {
			return fmt.Errorf("%w: center frequencies not strictly increasing at %g",
				ErrInvalidMaterial, f)
		}
	}

	return validateCoeffs(coeffs, what)
}

func validateCoeffs(coeffs []float64, what string) error {
	for _, c := range coeffs {
		if math.IsNaN(c) || c < 0 || c > 1 {
			return fmt.Errorf("%w: %s coefficient %g outside [0,1]", ErrInvalidMaterial, what, c)
		}
	}
	return nil
}
