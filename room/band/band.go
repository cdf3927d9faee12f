package band

import (
	"errors"
	"fmt"
	"math"

	lin "github.com/sgreben/piecewiselinear"
)

// DefaultBase is the lowest octave centre frequency in Hz.
const DefaultBase = 125.0

// ErrInvalidLayout is returned when no octave band fits below Nyquist.
var ErrInvalidLayout = errors.New("band: invalid band layout")

// Bands is an immutable set of octave bands for a given sample rate.
type Bands struct {
	centers    []float64
	sampleRate float64
}

// Octave builds octave bands starting at base Hz. A band is included while its
// upper edge (centre·√2) stays at or below Nyquist.
func Octave(base, sampleRate float64) (Bands, error) {
	if !(base > 0) || math.IsInf(base, 0) {
		return Bands{}, fmt.Errorf("%w: base frequency %g", ErrInvalidLayout, base)
	}

	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Bands{}, fmt.Errorf("%w: sample rate %g", ErrInvalidLayout, sampleRate)
	}

	nyquist := sampleRate / 2

	var centers []float64
	for c := base; c*math.Sqrt2 <= nyquist; c *= 2 {
		centers = append(centers, c)
	}

	if len(centers) == 0 {
		return Bands{}, fmt.Errorf("%w: %g Hz octave exceeds Nyquist at %g Hz", ErrInvalidLayout, base, sampleRate)
	}

	return Bands{centers: centers, sampleRate: sampleRate}, nil
}

// Default returns octave bands from [DefaultBase] for the sample rate.
func Default(sampleRate float64) (Bands, error) {
	return Octave(DefaultBase, sampleRate)
}

// Len returns the number of bands.
func (b Bands) Len() int { return len(b.centers) }

// SampleRate returns the sample rate the layout was built for.
func (b Bands) SampleRate() float64 { return b.sampleRate }

// Center returns the centre frequency of band i.
func (b Bands) Center(i int) float64 { return b.centers[i] }

// Centers returns a copy of all centre frequencies.
func (b Bands) Centers() []float64 {
	out := make([]float64, len(b.centers))
	copy(out, b.centers)
	return out
}

// Edges returns the nominal lower and upper edge of band i.
func (b Bands) Edges(i int) (low, high float64) {
	c := b.centers[i]
	return c / math.Sqrt2, c * math.Sqrt2
}

// Response returns the crossover magnitude of band i at freqHz.
//
// Adjacent bands cross over with cos²/sin² ramps in log-frequency between
// their centres; the lowest band extends down to DC and the highest up to
// Nyquist, so the responses of all bands sum to one.
func (b Bands) Response(i int, freqHz float64) float64 {
	n := len(b.centers)
	if n == 1 {
		return 1
	}

	freqHz = math.Abs(freqHz)

	if freqHz <= b.centers[0] {
		if i == 0 {
			return 1
		}
		return 0
	}

	if freqHz >= b.centers[n-1] {
		if i == n-1 {
			return 1
		}
		return 0
	}

	j := 0
	for j+1 < n && b.centers[j+1] <= freqHz {
		j++
	}

	if i != j && i != j+1 {
		return 0
	}

	x := math.Log2(freqHz/b.centers[j]) / math.Log2(b.centers[j+1]/b.centers[j])
	c := math.Cos(0.5 * math.Pi * x)

	if i == j {
		return c * c
	}

	return 1 - c*c
}

// Weights returns the zero-phase crossover response of every band sampled on
// the bins of an nfft-point complex FFT. Bins above nfft/2 mirror the
// negative frequencies so the filtered signal of a real input stays real.
func (b Bands) Weights(nfft int) [][]float64 {
	if nfft <= 0 {
		return nil
	}

	out := make([][]float64, len(b.centers))
	for i := range out {
		out[i] = make([]float64, nfft)
	}

	df := b.sampleRate / float64(nfft)

	for k := 0; k < nfft; k++ {
		bin := k
		if bin > nfft/2 {
			bin = nfft - k
		}

		f := float64(bin) * df
		for i := range out {
			out[i][k] = b.Response(i, f)
		}
	}

	return out
}

// Interpolate resamples values given at freqs onto the band centres, linearly
// in log-frequency. Outside the data range the nearest end value is held.
// A single value is treated as frequency independent.
func (b Bands) Interpolate(freqs, values []float64) []float64 {
	out := make([]float64, len(b.centers))

	switch {
	case len(values) == 0:
		return out
	case len(values) == 1 || len(freqs) != len(values):
		for i := range out {
			out[i] = values[0]
		}
		return out
	}

	x := make([]float64, len(freqs))
	for i, f := range freqs {
		x[i] = math.Log2(f)
	}

	fn := lin.Function{X: x, Y: values}
	last := len(x) - 1

	for i, c := range b.centers {
		lc := math.Log2(c)
		switch {
		case lc <= x[0]:
			out[i] = values[0]
		case lc >= x[last]:
			out[i] = values[last]
		default:
			out[i] = fn.At(lc)
		}
	}

	return out
}
