package ir

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-room/room/band"
)

// ErrBandMismatch is returned when a band layout was built for another
// sample rate than the analyzer.
var ErrBandMismatch = errors.New("ir: band layout sample rate mismatch")

// SplitBands filters rir into the octave bands of b with their zero-phase
// crossover. The band signals sum to rir.
func (a *Analyzer) SplitBands(rir []float64, b band.Bands) ([][]float64, error) {
	if len(rir) == 0 {
		return nil, ErrEmptyIR
	}
	if b.SampleRate() != a.fs {
		return nil, fmt.Errorf("%w: bands at %g Hz, analyzer at %g Hz", ErrBandMismatch, b.SampleRate(), a.fs)
	}

	nfft := 1
	for nfft < 2*len(rir) {
		nfft *= 2
	}

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("ir: FFT plan: %w", err)
	}

	spec := make([]complex128, nfft)
	for i, v := range rir {
		spec[i] = complex(v, 0)
	}
	if err := plan.Forward(spec, spec); err != nil {
		return nil, fmt.Errorf("ir: forward FFT: %w", err)
	}

	weights := b.Weights(nfft)
	work := make([]complex128, nfft)
	filtered := make([]complex128, nfft)

	out := make([][]float64, b.Len())
	for k, w := range weights {
		for i := range work {
			work[i] = spec[i] * complex(w[i], 0)
		}
		if err := plan.Inverse(filtered, work); err != nil {
			return nil, fmt.Errorf("ir: inverse FFT: %w", err)
		}

		// Ringing before time zero wraps to the end of the buffer and is
		// dropped; it cancels across bands.
		sig := make([]float64, len(rir))
		for i := range sig {
			sig[i] = real(filtered[i])
		}
		out[k] = sig
	}

	return out, nil
}

// AnalyzeBands returns the metrics of every octave band of b.
func (a *Analyzer) AnalyzeBands(rir []float64, b band.Bands) ([]Metrics, error) {
	split, err := a.SplitBands(rir, b)
	if err != nil {
		return nil, err
	}

	out := make([]Metrics, len(split))
	for i, sig := range split {
		m, err := a.Analyze(sig)
		if err != nil {
			return nil, fmt.Errorf("ir: band %g Hz: %w", b.Center(i), err)
		}
		out[i] = m
	}
	return out, nil
}
