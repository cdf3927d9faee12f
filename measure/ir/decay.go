package ir

import (
	"fmt"
	"math"
)

// schroederFloor is the level in dB reported after all energy has passed.
const schroederFloor = -200.0

// SchroederIntegral returns the backward-integrated energy decay curve of
// rir in dB relative to the total energy:
//
//	S(t) = 10·log10( ∫_t^∞ h²(τ) dτ / ∫_0^∞ h²(τ) dτ )
func (a *Analyzer) SchroederIntegral(rir []float64) ([]float64, error) {
	if len(rir) == 0 {
		return nil, ErrEmptyIR
	}
	return schroeder(rir), nil
}

func schroeder(rir []float64) []float64 {
	out := make([]float64, len(rir))

	var sum float64
	for i := len(rir) - 1; i >= 0; i-- {
		sum += rir[i] * rir[i]
		out[i] = sum
	}

	total := out[0]
	if total <= 0 {
		for i := range out {
			out[i] = schroederFloor
		}
		return out
	}

	for i, e := range out {
		if e <= 0 {
			out[i] = schroederFloor
			continue
		}
		out[i] = 10 * math.Log10(e/total)
	}

	return out
}

// fitDecay fits a line to the decay curve between the first samples at or
// below startDB and endDB and extrapolates it to 60 dB. It returns zero when
// the curve never reaches endDB or does not decay.
func (a *Analyzer) fitDecay(decay []float64, startDB, endDB float64) float64 {
	start, end := -1, -1
	for i, v := range decay {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}

	if start < 0 || end <= start {
		return 0
	}

	// Least squares on (sample offset, dB).
	var sx, sy, sxx, sxy float64
	n := float64(end - start + 1)
	for i := start; i <= end; i++ {
		x := float64(i - start)
		y := decay[i]
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}

	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}

	slope := (n*sxy - sx*sy) / den * a.fs // dB/s
	if slope >= 0 {
		return 0
	}

	return -60 / slope
}

// ReverbTime estimates the reverberation time from the decay between -5 dB
// and -5-decayDB dB, extrapolated to 60 dB. decayDB of 20 gives T20, 30
// gives T30; 60 measures the full decay.
func (a *Analyzer) ReverbTime(rir []float64, decayDB float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}
	if !(decayDB > 0) || decayDB > 190 {
		return 0, fmt.Errorf("ir: decay range %g dB outside (0, 190]", decayDB)
	}

	rt := a.fitDecay(schroeder(rir[peakIndex(rir):]), -5, -5-decayDB)
	if rt == 0 {
		return 0, fmt.Errorf("%w: response does not fall by %g dB", ErrNoDecay, 5+decayDB)
	}
	return rt, nil
}

// RT60 returns T30 when the response decays by 35 dB and T20 otherwise.
func (a *Analyzer) RT60(rir []float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}

	decay := schroeder(rir[peakIndex(rir):])
	if rt := a.fitDecay(decay, -5, -35); rt > 0 {
		return rt, nil
	}
	if rt := a.fitDecay(decay, -5, -25); rt > 0 {
		return rt, nil
	}
	return 0, ErrNoDecay
}
