package ir

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by the analysis functions.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrInvalidTime       = errors.New("ir: time must be positive")
	ErrNoDecay           = errors.New("ir: insufficient decay for RT calculation")
)

// directWindow is the half width in seconds around the strongest arrival
// that counts as direct sound for the DRR.
const directWindow = 2.5e-3

// Metrics holds the room acoustic parameters of one response.
type Metrics struct {
	RT60       float64 // reverberation time in s, from T30 or T20
	EDT        float64 // early decay time in s
	T20        float64 // reverberation time in s from the -5 to -25 dB slope
	T30        float64 // reverberation time in s from the -5 to -35 dB slope
	C50        float64 // clarity at 50 ms in dB
	C80        float64 // clarity at 80 ms in dB
	D50        float64 // definition at 50 ms, in [0, 1]
	D80        float64 // definition at 80 ms, in [0, 1]
	CenterTime float64 // energy centroid in s after the peak
	DRR        float64 // direct-to-reverberant ratio in dB
	PeakIndex  int     // sample index of the strongest arrival
}

// Analyzer computes metrics for responses at one sample rate.
type Analyzer struct {
	fs float64
}

// NewAnalyzer returns an analyzer for responses sampled at sampleRate Hz.
func NewAnalyzer(sampleRate float64) (*Analyzer, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidSampleRate, sampleRate)
	}
	return &Analyzer{fs: sampleRate}, nil
}

// SampleRate returns the sample rate in Hz.
func (a *Analyzer) SampleRate() float64 { return a.fs }

// Analyze computes all metrics of rir.
func (a *Analyzer) Analyze(rir []float64) (Metrics, error) {
	if len(rir) == 0 {
		return Metrics{}, ErrEmptyIR
	}

	peak := peakIndex(rir)
	tail := rir[peak:]
	decay := schroeder(tail)

	m := Metrics{
		PeakIndex:  peak,
		EDT:        a.fitDecay(decay, 0, -10),
		T20:        a.fitDecay(decay, -5, -25),
		T30:        a.fitDecay(decay, -5, -35),
		C50:        a.clarity(tail, 50),
		C80:        a.clarity(tail, 80),
		D50:        a.definition(tail, 50),
		D80:        a.definition(tail, 80),
		CenterTime: a.centerTime(tail),
		DRR:        a.drr(rir, peak),
	}

	m.RT60 = m.T30
	if m.RT60 == 0 {
		m.RT60 = m.T20
	}

	return m, nil
}

func peakIndex(rir []float64) int {
	idx := 0
	var best float64
	for i, v := range rir {
		if av := math.Abs(v); av > best {
			best, idx = av, i
		}
	}
	return idx
}

// FindImpulseStart returns the first sample whose magnitude reaches a tenth
// of the peak, which is where the direct sound of a simulated response
// begins.
func (a *Analyzer) FindImpulseStart(rir []float64) (int, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}

	threshold := 0.1 * math.Abs(rir[peakIndex(rir)])
	for i, v := range rir {
		if math.Abs(v) >= threshold {
			return i, nil
		}
	}
	return 0, nil
}
