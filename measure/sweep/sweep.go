package sweep

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-room/dsp/conv"
)

// Errors returned by sweep functions.
var (
	ErrInvalidFrequency  = errors.New("sweep: frequency must be positive")
	ErrInvalidDuration   = errors.New("sweep: duration must be positive")
	ErrInvalidSampleRate = errors.New("sweep: sample rate must be positive")
	ErrFrequencyOrder    = errors.New("sweep: start frequency must be less than end frequency")
	ErrAboveNyquist      = errors.New("sweep: end frequency above Nyquist")
	ErrInvalidFade       = errors.New("sweep: fade longer than half the sweep")
	ErrEmptyResponse     = errors.New("sweep: response signal is empty")
	ErrShortResponse     = errors.New("sweep: response shorter than the sweep")
)

// LogSweep describes an exponential sine sweep.
//
// The instantaneous frequency rises from StartFreq to EndFreq as
//
//	f(t) = f1 · exp(t/T · ln(f2/f1))
type LogSweep struct {
	StartFreq  float64 // start frequency in Hz
	EndFreq    float64 // end frequency in Hz
	Duration   float64 // sweep duration in seconds
	SampleRate float64 // sample rate in Hz

	// Fade is the length in seconds of the raised-cosine fade at each end.
	// Zero disables fading.
	Fade float64
}

// Validate checks the sweep parameters.
func (s *LogSweep) Validate() error {
	switch {
	case s.StartFreq <= 0 || s.EndFreq <= 0:
		return ErrInvalidFrequency
	case s.StartFreq >= s.EndFreq:
		return ErrFrequencyOrder
	case s.Duration <= 0:
		return ErrInvalidDuration
	case s.SampleRate <= 0:
		return ErrInvalidSampleRate
	case s.EndFreq > s.SampleRate/2:
		return fmt.Errorf("%w: %g Hz at %g Hz sample rate", ErrAboveNyquist, s.EndFreq, s.SampleRate)
	case s.Fade < 0 || 2*s.Fade > s.Duration:
		return fmt.Errorf("%w: %g s", ErrInvalidFade, s.Fade)
	}
	return nil
}

// Len returns the sweep length in samples.
func (s *LogSweep) Len() int {
	return int(math.Round(s.Duration * s.SampleRate))
}

func (s *LogSweep) rate() float64 {
	return math.Log(s.EndFreq/s.StartFreq) / s.Duration
}

// Generate returns the sweep signal:
//
//	x(t) = sin(2π·f1/k · (exp(k·t) - 1)),  k = ln(f2/f1)/T
func (s *LogSweep) Generate() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	k := s.rate()
	out := make([]float64, s.Len())
	for i := range out {
		t := float64(i) / s.SampleRate
		out[i] = math.Sin(2 * math.Pi * s.StartFreq / k * (math.Exp(k*t) - 1))
	}

	s.fade(out)
	return out, nil
}

func (s *LogSweep) fade(x []float64) {
	n := int(math.Round(s.Fade * s.SampleRate))
	for i := range min(n, len(x)/2) {
		g := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n)))
		x[i] *= g
		x[len(x)-1-i] *= g
	}
}

// InverseFilter returns the time-reversed sweep weighted by f(t)/f1. It is
// scaled so that the sweep convolved with it is exactly 1 at lag Len()-1.
func (s *LogSweep) InverseFilter() ([]float64, error) {
	x, err := s.Generate()
	if err != nil {
		return nil, err
	}

	k := s.rate()
	n := len(x)
	inv := make([]float64, n)

	var centre float64
	for j, v := range x {
		amp := math.Exp(k * float64(j) / s.SampleRate)
		inv[n-1-j] = v * amp
		centre += v * v * amp
	}
	if centre == 0 {
		return nil, fmt.Errorf("%w: sweep has no energy", ErrInvalidDuration)
	}

	for i := range inv {
		inv[i] /= centre
	}
	return inv, nil
}

// Deconvolve recovers the first length samples of the impulse response from
// a recording of the sweep. The recording must start with the sweep and
// hold at least Len() samples. length <= 0 returns everything after the
// sweep.
func (s *LogSweep) Deconvolve(response []float64, length int) ([]float64, error) {
	if len(response) == 0 {
		return nil, ErrEmptyResponse
	}

	inv, err := s.InverseFilter()
	if err != nil {
		return nil, err
	}
	if len(response) < len(inv) {
		return nil, fmt.Errorf("%w: %d < %d samples", ErrShortResponse, len(response), len(inv))
	}

	full, err := conv.Convolve(response, inv)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	start := len(inv) - 1
	if length <= 0 || start+length > len(full) {
		length = len(full) - start
	}
	return full[start : start+length], nil
}

// Measure plays the sweep through the impulse response rir and deconvolves
// the result, returning a response of the same length as rir.
func (s *LogSweep) Measure(rir []float64) ([]float64, error) {
	if len(rir) == 0 {
		return nil, ErrEmptyResponse
	}

	x, err := s.Generate()
	if err != nil {
		return nil, err
	}

	recording, err := conv.Convolve(x, rir)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	return s.Deconvolve(recording, len(rir))
}
