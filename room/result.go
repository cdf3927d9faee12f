package room

import (
	"fmt"
	"slices"
)

// Result holds one impulse response per source and microphone pair.
type Result struct {
	sampleRate float64
	rirs       [][][]float64
}

func newResult(fs float64, sources, mics int) *Result {
	rirs := make([][][]float64, sources)
	for i := range rirs {
		rirs[i] = make([][]float64, mics)
	}
	return &Result{sampleRate: fs, rirs: rirs}
}

// Key returns the name of the pair (src, mic) in [Result.Map].
func Key(src, mic int) string {
	return fmt.Sprintf("src%d_mic%d", src, mic)
}

// SampleRate returns the sample rate of the responses in Hz.
func (r *Result) SampleRate() float64 { return r.sampleRate }

// NumSources returns the number of sources.
func (r *Result) NumSources() int { return len(r.rirs) }

// NumMics returns the number of microphones.
func (r *Result) NumMics() int {
	if len(r.rirs) == 0 {
		return 0
	}
	return len(r.rirs[0])
}

// At returns the impulse response from source src to microphone mic. The
// slice is shared with r and must not be modified.
func (r *Result) At(src, mic int) []float64 {
	return r.rirs[src][mic]
}

// Len returns the length in samples of the longest response.
func (r *Result) Len() int {
	n := 0
	for _, row := range r.rirs {
		for _, rir := range row {
			n = max(n, len(rir))
		}
	}
	return n
}

// Map returns copies of all responses keyed by [Key].
func (r *Result) Map() map[string][]float64 {
	out := make(map[string][]float64, r.NumSources()*r.NumMics())
	for i, row := range r.rirs {
		for j, rir := range row {
			out[Key(i, j)] = slices.Clone(rir)
		}
	}
	return out
}
