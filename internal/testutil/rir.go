package testutil

import (
	"math"
	"math/rand"
)

// Impulse returns length zeros with a 1 at pos, if pos is in range.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// Ones returns n samples of 1.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// DeterministicNoise returns seeded uniform noise in [-amplitude, amplitude).
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Peak returns the index and value of the sample with the largest
// magnitude. It returns (-1, 0) for an empty slice.
func Peak(x []float64) (int, float64) {
	idx := -1
	var best float64
	for i, v := range x {
		if idx < 0 || math.Abs(v) > math.Abs(best) {
			idx, best = i, v
		}
	}
	return idx, best
}

// Energy returns the sum of squared samples.
func Energy(x []float64) float64 {
	var e float64
	for _, v := range x {
		e += v * v
	}
	return e
}

// DecayingNoise returns a synthetic impulse response: seeded white noise
// under an exponential envelope that falls by 60 dB in rt60 seconds,
// preceded by delay silent samples.
func DecayingNoise(seed int64, sampleRate, rt60 float64, delay, length int) []float64 {
	out := make([]float64, delay+length)
	rng := rand.New(rand.NewSource(seed))
	k := 3 * math.Ln10 / (rt60 * sampleRate)
	for i := 0; i < length; i++ {
		out[delay+i] = rng.NormFloat64() * math.Exp(-k*float64(i))
	}
	return out
}
