package synth

import (
	"fmt"
	"math"
	"math/rand"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-room/room/ism"
	"github.com/cwbudde/algo-room/room/raytrace"
)

// Pulse returns the Hann-windowed sinc of the given odd length at offset x
// samples from its centre.
func Pulse(x float64, length int) float64 {
	half := float64(length) / 2
	if math.Abs(x) >= half {
		return 0
	}

	w := 0.5 * (1 + math.Cos(math.Pi*x/half))
	if x == 0 {
		return w
	}
	return w * math.Sin(math.Pi*x) / (math.Pi * x)
}

// place returns one buffer of length n per band holding the path pulses
// scaled by the band amplitudes. Taps before time zero are dropped.
func (s *Synthesizer) place(paths []ism.Path, n int) ([][]float64, error) {
	bands := s.cfg.Bands.Len()
	half := s.cfg.PulseLength / 2

	buf := make([][]float64, bands)
	for b := range buf {
		buf[b] = make([]float64, n)
	}

	for _, p := range paths {
		if len(p.Amplitude) != bands {
			return nil, fmt.Errorf("%w: path with %d band amplitudes, want %d", ErrInvalidConfig, len(p.Amplitude), bands)
		}

		tau := p.Delay * s.fs
		c := int(math.Round(tau))
		for k := max(c-half, 0); k <= c+half && k < n; k++ {
			v := Pulse(float64(k)-tau, s.cfg.PulseLength)
			for b := range buf {
				buf[b][k] += p.Amplitude[b] * v
			}
		}
	}

	return buf, nil
}

// mix fades the band buffers out and the tail in around fadeStart. The
// impulse sequence is scaled per histogram bin and band so that its energy
// in the bin equals the traced energy.
func (s *Synthesizer) mix(buf [][]float64, seq []float64, hist *raytrace.Histogram, fadeStart float64) {
	n := len(seq)

	fadeIn := make([]float64, n)
	fadeOut := make([]float64, n)
	for i := range fadeIn {
		fadeOut[i], fadeIn[i] = crossfade((float64(i)/s.fs - fadeStart) / s.cfg.CrossfadeWidth)
	}

	// Raw energy of the sequence per histogram bin, shared by all bands.
	binLen := hist.BinWidth() * s.fs
	type span struct {
		lo, hi int
		e      float64
	}
	var spans []span
	for bin := 0; ; bin++ {
		lo := int(math.Round(float64(bin) * binLen))
		if lo >= n {
			break
		}
		hi := min(int(math.Round(float64(bin+1)*binLen)), n)

		var e float64
		for _, v := range seq[lo:hi] {
			e += v * v
		}
		spans = append(spans, span{lo, hi, e})
	}

	gain := make([]float64, n)
	tail := make([]float64, n)

	for b := range buf {
		clear(gain)
		for bin, sp := range spans {
			if sp.e > 0 {
				g := math.Sqrt(hist.At(b, bin) / sp.e)
				for k := sp.lo; k < sp.hi; k++ {
					gain[k] = g
				}
			}
		}

		vecmath.MulBlock(tail, seq, gain)
		vecmath.MulBlockInPlace(tail, fadeIn)
		vecmath.MulBlockInPlace(buf[b], fadeOut)
		vecmath.AddBlockInPlace(buf[b], tail)
	}
}

// combine filters every band buffer with its crossover response and sums
// the results.
func (s *Synthesizer) combine(buf [][]float64) ([]float64, error) {
	if len(buf) == 1 {
		return buf[0], nil
	}

	n := len(buf[0])

	// Twice the length keeps the zero-phase filter's pre-ringing from
	// wrapping onto the output.
	nfft := nextPowerOf2(2 * n)
	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("synth: failed to create FFT plan: %w", err)
	}
	weights := s.cfg.Bands.Weights(nfft)

	sum := make([]complex128, nfft)
	tmp := make([]complex128, nfft)

	for b := range buf {
		clear(tmp)
		for i, v := range buf[b] {
			tmp[i] = complex(v, 0)
		}
		if err := plan.Forward(tmp, tmp); err != nil {
			return nil, fmt.Errorf("synth: forward FFT failed: %w", err)
		}
		for i, w := range weights[b] {
			sum[i] += tmp[i] * complex(w, 0)
		}
	}

	if err := plan.Inverse(tmp, sum); err != nil {
		return nil, fmt.Errorf("synth: inverse FFT failed: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = real(tmp[i])
	}
	return out, nil
}

// poisson returns random-sign impulses from start seconds on whose density
// grows like the reflection density of a diffuse field, 4πc³t²/V, up to
// the configured maximum.
func (s *Synthesizer) poisson(rng *rand.Rand, start float64, n int) []float64 {
	seq := make([]float64, n)
	c := s.cfg.SpeedOfSound

	for t := start; ; {
		mu := s.cfg.MaxDensity
		if s.cfg.Volume > 0 {
			mu = math.Min(4*math.Pi*c*c*c*t*t/s.cfg.Volume, mu)
		}
		mu = math.Max(mu, 1)

		t += -math.Log(1-rng.Float64()) / mu
		k := int(t * s.fs)
		if k >= n {
			return seq
		}

		if rng.Float64() < 0.5 {
			seq[k]--
		} else {
			seq[k]++
		}
	}
}
