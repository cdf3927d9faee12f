// Package synth turns image-source paths and ray-tracing histograms into
// sampled room impulse responses.
//
// Every path becomes a Hann-windowed sinc pulse centred at its exact,
// possibly fractional, arrival sample and is weighted per frequency band.
// The band signals are recombined through a zero-phase crossover in the
// frequency domain whose band responses sum to one, so a path with equal
// amplitude in every band is reproduced as a single band-limited pulse.
//
// A histogram, when given, becomes a noise-shaped tail: a Poisson sequence
// of random-sign impulses with the density growth of a diffuse field is
// split into bands and scaled per histogram bin to the traced energy. The
// early part is faded out and the tail faded in around the image-source
// horizon with power-complementary ramps, which keeps the energy envelope
// continuous across the crossover.
//
// # Usage
//
//	s, err := synth.New(synth.Config{Bands: bands, Volume: poly.Volume()})
//	rir, err := s.Render(paths, horizon, hist, rng)
package synth
