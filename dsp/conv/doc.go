// Package conv convolves dry signals with room impulse responses.
//
// Two strategies are offered:
//
//   - Direct: O(N·M) time-domain convolution, best for short responses
//   - Overlap-add: FFT-based block convolution for long responses
//
// [Convolve] picks one by kernel length. [ConvolveAddTo] accumulates a
// convolution into an existing buffer at an offset, which is how several
// delayed sources are mixed into one microphone signal.
//
// # Usage
//
//	wet, err := conv.Convolve(dry, rir)
//
//	mix := make([]float64, n)
//	err = conv.ConvolveAddTo(mix, delaySamples, dry, rir)
//
// For many signals through the same response, build the transform once:
//
//	oa, err := conv.NewOverlapAdd(rir, 0)
//	wet, err := oa.Process(dry)
package conv
