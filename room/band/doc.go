// Package band defines the octave band layout shared by the room acoustics
// solvers and the impulse response synthesizer.
//
// Material tables specify absorption and scattering at octave centre
// frequencies (125 Hz, 250 Hz, ...). The image-source and ray-tracing solvers
// carry one attenuation or energy value per band, and the synthesizer
// recombines the per-band signals with a crossover whose responses sum to
// exactly one at every frequency:
//
//	bands, err := band.Default(16000) // 125 Hz .. 4 kHz
//	alpha := bands.Interpolate(freqs, coeffs)
//	weights := bands.Weights(4096)
package band
