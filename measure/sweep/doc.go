// Package sweep measures impulse responses with exponential sine sweeps.
//
// A logarithmic sweep spends equal time in every octave. Convolving a
// recording of it with the inverse filter, the time-reversed sweep with a
// 6 dB/octave amplitude compensation, collapses the sweep into an impulse and
// leaves the impulse response of the system in between.
//
// In this module the "system" is usually a simulated room: the sweep is
// played through a computed response and deconvolved again, which gives the
// band-limited response a real measurement would see.
//
// # Usage
//
//	s := &sweep.LogSweep{StartFreq: 50, EndFreq: 7000, Duration: 2, SampleRate: 16000}
//	excitation, _ := s.Generate()
//	recording, _ := conv.Convolve(excitation, rir)
//	measured, _ := s.Deconvolve(recording, len(rir))
package sweep
