// Package ir analyses room impulse responses.
//
// All decay parameters follow ISO 3382 and are read off the Schroeder
// backward integral of the squared response:
//
//   - EDT: early decay time, fitted from 0 to -10 dB
//   - T20, T30: fitted from -5 to -25 dB and -5 to -35 dB
//   - RT60: T30 when the response decays far enough, else T20
//   - C50, C80: early-to-late energy ratio in dB
//   - D50, D80: early energy fraction
//   - Center time: temporal energy centroid
//   - DRR: direct-to-reverberant energy ratio in dB
//
// Energy parameters are measured from the strongest arrival, so the
// propagation delay of a simulated response does not bias them.
// [Analyzer.AnalyzeBands] splits a response with the crossover of package
// band first and reports one set of metrics per octave band.
//
// # Usage
//
//	a, err := ir.NewAnalyzer(16000)
//	m, err := a.Analyze(rir)
//	fmt.Printf("RT60 = %.2f s, C80 = %.1f dB\n", m.RT60, m.C80)
package ir
