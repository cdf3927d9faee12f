// Package raytrace estimates the late reverberation of a room by stochastic
// acoustic ray tracing.
//
// Every source emits a fixed number of rays in uniformly distributed
// directions. Rays travel to the nearest wall, lose the absorbed part of
// their energy and continue either specularly or in a Lambert-distributed
// diffuse direction according to the wall's scattering coefficient. Each
// microphone is a detection sphere; rays passing through it deposit their
// energy in a per-band time [Histogram].
//
// # Determinism
//
// Results are stochastic and converge only statistically: more rays reduce
// the variance but never remove it. Rays are split into a fixed number of
// chunks, each with a private generator seeded from (seed, source, chunk)
// and a private histogram, and the chunk histograms are summed in chunk
// order. A fixed seed therefore reproduces the histograms exactly,
// independent of the number of worker goroutines, as long as no time budget
// cuts the run short.
//
// Build with -tags fastmath to use approximate exponentials in the energy
// decay loop.
package raytrace
