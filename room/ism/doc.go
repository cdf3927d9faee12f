// Package ism implements the image-source method for rooms built by
// package geom.
//
// The source is mirrored across wall planes up to a maximum reflection
// order. Every image whose reflection points can be retraced through the
// corresponding wall polygons, with unobstructed segments in between, is
// turned into a [Path] carrying its length, delay and per-band amplitude.
//
// Shoebox rooms take a lattice fast path in which every image up to the
// order limit is valid; all other rooms use recursive mirroring with a
// visibility test. Branches whose energy attenuation falls below the
// configured threshold are pruned in both cases.
//
// # Randomization
//
// With a positive [Config.RandomDisplacement] every reflected image is moved
// by a uniform random offset inside a ball of that radius. The offsets come
// from the *rand.Rand passed by the caller, so a fixed seed reproduces the
// result exactly; two different seeds give different but statistically
// equivalent responses. The direct path is never displaced.
//
// # Usage
//
//	s, err := ism.New(poly, ism.Config{Bands: bands, MaxOrder: 8})
//	sol := s.Solve(sources, mics, rng)
//	paths := sol.Paths[0][0] // source 0, microphone 0
package ism
