// Package scene reads room simulations from YAML files.
//
// A scene describes the geometry, the materials, the sources and
// microphones, and the solver settings of one [room.Room]:
//
//	sample_rate: 16000
//	max_order: 10
//	ray_tracing: true
//	seed: 42
//	room:
//	  corners: [[0, 0], [0, 3], [5, 3], [5, 1], [3, 1], [3, 0]]
//	  height: 2.5
//	materials:
//	  floor: carpet_thin
//	  walls: {coeffs: [0.1, 0.1, 0.2], scattering: [0.1]}
//	  overrides:
//	    wall2: curtains_velvet
//	sources:
//	  - position: [1, 1, 1.2]
//	    directivity: {pattern: cardioid, orientation: [1, 0, 0]}
//	mics:
//	  - position: [4, 2, 1.2]
//
// Materials not given fall back to the defaults of material.DefaultFaces.
//
// # Usage
//
//	sc, err := scene.Load("office.yaml")
//	r, err := sc.Build(material.DefaultTable())
//	res, err := r.ComputeRIR(ctx)
package scene
