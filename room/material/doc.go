// Package material models the frequency-dependent surface properties of a
// room: absorption and scattering coefficients per octave band.
//
// Materials are immutable values created through validating constructors or
// resolved by preset name from a material table:
//
//	table := material.DefaultTable()
//	carpet, err := table.Resolve("carpet_thin")
//	custom, err := material.New([]float64{125, 250}, []float64{0.1, 0.2}, nil, "panel")
//
// A [Faces] value assigns one material per face group (ceiling, floor, side
// walls) with optional per-wall overrides. The table format is YAML (JSON
// tables decode as well) with the layout
//
//	center_freqs: [125, 250, 500, ...]
//	absorption:
//	  <category>:
//	    <name>: {description: ..., coeffs: [...]}
//	scattering:
//	  <category>:
//	    <name>: {description: ..., coeffs: [...]}
package material
