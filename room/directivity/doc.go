// Package directivity provides direction-dependent amplitude gains for
// sources and microphones.
//
// A [Pattern] maps a unit direction, pointing away from the device, to a
// linear amplitude gain. Two families are available:
//
//   - [CardioidFamily] patterns g(θ) = |p + (1-p)·cos θ| around an orientation
//     vector, with the usual named members ([Omni], [Subcardioid],
//     [Cardioid], [Hypercardioid], [Figure8]).
//   - [Measured] patterns built from horizontal and vertical polar responses in
//     dB, interpolated piecewise linearly.
//
// # Usage
//
//	p, err := directivity.Cardioid(r3.Vec{X: 1})
//	g := p.Gain(r3.Unit(r3.Vec{X: 1, Y: 1}))
//
// A nil Pattern means omnidirectional everywhere in this module.
package directivity
