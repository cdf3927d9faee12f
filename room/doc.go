// Package room simulates the acoustics of an enclosed space.
//
// A [Room] is a closed polyhedron with a material on every wall, plus the
// sound sources and microphones registered in it. [Room.ComputeRIR] runs the
// image-source method for the early reflections and, when enabled,
// stochastic ray tracing for the late tail, and merges both into one room
// impulse response per source and microphone pair.
//
// Rooms are built as a shoebox ([NewShoeBox]), as a polygonal floor plan
// that is extruded to a height ([FromCorners] followed by [Room.Extrude]),
// or from arbitrary walls ([NewFromWalls]). Sources and microphones must lie
// strictly inside the room.
//
// Once a computation has started the room is locked: adding sources or
// microphones, or changing the geometry, fails with [ErrRoomLocked].
//
// # Usage
//
//	faces, _ := material.DefaultFaces(material.DefaultTable())
//	r, err := room.NewShoeBox(5, 3, 2, faces, room.WithSampleRate(16000))
//	if err != nil {
//		return err
//	}
//	r.AddSource(r3.Vec{X: 1, Y: 1, Z: 0.7})
//	r.AddMic(r3.Vec{X: 1.5, Y: 1.5, Z: 0.7}, nil)
//	res, err := r.ComputeRIR(ctx)
//	rir := res.At(0, 0)
//
// # Determinism
//
// Without ray tracing and randomized images the result is fully
// deterministic. Otherwise all random draws derive from the seed set with
// [WithSeed]; the same seed reproduces the same impulse responses
// independently of GOMAXPROCS.
package room
