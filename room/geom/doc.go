// Package geom models the boundary of a room as a closed polyhedron of planar
// polygonal walls, each carrying one material.
//
// Rooms are built from three extents (an axis-aligned shoebox), by extruding
// a 2D floor plan, or from an explicit wall list:
//
//	box, err := geom.NewBox(5, 3, 2, faces)
//	prism, err := geom.Extrude([][2]float64{{0, 0}, {0, 3}, {5, 3}, {5, 1}, {3, 1}, {3, 0}}, 2, faces)
//	poly, err := geom.NewPolyhedron(walls)
//
// Every constructor validates its input and fails with [ErrInvalidGeometry]
// for non-planar, self-intersecting, zero-area or non-finite input, and
// [NewPolyhedron] fails with [ErrNotClosed] unless every edge is shared by
// exactly two walls. Wall normals always point out of the room.
//
// Points exactly on (or within [Eps] of) a wall are not contained in the room.
package geom
