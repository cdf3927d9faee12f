package room

import (
	"errors"

	"github.com/cwbudde/algo-room/room/geom"
)

var (
	// ErrInvalidGeometry is returned for degenerate room dimensions,
	// floor plans or walls.
	ErrInvalidGeometry = geom.ErrInvalidGeometry

	// ErrIncompleteGeometry is returned when the room has no closed 3D
	// geometry yet, either because the walls do not close or because a
	// floor plan has not been extruded.
	ErrIncompleteGeometry = errors.New("room: incomplete geometry")

	// ErrOutOfBounds is returned for a source or microphone that is not
	// strictly inside the room.
	ErrOutOfBounds = errors.New("room: position outside the room")

	// ErrRoomLocked is returned for changes after a computation started.
	ErrRoomLocked = errors.New("room: room is locked")

	// ErrEmptyResult is returned when there is no source or no microphone
	// to compute responses for.
	ErrEmptyResult = errors.New("room: no sources or microphones")

	// ErrInvalidOption is returned by option constructors for values out
	// of range.
	ErrInvalidOption = errors.New("room: invalid option")

	// ErrUnreachableRT60 is returned by [InverseSabine] when the requested
	// reverberation time would need an absorption above one.
	ErrUnreachableRT60 = errors.New("room: reverberation time too short for room")
)
