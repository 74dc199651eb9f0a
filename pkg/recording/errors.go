package recording

import "errors"

var (
	// ErrFrameOutOfRange is returned for a frame index outside the recording.
	ErrFrameOutOfRange = errors.New("recording: frame index out of range")

	// ErrNotFound is returned when a store has no recording under a key.
	ErrNotFound = errors.New("recording: not found")

	// ErrInvalidKey is returned for keys that do not follow the naming scheme.
	ErrInvalidKey = errors.New("recording: invalid key")

	// ErrNoReference is returned when finishing a recorder that never saw a reference.
	ErrNoReference = errors.New("recording: no reference frame")
)
