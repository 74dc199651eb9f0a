package pipeline

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the given id.
	ErrSessionNotFound = errors.New("pipeline: session not found")

	// ErrTooManySessions is returned when the scheduler is at capacity.
	ErrTooManySessions = errors.New("pipeline: too many sessions")

	// ErrSessionExists is returned when starting a session whose id is taken.
	ErrSessionExists = errors.New("pipeline: session already exists")
)
