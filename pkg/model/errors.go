package model

import "errors"

var (
	// ErrNoReference is returned when a tick is started before a reference face exists.
	ErrNoReference = errors.New("model: no reference frame")

	// ErrForeignModel is returned when a module is computed against a model
	// other than the one it was built for.
	ErrForeignModel = errors.New("model: module bound to another model")

	// ErrUnknownEmotion is returned for names outside the seven emotions.
	ErrUnknownEmotion = errors.New("model: unknown emotion")
)
