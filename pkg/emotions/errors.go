package emotions

import (
	"errors"

	"github.com/teslashibe/go-affect/pkg/model"
)

var (
	// ErrNotFound is returned when no profile is registered for an emotion.
	ErrNotFound = errors.New("emotion profile not found")

	// ErrInvalidProfile is returned when a profile file is malformed or its
	// weights could exceed the score ceiling.
	ErrInvalidProfile = errors.New("invalid emotion profile")

	// ErrMissingActionUnit is returned when a term's AU was not written this
	// tick. The emotion writes no score.
	ErrMissingActionUnit = errors.New("missing action unit")

	// ErrForeignModel is returned when a module is computed against a model
	// other than the one it was built for.
	ErrForeignModel = model.ErrForeignModel
)
