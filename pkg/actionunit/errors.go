package actionunit

import (
	"errors"

	"github.com/teslashibe/go-affect/pkg/model"
)

var (
	// ErrForeignModel is returned when a module is computed against a model
	// other than the one it was built for.
	ErrForeignModel = model.ErrForeignModel

	// ErrUnknown is returned for AU names outside the table.
	ErrUnknown = errors.New("actionunit: unknown action unit")
)
