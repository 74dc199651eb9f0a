package replay

import "errors"

var (
	// ErrNoRecordings is returned when a label has nothing to analyse.
	ErrNoRecordings = errors.New("replay: no recordings")

	// ErrNotLoaded is returned by operations that need a loaded analysis.
	ErrNotLoaded = errors.New("replay: no analysis loaded")
)
