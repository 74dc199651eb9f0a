package landmark

import (
	"context"
	"errors"
)

var (
	// ErrSourceClosed is returned by Next once a source has no more samples.
	ErrSourceClosed = errors.New("landmark: source closed")

	// ErrNoSource is returned when no landmark source could be initialised.
	ErrNoSource = errors.New("landmark: no source available")
)

// Source provides landmark samples, one per tick.
type Source interface {
	// Next blocks until the next sample is available.
	// Returns ErrSourceClosed when the stream has ended.
	Next(ctx context.Context) (Sample, error)

	// Close releases the source.
	Close() error

	// Name returns the source type name.
	Name() string
}
