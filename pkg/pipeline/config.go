package pipeline

import (
	"time"

	"github.com/teslashibe/go-affect/pkg/calibration"
)

// Config tunes a pipeline.
type Config struct {
	// PoseTolerance is the summed pitch, roll and yaw deviation (degrees)
	// above which calibration bounds are frozen.
	PoseTolerance float64

	// ReferenceFrames is how many detected samples are averaged into the
	// reference face during live capture.
	ReferenceFrames int

	// Calibration replaces the built-in defaults of named action units.
	Calibration map[string]calibration.Defaults

	// Diagnostics adds per-module output text to results.
	Diagnostics bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PoseTolerance:   10,
		ReferenceFrames: 20,
	}
}

// SchedulerConfig tunes the multi-subject scheduler.
type SchedulerConfig struct {
	// MaxSessions caps concurrently running sessions (0 = unlimited).
	MaxSessions int

	// MaxSourceErrors is how many consecutive source errors end a session.
	MaxSourceErrors int

	// RetryDelay is the pause after a source error.
	RetryDelay time.Duration
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxSessions:     64,
		MaxSourceErrors: 10,
		RetryDelay:      100 * time.Millisecond,
	}
}
