// Package daemon assembles the scoring daemon: profiles, recording store,
// session scheduler, result broadcast, tracker ingest, local landmark
// sources and the operator API.
package daemon

import (
	"github.com/teslashibe/go-affect/internal/config"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Options holds everything the daemon needs. Flag parsing is done in
// cmd/affectd; this struct is data only.
type Options struct {
	Config config.Config

	// Diagnostics adds per-module output text to every result.
	Diagnostics bool

	// RecordLabel, when set, records every ingest and local session under
	// this emotion label.
	RecordLabel string

	// Camera is a capture device id for a live YuNet session ("" = off).
	Camera        string
	CameraSubject string
	YuNetModel    string

	// WatchDir scores image files dropped into a directory ("" = off).
	WatchDir     string
	WatchSubject string
	CascadeDir   string

	// Replay lists recording keys to play back as live sessions.
	Replay []string
}

// DefaultOptions returns options with default configuration.
func DefaultOptions() Options {
	return Options{
		Config:        config.DefaultConfig(),
		CameraSubject: "camera",
		WatchSubject:  "watch",
	}
}

// Validate checks the options on top of the configuration itself.
func (o *Options) Validate() error {
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.RecordLabel != "" {
		if _, err := model.ParseEmotion(o.RecordLabel); err != nil {
			return &config.ConfigError{Field: "RecordLabel", Message: err.Error()}
		}
	}
	if o.Camera != "" && o.CameraSubject == "" {
		return &config.ConfigError{Field: "CameraSubject", Message: "a subject is required for the camera session"}
	}
	if o.WatchDir != "" && o.WatchSubject == "" {
		return &config.ConfigError{Field: "WatchSubject", Message: "a subject is required for the watched directory"}
	}
	return nil
}
