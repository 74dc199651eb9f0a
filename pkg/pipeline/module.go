package pipeline

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-affect/pkg/model"
)

// Module is one unit of per-tick computation bound to a single Model.
type Module interface {
	Name() string
	Compute(m *model.Model) error
	Reset()
	Output() string
}

// Driver ticks one model: every AU module, then every emotion module.
type Driver struct {
	ActionUnits []Module
	Emotions    []Module
}

// Tick runs both phases in order. An AU failure stops the tick before any
// emotion runs. Emotion failures are collected; the other emotions still run.
func (d *Driver) Tick(m *model.Model) error {
	for _, u := range d.ActionUnits {
		if err := u.Compute(m); err != nil {
			return fmt.Errorf("action unit %s: %w", u.Name(), err)
		}
	}
	var errs []error
	for _, e := range d.Emotions {
		if err := e.Compute(m); err != nil {
			errs = append(errs, fmt.Errorf("emotion %s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Reset resets every module's calibration.
func (d *Driver) Reset() {
	for _, u := range d.ActionUnits {
		u.Reset()
	}
	for _, e := range d.Emotions {
		e.Reset()
	}
}

// Outputs collects non-empty diagnostic text keyed by module name.
func (d *Driver) Outputs() map[string]string {
	out := make(map[string]string)
	for _, mods := range [][]Module{d.ActionUnits, d.Emotions} {
		for _, mod := range mods {
			if s := mod.Output(); s != "" {
				out[mod.Name()] = s
			}
		}
	}
	return out
}
