package config

import (
	"fmt"

	"github.com/teslashibe/go-affect/pkg/actionunit"
	"github.com/teslashibe/go-affect/pkg/calibration"
	"github.com/teslashibe/go-affect/pkg/pipeline"
)

// Apply returns d with the override's set fields replaced.
func (o CalibrationOverride) Apply(d calibration.Defaults) calibration.Defaults {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&d.Min, o.Min)
	set(&d.Max, o.Max)
	set(&d.MinTol, o.MinTol)
	set(&d.MaxTol, o.MaxTol)
	set(&d.ExtremeMin, o.ExtremeMin)
	set(&d.ExtremeMax, o.ExtremeMax)
	return d
}

// CalibrationDefaults resolves the configured overrides against the built-in
// AU table. Unknown AU names are an error.
func (c *Config) CalibrationDefaults() (map[string]calibration.Defaults, error) {
	if len(c.Calibration) == 0 {
		return nil, nil
	}
	out := make(map[string]calibration.Defaults, len(c.Calibration))
	for name, o := range c.Calibration {
		spec, err := actionunit.Lookup(name)
		if err != nil {
			return nil, &ConfigError{Field: "Calibration." + name, Message: err.Error()}
		}
		out[name] = o.Apply(spec.Defaults)
	}
	return out, nil
}

// PipelineConfig builds the per-subject pipeline configuration.
func (c *Config) PipelineConfig(diagnostics bool) (pipeline.Config, error) {
	overrides, err := c.CalibrationDefaults()
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("calibration overrides: %w", err)
	}
	return pipeline.Config{
		PoseTolerance:   c.Pipeline.PoseTolerance,
		ReferenceFrames: c.Pipeline.ReferenceFrames,
		Calibration:     overrides,
		Diagnostics:     diagnostics,
	}, nil
}
