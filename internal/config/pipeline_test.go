package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-affect/pkg/actionunit"
	"github.com/teslashibe/go-affect/pkg/calibration"
	"github.com/teslashibe/go-affect/pkg/model"
)

func ptr(v float64) *float64 { return &v }

func TestCalibrationOverrideApply(t *testing.T) {
	base := calibration.Defaults{Min: -2, Max: 3, MinTol: -1, MaxTol: 1, ExtremeMin: -60, ExtremeMax: 60}
	got := CalibrationOverride{Max: ptr(12), MinTol: ptr(-0.5)}.Apply(base)

	assert.Equal(t, 12.0, got.Max)
	assert.Equal(t, -0.5, got.MinTol)
	assert.Equal(t, base.Min, got.Min)
	assert.Equal(t, base.ExtremeMax, got.ExtremeMax)

	assert.Equal(t, base, CalibrationOverride{}.Apply(base))
}

func TestPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.PoseTolerance = 7
	cfg.Calibration = map[string]CalibrationOverride{
		actionunit.JawDrop: {ExtremeMax: ptr(40)},
	}

	pc, err := cfg.PipelineConfig(true)
	require.NoError(t, err)
	assert.Equal(t, 7.0, pc.PoseTolerance)
	assert.Equal(t, DefaultReferenceFrames, pc.ReferenceFrames)
	assert.True(t, pc.Diagnostics)

	spec, err := actionunit.Lookup(actionunit.JawDrop)
	require.NoError(t, err)
	want := spec.Defaults
	want.ExtremeMax = 40
	assert.Equal(t, want, pc.Calibration[actionunit.JawDrop])
	assert.Len(t, pc.Calibration, 1)
}

func TestPipelineConfigUnknownAU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration = map[string]CalibrationOverride{"ear_wiggle": {Max: ptr(1)}}

	_, err := cfg.PipelineConfig(false)
	require.Error(t, err)
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "Calibration.ear_wiggle", ce.Field)
}

func TestStoreOpenDir(t *testing.T) {
	cfg := StoreConfig{Dir: t.TempDir()}
	st, err := cfg.Open(context.Background())
	require.NoError(t, err)
	keys, err := st.List(context.Background(), model.Joy)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
