package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPoseTolerance, cfg.Pipeline.PoseTolerance)
	assert.Equal(t, DefaultReferenceFrames, cfg.Pipeline.ReferenceFrames)
	assert.False(t, cfg.Store.UseS3())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "affect.yaml")
	data := []byte(`
addr: ":9000"
pipeline:
  pose_tolerance: 6.5
calibration:
  brow_shift:
    max: 12
    min_tol: -0.5
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 6.5, cfg.Pipeline.PoseTolerance)
	// Unset fields keep defaults.
	assert.Equal(t, DefaultReferenceFrames, cfg.Pipeline.ReferenceFrames)

	o, ok := cfg.Calibration["brow_shift"]
	require.True(t, ok)
	require.NotNil(t, o.Max)
	assert.Equal(t, 12.0, *o.Max)
	assert.Nil(t, o.Min)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Addr, cfg.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AFFECT_POSE_TOLERANCE", "4")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("ACCESS_KEY", "a")
	t.Setenv("SECRET_KEY", "b")
	t.Setenv("AFFECT_REFERENCE_FRAMES", "not-a-number")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	assert.Equal(t, 4.0, cfg.Pipeline.PoseTolerance)
	assert.Equal(t, DefaultReferenceFrames, cfg.Pipeline.ReferenceFrames)
	assert.True(t, cfg.Store.UseS3())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	pos := 3.0
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"pose tolerance", func(c *Config) { c.Pipeline.PoseTolerance = 0 }, "Pipeline.PoseTolerance"},
		{"reference frames", func(c *Config) { c.Pipeline.ReferenceFrames = 0 }, "Pipeline.ReferenceFrames"},
		{"render hz", func(c *Config) { c.Pipeline.RenderHz = -1 }, "Pipeline.RenderHz"},
		{"s3 without keys", func(c *Config) { c.Store.S3Endpoint = "x" }, "Store"},
		{"positive min", func(c *Config) {
			c.Calibration = map[string]CalibrationOverride{"jaw_drop": {Min: &pos}}
		}, "Calibration.jaw_drop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			err := cfg.Validate()
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "want ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "yes")
	assert.True(t, EnvBool("X_FLAG", false))
	t.Setenv("X_FLAG", "0")
	assert.False(t, EnvBool("X_FLAG", true))
	assert.True(t, EnvBool("X_UNSET_FLAG", true))
}
