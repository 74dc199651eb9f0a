// Package config provides configuration for go-affect commands: defaults,
// an optional YAML tuning file and environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultAddr            = ":8090"
	DefaultPoseTolerance   = 10.0
	DefaultReferenceFrames = 20
	DefaultRenderHz        = 15.0
	DefaultTickHz          = 30.0
	DefaultStoreDir        = "recordings"
	DefaultLogLevel        = "info"
)

// Config holds all configuration for the affect daemon and tools.
// Flag parsing is done in cmd/*; this struct is data only.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Addr is the HTTP listen address for the API and WebSockets.
	Addr string `yaml:"addr"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`

	// ProfilesDir overrides the embedded emotion profiles when set.
	ProfilesDir string `yaml:"profiles_dir"`

	// Calibration overrides per AU name (e.g. "brow_shift").
	Calibration map[string]CalibrationOverride `yaml:"calibration"`
}

// PipelineConfig tunes per-subject processing.
type PipelineConfig struct {
	// PoseTolerance is the pose deviation (degrees, summed) above which
	// calibration bounds are frozen for a tick.
	PoseTolerance float64 `yaml:"pose_tolerance"`

	// ReferenceFrames is how many samples are averaged into the reference face.
	ReferenceFrames int `yaml:"reference_frames"`

	// RenderHz caps how often results are forwarded to renderers per session.
	RenderHz float64 `yaml:"render_hz"`

	// TickHz paces replayed recordings served as live sources.
	TickHz float64 `yaml:"tick_hz"`
}

// StoreConfig selects where recordings live. S3 is used when Endpoint is set.
type StoreConfig struct {
	Dir string `yaml:"dir"`

	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`
}

// UseS3 reports whether the remote store is configured.
func (s StoreConfig) UseS3() bool {
	return s.S3Endpoint != ""
}

// CalibrationOverride replaces individual calibration defaults of one AU.
// Nil fields keep the built-in value.
type CalibrationOverride struct {
	Min        *float64 `yaml:"min"`
	Max        *float64 `yaml:"max"`
	MinTol     *float64 `yaml:"min_tol"`
	MaxTol     *float64 `yaml:"max_tol"`
	ExtremeMin *float64 `yaml:"extreme_min"`
	ExtremeMax *float64 `yaml:"extreme_max"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Addr:     DefaultAddr,
		Pipeline: PipelineConfig{
			PoseTolerance:   DefaultPoseTolerance,
			ReferenceFrames: DefaultReferenceFrames,
			RenderHz:        DefaultRenderHz,
			TickHz:          DefaultTickHz,
		},
		Store: StoreConfig{
			Dir:      DefaultStoreDir,
			S3Bucket: "affect-recordings",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvConfig applies environment overrides.
// Call this after loading the file and before flag overrides.
func (c *Config) LoadEnvConfig() {
	c.LogLevel = Env("LOG_LEVEL", c.LogLevel)
	c.LogFile = Env("LOG_FILE", c.LogFile)
	c.Addr = Env("AFFECT_ADDR", c.Addr)
	c.ProfilesDir = Env("AFFECT_PROFILES_DIR", c.ProfilesDir)

	c.Pipeline.PoseTolerance = EnvFloat("AFFECT_POSE_TOLERANCE", c.Pipeline.PoseTolerance)
	c.Pipeline.ReferenceFrames = EnvInt("AFFECT_REFERENCE_FRAMES", c.Pipeline.ReferenceFrames)
	c.Pipeline.RenderHz = EnvFloat("AFFECT_RENDER_HZ", c.Pipeline.RenderHz)

	c.Store.Dir = Env("AFFECT_STORE_DIR", c.Store.Dir)
	c.Store.S3Endpoint = Env("S3_ENDPOINT", c.Store.S3Endpoint)
	c.Store.S3AccessKey = Env("ACCESS_KEY", c.Store.S3AccessKey)
	c.Store.S3SecretKey = Env("SECRET_KEY", c.Store.S3SecretKey)
	c.Store.S3Bucket = Env("S3_BUCKET", c.Store.S3Bucket)
	c.Store.S3UseSSL = EnvBool("S3_USE_SSL", c.Store.S3UseSSL)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Pipeline.PoseTolerance <= 0 {
		return &ConfigError{Field: "Pipeline.PoseTolerance", Message: "pose tolerance must be positive"}
	}
	if c.Pipeline.ReferenceFrames < 1 {
		return &ConfigError{Field: "Pipeline.ReferenceFrames", Message: "at least one reference frame is required"}
	}
	if c.Pipeline.RenderHz <= 0 {
		return &ConfigError{Field: "Pipeline.RenderHz", Message: "render rate must be positive"}
	}
	if c.Store.UseS3() && (c.Store.S3AccessKey == "" || c.Store.S3SecretKey == "") {
		return &ConfigError{Field: "Store", Message: "ACCESS_KEY and SECRET_KEY are required when S3_ENDPOINT is set"}
	}
	for name, o := range c.Calibration {
		if o.Min != nil && *o.Min > 0 {
			return &ConfigError{Field: "Calibration." + name, Message: "min must not be positive"}
		}
		if o.Max != nil && *o.Max < 0 {
			return &ConfigError{Field: "Calibration." + name, Message: "max must not be negative"}
		}
		if o.ExtremeMin != nil && o.ExtremeMax != nil && *o.ExtremeMin > *o.ExtremeMax {
			return &ConfigError{Field: "Calibration." + name, Message: "extreme_min exceeds extreme_max"}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
