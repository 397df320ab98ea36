// Package config provides the configuration system for blockstream.
// A single Config structure covers every component of an insert run,
// organized into logical sections:
//   - Logging: zap logger level and encoding
//   - Metrics: Prometheus collection for stream operators
//   - Tracing: OpenTelemetry spans around pulls
//   - IO: Arrow IPC framing for block sources and sinks
//
// Example usage:
//
//	cfg, err := config.Load("blockstream.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.IO.Compression = "zstd"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
)

// Config is the root configuration structure.
type Config struct {
	// Name identifies the insert run in logs and traces
	Name string `yaml:"name" json:"name" mapstructure:"name"`

	// Logging settings for the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Metrics settings for Prometheus collectors
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Tracing settings for OpenTelemetry
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`

	// IO settings for block sources and sinks
	IO IOConfig `yaml:"io" json:"io" mapstructure:"io"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Encoding selects json or console output
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	// Development enables colored levels and stack traces on errors
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
	// OutputPaths lists log sinks (stdout, stderr or file paths)
	OutputPaths []string `yaml:"output_paths" json:"output_paths" mapstructure:"output_paths"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled activates per-operator Prometheus collectors
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// TracingConfig contains tracing settings.
type TracingConfig struct {
	// Enabled activates a span per pull
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// ServiceName is reported on every span
	ServiceName string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	// SampleRate controls trace sampling (0.0-1.0)
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate" mapstructure:"sample_rate"`
}

// IOConfig contains block I/O settings.
type IOConfig struct {
	// Compression frames IPC streams (none, zstd, lz4, s2)
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// Format of written blocks (arrow, parquet, avro); empty picks by file extension
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Default creates a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Name: "blockstream",
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "blockstream",
			SampleRate:  1.0,
		},
		IO: IOConfig{
			Compression: "none",
		},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error: got %q", c.Logging.Level)
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console: got %q", c.Logging.Encoding)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}
	switch c.IO.Compression {
	case "", "none", "zstd", "lz4", "s2":
	default:
		return fmt.Errorf("io.compression must be one of none, zstd, lz4, s2: got %q", c.IO.Compression)
	}
	switch c.IO.Format {
	case "", "arrow", "parquet", "avro":
	default:
		return fmt.Errorf("io.format must be one of arrow, parquet, avro: got %q", c.IO.Format)
	}
	return nil
}
