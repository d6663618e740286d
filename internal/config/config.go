// Package config loads, validates, writes and watches the faultlens server
// configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/tracing"
)

// SchemaVersion is the only supported schema_version.
const SchemaVersion = "v1"

// Config is the top-level structure of the configuration file.
//
// Example:
//
//	schema_version: v1
//	log_level: info
//	server: {port: 8080, read_timeout: 15s, write_timeout: 15s}
//	sessions: {max_entries: 256, max_tree_nodes: 10000}
//	batch: {concurrency: 4}
//	diagnosis:
//	  weights: {three_ratio: 0.4, dpm: 0.35, prpd: 0.25}
type Config struct {
	SchemaVersion string          `koanf:"schema_version" yaml:"schema_version"`
	LogLevel      string          `koanf:"log_level" yaml:"log_level"`
	Server        ServerConfig    `koanf:"server" yaml:"server"`
	Tracing       TracingConfig   `koanf:"tracing" yaml:"tracing"`
	Sessions      SessionsConfig  `koanf:"sessions" yaml:"sessions"`
	Batch         BatchConfig     `koanf:"batch" yaml:"batch"`
	Diagnosis     DiagnosisConfig `koanf:"diagnosis" yaml:"diagnosis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `koanf:"port" yaml:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled" yaml:"enabled"`
	Endpoint    string `koanf:"endpoint" yaml:"endpoint"`
	TLSCAPath   string `koanf:"tls_ca_path" yaml:"tls_ca_path"`
	TLSInsecure bool   `koanf:"tls_insecure" yaml:"tls_insecure"`
}

// SessionsConfig bounds the in-memory workflow session store.
type SessionsConfig struct {
	MaxEntries int `koanf:"max_entries" yaml:"max_entries"`
	// MaxTreeNodes caps the expanded fault tree of one workflow.
	MaxTreeNodes int `koanf:"max_tree_nodes" yaml:"max_tree_nodes"`
}

// BatchConfig bounds batch diagnosis fan-out.
type BatchConfig struct {
	Concurrency int `koanf:"concurrency" yaml:"concurrency"`
}

// DiagnosisConfig holds the hot-reloadable engine settings.
type DiagnosisConfig struct {
	Thresholds dga.RatioThresholds `koanf:"thresholds" yaml:"thresholds"`
	Weights    dga.Weights         `koanf:"weights" yaml:"weights"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		LogLevel:      "info",
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Sessions: SessionsConfig{MaxEntries: 256, MaxTreeNodes: 10000},
		Batch:    BatchConfig{Concurrency: 4},
		Diagnosis: DiagnosisConfig{
			Thresholds: dga.DefaultThresholds(),
			Weights:    dga.DefaultWeights(),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SchemaVersion != SchemaVersion {
		return NewConfigError(fmt.Sprintf(
			"unsupported schema_version: %q (expected %q)", c.SchemaVersion, SchemaVersion))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return NewConfigError(fmt.Sprintf("log_level: %v", err))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigError("server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return NewConfigError("server timeouts must be positive")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}
	if c.Sessions.MaxEntries < 1 {
		return NewConfigError("sessions.max_entries must be at least 1")
	}
	if c.Sessions.MaxTreeNodes < 1 {
		return NewConfigError("sessions.max_tree_nodes must be at least 1")
	}
	if c.Batch.Concurrency < 1 {
		return NewConfigError("batch.concurrency must be at least 1")
	}
	if err := c.Diagnosis.Thresholds.Validate(); err != nil {
		return NewConfigError("diagnosis." + err.Error())
	}
	if err := c.Diagnosis.Weights.Validate(); err != nil {
		return NewConfigError("diagnosis.weights: " + err.Error())
	}
	return nil
}

// Engine returns the engine settings carried by the file.
func (c *Config) Engine() dga.EngineConfig {
	return dga.EngineConfig{
		Thresholds: c.Diagnosis.Thresholds,
		Weights:    c.Diagnosis.Weights,
	}
}

// TracingProvider converts the tracing section for tracing.NewProvider.
func (c *Config) TracingProvider() tracing.Config {
	return tracing.Config{
		Enabled:     c.Tracing.Enabled,
		Endpoint:    c.Tracing.Endpoint,
		TLSCAPath:   c.Tracing.TLSCAPath,
		TLSInsecure: c.Tracing.TLSInsecure,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
