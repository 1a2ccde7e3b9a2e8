package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the configuration file looked up by the CLI.
	DefaultFileName = "counters.yaml"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultMetricsPath is the default metrics endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "scopestore"
)

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("config: invalid value")

	// ErrUnreadable is wrapped when a file cannot be read or decoded.
	ErrUnreadable = errors.New("config: unreadable file")
)

// Config is the server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" yaml:"addr"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`

	// LogFormat is text or json.
	LogFormat string `json:"logFormat" yaml:"logFormat"`

	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing"`
	Events   EventsConfig   `json:"events" yaml:"events"`
	Counters CountersConfig `json:"counters" yaml:"counters"`

	// path is where the config was loaded from.
	path string
}

// MetricsConfig controls the Prometheus observer and endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Path      string `json:"path" yaml:"path"`
}

// TracingConfig controls the OpenTelemetry observer.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName" yaml:"tracerName"`
}

// EventsConfig controls the capitan observer.
type EventsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Selections also emits one event per binding evaluation.
	Selections bool `json:"selections" yaml:"selections"`
}

// CountersConfig is the initial state of every new counters session.
type CountersConfig struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Addr:      DefaultAddr,
		LogLevel:  "info",
		LogFormat: "text",
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
	}
}

// Load reads the file at path on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes data in the given format ("json" or "yaml") on top of the
// defaults and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrUnreadable, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Path returns the path the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logFormat must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /, got %q", ErrInvalid, c.Metrics.Path)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: logLevel %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}
