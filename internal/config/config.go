// Package config loads buildgov's layered YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete buildgov configuration.
type Config struct {
	// Database is the SQLite file holding the project log.
	Database string `yaml:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MetricsFile, if set, receives a Prometheus textfile after each
	// command that changes the project.
	MetricsFile string `yaml:"metrics_file"`

	// ScenarioWorkers bounds how many scenario files `buildgov test` runs at
	// once.
	ScenarioWorkers int `yaml:"scenario_workers"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database:        "./buildgov.db",
		LogLevel:        "info",
		MetricsFile:     "",
		ScenarioWorkers: runtime.GOMAXPROCS(0),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.ScenarioWorkers < 1 {
		return fmt.Errorf("scenario_workers must be at least 1, got %d", c.ScenarioWorkers)
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	return level, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one. Non-zero fields of other win.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Database != "" {
		c.Database = other.Database
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MetricsFile != "" {
		c.MetricsFile = other.MetricsFile
	}
	if other.ScenarioWorkers != 0 {
		c.ScenarioWorkers = other.ScenarioWorkers
	}
}
