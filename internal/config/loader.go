package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectConfigFile is looked up in the working directory and its parents
// when no explicit path is given.
const ProjectConfigFile = "buildgov.yaml"

// Loader resolves configuration with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns the defaults merged with, in order:
//  1. buildgov.yaml in the working directory or a parent, unless path is set
//  2. the file at path, which must exist when given
//  3. overrides, typically built from command-line flags
//
// The result is validated.
func (l *Loader) Load(path string, overrides *Config) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded config", "path", path)
		config.Merge(fileConfig)
	} else if found := l.findProjectConfig(); found != "" {
		fileConfig, err := LoadFromFile(found)
		switch {
		case err == nil:
			l.logger.Debug("loaded project config", "path", found)
			config.Merge(fileConfig)
		case errors.Is(err, os.ErrNotExist):
		default:
			l.logger.Warn("failed to load project config", "path", found, "error", err)
		}
	}

	config.Merge(overrides)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig searches for buildgov.yaml in the current and parent
// directories.
func (l *Loader) findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
