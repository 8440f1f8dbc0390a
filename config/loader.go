package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file searched for at the repo root.
const FileName = ".kdd.yaml"

// Loader reads configuration, layering project config over defaults.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a config loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns defaults merged with the project file at repoPath, when
// present. A missing file is not an error; a malformed one is.
func (l *Loader) Load(repoPath string) (*Config, error) {
	cfg := DefaultConfig()
	if repoPath != "" {
		cfg.Index.RepoPath = repoPath
	}

	path := filepath.Join(cfg.Index.RepoPath, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("no project config, using defaults", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		l.logger.Debug("loaded project config", slog.String("path", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
