// Package config provides configuration loading for the kdd CLI.
package config

import (
	"fmt"
	"time"
)

// Config is the complete engine configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Events    EventsConfig    `yaml:"events"`
}

// IndexConfig configures the artifact root and spec tree.
type IndexConfig struct {
	// Root is the artifact directory (default: .kdd-index)
	Root string `yaml:"root"`
	// RepoPath is the repository root (default: current directory)
	RepoPath string `yaml:"repo_path"`
	// Structure is single-domain or multi-domain
	Structure string `yaml:"structure"`
}

// EmbeddingConfig configures the embedding adapter. Credentials come from
// the environment, never from this file.
type EmbeddingConfig struct {
	// Model is the embedding model name (empty = L1, no embeddings)
	Model string `yaml:"model"`
	// Dimensions is the expected vector length
	Dimensions int `yaml:"dimensions"`
	// Timeout bounds one embedding call
	Timeout time.Duration `yaml:"timeout"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	// ConsumerThreshold detaches consumers slower than this per event
	ConsumerThreshold time.Duration `yaml:"consumer_threshold"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Root:      ".kdd-index",
			RepoPath:  ".",
			Structure: "single-domain",
		},
		Embedding: EmbeddingConfig{
			Model:      "",
			Dimensions: 768,
			Timeout:    30 * time.Second,
		},
		Events: EventsConfig{
			ConsumerThreshold: 100 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Index.Root == "" {
		return fmt.Errorf("index.root is required")
	}
	switch c.Index.Structure {
	case "single-domain", "multi-domain":
	default:
		return fmt.Errorf("index.structure must be single-domain or multi-domain, got %q", c.Index.Structure)
	}
	if c.Embedding.Model != "" && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive when a model is set")
	}
	if c.Embedding.Timeout < 0 {
		return fmt.Errorf("embedding.timeout must not be negative")
	}
	return nil
}
