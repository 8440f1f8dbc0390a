// Package commands implements the kdd CLI surface: thin cobra shells over
// the engine.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/config"
	"github.com/c360studio/kddindex/embed"
	"github.com/c360studio/kddindex/events"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/query"
)

// App carries the shared CLI state: config, logger, bus, and the lazily
// loaded query engine.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Bus    *events.Bus

	engine *query.Engine
}

// NewApp wires the CLI application.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Config: cfg,
		Logger: logger,
		Bus:    events.NewBus(cfg.Events.ConsumerThreshold, logger),
	}
}

// Store opens the configured artifact root.
func (a *App) Store() *artifact.Store {
	return artifact.Open(a.Config.Index.Root)
}

// Embedder builds the embedding adapter, or nil when no model is
// configured (L1).
func (a *App) Embedder() (embed.Embedder, error) {
	if a.Config.Embedding.Model == "" {
		return nil, nil
	}
	return embed.NewOpenAIEmbedder(a.Config.Embedding.Model, a.Config.Embedding.Dimensions)
}

// EmbedTimeout returns the per-call embedding timeout.
func (a *App) EmbedTimeout() time.Duration {
	return a.Config.Embedding.Timeout
}

// Engine loads the snapshot on first use and returns the query engine.
func (a *App) Engine() (*query.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	snap, err := loader.Load(a.Store(), a.Logger)
	if err != nil {
		return nil, err
	}
	embedder, err := a.Embedder()
	if err != nil {
		a.Logger.Warn("embedder unavailable, semantic queries disabled", slog.String("error", err.Error()))
		embedder = nil
	}
	a.engine = query.NewEngine(snap, embedder, a.Bus, a.Logger)
	return a.engine, nil
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
