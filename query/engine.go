// Package query answers structured retrieval queries over a loaded
// snapshot: graph traversal, semantic, hybrid fusion, impact, coverage,
// layer violations, orphans, and context amplification.
package query

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/kddindex/embed"
	"github.com/c360studio/kddindex/events"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

// Deadlines: Q-hybrid checks the soft deadline during graph expansion and,
// once past it, returns what it has with partial=true; the other queries
// do not check it. run reports TIMEOUT when the hard deadline has passed by
// the time the query returns; a running query is not interrupted.
const (
	SoftDeadline = 300 * time.Millisecond
	HardDeadline = 2 * time.Second
)

// Engine executes queries against an immutable snapshot. Swap installs a
// new snapshot atomically; readers in flight keep the old one.
type Engine struct {
	snapshot atomic.Pointer[loader.Snapshot]
	embedder embed.Embedder // nil at L1
	bus      *events.Bus
	logger   *slog.Logger
}

// NewEngine wires the query engine.
func NewEngine(snap *loader.Snapshot, embedder embed.Embedder, bus *events.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = events.NewBus(0, logger)
	}
	e := &Engine{embedder: embedder, bus: bus, logger: logger}
	e.snapshot.Store(snap)
	return e
}

// Swap installs a freshly loaded snapshot.
func (e *Engine) Swap(snap *loader.Snapshot) {
	e.snapshot.Store(snap)
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() *loader.Snapshot {
	return e.snapshot.Load()
}

// run brackets one query with lifecycle events and the hard deadline.
func (e *Engine) run(ctx context.Context, strategy string, fn func(ctx context.Context, snap *loader.Snapshot) error) error {
	snap := e.snapshot.Load()
	if snap == nil {
		return kdderr.New(kdderr.IndexUnavailable, "no index loaded")
	}

	queryID := uuid.NewString()
	e.bus.Emit(events.Event{Type: events.QueryReceived, QueryID: queryID, Strategy: strategy})

	ctx, cancel := context.WithTimeout(ctx, HardDeadline)
	defer cancel()

	start := time.Now()
	err := fn(ctx, snap)
	if ctx.Err() != nil && err == nil {
		err = kdderr.New(kdderr.Timeout, "query exceeded %s", HardDeadline)
	}
	if err != nil {
		e.bus.Emit(events.Event{
			Type: events.QueryFailed, QueryID: queryID, Strategy: strategy,
			ErrCode: string(kdderr.CodeOf(err)), Duration: time.Since(start),
		})
		return err
	}
	e.bus.Emit(events.Event{
		Type: events.QueryCompleted, QueryID: queryID, Strategy: strategy,
		Duration: time.Since(start),
	})
	return nil
}

// estimateTokens approximates tokens as ceil(chars/4).
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Filters are shared across queries.
type Filters struct {
	IncludeKinds  []model.Kind
	IncludeLayers []model.Layer
	RespectLayers bool
}

func (f Filters) matchNode(n *model.GraphNode) bool {
	if n == nil {
		return false
	}
	if len(f.IncludeKinds) > 0 && !containsKind(f.IncludeKinds, n.Kind) {
		return false
	}
	if len(f.IncludeLayers) > 0 && !containsLayer(f.IncludeLayers, n.Layer) {
		return false
	}
	return true
}

func containsKind(list []model.Kind, k model.Kind) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}

func containsLayer(list []model.Layer, l model.Layer) bool {
	for _, v := range list {
		if v == l {
			return true
		}
	}
	return false
}

func validateLimit(limit int) (int, error) {
	if limit == 0 {
		return 10, nil
	}
	if limit < 1 || limit > 100 {
		return 0, kdderr.New(kdderr.InvalidParams, "limit must be in 1..100, got %d", limit)
	}
	return limit, nil
}

// validateDepth resolves an optional depth: nil means the query default.
// An explicit 0 is valid and passes through — spec boundary: depth 0
// traversal returns only the root.
func validateDepth(depth *int, def int) (int, error) {
	if depth == nil {
		return def, nil
	}
	if *depth < 0 || *depth > 5 {
		return 0, kdderr.New(kdderr.InvalidDepth, "depth must be in 0..5, got %d", *depth)
	}
	return *depth, nil
}

func validateMinScore(s float64, def float64) (float64, error) {
	if s == 0 {
		return def, nil
	}
	if s < 0 || s > 1 {
		return 0, kdderr.New(kdderr.InvalidParams, "min_score must be in 0..1, got %v", s)
	}
	return s, nil
}

// kindPriority orders fused results within equal scores: constraints first,
// then domain, then behavior.
func kindPriority(k model.Kind) int {
	switch k {
	case model.KindBusinessRule, model.KindBusinessPolicy, model.KindCrossPolicy:
		return 0
	case model.KindEntity, model.KindEvent:
		return 1
	case model.KindCommand, model.KindQuery, model.KindUseCase, model.KindProcess:
		return 2
	case model.KindRequirement:
		return 3
	default:
		return 4
	}
}
