// Package loader turns an artifact store into an in-memory snapshot: graph
// store plus optional vector store. A partial load is never accepted — any
// parse error reports the offending path and aborts.
package loader

import (
	"fmt"
	"log/slog"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/graph"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/vector"
)

// Snapshot is an immutable loaded index. Incremental builds construct a new
// snapshot and swap it in by pointer exchange; readers in flight keep the
// old one.
type Snapshot struct {
	Manifest *model.Manifest
	Graph    *graph.Store
	Vectors  *vector.Store // nil at L1
}

// Load reads manifest, nodes, edges, and embeddings from the store and
// builds the snapshot.
func Load(store *artifact.Store, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	manifest, err := store.ReadManifest()
	if err != nil {
		return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
	}

	nodes, err := store.ReadAllNodes()
	if err != nil {
		return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
	}
	edges, err := store.ReadEdges()
	if err != nil {
		return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
	}

	snap := &Snapshot{
		Manifest: manifest,
		Graph:    graph.Load(nodes, edges),
	}

	if manifest.IndexLevel.AtLeast(model.LevelL2) {
		embeddings, err := store.ReadAllEmbeddings()
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		for _, e := range embeddings {
			if e.Model != manifest.EmbeddingModel || e.Dimensions != manifest.EmbeddingDimensions {
				return nil, kdderr.New(kdderr.IndexUnavailable,
					"embedding %s: model %s/%d does not match manifest %s/%d",
					e.ID, e.Model, e.Dimensions, manifest.EmbeddingModel, manifest.EmbeddingDimensions)
			}
		}
		vs, err := vector.Build(manifest.EmbeddingDimensions, embeddings)
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, fmt.Errorf("build vector index: %w", err))
		}
		snap.Vectors = vs
	}

	logger.Debug("index loaded",
		slog.Int("nodes", snap.Graph.NodeCount()),
		slog.Int("edges", snap.Graph.EdgeCount()),
		slog.Int("orphans", len(snap.Graph.OrphanEdges())),
		slog.String("level", string(manifest.IndexLevel)))
	return snap, nil
}
