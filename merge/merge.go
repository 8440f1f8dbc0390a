// Package merge reconciles artifact stores from multiple producers into one
// output root: last-write-wins on node conflicts, delete-wins on tombstones.
// Compatibility failures are fatal; no partial merge survives.
package merge

import (
	"log/slog"
	"sort"
	"time"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/events"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/rules"
)

// Strategy selects conflict behavior.
type Strategy string

const (
	LastWriteWins  Strategy = "last_write_wins"
	FailOnConflict Strategy = "fail_on_conflict"
)

// Options configure a merge run.
type Options struct {
	Sources  []string // at least two artifact roots
	Output   string
	Strategy Strategy
	Bus      *events.Bus
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Result summarizes a completed merge.
type Result struct {
	Nodes             int
	Edges             int
	Embeddings        int
	ConflictsResolved int
	Deleted           int
}

type source struct {
	store    *artifact.Store
	manifest *model.Manifest
}

// Run executes the merge.
func Run(opts Options) (*Result, error) {
	if len(opts.Sources) < 2 {
		return nil, kdderr.New(kdderr.InsufficientSources, "need at least 2 source indexes, got %d", len(opts.Sources))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = LastWriteWins
	}

	if opts.Bus != nil {
		opts.Bus.Emit(events.Event{Type: events.MergeRequested})
	}

	sources := make([]source, 0, len(opts.Sources))
	for _, path := range opts.Sources {
		st := artifact.Open(path)
		m, err := st.ReadManifest()
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		sources = append(sources, source{store: st, manifest: m})
	}

	if err := validateCompatibility(sources); err != nil {
		return nil, err
	}

	// Union nodes across sources, indexed by id.
	candidates := map[string][]nodeOrigin{}
	for i, src := range sources {
		nodes, err := src.store.ReadAllNodes()
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		for j := range nodes {
			n := nodes[j]
			candidates[n.ID] = append(candidates[n.ID], nodeOrigin{node: n, source: i})
		}
	}

	// Delete-wins: any tombstone in any source removes the id. Absence
	// alone never deletes — tombstones are explicit.
	deleted := map[string]bool{}
	for _, src := range sources {
		tombstones, err := src.store.ReadTombstones()
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		for _, t := range tombstones {
			deleted[t.NodeID] = true
		}
	}

	result := &Result{}
	winners := map[string]nodeOrigin{}
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if deleted[id] {
			result.Deleted++
			continue
		}
		origins := candidates[id]
		winner := origins[0]
		conflicted := false
		for _, other := range origins[1:] {
			if other.node.SourceHash == winner.node.SourceHash {
				continue
			}
			conflicted = true
			if strategy == FailOnConflict {
				return nil, kdderr.New(kdderr.ConflictRejected, "conflicting copies of node %s", id)
			}
			if rules.ResolveNodeConflict(&winner.node, &other.node) {
				winner = other
			}
		}
		if conflicted {
			result.ConflictsResolved++
		}
		winners[id] = winner
	}

	// Edge union keyed by (from,to,type); edges to removed nodes dropped
	// only when the endpoint was tombstoned (orphan targets are legal
	// otherwise). Edges whose source node has no merged copy are dropped.
	seen := map[model.EdgeKey]bool{}
	var mergedEdges []model.GraphEdge
	for _, src := range sources {
		edges, err := src.store.ReadEdges()
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		for _, e := range edges {
			if deleted[e.FromNode] || deleted[e.ToNode] {
				continue
			}
			if _, ok := winners[e.FromNode]; !ok {
				continue
			}
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			mergedEdges = append(mergedEdges, e)
		}
	}

	// Write output. Embeddings always come from the winning source.
	out := artifact.Open(opts.Output)
	lock, err := out.AcquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	for _, id := range ids {
		w, ok := winners[id]
		if !ok {
			continue
		}
		if err := out.WriteNode(&w.node); err != nil {
			return nil, kdderr.Wrap(kdderr.OutputWriteFailed, err)
		}
		docID := model.DocumentID(id)
		embs, err := sources[w.source].store.ReadEmbeddings(docID)
		if err != nil {
			return nil, kdderr.Wrap(kdderr.IndexUnavailable, err)
		}
		if len(embs) > 0 {
			if err := out.WriteEmbeddings(w.node.Kind, docID, embs); err != nil {
				return nil, kdderr.Wrap(kdderr.OutputWriteFailed, err)
			}
			result.Embeddings += len(embs)
		}
	}
	if err := out.RewriteEdges(mergedEdges); err != nil {
		return nil, kdderr.Wrap(kdderr.OutputWriteFailed, err)
	}

	result.Nodes = len(winners)
	result.Edges = len(mergedEdges)

	manifest := mergedManifest(sources, result, now().UTC())
	if err := out.WriteManifest(manifest); err != nil {
		return nil, kdderr.Wrap(kdderr.OutputWriteFailed, err)
	}

	if opts.Bus != nil {
		opts.Bus.Emit(events.Event{
			Type:              events.MergeCompleted,
			ConflictsResolved: result.ConflictsResolved,
		})
	}
	logger.Info("merge completed",
		slog.Int("nodes", result.Nodes),
		slog.Int("edges", result.Edges),
		slog.Int("conflicts", result.ConflictsResolved))
	return result, nil
}

type nodeOrigin struct {
	node   model.GraphNode
	source int
}

// validateCompatibility enforces same semver major, same embedding model
// across L2+ sources, and same structure.
func validateCompatibility(sources []source) error {
	first := sources[0].manifest
	firstMajor, err := first.Major()
	if err != nil {
		return kdderr.Wrap(kdderr.IncompatibleVersion, err)
	}

	var refModel string
	for _, s := range sources {
		if s.manifest.EmbeddingModel != "" {
			refModel = s.manifest.EmbeddingModel
			break
		}
	}

	for _, s := range sources[1:] {
		major, err := s.manifest.Major()
		if err != nil {
			return kdderr.Wrap(kdderr.IncompatibleVersion, err)
		}
		if major != firstMajor {
			return kdderr.New(kdderr.IncompatibleVersion,
				"major versions differ: %s vs %s", first.Version, s.manifest.Version)
		}
		if s.manifest.Structure != first.Structure {
			return kdderr.New(kdderr.IncompatibleStructure,
				"structures differ: %s vs %s", first.Structure, s.manifest.Structure)
		}
		if s.manifest.EmbeddingModel != "" && refModel != "" && s.manifest.EmbeddingModel != refModel {
			return kdderr.New(kdderr.IncompatibleEmbeddingModel,
				"embedding models differ: %s vs %s", refModel, s.manifest.EmbeddingModel)
		}
	}
	return nil
}

// mergedManifest consolidates stats; the merged level is the minimum of the
// sources.
func mergedManifest(sources []source, r *Result, at time.Time) *model.Manifest {
	level := model.LevelL3
	for _, s := range sources {
		if !s.manifest.IndexLevel.AtLeast(level) {
			level = s.manifest.IndexLevel
		}
	}

	m := &model.Manifest{
		Version:    sources[0].manifest.Version,
		KDDVersion: sources[0].manifest.KDDVersion,
		IndexedAt:  at,
		IndexedBy:  "merge",
		Structure:  sources[0].manifest.Structure,
		IndexLevel: level,
		Stats: model.IndexStats{
			Nodes:      r.Nodes,
			Edges:      r.Edges,
			Embeddings: r.Embeddings,
		},
	}
	if level.AtLeast(model.LevelL2) {
		for _, s := range sources {
			if s.manifest.EmbeddingModel != "" {
				m.EmbeddingModel = s.manifest.EmbeddingModel
				m.EmbeddingDimensions = s.manifest.EmbeddingDimensions
				break
			}
		}
	}

	domains := map[string]bool{}
	for _, s := range sources {
		for _, d := range s.manifest.Domains {
			domains[d] = true
		}
	}
	for d := range domains {
		m.Domains = append(m.Domains, d)
	}
	sort.Strings(m.Domains)
	if len(m.Domains) > 1 {
		m.Structure = model.StructureMultiDomain
	}
	return m
}
