// Package indexer orchestrates ingestion: the per-file pipeline (parse →
// route → extract → chunk → embed → persist) and the incremental driver
// walking a version-control diff.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/chunker"
	"github.com/c360studio/kddindex/embed"
	"github.com/c360studio/kddindex/events"
	"github.com/c360studio/kddindex/extract"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
	"github.com/c360studio/kddindex/rules"
)

// EngineVersion stamps manifests produced by this build.
const EngineVersion = "1.0.0"

// Indexer runs the single-file pipeline against one artifact root.
type Indexer struct {
	store     *artifact.Store
	registry  *extract.Registry
	bus       *events.Bus
	generator *embed.Generator
	level     model.IndexLevel
	logger    *slog.Logger
	now       func() time.Time

	embeddingModel string
	embeddingDims  int
}

// Options configure an Indexer.
type Options struct {
	Store    *artifact.Store
	Bus      *events.Bus
	Logger   *slog.Logger
	Embedder embed.Embedder // nil → L1
	Timeout  time.Duration  // per embedding call
	Clock    func() time.Time
}

// New builds an Indexer, detecting the index level from the wired
// capabilities.
func New(opts Options) *Indexer {
	ix := &Indexer{
		store:    opts.Store,
		registry: extract.NewRegistry(),
		bus:      opts.Bus,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	if ix.now == nil {
		ix.now = time.Now
	}
	if ix.bus == nil {
		ix.bus = events.NewBus(0, ix.logger)
	}
	caps := rules.Capabilities{}
	if opts.Embedder != nil {
		caps.Embedder = true
		caps.VectorIndex = true
		ix.generator = embed.NewGenerator(opts.Embedder, opts.Timeout)
		ix.embeddingModel = opts.Embedder.ModelName()
		ix.embeddingDims = opts.Embedder.Dimensions()
	}
	ix.level = rules.DetectIndexLevel(caps)
	return ix
}

// Level returns the detected index level.
func (ix *Indexer) Level() model.IndexLevel { return ix.level }

// Store returns the artifact store the indexer mutates.
func (ix *Indexer) Store() *artifact.Store { return ix.store }

// FileStatus classifies a per-file outcome.
type FileStatus string

const (
	StatusIndexed FileStatus = "indexed"
	StatusSkipped FileStatus = "skipped"
	StatusDeleted FileStatus = "deleted"
	StatusFailed  FileStatus = "failed"
)

// FileOutcome reports what happened to one file.
type FileOutcome struct {
	Path           string
	NodeID         string
	Status         FileStatus
	Reason         string
	Warnings       []string
	EdgeCount      int
	EmbeddingCount int
}

// prepared holds the computed artifacts for one file before persistence.
type prepared struct {
	doc        *model.Document
	node       *model.GraphNode
	edges      []model.GraphEdge
	embeddings []model.Embedding
	warnings   []string
	started    time.Time
}

// IndexFile runs the full pipeline for the file at repoRoot/relPath. With
// force false, a file whose hash matches the stored node is skipped after
// the detection event.
func (ix *Indexer) IndexFile(ctx context.Context, repoRoot, relPath string, force bool) FileOutcome {
	p, outcome := ix.prepare(ctx, repoRoot, relPath, force)
	if p == nil {
		return outcome
	}
	return ix.persist(p, relPath)
}

func (ix *Indexer) prepare(ctx context.Context, repoRoot, relPath string, force bool) (*prepared, FileOutcome) {
	started := ix.now()

	raw, err := os.ReadFile(filepath.Join(repoRoot, relPath))
	if err != nil {
		return nil, FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}

	doc, err := parser.Parse(relPath, raw)
	if err != nil {
		var skipped *parser.Skipped
		if errors.As(err, &skipped) {
			// Not a KDD artifact; no event, silently skipped.
			return nil, FileOutcome{Path: relPath, Status: StatusSkipped, Reason: string(skipped.Reason)}
		}
		return nil, FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}

	ix.bus.Emit(events.Event{
		Type:       events.DocumentDetected,
		SourcePath: relPath,
		SourceHash: doc.SourceHash,
	})

	route := rules.RouteDocument(doc.FrontMatter, relPath)
	if !route.OK {
		kind, _ := doc.FrontMatter["kind"].(string)
		ix.logger.Warn("unknown kind, document not indexed",
			slog.String("path", relPath), slog.String("kind", kind))
		return nil, FileOutcome{
			Path:     relPath,
			Status:   StatusSkipped,
			Reason:   "unknown kind",
			Warnings: []string{kdderr.New(kdderr.UnknownKind, "kind %q", kind).Error()},
		}
	}
	doc.Kind = route.Kind

	var warnings []string
	if route.Warning != "" {
		warnings = append(warnings, route.Warning)
		ix.logger.Warn("document outside expected location", slog.String("warning", route.Warning))
	}

	nodeID := doc.Kind.NodeID(doc.ID)
	existing, err := ix.store.ReadNode(nodeID)
	if err != nil {
		return nil, FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}
	if existing != nil && existing.SourceHash == doc.SourceHash && !force {
		return nil, FileOutcome{Path: relPath, NodeID: nodeID, Status: StatusSkipped, Reason: "unchanged"}
	}

	node, edges, err := ix.registry.Extract(doc, ix.now())
	if err != nil {
		return nil, FileOutcome{
			Path: relPath, Status: StatusFailed,
			Reason: kdderr.Wrap(kdderr.ExtractionFailed, err).Error(),
		}
	}

	var embeddings []model.Embedding
	if ix.level.AtLeast(model.LevelL2) {
		chunks := chunker.ChunkDocument(doc)
		if len(chunks) > 0 {
			prior, _ := ix.store.ReadEmbeddings(doc.ID)
			embeddings, err = ix.generator.Generate(ctx, doc, chunks, prior)
			if err != nil {
				// Embedding failure degrades this document to L1.
				warnings = append(warnings, err.Error())
				ix.logger.Warn("embedding failed, document degraded to L1",
					slog.String("path", relPath), slog.String("error", err.Error()))
				embeddings = nil
			}
		}
	}

	return &prepared{
		doc:        doc,
		node:       node,
		edges:      edges,
		embeddings: embeddings,
		warnings:   warnings,
		started:    started,
	}, FileOutcome{}
}

// persist writes one prepared document's artifacts. Callers serialize
// persistence; preparation may run concurrently.
func (ix *Indexer) persist(p *prepared, relPath string) FileOutcome {
	doc, node := p.doc, p.node

	stale, err := ix.store.ReadNode(node.ID)
	if err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}
	if stale != nil {
		ix.bus.Emit(events.Event{
			Type:       events.DocumentStale,
			SourcePath: stale.SourceFile,
			SourceHash: stale.SourceHash,
			NodeID:     stale.ID,
			Kind:       string(stale.Kind),
		})
		if _, err := ix.store.DeleteDocument(model.DocumentID(node.ID)); err != nil {
			return FileOutcome{Path: relPath, Status: StatusFailed, Reason: kdderr.Wrap(kdderr.IndexWriteFailed, err).Error()}
		}
	}

	if err := ix.store.WriteNode(node); err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: kdderr.Wrap(kdderr.IndexWriteFailed, err).Error()}
	}
	if err := ix.store.AppendEdges(p.edges); err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: kdderr.Wrap(kdderr.IndexWriteFailed, err).Error()}
	}
	if err := ix.store.WriteEmbeddings(doc.Kind, doc.ID, p.embeddings); err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: kdderr.Wrap(kdderr.IndexWriteFailed, err).Error()}
	}

	ix.bus.Emit(events.Event{
		Type:       events.DocumentParsed,
		SourcePath: relPath,
		SourceHash: doc.SourceHash,
		NodeID:     node.ID,
		Kind:       string(doc.Kind),
	})
	ix.bus.Emit(events.Event{
		Type:           events.DocumentIndexed,
		SourcePath:     relPath,
		SourceHash:     doc.SourceHash,
		NodeID:         node.ID,
		Kind:           string(doc.Kind),
		EdgeCount:      len(p.edges),
		EmbeddingCount: len(p.embeddings),
		Duration:       ix.now().Sub(p.started),
	})

	return FileOutcome{
		Path:           relPath,
		NodeID:         node.ID,
		Status:         StatusIndexed,
		Warnings:       p.warnings,
		EdgeCount:      len(p.edges),
		EmbeddingCount: len(p.embeddings),
	}
}

// Delete cascades removal of a document's artifacts and records a
// tombstone so merges can distinguish deletion from absence.
func (ix *Indexer) Delete(relPath string) FileOutcome {
	docID := documentIDForPath(relPath)
	nodeID, err := ix.store.DeleteDocument(docID)
	if err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}
	if nodeID == "" {
		return FileOutcome{Path: relPath, Status: StatusSkipped, Reason: "not indexed"}
	}
	if err := ix.store.AppendTombstone(model.Tombstone{NodeID: nodeID, DeletedAt: ix.now().UTC()}); err != nil {
		return FileOutcome{Path: relPath, Status: StatusFailed, Reason: err.Error()}
	}
	ix.bus.Emit(events.Event{
		Type:       events.DocumentDeleted,
		SourcePath: relPath,
		NodeID:     nodeID,
	})
	return FileOutcome{Path: relPath, NodeID: nodeID, Status: StatusDeleted}
}

// documentIDForPath derives the document id from a deleted file's base name.
// Deleted files can no longer be parsed for an explicit front-matter id.
func documentIDForPath(relPath string) string {
	base := filepath.Base(relPath)
	return base[:len(base)-len(filepath.Ext(base))]
}

// WriteManifest recomputes stats from the store and atomically rewrites the
// manifest.
func (ix *Indexer) WriteManifest(structure string, domains []string, gitCommit string) error {
	nodes, err := ix.store.ReadAllNodes()
	if err != nil {
		return err
	}
	edges, err := ix.store.ReadEdges()
	if err != nil {
		return err
	}

	m := &model.Manifest{
		Version:    EngineVersion,
		KDDVersion: EngineVersion,
		IndexedAt:  ix.now().UTC(),
		IndexedBy:  "kdd-cli",
		Structure:  structure,
		IndexLevel: ix.level,
		Stats: model.IndexStats{
			Nodes: len(nodes),
			Edges: len(edges),
		},
		Domains:   domains,
		GitCommit: gitCommit,
	}
	if ix.level.AtLeast(model.LevelL2) {
		embeddings, err := ix.store.ReadAllEmbeddings()
		if err != nil {
			return err
		}
		m.Stats.Embeddings = len(embeddings)
		m.EmbeddingModel = ix.embeddingModel
		m.EmbeddingDimensions = ix.embeddingDims
	}
	return ix.store.WriteManifest(m)
}
