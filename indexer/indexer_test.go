package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/artifact"
	"github.com/c360studio/kddindex/events"
	"github.com/c360studio/kddindex/gitdiff"
	"github.com/c360studio/kddindex/model"
)

const pedidoSpec = `---
kind: entity
id: Pedido
aliases: [Orden, Order]
---

# Pedido

## Descripción

Un pedido representa la intención de compra de un usuario dentro del sistema y agrupa todas sus líneas de venta.

## Atributos

| Nombre | Tipo |
|--------|------|
| id     | UUID |

## Relaciones

| Relación | Cardinalidad | Entidad |
|----------|--------------|---------|
| pertenece_a | N:1 | [[Usuario]] |
`

// fakeDiffer drives the incremental driver without a real repository.
type fakeDiffer struct {
	head    string
	files   []string
	changes map[string][]gitdiff.Change // key: base commit
}

func (f *fakeDiffer) Head(context.Context) (string, error) { return f.head, nil }

func (f *fakeDiffer) ListFiles(context.Context) ([]string, error) { return f.files, nil }

func (f *fakeDiffer) Diff(_ context.Context, base, _ string) ([]gitdiff.Change, error) {
	if ch, ok := f.changes[base]; ok {
		return ch, nil
	}
	return nil, nil
}

// fixedEmbedder returns a constant vector, counting calls.
type fixedEmbedder struct {
	calls int
}

func (f *fixedEmbedder) ModelName() string { return "test-embed" }
func (f *fixedEmbedder) Dimensions() int   { return 3 }
func (f *fixedEmbedder) Embed(context.Context, string) (model.Vector, error) {
	f.calls++
	return model.Vector{1, 0, 0}, nil
}

func writeSpec(t *testing.T, repo, rel, content string) {
	t.Helper()
	path := filepath.Join(repo, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, root string, emb *fixedEmbedder) (*Indexer, *[]events.Event) {
	t.Helper()
	bus := events.NewBus(time.Second, nil)
	var emitted []events.Event
	bus.Subscribe(events.ConsumerFunc(func(e events.Event) { emitted = append(emitted, e) }))

	opts := Options{Store: artifact.Open(root), Bus: bus}
	if emb != nil {
		opts.Embedder = emb
	}
	return New(opts), &emitted
}

func TestIndexEntityWithRelationsTable(t *testing.T) {
	// Spec scenario 1: node, DOMAIN_RELATION + business edge + wiki link,
	// one embedding for Descripción, none for Atributos.
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	emb := &fixedEmbedder{}
	ix, _ := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), emb)
	require.Equal(t, model.LevelL2, ix.Level())

	outcome := ix.IndexFile(context.Background(), repo, rel, false)
	require.Equal(t, StatusIndexed, outcome.Status, outcome.Reason)
	assert.Equal(t, "Entity:Pedido", outcome.NodeID)

	node, err := ix.Store().ReadNode("Entity:Pedido")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, model.KindEntity, node.Kind)
	assert.ElementsMatch(t, []string{"Orden", "Order"}, node.Aliases)

	edges, err := ix.Store().ReadEdges()
	require.NoError(t, err)
	types := map[string]model.GraphEdge{}
	for _, e := range edges {
		types[e.EdgeType] = e
	}
	require.Contains(t, types, model.EdgeWikiLink)
	require.Contains(t, types, model.EdgeDomainRelation)
	require.Contains(t, types, "pertenece_a")
	assert.Equal(t, "Entity:Usuario", types[model.EdgeDomainRelation].ToNode)
	assert.Equal(t, "N:1", types[model.EdgeDomainRelation].Metadata["cardinality"])

	embs, err := ix.Store().ReadEmbeddings("Pedido")
	require.NoError(t, err)
	require.Len(t, embs, 1, "only Descripción embeds")
	assert.Contains(t, embs[0].SectionPath, "descripción")
	assert.Equal(t, "test-embed", embs[0].Model)
	assert.Equal(t, 3, embs[0].Dimensions)
}

func TestIndexSkipsUnchanged(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	ix, emitted := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	require.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, false).Status)

	*emitted = nil
	outcome := ix.IndexFile(context.Background(), repo, rel, false)
	assert.Equal(t, StatusSkipped, outcome.Status)

	// Only the detection event fires for an unchanged file.
	require.Len(t, *emitted, 1)
	assert.Equal(t, events.DocumentDetected, (*emitted)[0].Type)
}

func TestIndexForceReindexes(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	ix, _ := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	require.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, false).Status)
	assert.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, true).Status)
}

func TestIndexUnknownKindWarnsAndStops(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/X.md"
	writeSpec(t, repo, rel, "---\nkind: widget\n---\n\n## Descripción\n\nx\n")

	ix, emitted := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	outcome := ix.IndexFile(context.Background(), repo, rel, false)
	assert.Equal(t, StatusSkipped, outcome.Status)
	require.Len(t, *emitted, 1, "detection only")
	assert.Equal(t, events.DocumentDetected, (*emitted)[0].Type)

	nodes, err := ix.Store().ReadAllNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestIndexNonFrontMatterSilentlySkipped(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/README.md"
	writeSpec(t, repo, rel, "# Readme\n")

	ix, emitted := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	outcome := ix.IndexFile(context.Background(), repo, rel, false)
	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Empty(t, *emitted, "no events for non-artifacts")
}

func TestDeleteWritesTombstone(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	ix, emitted := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	require.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, false).Status)

	*emitted = nil
	outcome := ix.Delete(rel)
	require.Equal(t, StatusDeleted, outcome.Status)

	tombstones, err := ix.Store().ReadTombstones()
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, "Entity:Pedido", tombstones[0].NodeID)

	require.Len(t, *emitted, 1)
	assert.Equal(t, events.DocumentDeleted, (*emitted)[0].Type)
}

func TestIncrementalModify(t *testing.T) {
	// Spec scenario 2: diff reports M for an indexed file; events run
	// Stale → Parsed → Indexed and the manifest commit moves to HEAD.
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	differ := &fakeDiffer{head: "abc123", files: []string{rel}}
	ix, emitted := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	driver := NewDriver(ix, differ, repo, nil)

	result, err := driver.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.FullReindex)
	assert.Equal(t, 1, result.Indexed)

	manifest, err := ix.Store().ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, "abc123", manifest.GitCommit)

	// Modify the file; the next HEAD diff reports M.
	writeSpec(t, repo, rel, pedidoSpec+"\n## Invariantes\n\n- total >= 0\n")
	differ.head = "def456"
	differ.changes = map[string][]gitdiff.Change{
		"abc123": {{Status: gitdiff.Modified, Path: rel}},
	}

	*emitted = nil
	result, err = driver.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.False(t, result.FullReindex)
	assert.Equal(t, 1, result.Indexed)

	var sequence []events.Type
	for _, e := range *emitted {
		sequence = append(sequence, e.Type)
	}
	assert.Equal(t, []events.Type{
		events.DocumentDetected,
		events.DocumentStale,
		events.DocumentParsed,
		events.DocumentIndexed,
	}, sequence)

	manifest, err = ix.Store().ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, "def456", manifest.GitCommit)
	assert.Equal(t, 1, manifest.Stats.Nodes)
}

func TestIncrementalDelete(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	differ := &fakeDiffer{head: "abc123", files: []string{rel}}
	ix, _ := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	driver := NewDriver(ix, differ, repo, nil)
	_, err := driver.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	differ.head = "def456"
	differ.changes = map[string][]gitdiff.Change{
		"abc123": {{Status: gitdiff.Deleted, Path: rel}},
	}
	result, err := driver.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	nodes, err := ix.Store().ReadAllNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestIncrementalEquivalence(t *testing.T) {
	// Full ingestion of S+D equals full ingestion of S then incremental D.
	specA := pedidoSpec
	specB := "---\nkind: event\nid: EVT-PedidoCreado\n---\n\n## Descripción\n\nEmitido al crear un [[Pedido]].\n"

	// Repo 1: incremental path.
	repo1 := t.TempDir()
	writeSpec(t, repo1, "specs/01-domain/entities/Pedido.md", specA)
	differ1 := &fakeDiffer{head: "c1", files: []string{"specs/01-domain/entities/Pedido.md"}}
	ix1, _ := newTestIndexer(t, filepath.Join(repo1, ".kdd-index"), nil)
	_, err := NewDriver(ix1, differ1, repo1, nil).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	writeSpec(t, repo1, "specs/01-domain/events/EVT-PedidoCreado.md", specB)
	differ1.head = "c2"
	differ1.changes = map[string][]gitdiff.Change{
		"c1": {{Status: gitdiff.Added, Path: "specs/01-domain/events/EVT-PedidoCreado.md"}},
	}
	_, err = NewDriver(ix1, differ1, repo1, nil).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	// Repo 2: one full scan over the final state.
	repo2 := t.TempDir()
	writeSpec(t, repo2, "specs/01-domain/entities/Pedido.md", specA)
	writeSpec(t, repo2, "specs/01-domain/events/EVT-PedidoCreado.md", specB)
	differ2 := &fakeDiffer{head: "c2", files: []string{
		"specs/01-domain/entities/Pedido.md",
		"specs/01-domain/events/EVT-PedidoCreado.md",
	}}
	ix2, _ := newTestIndexer(t, filepath.Join(repo2, ".kdd-index"), nil)
	_, err = NewDriver(ix2, differ2, repo2, nil).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	nodes1, err := ix1.Store().ReadAllNodes()
	require.NoError(t, err)
	nodes2, err := ix2.Store().ReadAllNodes()
	require.NoError(t, err)
	require.Len(t, nodes1, 2)

	ids := func(nodes []model.GraphNode) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.ID+"@"+n.SourceHash)
		}
		return out
	}
	assert.Equal(t, ids(nodes2), ids(nodes1))

	edges1, err := ix1.Store().ReadEdges()
	require.NoError(t, err)
	edges2, err := ix2.Store().ReadEdges()
	require.NoError(t, err)
	keys := func(edges []model.GraphEdge) map[model.EdgeKey]bool {
		out := map[model.EdgeKey]bool{}
		for _, e := range edges {
			out[e.Key()] = true
		}
		return out
	}
	assert.Equal(t, keys(edges2), keys(edges1))
}

func TestEmbeddingReuseOnUnchangedText(t *testing.T) {
	repo := t.TempDir()
	rel := "specs/01-domain/entities/Pedido.md"
	writeSpec(t, repo, rel, pedidoSpec)

	emb := &fixedEmbedder{}
	ix, _ := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), emb)
	require.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, false).Status)
	callsAfterFirst := emb.calls
	require.Greater(t, callsAfterFirst, 0)

	// Force a reindex without touching the embeddable text: the stored
	// vector is reused, no new model calls.
	require.Equal(t, StatusIndexed, ix.IndexFile(context.Background(), repo, rel, true).Status)
	assert.Equal(t, callsAfterFirst, emb.calls)
}

func TestDuplicateNodeIDSkipped(t *testing.T) {
	repo := t.TempDir()
	relA := "specs/01-domain/entities/Pedido.md"
	relB := "specs/01-domain/entities/Pedido-copy.md"
	writeSpec(t, repo, relA, pedidoSpec)
	writeSpec(t, repo, relB, pedidoSpec) // same front-matter id

	differ := &fakeDiffer{head: "c1", files: []string{relA, relB}}
	ix, _ := newTestIndexer(t, filepath.Join(repo, ".kdd-index"), nil)
	result, err := NewDriver(ix, differ, repo, nil).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
}
