// Package embed abstracts the embedding model behind a small interface and
// turns chunks into persisted embeddings.
package embed

import (
	"context"
	"time"

	"github.com/c360studio/kddindex/chunker"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/model"
)

// Embedder maps text to a fixed-dimension vector. Implementations must be
// deterministic per input.
type Embedder interface {
	ModelName() string
	Dimensions() int
	Embed(ctx context.Context, text string) (model.Vector, error)
}

// Generator produces embeddings for chunks, reusing existing vectors whose
// text hash has not diverged.
type Generator struct {
	embedder Embedder
	timeout  time.Duration
	now      func() time.Time
}

// NewGenerator wraps an embedder with a per-call timeout.
func NewGenerator(e Embedder, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{embedder: e, timeout: timeout, now: time.Now}
}

// WithClock overrides the generation timestamp source. Tests only.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate embeds every chunk of the document. Existing embeddings with a
// matching text hash are carried over without calling the model. A vector of
// unexpected dimension fails with EMBEDDING_FAILED so the caller can degrade
// the document to L1.
func (g *Generator) Generate(ctx context.Context, doc *model.Document, chunks []chunker.Chunk, existing []model.Embedding) ([]model.Embedding, error) {
	prior := make(map[string]model.Embedding, len(existing))
	for _, e := range existing {
		prior[e.ID] = e
	}

	out := make([]model.Embedding, 0, len(chunks))
	for _, c := range chunks {
		if prev, ok := prior[c.ID]; ok && prev.TextHash == c.TextHash && prev.Model == g.embedder.ModelName() {
			out = append(out, prev)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		vec, err := g.embedder.Embed(callCtx, c.ContextText)
		cancel()
		if err != nil {
			if callCtx.Err() != nil {
				return nil, kdderr.New(kdderr.EmbeddingFailed, "embedding %s timed out after %s", c.ID, g.timeout)
			}
			return nil, kdderr.Wrap(kdderr.EmbeddingFailed, err)
		}
		if len(vec) != g.embedder.Dimensions() {
			return nil, kdderr.New(kdderr.EmbeddingFailed,
				"embedding %s: got %d dimensions, model reports %d", c.ID, len(vec), g.embedder.Dimensions())
		}

		out = append(out, model.Embedding{
			ID:           c.ID,
			DocumentID:   c.DocumentID,
			DocumentKind: doc.Kind,
			SectionPath:  c.SectionPath,
			ChunkIndex:   c.Index,
			RawText:      c.RawText,
			ContextText:  c.ContextText,
			Vector:       vec,
			Model:        g.embedder.ModelName(),
			Dimensions:   len(vec),
			TextHash:     c.TextHash,
			GeneratedAt:  g.now().UTC(),
		})
	}
	return out, nil
}
