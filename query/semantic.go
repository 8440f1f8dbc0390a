package query

import (
	"context"
	"strings"

	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
	"github.com/c360studio/kddindex/vector"
)

// Semantic runs Q-semantic: embed the query, search the vector index, and
// hydrate matches to their owning nodes. Hard-fails with NO_EMBEDDINGS on an
// L1 index.
func (e *Engine) Semantic(ctx context.Context, in SemanticInput) (*SemanticResult, error) {
	var out *SemanticResult
	err := e.run(ctx, "semantic", func(ctx context.Context, snap *loader.Snapshot) error {
		if len(strings.TrimSpace(in.QueryText)) < 3 {
			return kdderr.New(kdderr.QueryTooShort, "query_text must be at least 3 characters")
		}
		limit, err := validateLimit(in.Limit)
		if err != nil {
			return err
		}
		minScore, err := validateMinScore(in.MinScore, 0.7)
		if err != nil {
			return err
		}
		if snap.Vectors == nil || e.embedder == nil {
			return kdderr.New(kdderr.NoEmbeddings, "index level is L1")
		}

		matches, err := e.searchVectors(ctx, snap, in.QueryText, limit*3, in.IncludeKinds)
		if err != nil {
			return err
		}

		res := &SemanticResult{}
		seen := map[string]bool{}
		for _, m := range matches {
			if float64(m.Score) < minScore {
				continue
			}
			nodeID, node := resolveEmbeddingNode(snap, m)
			if node == nil || seen[nodeID] {
				continue
			}
			if !in.Filters.matchNode(node) {
				continue
			}
			seen[nodeID] = true
			emb, _ := snap.Vectors.Get(m.EmbeddingID)
			res.Results = append(res.Results, ScoredNode{
				NodeID:      nodeID,
				Kind:        node.Kind,
				Score:       float64(m.Score),
				Snippet:     parser.Snippet(emb.RawText, 200),
				SectionPath: emb.SectionPath,
				RawText:     emb.RawText,
				MatchSource: "semantic",
			})
			if len(res.Results) >= limit {
				break
			}
		}
		sortScored(res.Results)
		out = res
		return nil
	})
	return out, err
}

// searchVectors embeds the query text and asks the vector store for top-K.
func (e *Engine) searchVectors(ctx context.Context, snap *loader.Snapshot, text string, topK int, kinds []model.Kind) ([]vector.Match, error) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, kdderr.Wrap(kdderr.EmbeddingFailed, err)
	}
	matches, err := snap.Vectors.Search(vec, topK, kinds...)
	if err != nil {
		return nil, kdderr.Wrap(kdderr.NoEmbeddings, err)
	}
	return matches, nil
}

// resolveEmbeddingNode maps a vector match to its owning graph node via the
// document id and kind prefix.
func resolveEmbeddingNode(snap *loader.Snapshot, m vector.Match) (string, *model.GraphNode) {
	emb, ok := snap.Vectors.Get(m.EmbeddingID)
	if !ok {
		return "", nil
	}
	nodeID := emb.DocumentKind.NodeID(emb.DocumentID)
	return nodeID, snap.Graph.GetNode(nodeID)
}
