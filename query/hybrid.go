package query

import (
	"context"
	"strings"
	"time"

	"github.com/c360studio/kddindex/graph"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

// Fusion weights. A node matched by more than one source receives a +0.05
// bonus, capped at 1.0.
const (
	weightSemantic   = 0.6
	weightGraph      = 0.3
	weightLexical    = 0.1
	multiSourceBonus = 0.05
)

// Hybrid runs Q-hybrid, the principal query: semantic, lexical, and graph
// expansion fused into one ranked list under a token budget. On an L1 index
// it degrades to graph+lexical with a NO_EMBEDDINGS warning.
func (e *Engine) Hybrid(ctx context.Context, in HybridInput) (*HybridResult, error) {
	var out *HybridResult
	err := e.run(ctx, "hybrid", func(ctx context.Context, snap *loader.Snapshot) error {
		if len(strings.TrimSpace(in.QueryText)) < 3 {
			return kdderr.New(kdderr.QueryTooShort, "query_text must be at least 3 characters")
		}
		limit, err := validateLimit(in.Limit)
		if err != nil {
			return err
		}
		depth, err := validateDepth(in.Depth, 2)
		if err != nil {
			return err
		}
		minScore, err := validateMinScore(in.MinScore, 0.5)
		if err != nil {
			return err
		}
		maxTokens := in.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 8000
		}

		started := time.Now()
		res := &HybridResult{}

		type hit struct {
			semantic float64
			lexical  float64
			graphS   float64
			snippet  string
			section  string
			raw      string
		}
		hits := map[string]*hit{}
		get := func(id string) *hit {
			h, ok := hits[id]
			if !ok {
				h = &hit{}
				hits[id] = h
			}
			return h
		}

		// Semantic pass.
		if snap.Vectors != nil && e.embedder != nil {
			matches, err := e.searchVectors(ctx, snap, in.QueryText, limit*3, in.IncludeKinds)
			if err != nil {
				res.Warnings = append(res.Warnings, err.Error())
			}
			for _, m := range matches {
				nodeID, node := resolveEmbeddingNode(snap, m)
				if node == nil {
					continue
				}
				h := get(nodeID)
				if float64(m.Score) > h.semantic {
					h.semantic = float64(m.Score)
					emb, _ := snap.Vectors.Get(m.EmbeddingID)
					h.section = emb.SectionPath
					h.raw = emb.RawText
				}
			}
		} else {
			res.Warnings = append(res.Warnings, string(kdderr.NoEmbeddings))
		}

		// Lexical pass: matched tokens / total tokens, halved, plus a 0.5
		// exact-phrase bonus.
		tokens := graph.Tokenize(in.QueryText)
		lower := strings.ToLower(in.QueryText)
		lexMatched := map[string]int{}
		for _, tok := range tokens {
			for _, n := range snap.Graph.TextSearch(tok) {
				lexMatched[n.ID]++
			}
		}
		for nodeID, count := range lexMatched {
			node := snap.Graph.GetNode(nodeID)
			if node == nil {
				continue
			}
			score := float64(count) / float64(len(tokens)) * 0.5
			if strings.Contains(strings.ToLower(searchableText(node)), lower) {
				score += 0.5
			}
			get(nodeID).lexical = score
		}

		// Graph expansion from every seed found so far.
		seeds := make([]string, 0, len(hits))
		for id := range hits {
			seeds = append(seeds, id)
		}
		sortSlice(seeds, func(a, b string) bool { return a < b })
		for _, seed := range seeds {
			seedHit := hits[seed]
			seedScore := seedHit.semantic
			if seedHit.lexical > seedScore {
				seedScore = seedHit.lexical
			}
			tr := snap.Graph.Traverse(seed, depth, graph.TraverseOptions{RespectLayers: in.RespectLayers})
			for _, r := range tr.Nodes {
				if r.Node.ID == seed {
					continue
				}
				g := seedScore / (1.0 + float64(r.Distance))
				if h := get(r.Node.ID); g > h.graphS {
					h.graphS = g
				}
			}
			if time.Since(started) > SoftDeadline {
				res.Partial = true
				break
			}
		}

		// Fusion.
		var fused []ScoredNode
		for nodeID, h := range hits {
			node := snap.Graph.GetNode(nodeID)
			if node == nil || !in.Filters.matchNode(node) {
				continue
			}
			score := weightSemantic*h.semantic + weightGraph*h.graphS + weightLexical*h.lexical
			sources := 0
			source := ""
			for _, s := range []struct {
				v    float64
				name string
			}{{h.semantic, "semantic"}, {h.graphS, "graph"}, {h.lexical, "lexical"}} {
				if s.v > 0 {
					sources++
					source = s.name
				}
			}
			if sources > 1 {
				score += multiSourceBonus
				source = "fusion"
			}
			if score > 1.0 {
				score = 1.0
			}
			if score < minScore {
				continue
			}

			snippet := h.raw
			if snippet == "" {
				snippet = nodeSnippet(node)
			}
			fused = append(fused, ScoredNode{
				NodeID:      nodeID,
				Kind:        node.Kind,
				Score:       score,
				Snippet:     snippet,
				SectionPath: h.section,
				RawText:     h.raw,
				MatchSource: source,
			})
		}
		sortScored(fused)

		// Token budgeting: stop before the budget is exceeded.
		for _, s := range fused {
			cost := estimateTokens(s.Snippet)
			if res.TotalTokens+cost > maxTokens && len(res.Results) > 0 {
				res.Warnings = append(res.Warnings, string(kdderr.TokenLimitExceeded))
				break
			}
			res.Results = append(res.Results, s)
			res.TotalTokens += cost
			if len(res.Results) >= limit {
				break
			}
		}
		out = res
		return nil
	})
	return out, err
}

// searchableText concatenates a node's id, aliases, and string fields for
// the exact-phrase check.
func searchableText(n *model.GraphNode) string {
	var b strings.Builder
	b.WriteString(n.ID)
	for _, a := range n.Aliases {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	for _, v := range n.IndexedFields {
		if s, ok := v.(string); ok {
			b.WriteByte(' ')
			b.WriteString(s)
		}
	}
	return b.String()
}
