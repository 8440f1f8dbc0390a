package query

import (
	"context"
	"path"
	"strings"

	"github.com/c360studio/kddindex/graph"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

const contextContentMax = 300

// Context runs Q-context, the three-phase amplification operator:
// resolution (hints → nodes), discovery (neighborhood collection), and
// content extraction with tiered prioritization under a token budget.
func (e *Engine) Context(ctx context.Context, in ContextInput) (*ContextResult, error) {
	var out *ContextResult
	err := e.run(ctx, "context", func(ctx context.Context, snap *loader.Snapshot) error {
		if len(in.Hints) == 0 {
			return kdderr.New(kdderr.EmptyHints, "at least one hint is required")
		}
		depth, err := validateDepth(in.Depth, 1)
		if err != nil {
			return err
		}
		maxTokens := in.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 4000
		}

		res := &ContextResult{}

		// Phase 1: resolution.
		for _, hint := range in.Hints {
			resolved := resolveHint(snap, hint)
			if len(resolved) == 0 {
				res.Warnings = append(res.Warnings, "hint "+hint+" did not resolve")
				continue
			}
			res.Resolved = append(res.Resolved, resolved...)
		}

		// Phase 2: discovery. A node found via a shorter path keeps it.
		type found struct {
			distance int
			via      string
		}
		discovered := map[string]found{}
		for _, r := range res.Resolved {
			tr := snap.Graph.Traverse(r.NodeID, depth, graph.TraverseOptions{})
			for _, reached := range tr.Nodes {
				via := r.MatchedFrom
				if prev, ok := discovered[reached.Node.ID]; ok && prev.distance <= reached.Distance {
					continue
				}
				discovered[reached.Node.ID] = found{distance: reached.Distance, via: via}
			}
		}

		// Phase 3: content extraction + prioritization.
		var items []ContextItem
		for id, f := range discovered {
			node := snap.Graph.GetNode(id)
			if node == nil {
				continue
			}
			items = append(items, ContextItem{
				NodeID:     id,
				Kind:       node.Kind,
				Content:    contextContent(node),
				SourceFile: node.SourceFile,
				ReachedVia: f.via,
				Distance:   f.distance,
				Priority:   contextPriority(node.Kind),
			})
		}
		sortSlice(items, func(a, b ContextItem) bool {
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			if a.Distance != b.Distance {
				return a.Distance < b.Distance
			}
			return a.NodeID < b.NodeID
		})

		for _, item := range items {
			cost := estimateTokens(item.NodeID) + estimateTokens(string(item.Kind)) +
				estimateTokens(item.Content) + estimateTokens(item.SourceFile) +
				estimateTokens(item.ReachedVia)
			if res.TotalTokens+cost > maxTokens {
				break
			}
			res.TotalTokens += cost
			if item.Priority <= 1 {
				res.Constraints = append(res.Constraints, item)
			} else {
				res.Behavior = append(res.Behavior, item)
			}
		}
		out = res
		return nil
	})
	return out, err
}

// resolveHint applies the resolution ladder: exact node id, then file
// basename, then keyword search.
func resolveHint(snap *loader.Snapshot, hint string) []ResolvedHint {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	// (a) Exact node id.
	if strings.Contains(hint, ":") {
		if snap.Graph.HasNode(hint) {
			return []ResolvedHint{{NodeID: hint, MatchedFrom: hint, MatchMethod: "exact"}}
		}
		return nil
	}

	// (b) File path: derive the basename and try each kind prefix against
	// the original and Capitalized spelling.
	if strings.ContainsAny(hint, "/.") {
		base := path.Base(hint)
		base = strings.TrimSuffix(base, path.Ext(base))
		for _, candidate := range basenameCandidates(base) {
			for _, kind := range model.AllKinds {
				id := kind.NodeID(candidate)
				if snap.Graph.HasNode(id) {
					return []ResolvedHint{{NodeID: id, MatchedFrom: hint, MatchMethod: "basename"}}
				}
			}
		}
		return nil
	}

	// (c) Keyword: prefix variants first, then the lexical index. A
	// multi-word keyword must match all tokens.
	for _, candidate := range basenameCandidates(hint) {
		for _, kind := range model.AllKinds {
			id := kind.NodeID(candidate)
			if snap.Graph.HasNode(id) {
				return []ResolvedHint{{NodeID: id, MatchedFrom: hint, MatchMethod: "exact"}}
			}
		}
	}
	var out []ResolvedHint
	for _, n := range snap.Graph.TextSearch(hint) {
		out = append(out, ResolvedHint{NodeID: n.ID, MatchedFrom: hint, MatchMethod: "text_search"})
	}
	return out
}

func basenameCandidates(base string) []string {
	out := []string{base}
	if base != "" {
		capitalized := strings.ToUpper(base[:1]) + base[1:]
		if capitalized != base {
			out = append(out, capitalized)
		}
	}
	return out
}

// contextContent picks the most informative field per kind, truncated.
func contextContent(n *model.GraphNode) string {
	var fields []string
	switch n.Kind {
	case model.KindBusinessRule, model.KindBusinessPolicy, model.KindCrossPolicy:
		fields = []string{"declaration"}
	case model.KindEntity:
		fields = []string{"invariants", "description"}
	case model.KindCommand:
		fields = []string{"preconditions", "postconditions"}
	case model.KindUseCase:
		fields = []string{"description", "preconditions"}
	case model.KindRequirement:
		fields = []string{"description"}
	default:
		fields = []string{"description", "purpose"}
	}
	for _, f := range fields {
		if text := fieldText(n.IndexedFields[f]); text != "" {
			return truncate(text, contextContentMax)
		}
	}
	return n.ID
}

func fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		return strings.TrimSpace(strings.Join(val, "; "))
	case []any:
		var parts []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "; "))
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// contextPriority tiers kinds: constraints 0, entity invariants 1,
// behavior 2, everything else 3.
func contextPriority(k model.Kind) int {
	switch k {
	case model.KindBusinessRule, model.KindBusinessPolicy, model.KindCrossPolicy:
		return 0
	case model.KindEntity:
		return 1
	case model.KindCommand, model.KindUseCase, model.KindRequirement:
		return 2
	default:
		return 3
	}
}
