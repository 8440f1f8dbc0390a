package query

import (
	"context"
	"sort"

	"github.com/c360studio/kddindex/graph"
	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

// Graph runs Q-graph: BFS from a root node, scoring related nodes by
// distance.
func (e *Engine) Graph(ctx context.Context, in GraphInput) (*GraphResult, error) {
	var out *GraphResult
	err := e.run(ctx, "graph", func(ctx context.Context, snap *loader.Snapshot) error {
		depth, err := validateDepth(in.Depth, 2)
		if err != nil {
			return err
		}
		if !snap.Graph.HasNode(in.RootNode) {
			return kdderr.New(kdderr.NodeNotFound, "%s", in.RootNode)
		}

		tr := snap.Graph.Traverse(in.RootNode, depth, graph.TraverseOptions{
			EdgeTypes:     in.EdgeTypes,
			RespectLayers: in.RespectLayers,
		})

		res := &GraphResult{
			Center: snap.Graph.GetNode(in.RootNode),
			Edges:  tr.Edges,
		}
		for _, r := range tr.Nodes {
			if r.Node.ID == in.RootNode {
				continue
			}
			if !in.Filters.matchNode(r.Node) {
				continue
			}
			res.Related = append(res.Related, ScoredNode{
				NodeID:      r.Node.ID,
				Kind:        r.Node.Kind,
				Score:       1.0 / (1.0 + float64(r.Distance)),
				Snippet:     nodeSnippet(r.Node),
				MatchSource: "graph",
				Distance:    r.Distance,
			})
		}
		sortScored(res.Related)
		out = res
		return nil
	})
	return out, err
}

// nodeSnippet builds a short label for a node from its indexed fields.
func nodeSnippet(n *model.GraphNode) string {
	for _, field := range []string{"description", "declaration", "purpose", "title"} {
		if v, ok := n.IndexedFields[field].(string); ok && v != "" {
			return "[" + string(n.Kind) + "] " + parser.Snippet(v, 160)
		}
	}
	return "[" + string(n.Kind) + "] " + n.ID
}

// sortScored orders by score descending, tie-break kind priority then id.
func sortScored(list []ScoredNode) {
	sortSlice(list, func(a, b ScoredNode) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		pa, pb := kindPriority(a.Kind), kindPriority(b.Kind)
		if pa != pb {
			return pa < pb
		}
		return a.NodeID < b.NodeID
	})
}

func sortSlice[T any](list []T, less func(a, b T) bool) {
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}
