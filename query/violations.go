package query

import (
	"context"
	"fmt"
	"math"

	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

// Violations runs Q-layer-violations: scan loaded edges flagged as
// violations, apply filters, and compute the aggregate rate.
func (e *Engine) Violations(ctx context.Context, in ViolationsInput) (*ViolationsResult, error) {
	var out *ViolationsResult
	err := e.run(ctx, "layer-violations", func(ctx context.Context, snap *loader.Snapshot) error {
		res := &ViolationsResult{TotalEdges: snap.Graph.EdgeCount()}

		for _, edge := range snap.Graph.Violations() {
			from := snap.Graph.GetNode(edge.FromNode)
			to := snap.Graph.GetNode(edge.ToNode)
			if !violationMatches(in.Filters, from, to) {
				continue
			}

			v := Violation{
				FromNode:   edge.FromNode,
				ToNode:     edge.ToNode,
				EdgeType:   edge.EdgeType,
				SourceFile: edge.SourceFile,
			}
			if from != nil {
				v.FromLayer = from.Layer
			}
			if to != nil {
				v.ToLayer = to.Layer
			}
			v.Explanation = fmt.Sprintf("%s (%s) must not depend on %s (%s)",
				edge.FromNode, v.FromLayer, edge.ToNode, v.ToLayer)
			res.Violations = append(res.Violations, v)
		}

		if res.TotalEdges > 0 {
			rate := float64(len(res.Violations)) / float64(res.TotalEdges) * 100
			res.ViolationRate = math.Round(rate*100) / 100
		}
		out = res
		return nil
	})
	return out, err
}

// violationMatches keeps a violation when either endpoint matches the
// filters.
func violationMatches(f Filters, from, to *model.GraphNode) bool {
	if len(f.IncludeKinds) == 0 && len(f.IncludeLayers) == 0 {
		return true
	}
	if len(f.IncludeKinds) > 0 {
		fromOK := from != nil && containsKind(f.IncludeKinds, from.Kind)
		toOK := to != nil && containsKind(f.IncludeKinds, to.Kind)
		if !fromOK && !toOK {
			return false
		}
	}
	if len(f.IncludeLayers) > 0 {
		fromOK := from != nil && containsLayer(f.IncludeLayers, from.Layer)
		toOK := to != nil && containsLayer(f.IncludeLayers, to.Layer)
		if !fromOK && !toOK {
			return false
		}
	}
	return true
}

// Orphans runs Q-orphans from the load-time orphan list. It never fails; an
// empty index yields an empty result.
func (e *Engine) Orphans(ctx context.Context, in OrphansInput) (*OrphansResult, error) {
	var out *OrphansResult
	err := e.run(ctx, "orphans", func(ctx context.Context, snap *loader.Snapshot) error {
		want := map[string]bool{}
		for _, t := range in.IncludeEdgeTypes {
			want[t] = true
		}

		res := &OrphansResult{}
		all := snap.Graph.OrphanEdges()
		for _, o := range all {
			if len(want) > 0 && !want[o.Edge.EdgeType] {
				continue
			}
			res.Orphans = append(res.Orphans, o)
		}
		res.TotalOrphan = len(all)
		res.TotalEdgesOnDisk = snap.Graph.EdgeCount() + len(all)
		if res.TotalEdgesOnDisk > 0 {
			rate := float64(res.TotalOrphan) / float64(res.TotalEdgesOnDisk) * 100
			res.OrphanRate = math.Round(rate*100) / 100
		}
		out = res
		return nil
	})
	return out, err
}
