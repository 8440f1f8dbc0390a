package query

import (
	"context"
	"math"

	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

type coverageRule struct {
	name        string
	description string
	edgeType    string
}

// coverageRules fix the required relationship categories per kind.
var coverageRules = map[model.Kind][]coverageRule{
	model.KindEntity: {
		{"events", "Domain events emitted by this entity", model.EdgeEmits},
		{"business_rules", "Business rules for this entity", model.EdgeEntityRule},
		{"use_cases", "Use cases involving this entity", model.EdgeWikiLink},
		{"requirements", "Requirements tracing to this entity", model.EdgeReqTracesTo},
	},
	model.KindCommand: {
		{"events", "Events emitted by this command", model.EdgeEmits},
		{"use_cases", "Use cases that execute this command", model.EdgeUCExecutesCmd},
	},
	model.KindUseCase: {
		{"commands", "Commands executed by this use case", model.EdgeUCExecutesCmd},
		{"rules", "Business rules applied", model.EdgeUCAppliesRule},
		{"requirements", "Requirements tracing to this use case", model.EdgeReqTracesTo},
	},
	model.KindBusinessRule: {
		{"entity", "Entity this rule validates", model.EdgeEntityRule},
		{"use_cases", "Use cases that apply this rule", model.EdgeUCAppliesRule},
	},
	model.KindRequirement: {
		{"traces", "Artifacts this requirement traces to", model.EdgeReqTracesTo},
	},
}

// Coverage runs Q-coverage: per-kind table of required categories, each
// covered or missing, with the aggregate percentage.
func (e *Engine) Coverage(ctx context.Context, in CoverageInput) (*CoverageResult, error) {
	var out *CoverageResult
	err := e.run(ctx, "coverage", func(ctx context.Context, snap *loader.Snapshot) error {
		node := snap.Graph.GetNode(in.NodeID)
		if node == nil {
			return kdderr.New(kdderr.NodeNotFound, "%s", in.NodeID)
		}
		rules, ok := coverageRules[node.Kind]
		if !ok {
			return kdderr.New(kdderr.UnknownKind, "no coverage rules for kind %q", node.Kind)
		}

		incident := append(snap.Graph.IncomingEdges(in.NodeID), snap.Graph.OutgoingEdges(in.NodeID)...)

		res := &CoverageResult{Analyzed: node}
		for _, rule := range rules {
			var found []string
			seen := map[string]bool{}
			for _, edge := range incident {
				if edge.EdgeType != rule.edgeType {
					continue
				}
				other := edge.ToNode
				if other == in.NodeID {
					other = edge.FromNode
				}
				if !seen[other] {
					seen[other] = true
					found = append(found, other)
				}
			}

			status := Missing
			if len(found) > 0 {
				status = Covered
				res.Present++
			} else {
				res.Missing++
			}
			res.Categories = append(res.Categories, CoverageCategory{
				Name:        rule.name,
				Description: rule.description,
				EdgeType:    rule.edgeType,
				Status:      status,
				Found:       found,
			})
		}

		total := res.Present + res.Missing
		if total > 0 {
			res.CoveragePercent = math.Round(float64(res.Present)/float64(total)*100*100) / 100
		}
		out = res
		return nil
	})
	return out, err
}
