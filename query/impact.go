package query

import (
	"context"

	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/loader"
	"github.com/c360studio/kddindex/model"
)

// impactDescriptions explains what each dependency edge means for a change.
var impactDescriptions = map[string]string{
	model.EdgeEntityRule:     "Business rule validates this entity",
	model.EdgeEntityPolicy:   "Policy governs this entity",
	model.EdgeUCAppliesRule:  "Use case applies this rule",
	model.EdgeUCExecutesCmd:  "Use case executes this command",
	model.EdgeEmits:          "Emits this event",
	model.EdgeConsumes:       "Consumes this event",
	model.EdgeWikiLink:       "References this artifact",
	model.EdgeDomainRelation: "Has a domain relationship",
	model.EdgeReqTracesTo:    "Requirement traces to this artifact",
	model.EdgeValidates:      "Validates this artifact via BDD scenarios",
	model.EdgeDecidesFor:     "Architectural decision covers this artifact",
}

// Impact runs Q-impact: walk incoming edges to find everything that depends
// on the node, then collect BDD scenarios validating any affected node.
func (e *Engine) Impact(ctx context.Context, in ImpactInput) (*ImpactResult, error) {
	var out *ImpactResult
	err := e.run(ctx, "impact", func(ctx context.Context, snap *loader.Snapshot) error {
		depth, err := validateDepth(in.Depth, 3)
		if err != nil {
			return err
		}
		if !snap.Graph.HasNode(in.NodeID) {
			return kdderr.New(kdderr.NodeNotFound, "%s", in.NodeID)
		}

		res := &ImpactResult{Analyzed: snap.Graph.GetNode(in.NodeID)}

		// Direct dependents sit at distance 1, so depth 0 reports none.
		directIDs := map[string]bool{}
		if depth >= 1 {
			for _, edge := range snap.Graph.IncomingEdges(in.NodeID) {
				dep := snap.Graph.GetNode(edge.FromNode)
				if dep == nil {
					continue
				}
				directIDs[dep.ID] = true
				res.Direct = append(res.Direct, AffectedNode{
					NodeID:      dep.ID,
					Kind:        dep.Kind,
					EdgeType:    edge.EdgeType,
					Description: describeImpact(edge.EdgeType),
				})
			}
		}

		affected := map[string]bool{in.NodeID: true}
		for id := range directIDs {
			affected[id] = true
		}

		if depth > 1 {
			for _, dep := range snap.Graph.ReverseTraverse(in.NodeID, depth) {
				if directIDs[dep.Node.ID] {
					continue
				}
				affected[dep.Node.ID] = true
				path := []string{in.NodeID}
				var edgeTypes []string
				for _, pe := range dep.Path {
					path = append(path, pe.FromNode)
					edgeTypes = append(edgeTypes, pe.EdgeType)
				}
				res.Transitive = append(res.Transitive, TransitiveNode{
					NodeID:    dep.Node.ID,
					Kind:      dep.Node.Kind,
					Path:      path,
					EdgeTypes: edgeTypes,
				})
			}
		}

		// BDD scenarios: VALIDATES edges into any affected node.
		seen := map[string]bool{}
		for _, edge := range snap.Graph.AllEdges() {
			if edge.EdgeType != model.EdgeValidates || !affected[edge.ToNode] {
				continue
			}
			if seen[edge.FromNode] {
				continue
			}
			seen[edge.FromNode] = true
			res.Scenarios = append(res.Scenarios, Scenario{
				NodeID: edge.FromNode,
				Reason: "validates " + edge.ToNode + " which is affected",
			})
		}

		res.TotalDirect = len(res.Direct)
		res.TotalIndirect = len(res.Transitive)
		out = res
		return nil
	})
	return out, err
}

func describeImpact(edgeType string) string {
	if d, ok := impactDescriptions[edgeType]; ok {
		return d
	}
	return "Connected via " + edgeType
}
