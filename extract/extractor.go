// Package extract maps parsed Documents to graph nodes and typed edges.
// One extractor exists per kind; the registry dispatches on the kind tag.
package extract

import (
	"fmt"
	"time"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/rules"
)

// Extractor converts a Document of its kind into a node and its outgoing
// edges. Extraction is deterministic given the document.
type Extractor interface {
	Kind() model.Kind
	ExtractNode(doc *model.Document, now time.Time) *model.GraphNode
	ExtractEdges(doc *model.Document) []model.GraphEdge
}

// Registry holds one extractor per kind.
type Registry struct {
	byKind map[model.Kind]Extractor
}

// NewRegistry returns a registry with all 15 kind extractors installed.
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[model.Kind]Extractor)}
	r.register(&entityExtractor{})
	r.register(&declarationExtractor{kind: model.KindBusinessRule, edgeType: model.EdgeEntityRule})
	r.register(&declarationExtractor{kind: model.KindBusinessPolicy, edgeType: model.EdgeEntityPolicy})
	r.register(&declarationExtractor{kind: model.KindCrossPolicy, edgeType: model.EdgeEntityPolicy})
	r.register(&commandExtractor{})
	r.register(&useCaseExtractor{})
	r.register(&uiViewExtractor{})
	r.register(&uiComponentExtractor{})
	r.register(&requirementExtractor{})
	r.register(&adrExtractor{})
	r.register(&genericExtractor{kind: model.KindEvent})
	r.register(&genericExtractor{kind: model.KindQuery})
	r.register(&genericExtractor{kind: model.KindProcess})
	r.register(&genericExtractor{kind: model.KindObjective})
	r.register(&genericExtractor{kind: model.KindPRD})
	return r
}

func (r *Registry) register(e Extractor) {
	if _, dup := r.byKind[e.Kind()]; dup {
		panic(fmt.Sprintf("extract: duplicate extractor for kind %s", e.Kind()))
	}
	r.byKind[e.Kind()] = e
}

// Get returns the extractor for a kind.
func (r *Registry) Get(kind model.Kind) (Extractor, bool) {
	e, ok := r.byKind[kind]
	return e, ok
}

// Extract runs the kind's extractor and classifies every edge for layer
// violations.
func (r *Registry) Extract(doc *model.Document, now time.Time) (*model.GraphNode, []model.GraphEdge, error) {
	e, ok := r.byKind[doc.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("no extractor registered for kind %q", doc.Kind)
	}
	node := e.ExtractNode(doc, now)
	edges := dedupeEdges(e.ExtractEdges(doc))
	for i := range edges {
		classifyViolation(&edges[i], doc.Layer)
	}
	return node, edges, nil
}

func classifyViolation(e *model.GraphEdge, fromLayer model.Layer) {
	if toLayer, ok := layerOfNodeID(e.ToNode); ok {
		e.LayerViolation = rules.IsLayerViolation(fromLayer, toLayer)
	}
}

// buildNode fills the node attributes shared by every kind.
func buildNode(doc *model.Document, kind model.Kind, fields map[string]any, now time.Time) *model.GraphNode {
	status := model.StatusDraft
	if s, ok := doc.FrontMatter["status"].(string); ok && s != "" {
		status = model.NodeStatus(s)
	}
	var aliases []string
	if raw, ok := doc.FrontMatter["aliases"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				aliases = appendUnique(aliases, s)
			}
		}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return &model.GraphNode{
		ID:            kind.NodeID(doc.ID),
		Kind:          kind,
		SourceFile:    doc.SourcePath,
		SourceHash:    doc.SourceHash,
		Layer:         doc.Layer,
		Status:        status,
		Aliases:       aliases,
		Domain:        doc.Domain,
		IndexedFields: fields,
		IndexedAt:     now.UTC(),
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// dedupeEdges keeps the first edge per (from,to,type) key, merging metadata
// from later duplicates.
func dedupeEdges(edges []model.GraphEdge) []model.GraphEdge {
	seen := make(map[model.EdgeKey]int, len(edges))
	out := make([]model.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if i, dup := seen[e.Key()]; dup {
			for k, v := range e.Metadata {
				if out[i].Metadata == nil {
					out[i].Metadata = map[string]string{}
				}
				if _, exists := out[i].Metadata[k]; !exists {
					out[i].Metadata[k] = v
				}
			}
			continue
		}
		seen[e.Key()] = len(out)
		out = append(out, e)
	}
	return out
}
