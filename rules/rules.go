// Package rules implements the deterministic rules of the engine: kind
// routing, layer validation, embeddable-section selection, index level
// detection, and merge conflict resolution. Pure functions, no I/O.
package rules

import (
	"fmt"
	"strings"

	"github.com/c360studio/kddindex/model"
)

// expectedPath maps a kind to the folder prefix it is expected under. A kind
// found elsewhere still indexes; routing returns a location warning.
var expectedPath = map[model.Kind]string{
	model.KindEntity:         "01-domain/entities/",
	model.KindEvent:          "01-domain/events/",
	model.KindBusinessRule:   "01-domain/rules/",
	model.KindBusinessPolicy: "02-behavior/policies/",
	model.KindCrossPolicy:    "02-behavior/policies/",
	model.KindCommand:        "02-behavior/commands/",
	model.KindQuery:          "02-behavior/queries/",
	model.KindProcess:        "02-behavior/processes/",
	model.KindUseCase:        "02-behavior/use-cases/",
	model.KindUIView:         "03-experience/views/",
	model.KindUIComponent:    "03-experience/views/",
	model.KindRequirement:    "04-verification/criteria/",
	model.KindObjective:      "00-requirements/objectives/",
	model.KindPRD:            "00-requirements/",
	model.KindADR:            "00-requirements/decisions/",
}

// RouteResult is the outcome of routing a document to its kind.
type RouteResult struct {
	Kind    model.Kind
	OK      bool
	Warning string
}

// RouteDocument determines the kind from front-matter and validates the file
// location. The kind field wins over the path; a mismatch only warns.
// Missing front-matter or an unrecognized kind yields OK=false.
func RouteDocument(frontMatter map[string]any, sourcePath string) RouteResult {
	if len(frontMatter) == 0 {
		return RouteResult{}
	}
	raw, _ := frontMatter["kind"].(string)
	kind, err := model.ParseKind(raw)
	if err != nil {
		return RouteResult{}
	}

	var warning string
	if expected := expectedPath[kind]; expected != "" && !strings.Contains(sourcePath, expected) {
		warning = fmt.Sprintf("%s %q found outside expected path %q", kind, sourcePath, expected)
	}
	return RouteResult{Kind: kind, OK: true, Warning: warning}
}

// LayerOfPath infers the layer from the leading numeric path segment under
// specs/. Returns ("", false) when no layer prefix is present.
func LayerOfPath(path string) (model.Layer, bool) {
	for _, l := range model.AllLayers {
		if strings.Contains(path, string(l)) {
			return l, true
		}
	}
	return "", false
}

// DomainOfPath extracts the domain from a "domains/<name>/" path segment.
func DomainOfPath(path string) string {
	const marker = "domains/"
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}
	rest := path[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[:j]
	}
	return ""
}

// IsLayerViolation reports whether an edge from→to violates layer
// dependencies. Layers 01..04 define a strict order; an edge violates when
// the destination's number is strictly greater than the origin's.
// 00-requirements is exempt in both directions.
func IsLayerViolation(from, to model.Layer) bool {
	if from == model.LayerRequirements || to == model.LayerRequirements {
		return false
	}
	return from.Numeric() < to.Numeric()
}

// embeddableSections fixes which section headings each kind embeds
// (normalized to lowercase). An empty set means the kind never embeds.
var embeddableSections = map[model.Kind][]string{
	model.KindEntity:         {"descripción", "description"},
	model.KindEvent:          {},
	model.KindBusinessRule:   {"declaración", "declaration", "cuándo aplica", "when applies"},
	model.KindBusinessPolicy: {"declaración", "declaration"},
	model.KindCrossPolicy:    {"propósito", "purpose", "declaración", "declaration"},
	model.KindCommand:        {"purpose", "propósito"},
	model.KindQuery:          {"purpose", "propósito"},
	model.KindProcess:        {"participantes", "participants", "pasos", "steps"},
	model.KindUseCase:        {"descripción", "description", "flujo principal", "main flow"},
	model.KindUIView:         {"descripción", "description", "comportamiento", "behavior"},
	model.KindUIComponent:    {"descripción", "description"},
	model.KindRequirement:    {"descripción", "description"},
	model.KindObjective:      {"objetivo", "objective"},
	model.KindPRD:            {"problema / oportunidad", "problem / opportunity"},
	model.KindADR:            {"contexto", "context", "decisión", "decision"},
}

// EmbeddableSections returns the embeddable section headings for a kind.
func EmbeddableSections(kind model.Kind) map[string]bool {
	out := make(map[string]bool)
	for _, s := range embeddableSections[kind] {
		out[s] = true
	}
	return out
}

// IsEmbeddable reports whether a section heading is embeddable for a kind.
func IsEmbeddable(kind model.Kind, heading string) bool {
	h := strings.ToLower(strings.TrimSpace(heading))
	for _, s := range embeddableSections[kind] {
		if s == h {
			return true
		}
	}
	return false
}

// Capabilities describes what adapters are wired into the engine.
type Capabilities struct {
	Embedder    bool
	VectorIndex bool
	AgentClient bool
}

// DetectIndexLevel returns the highest level the capabilities support.
func DetectIndexLevel(c Capabilities) model.IndexLevel {
	if c.Embedder && c.VectorIndex {
		if c.AgentClient {
			return model.LevelL3
		}
		return model.LevelL2
	}
	return model.LevelL1
}

// ResolveNodeConflict picks the winner between two node candidates:
// last-write-wins by indexed_at, ties broken by the lexicographically
// greater source_hash so resolution is deterministic. Returns true when b
// wins.
func ResolveNodeConflict(a, b *model.GraphNode) bool {
	if b.IndexedAt.After(a.IndexedAt) {
		return true
	}
	if a.IndexedAt.After(b.IndexedAt) {
		return false
	}
	return b.SourceHash > a.SourceHash
}
