package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/model"
)

func TestRouteDocument(t *testing.T) {
	tests := []struct {
		name     string
		fm       map[string]any
		path     string
		wantOK   bool
		wantKind model.Kind
		wantWarn bool
	}{
		{
			name:     "entity in expected path",
			fm:       map[string]any{"kind": "entity"},
			path:     "specs/01-domain/entities/Pedido.md",
			wantOK:   true,
			wantKind: model.KindEntity,
		},
		{
			name:     "entity outside expected path warns but routes",
			fm:       map[string]any{"kind": "entity"},
			path:     "specs/02-behavior/Pedido.md",
			wantOK:   true,
			wantKind: model.KindEntity,
			wantWarn: true,
		},
		{
			name:   "unknown kind rejected",
			fm:     map[string]any{"kind": "widget"},
			path:   "specs/01-domain/entities/X.md",
			wantOK: false,
		},
		{
			name:   "missing front-matter rejected",
			fm:     nil,
			path:   "specs/01-domain/entities/X.md",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RouteDocument(tt.fm, tt.path)
			assert.Equal(t, tt.wantOK, got.OK)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, got.Kind)
			}
			assert.Equal(t, tt.wantWarn, got.Warning != "")
		})
	}
}

func TestLayerOfPath(t *testing.T) {
	l, ok := LayerOfPath("specs/02-behavior/commands/CMD-001.md")
	require.True(t, ok)
	assert.Equal(t, model.LayerBehavior, l)

	_, ok = LayerOfPath("README.md")
	assert.False(t, ok)
}

func TestDomainOfPath(t *testing.T) {
	assert.Equal(t, "billing", DomainOfPath("specs/domains/billing/01-domain/entities/Invoice.md"))
	assert.Empty(t, DomainOfPath("specs/01-domain/entities/Invoice.md"))
}

func TestIsLayerViolation(t *testing.T) {
	// Lower layer referencing higher layer violates.
	assert.True(t, IsLayerViolation(model.LayerDomain, model.LayerBehavior))
	assert.True(t, IsLayerViolation(model.LayerBehavior, model.LayerVerification))

	// Higher referencing lower is fine.
	assert.False(t, IsLayerViolation(model.LayerBehavior, model.LayerDomain))
	assert.False(t, IsLayerViolation(model.LayerDomain, model.LayerDomain))

	// 00-requirements is exempt both ways.
	assert.False(t, IsLayerViolation(model.LayerRequirements, model.LayerVerification))
	assert.False(t, IsLayerViolation(model.LayerVerification, model.LayerRequirements))
}

func TestEmbeddableSections(t *testing.T) {
	assert.True(t, IsEmbeddable(model.KindEntity, "Descripción"))
	assert.False(t, IsEmbeddable(model.KindEntity, "Atributos"))
	assert.True(t, IsEmbeddable(model.KindBusinessRule, "Cuándo aplica"))

	// Events never embed.
	assert.Empty(t, EmbeddableSections(model.KindEvent))
}

func TestDetectIndexLevel(t *testing.T) {
	assert.Equal(t, model.LevelL1, DetectIndexLevel(Capabilities{}))
	assert.Equal(t, model.LevelL1, DetectIndexLevel(Capabilities{Embedder: true}))
	assert.Equal(t, model.LevelL2, DetectIndexLevel(Capabilities{Embedder: true, VectorIndex: true}))
	assert.Equal(t, model.LevelL3, DetectIndexLevel(Capabilities{Embedder: true, VectorIndex: true, AgentClient: true}))
}

func TestResolveNodeConflict(t *testing.T) {
	base := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	a := &model.GraphNode{ID: "Entity:Pedido", SourceHash: "abc", IndexedAt: base}
	b := &model.GraphNode{ID: "Entity:Pedido", SourceHash: "xyz", IndexedAt: base.Add(15 * time.Minute)}

	assert.True(t, ResolveNodeConflict(a, b), "later indexed_at wins")
	assert.False(t, ResolveNodeConflict(b, a))

	// Tie on indexed_at: greater hash wins for determinism.
	c := &model.GraphNode{ID: "Entity:Pedido", SourceHash: "zzz", IndexedAt: base}
	assert.True(t, ResolveNodeConflict(a, c))
	assert.False(t, ResolveNodeConflict(c, a))
}
