package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

var now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func parseDoc(t *testing.T, path, content string) *model.Document {
	t.Helper()
	doc, err := parser.Parse(path, []byte(content))
	require.NoError(t, err)
	r := rulesRoute(t, doc)
	doc.Kind = r
	return doc
}

func rulesRoute(t *testing.T, doc *model.Document) model.Kind {
	t.Helper()
	raw, _ := doc.FrontMatter["kind"].(string)
	k, err := model.ParseKind(raw)
	require.NoError(t, err)
	return k
}

func edgeTypes(edges []model.GraphEdge) map[string]int {
	out := map[string]int{}
	for _, e := range edges {
		out[e.EdgeType]++
	}
	return out
}

func findEdge(t *testing.T, edges []model.GraphEdge, edgeType string) model.GraphEdge {
	t.Helper()
	for _, e := range edges {
		if e.EdgeType == edgeType {
			return e
		}
	}
	t.Fatalf("no edge of type %s", edgeType)
	return model.GraphEdge{}
}

func TestEntityExtraction(t *testing.T) {
	doc := parseDoc(t, "specs/01-domain/entities/Pedido.md", `---
kind: entity
id: Pedido
aliases: [Orden, Order]
---

## Descripción

Un pedido representa la intención de compra.

## Relaciones

| Relación | Cardinalidad | Entidad |
|----------|--------------|---------|
| pertenece_a | N:1 | [[Usuario]] |

## Eventos del Ciclo de Vida

- [[EVT-PedidoCreado]]
`)

	node, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	assert.Equal(t, "Entity:Pedido", node.ID)
	assert.Equal(t, model.KindEntity, node.Kind)
	assert.ElementsMatch(t, []string{"Orden", "Order"}, node.Aliases)
	assert.Equal(t, "Un pedido representa la intención de compra.", node.IndexedFields["description"])

	types := edgeTypes(edges)
	assert.Equal(t, 1, types[model.EdgeDomainRelation])
	assert.Equal(t, 1, types[model.EdgeEmits])
	assert.Equal(t, 1, types["pertenece_a"], "business edge for the relation name")
	assert.GreaterOrEqual(t, types[model.EdgeWikiLink], 2, "Usuario + event link")

	rel := findEdge(t, edges, model.EdgeDomainRelation)
	assert.Equal(t, "Entity:Usuario", rel.ToNode)
	assert.Equal(t, "N:1", rel.Metadata["cardinality"])

	emits := findEdge(t, edges, model.EdgeEmits)
	assert.Equal(t, "Event:EVT-PedidoCreado", emits.ToNode)
}

func TestBusinessRuleExtraction(t *testing.T) {
	doc := parseDoc(t, "specs/01-domain/rules/BR-PED-001.md", `---
kind: business-rule
id: BR-PED-001
---

## Declaración

Un [[Pedido]] no puede superar 100 líneas.

## Cuándo aplica

Al agregar líneas.
`)

	node, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	assert.Equal(t, "BR:BR-PED-001", node.ID)
	assert.Contains(t, node.IndexedFields, "declaration")
	assert.Contains(t, node.IndexedFields, "when_applies")

	rule := findEdge(t, edges, model.EdgeEntityRule)
	assert.Equal(t, "Entity:Pedido", rule.ToNode)
}

func TestUseCaseExtraction(t *testing.T) {
	doc := parseDoc(t, "specs/02-behavior/use-cases/UC-001.md", `---
kind: use-case
id: UC-001
---

## Descripción

Checkout de un pedido para [[OBJ-Ventas]].

## Reglas Aplicadas

- [[BR-PED-001]]

## Comandos Ejecutados

- [[CMD-CrearPedido]]
`)

	_, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	types := edgeTypes(edges)
	assert.Equal(t, 1, types[model.EdgeUCAppliesRule])
	assert.Equal(t, 1, types[model.EdgeUCExecutesCmd])
	assert.Equal(t, 1, types[model.EdgeUCStory])

	applies := findEdge(t, edges, model.EdgeUCAppliesRule)
	assert.Equal(t, "BR:BR-PED-001", applies.ToNode)

	// Use case (02-behavior) referencing a rule (01-domain) is allowed.
	assert.False(t, applies.LayerViolation)
}

func TestLayerViolationClassification(t *testing.T) {
	// An entity (01-domain) referencing a use case (02-behavior) violates.
	doc := parseDoc(t, "specs/01-domain/entities/Pedido.md", `---
kind: entity
id: Pedido
---

## Descripción

Ver [[UC-001]].
`)
	_, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	wl := findEdge(t, edges, model.EdgeWikiLink)
	assert.Equal(t, "UC:UC-001", wl.ToNode)
	assert.True(t, wl.LayerViolation)
}

func TestCrossDomainRef(t *testing.T) {
	doc := parseDoc(t, "specs/domains/shop/01-domain/entities/Pedido.md", `---
kind: entity
id: Pedido
---

## Descripción

Factura en [[billing::Invoice]].
`)
	_, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	ref := findEdge(t, edges, model.EdgeCrossDomainRef)
	assert.Equal(t, "billing::Entity:Invoice", ref.ToNode)
	assert.Equal(t, "billing", ref.Metadata["domain"])
}

func TestADRDecidesFor(t *testing.T) {
	doc := parseDoc(t, "specs/00-requirements/decisions/ADR-001.md", `---
kind: adr
id: ADR-001
---

## Contexto

Necesitamos idempotencia en [[CMD-CrearPedido]] y [[Pedido]].

## Decisión

Se usa una clave natural.
`)
	_, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)

	types := edgeTypes(edges)
	assert.Equal(t, 2, types[model.EdgeDecidesFor])
	// ADR lives in 00-requirements: exempt from layer violations.
	for _, e := range edges {
		assert.False(t, e.LayerViolation)
	}
}

func TestRequirementTraceability(t *testing.T) {
	doc := parseDoc(t, "specs/04-verification/criteria/REQ-001.md", `---
kind: requirement
id: REQ-001
---

## Descripción

El pedido se crea en menos de 2s.

## Trazabilidad

- [[UC-001]]
- [[CMD-CrearPedido]]
`)
	_, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)
	assert.Equal(t, 2, edgeTypes(edges)[model.EdgeReqTracesTo])
}

func TestEventNodeOnly(t *testing.T) {
	doc := parseDoc(t, "specs/01-domain/events/EVT-PedidoCreado.md", `---
kind: event
id: EVT-PedidoCreado
---

## Descripción

Se emitió al crear un [[Pedido]].
`)
	node, edges, err := NewRegistry().Extract(doc, now)
	require.NoError(t, err)
	assert.Equal(t, "Event:EVT-PedidoCreado", node.ID)
	types := edgeTypes(edges)
	assert.Len(t, types, 1)
	assert.Equal(t, 1, types[model.EdgeWikiLink])
}

func TestEdgeDedupeMergesMetadata(t *testing.T) {
	in := []model.GraphEdge{
		{FromNode: "A", ToNode: "B", EdgeType: "WIKI_LINK", Metadata: map[string]string{"x": "1"}},
		{FromNode: "A", ToNode: "B", EdgeType: "WIKI_LINK", Metadata: map[string]string{"y": "2"}},
		{FromNode: "A", ToNode: "C", EdgeType: "WIKI_LINK"},
	}
	out := dedupeEdges(in)
	require.Len(t, out, 2)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, out[0].Metadata)
}

func TestResolveLinkTarget(t *testing.T) {
	assert.Equal(t, "Event:EVT-X", ResolveLinkTarget("EVT-X"))
	assert.Equal(t, "BR:BR-1", ResolveLinkTarget("BR-1"))
	assert.Equal(t, "UC:UC-001", ResolveLinkTarget("UC-001"))
	assert.Equal(t, "Entity:Pedido", ResolveLinkTarget("Pedido"))
}
