package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/model"
)

func node(id string, kind model.Kind, layer model.Layer) model.GraphNode {
	return model.GraphNode{
		ID: id, Kind: kind, Layer: layer,
		IndexedFields: map[string]any{},
	}
}

func edge(from, to, typ string) model.GraphEdge {
	return model.GraphEdge{FromNode: from, ToNode: to, EdgeType: typ}
}

func testStore() *Store {
	nodes := []model.GraphNode{
		node("Entity:Pedido", model.KindEntity, model.LayerDomain),
		node("Entity:Usuario", model.KindEntity, model.LayerDomain),
		node("BR:BR-001", model.KindBusinessRule, model.LayerDomain),
		node("UC:UC-001", model.KindUseCase, model.LayerBehavior),
		node("CMD:CMD-001", model.KindCommand, model.LayerBehavior),
	}
	edges := []model.GraphEdge{
		edge("Entity:Pedido", "Entity:Usuario", "DOMAIN_RELATION"),
		edge("BR:BR-001", "Entity:Pedido", "ENTITY_RULE"),
		edge("UC:UC-001", "BR:BR-001", "UC_APPLIES_RULE"),
		edge("UC:UC-001", "CMD:CMD-001", "UC_EXECUTES_CMD"),
		edge("Entity:Pedido", "Event:EVT-Missing", "EMITS"),
	}
	return Load(nodes, edges)
}

func TestLoadOrphans(t *testing.T) {
	s := testStore()
	assert.Equal(t, 5, s.NodeCount())
	assert.Equal(t, 4, s.EdgeCount())

	orphans := s.OrphanEdges()
	require.Len(t, orphans, 1)
	assert.Equal(t, model.OrphanMissingTarget, orphans[0].Reason)
	assert.Equal(t, "Event:EVT-Missing", orphans[0].Edge.ToNode)
}

func TestEveryEdgeLoadedOrOrphan(t *testing.T) {
	s := testStore()
	// Invariant: loaded + orphan = total ingested, never both, never neither.
	assert.Equal(t, 5, s.EdgeCount()+len(s.OrphanEdges()))
}

func TestTraverseDepths(t *testing.T) {
	s := testStore()

	t0 := s.Traverse("Entity:Pedido", 0, TraverseOptions{})
	require.Len(t, t0.Nodes, 1)
	assert.Equal(t, "Entity:Pedido", t0.Nodes[0].Node.ID)

	t1 := s.Traverse("Entity:Pedido", 1, TraverseOptions{})
	ids := map[string]int{}
	for _, r := range t1.Nodes {
		ids[r.Node.ID] = r.Distance
	}
	assert.Equal(t, map[string]int{
		"Entity:Pedido":  0,
		"Entity:Usuario": 1,
		"BR:BR-001":      1,
	}, ids)

	t2 := s.Traverse("Entity:Pedido", 2, TraverseOptions{})
	assert.Len(t, t2.Nodes, 4, "UC reached via BR at distance 2")
}

func TestTraverseEdgeTypeFilter(t *testing.T) {
	s := testStore()
	tr := s.Traverse("UC:UC-001", 1, TraverseOptions{EdgeTypes: []string{"UC_EXECUTES_CMD"}})
	require.Len(t, tr.Nodes, 2)
	assert.Equal(t, "CMD:CMD-001", tr.Nodes[1].Node.ID)
	require.Len(t, tr.Edges, 1)
}

func TestTraverseRespectLayers(t *testing.T) {
	nodes := []model.GraphNode{
		node("Entity:A", model.KindEntity, model.LayerDomain),
		node("UC:B", model.KindUseCase, model.LayerBehavior),
	}
	bad := edge("Entity:A", "UC:B", "WIKI_LINK")
	bad.LayerViolation = true
	s := Load(nodes, []model.GraphEdge{bad})

	blocked := s.Traverse("Entity:A", 2, TraverseOptions{RespectLayers: true})
	assert.Len(t, blocked.Nodes, 1)

	open := s.Traverse("Entity:A", 2, TraverseOptions{})
	assert.Len(t, open.Nodes, 2)
}

func TestReverseTraversePaths(t *testing.T) {
	s := testStore()
	deps := s.ReverseTraverse("Entity:Pedido", 3)

	byID := map[string]DependentPath{}
	for _, d := range deps {
		byID[d.Node.ID] = d
	}
	require.Contains(t, byID, "BR:BR-001")
	require.Contains(t, byID, "UC:UC-001")
	assert.Equal(t, 1, byID["BR:BR-001"].Depth)
	assert.Equal(t, 2, byID["UC:UC-001"].Depth)
	require.Len(t, byID["UC:UC-001"].Path, 2)
	assert.Equal(t, "ENTITY_RULE", byID["UC:UC-001"].Path[0].EdgeType)
	assert.Equal(t, "UC_APPLIES_RULE", byID["UC:UC-001"].Path[1].EdgeType)
}

func TestRemoveNodeCascades(t *testing.T) {
	s := testStore()
	s.RemoveNode("BR:BR-001")

	assert.False(t, s.HasNode("BR:BR-001"))
	assert.Empty(t, s.IncomingEdges("Entity:Pedido", "ENTITY_RULE"))
	assert.Empty(t, s.OutgoingEdges("UC:UC-001", "UC_APPLIES_RULE"))
	assert.Equal(t, 2, s.EdgeCount())
}

func TestTextSearch(t *testing.T) {
	n1 := node("Entity:Pedido", model.KindEntity, model.LayerDomain)
	n1.Aliases = []string{"Orden"}
	n1.IndexedFields = map[string]any{"description": "intención de compra del usuario"}
	n2 := node("Entity:Usuario", model.KindEntity, model.LayerDomain)
	n2.IndexedFields = map[string]any{"description": "cuenta del usuario registrado"}
	s := Load([]model.GraphNode{n1, n2}, nil)

	// Single token: union.
	hits := s.TextSearch("usuario")
	require.Len(t, hits, 2)
	assert.Equal(t, "Entity:Pedido", hits[0].ID, "sorted by id")

	// Multi token: intersection.
	hits = s.TextSearch("compra usuario")
	require.Len(t, hits, 1)
	assert.Equal(t, "Entity:Pedido", hits[0].ID)

	// Alias matches.
	hits = s.TextSearch("orden")
	require.Len(t, hits, 1)

	assert.Empty(t, s.TextSearch("inexistente"))
}

func TestRemoveNodeDropsMatchingOrphans(t *testing.T) {
	s := testStore()
	require.Len(t, s.OrphanEdges(), 1)
	s.RemoveNode("Entity:Pedido")
	assert.Empty(t, s.OrphanEdges(), "orphan from removed node dropped")
}
