// Package graph holds the in-memory directed labeled multigraph loaded from
// artifacts: node arena keyed by stable string id, adjacency maps, an orphan
// edge list, and a lexical inverted index. The store is read-only after
// load; incremental builds swap in a whole new snapshot.
package graph

import (
	"sort"

	"github.com/c360studio/kddindex/model"
)

// Store is the queryable in-memory graph.
type Store struct {
	nodes    map[string]*model.GraphNode
	byKind   map[model.Kind][]string
	outgoing map[string][]model.GraphEdge
	incoming map[string][]model.GraphEdge
	orphans  []model.OrphanEdge
	lexical  map[string]map[string]bool // token → node ids
	edgeN    int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nodes:    make(map[string]*model.GraphNode),
		byKind:   make(map[model.Kind][]string),
		outgoing: make(map[string][]model.GraphEdge),
		incoming: make(map[string][]model.GraphEdge),
		lexical:  make(map[string]map[string]bool),
	}
}

// Load builds all indices from scratch. Edges whose endpoints are missing go
// to the orphan list with a reason.
func Load(nodes []model.GraphNode, edges []model.GraphEdge) *Store {
	s := New()
	for i := range nodes {
		s.AddNode(&nodes[i])
	}
	for _, e := range edges {
		s.addEdge(e)
	}
	return s
}

// AddNode inserts one node and indexes it.
func (s *Store) AddNode(n *model.GraphNode) {
	if _, exists := s.nodes[n.ID]; exists {
		return
	}
	s.nodes[n.ID] = n
	s.byKind[n.Kind] = append(s.byKind[n.Kind], n.ID)
	s.indexText(n)
}

func (s *Store) addEdge(e model.GraphEdge) {
	_, fromOK := s.nodes[e.FromNode]
	_, toOK := s.nodes[e.ToNode]
	switch {
	case fromOK && toOK:
		s.outgoing[e.FromNode] = append(s.outgoing[e.FromNode], e)
		s.incoming[e.ToNode] = append(s.incoming[e.ToNode], e)
		s.edgeN++
	case !fromOK && !toOK:
		s.orphans = append(s.orphans, model.OrphanEdge{Edge: e, Reason: model.OrphanBothMissing})
	case !fromOK:
		s.orphans = append(s.orphans, model.OrphanEdge{Edge: e, Reason: model.OrphanMissingSource})
	default:
		s.orphans = append(s.orphans, model.OrphanEdge{Edge: e, Reason: model.OrphanMissingTarget})
	}
}

// RemoveNode drops a node, its incident edges, and any orphan edge touching
// the removed id.
func (s *Store) RemoveNode(nodeID string) {
	n, ok := s.nodes[nodeID]
	if !ok {
		return
	}
	delete(s.nodes, nodeID)

	ids := s.byKind[n.Kind]
	for i, id := range ids {
		if id == nodeID {
			s.byKind[n.Kind] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	for _, e := range s.outgoing[nodeID] {
		s.incoming[e.ToNode] = dropEdges(s.incoming[e.ToNode], nodeID)
		s.edgeN--
	}
	delete(s.outgoing, nodeID)
	for _, e := range s.incoming[nodeID] {
		s.outgoing[e.FromNode] = dropEdges(s.outgoing[e.FromNode], nodeID)
		s.edgeN--
	}
	delete(s.incoming, nodeID)

	kept := s.orphans[:0]
	for _, o := range s.orphans {
		if o.Edge.FromNode == nodeID || o.Edge.ToNode == nodeID {
			continue
		}
		kept = append(kept, o)
	}
	s.orphans = kept

	for tok, ids := range s.lexical {
		delete(ids, nodeID)
		if len(ids) == 0 {
			delete(s.lexical, tok)
		}
	}
}

func dropEdges(edges []model.GraphEdge, nodeID string) []model.GraphEdge {
	kept := edges[:0]
	for _, e := range edges {
		if e.FromNode == nodeID || e.ToNode == nodeID {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// HasNode reports whether the id is loaded.
func (s *Store) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// GetNode returns a loaded node or nil.
func (s *Store) GetNode(id string) *model.GraphNode {
	return s.nodes[id]
}

// NodeCount returns the number of loaded nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of loaded (non-orphan) edges.
func (s *Store) EdgeCount() int { return s.edgeN }

// NodesByKind returns node ids of a kind, sorted.
func (s *Store) NodesByKind(kind model.Kind) []string {
	out := append([]string(nil), s.byKind[kind]...)
	sort.Strings(out)
	return out
}

// AllNodeIDs returns every node id, sorted.
func (s *Store) AllNodeIDs() []string {
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OutgoingEdges returns edges from id, optionally filtered by type, in
// insertion order.
func (s *Store) OutgoingEdges(id string, types ...string) []model.GraphEdge {
	return filterTypes(s.outgoing[id], types)
}

// IncomingEdges returns edges into id, optionally filtered by type.
func (s *Store) IncomingEdges(id string, types ...string) []model.GraphEdge {
	return filterTypes(s.incoming[id], types)
}

func filterTypes(edges []model.GraphEdge, types []string) []model.GraphEdge {
	if len(types) == 0 {
		return append([]model.GraphEdge(nil), edges...)
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []model.GraphEdge
	for _, e := range edges {
		if want[e.EdgeType] {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges iterates every loaded edge once, in stable node-id order.
func (s *Store) AllEdges() []model.GraphEdge {
	ids := make([]string, 0, len(s.outgoing))
	for id := range s.outgoing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []model.GraphEdge
	for _, id := range ids {
		out = append(out, s.outgoing[id]...)
	}
	return out
}

// Violations returns every loaded edge flagged as a layer violation.
func (s *Store) Violations() []model.GraphEdge {
	var out []model.GraphEdge
	for _, e := range s.AllEdges() {
		if e.LayerViolation {
			out = append(out, e)
		}
	}
	return out
}

// OrphanEdges returns the edges that could not be attached at load time.
func (s *Store) OrphanEdges() []model.OrphanEdge {
	return append([]model.OrphanEdge(nil), s.orphans...)
}
