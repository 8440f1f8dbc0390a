package graph

import "github.com/c360studio/kddindex/model"

// Reached is a node found by traversal, with its BFS distance from the root.
type Reached struct {
	Node     *model.GraphNode
	Distance int
}

// Traversal is the result of a BFS walk.
type Traversal struct {
	Nodes []Reached
	Edges []model.GraphEdge
}

// TraverseOptions tune a BFS walk.
type TraverseOptions struct {
	EdgeTypes     []string
	RespectLayers bool // skip layer-violation edges
	Direction     Direction
}

// Direction selects which adjacency a traversal follows.
type Direction int

const (
	// Both follows outgoing and incoming edges.
	Both Direction = iota
	// Incoming follows only edges pointing at the current node (dependents).
	Incoming
	// Outgoing follows only edges leaving the current node.
	Outgoing
)

// Traverse walks BFS from root up to depth hops. Edges are visited in
// insertion order; depth 0 returns only the root. Returns an empty result
// when root is not loaded.
func (s *Store) Traverse(root string, depth int, opts TraverseOptions) Traversal {
	var t Traversal
	rootNode, ok := s.nodes[root]
	if !ok {
		return t
	}

	want := map[string]bool{}
	for _, et := range opts.EdgeTypes {
		want[et] = true
	}
	use := func(e model.GraphEdge) bool {
		if opts.RespectLayers && e.LayerViolation {
			return false
		}
		if len(want) > 0 && !want[e.EdgeType] {
			return false
		}
		return true
	}

	visited := map[string]int{root: 0}
	t.Nodes = append(t.Nodes, Reached{Node: rootNode, Distance: 0})
	seenEdges := map[model.EdgeKey]bool{}
	queue := []string{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		dist := visited[current]
		if dist >= depth {
			continue
		}

		visit := func(e model.GraphEdge, neighbor string) {
			if !use(e) {
				return
			}
			if !seenEdges[e.Key()] {
				seenEdges[e.Key()] = true
				t.Edges = append(t.Edges, e)
			}
			if _, seen := visited[neighbor]; !seen {
				if n, ok := s.nodes[neighbor]; ok {
					visited[neighbor] = dist + 1
					t.Nodes = append(t.Nodes, Reached{Node: n, Distance: dist + 1})
					queue = append(queue, neighbor)
				}
			}
		}

		if opts.Direction != Incoming {
			for _, e := range s.outgoing[current] {
				visit(e, e.ToNode)
			}
		}
		if opts.Direction != Outgoing {
			for _, e := range s.incoming[current] {
				visit(e, e.FromNode)
			}
		}
	}
	return t
}

// DependentPath is one transitively affected node together with the edge
// chain leading back to the analysis root.
type DependentPath struct {
	Node  *model.GraphNode
	Path  []model.GraphEdge // edges from root towards the dependent
	Depth int
}

// ReverseTraverse walks incoming edges only, recording the path to each
// dependent. Used by impact analysis.
func (s *Store) ReverseTraverse(root string, depth int) []DependentPath {
	if _, ok := s.nodes[root]; !ok {
		return nil
	}
	var out []DependentPath
	visited := map[string]bool{root: true}
	type item struct {
		id   string
		dist int
		path []model.GraphEdge
	}
	queue := []item{{id: root}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= depth {
			continue
		}
		for _, e := range s.incoming[cur.id] {
			if visited[e.FromNode] {
				continue
			}
			visited[e.FromNode] = true
			path := append(append([]model.GraphEdge(nil), cur.path...), e)
			if n, ok := s.nodes[e.FromNode]; ok {
				out = append(out, DependentPath{Node: n, Path: path, Depth: cur.dist + 1})
			}
			queue = append(queue, item{id: e.FromNode, dist: cur.dist + 1, path: path})
		}
	}
	return out
}
