// Package artifact implements the durable on-disk index layout:
//
//	.kdd-index/
//	├── manifest.json
//	├── nodes/<kind>/<DocumentId>.json
//	├── edges/edges.jsonl
//	├── embeddings/<kind>/<DocumentId>.json
//	└── deletions.jsonl
//
// All writes go through a staging file and atomic rename. Serialization is
// canonical JSON so independent producers emit byte-identical artifacts.
package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/kddindex/model"
)

// DefaultRoot is the conventional index directory name.
const DefaultRoot = ".kdd-index"

// ErrNoManifest is returned when the store has no manifest yet.
var ErrNoManifest = errors.New("artifact: manifest not found")

// Store reads and writes one artifact root.
type Store struct {
	root string
}

// Open returns a store rooted at dir. The directory is created lazily on
// first write.
func Open(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the artifact root path.
func (s *Store) Root() string { return s.root }

// Exists reports whether the root holds a manifest.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.manifestPath())
	return err == nil
}

func (s *Store) manifestPath() string { return filepath.Join(s.root, "manifest.json") }
func (s *Store) edgesPath() string    { return filepath.Join(s.root, "edges", "edges.jsonl") }
func (s *Store) deletionsPath() string {
	return filepath.Join(s.root, "deletions.jsonl")
}

func (s *Store) nodePath(kind model.Kind, documentID string) string {
	return filepath.Join(s.root, "nodes", string(kind), documentID+".json")
}

func (s *Store) embeddingPath(kind model.Kind, documentID string) string {
	return filepath.Join(s.root, "embeddings", string(kind), documentID+".json")
}

// writeAtomic stages data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	staging := path + ".staging"
	if err := os.WriteFile(staging, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", staging, err)
	}
	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------

// WriteManifest atomically replaces the manifest.
func (s *Store) WriteManifest(m *model.Manifest) error {
	data, err := marshalCanonical(m)
	if err != nil {
		return err
	}
	return writeAtomic(s.manifestPath(), data)
}

// ReadManifest loads the manifest, or ErrNoManifest.
func (s *Store) ReadManifest() (*model.Manifest, error) {
	data, err := os.ReadFile(s.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.manifestPath(), err)
	}
	return &m, nil
}

// ---------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------

// WriteNode persists one node file. The file name is the unqualified
// document id; the directory supplies the kind.
func (s *Store) WriteNode(n *model.GraphNode) error {
	data, err := marshalCanonical(n)
	if err != nil {
		return err
	}
	return writeAtomic(s.nodePath(n.Kind, model.DocumentID(n.ID)), data)
}

// ReadNode finds a node by its composite id across kind directories.
func (s *Store) ReadNode(nodeID string) (*model.GraphNode, error) {
	docID := model.DocumentID(nodeID)
	for _, kind := range model.AllKinds {
		path := s.nodePath(kind, docID)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read node: %w", err)
		}
		var n model.GraphNode
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if n.ID == nodeID {
			return &n, nil
		}
	}
	return nil, nil
}

// ReadAllNodes loads every node, sorted by id for determinism.
func (s *Store) ReadAllNodes() ([]model.GraphNode, error) {
	var nodes []model.GraphNode
	nodesDir := filepath.Join(s.root, "nodes")
	err := filepath.WalkDir(nodesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read node: %w", err)
		}
		var n model.GraphNode
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		nodes = append(nodes, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// ---------------------------------------------------------------------
// Edges
// ---------------------------------------------------------------------

// AppendEdges adds edges to edges.jsonl, suppressing duplicates of
// already-persisted (from,to,type) keys.
func (s *Store) AppendEdges(edges []model.GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	existing, err := s.ReadEdges()
	if err != nil {
		return err
	}
	seen := make(map[model.EdgeKey]bool, len(existing))
	for _, e := range existing {
		seen[e.Key()] = true
	}

	if err := os.MkdirAll(filepath.Dir(s.edgesPath()), 0o755); err != nil {
		return fmt.Errorf("mkdir edges: %w", err)
	}
	f, err := os.OpenFile(s.edgesPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open edges: %w", err)
	}
	defer f.Close()

	for _, e := range edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		line, err := marshalLine(e)
		if err != nil {
			return err
		}
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("append edge: %w", err)
		}
	}
	return f.Sync()
}

// ReadEdges streams edges.jsonl.
func (s *Store) ReadEdges() ([]model.GraphEdge, error) {
	f, err := os.Open(s.edgesPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open edges: %w", err)
	}
	defer f.Close()

	var edges []model.GraphEdge
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e model.GraphEdge
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.edgesPath(), err)
		}
		edges = append(edges, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan edges: %w", err)
	}
	return edges, nil
}

// RewriteEdges replaces edges.jsonl with the given set, compacting
// duplicates and sorting by key for deterministic output.
func (s *Store) RewriteEdges(edges []model.GraphEdge) error {
	seen := make(map[model.EdgeKey]bool, len(edges))
	compact := make([]model.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		compact = append(compact, e)
	}
	sort.Slice(compact, func(i, j int) bool {
		a, b := compact[i], compact[j]
		if a.FromNode != b.FromNode {
			return a.FromNode < b.FromNode
		}
		if a.ToNode != b.ToNode {
			return a.ToNode < b.ToNode
		}
		return a.EdgeType < b.EdgeType
	})

	var buf []byte
	for _, e := range compact {
		line, err := marshalLine(e)
		if err != nil {
			return err
		}
		buf = append(buf, line...)
	}
	return writeAtomic(s.edgesPath(), buf)
}

// ---------------------------------------------------------------------
// Embeddings
// ---------------------------------------------------------------------

// WriteEmbeddings stores one document's embeddings as a single array file.
func (s *Store) WriteEmbeddings(kind model.Kind, documentID string, embeddings []model.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	data, err := marshalCanonical(embeddings)
	if err != nil {
		return err
	}
	return writeAtomic(s.embeddingPath(kind, documentID), data)
}

// ReadEmbeddings loads one document's embeddings, searching all kinds.
func (s *Store) ReadEmbeddings(documentID string) ([]model.Embedding, error) {
	for _, kind := range model.AllKinds {
		path := s.embeddingPath(kind, documentID)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read embeddings: %w", err)
		}
		var out []model.Embedding
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return out, nil
	}
	return nil, nil
}

// ReadAllEmbeddings loads every embedding, ordered by id.
func (s *Store) ReadAllEmbeddings() ([]model.Embedding, error) {
	var all []model.Embedding
	dir := filepath.Join(s.root, "embeddings")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embeddings: %w", err)
		}
		var embs []model.Embedding
		if err := json.Unmarshal(data, &embs); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		all = append(all, embs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// ---------------------------------------------------------------------
// Cascade delete + tombstones
// ---------------------------------------------------------------------

// DeleteDocument removes a document's node file, embedding file, and every
// edge touching the node. Edge removal rewrites the file filtered. Returns
// the deleted node id, or "" when the document was not present.
func (s *Store) DeleteDocument(documentID string) (string, error) {
	var nodeID string
	for _, kind := range model.AllKinds {
		path := s.nodePath(kind, documentID)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read node: %w", err)
		}
		var n model.GraphNode
		if err := json.Unmarshal(data, &n); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		nodeID = n.ID
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("remove node: %w", err)
		}
		removeDirIfEmpty(filepath.Dir(path))
		break
	}
	if nodeID == "" {
		return "", nil
	}

	edges, err := s.ReadEdges()
	if err != nil {
		return "", err
	}
	kept := edges[:0]
	for _, e := range edges {
		if e.FromNode == nodeID || e.ToNode == nodeID {
			continue
		}
		kept = append(kept, e)
	}
	if err := s.RewriteEdges(kept); err != nil {
		return "", err
	}

	for _, kind := range model.AllKinds {
		path := s.embeddingPath(kind, documentID)
		if err := os.Remove(path); err == nil {
			removeDirIfEmpty(filepath.Dir(path))
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remove embeddings: %w", err)
		}
	}
	return nodeID, nil
}

func removeDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}

// AppendTombstone records a deletion marker for merge reconciliation.
func (s *Store) AppendTombstone(t model.Tombstone) error {
	line, err := marshalLine(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("mkdir root: %w", err)
	}
	f, err := os.OpenFile(s.deletionsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open deletions: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append tombstone: %w", err)
	}
	return f.Sync()
}

// ReadTombstones loads all deletion markers.
func (s *Store) ReadTombstones() ([]model.Tombstone, error) {
	f, err := os.Open(s.deletionsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open deletions: %w", err)
	}
	defer f.Close()

	var out []model.Tombstone
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var t model.Tombstone
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.deletionsPath(), err)
		}
		out = append(out, t)
	}
	return out, sc.Err()
}
