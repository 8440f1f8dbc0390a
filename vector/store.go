package vector

import (
	"sort"

	"github.com/c360studio/kddindex/model"
)

// Match is one search hit: an embedding id and a similarity score in [0,1].
type Match struct {
	EmbeddingID string
	DocumentID  string
	Score       float32
}

// Store is the queryable vector index. All vectors share one dimension.
type Store struct {
	dimension int
	index     *hnsw
	byID      map[string]int             // embedding id → node index
	meta      map[int]model.Embedding    // node index → metadata (without vector copy)
	byDoc     map[string][]string        // document id → embedding ids
}

// NewStore creates an empty index for the given dimension.
func NewStore(dimension int) *Store {
	return &Store{
		dimension: dimension,
		index:     newHNSW(dimension),
		byID:      make(map[string]int),
		meta:      make(map[int]model.Embedding),
		byDoc:     make(map[string][]string),
	}
}

// Build constructs the index from all embeddings at once. Insertion order is
// fixed by embedding id so independent builds agree.
func Build(dimension int, embeddings []model.Embedding) (*Store, error) {
	s := NewStore(dimension)
	ordered := append([]model.Embedding(nil), embeddings...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, e := range ordered {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dimension returns the index's vector length.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of live embeddings.
func (s *Store) Len() int { return len(s.byID) }

// Add inserts one embedding.
func (s *Store) Add(e model.Embedding) error {
	if old, ok := s.byID[e.ID]; ok {
		s.index.nodes[old].deleted = true
	}
	idx, err := s.index.insert(e.ID, e.Vector)
	if err != nil {
		return err
	}
	s.byID[e.ID] = idx
	stripped := e
	stripped.Vector = nil
	s.meta[idx] = stripped
	s.byDoc[e.DocumentID] = append(s.byDoc[e.DocumentID], e.ID)
	return nil
}

// Remove tombstones one embedding by id.
func (s *Store) Remove(id string) {
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	s.index.nodes[idx].deleted = true
	docID := s.meta[idx].DocumentID
	delete(s.byID, id)
	delete(s.meta, idx)

	ids := s.byDoc[docID]
	for i, eid := range ids {
		if eid == id {
			s.byDoc[docID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byDoc[docID]) == 0 {
		delete(s.byDoc, docID)
	}
}

// RemoveDocument tombstones every embedding of a document.
func (s *Store) RemoveDocument(documentID string) {
	for _, id := range append([]string(nil), s.byDoc[documentID]...) {
		s.Remove(id)
	}
}

// Search returns up to topK matches sorted by score descending, ties broken
// by embedding id. Kinds, when given, post-filter by document kind.
func (s *Store) Search(query model.Vector, topK int, kinds ...model.Kind) ([]Match, error) {
	if len(query) != s.dimension {
		return nil, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(query)}
	}
	if topK <= 0 || s.Len() == 0 {
		return nil, nil
	}

	want := make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	// Over-fetch to survive the post-filter, then trim.
	fetch := topK
	if len(want) > 0 {
		fetch *= 4
	}
	ef := max(defaultEFSearch, 4*fetch)

	hits := s.index.knn(query, fetch, ef)
	out := make([]Match, 0, topK)
	for _, h := range hits {
		m, ok := s.meta[h.idx]
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.DocumentKind] {
			continue
		}
		score := 1 - h.dist
		if score < 0 {
			score = 0
		}
		out = append(out, Match{EmbeddingID: m.ID, DocumentID: m.DocumentID, Score: score})
		if len(out) == topK {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EmbeddingID < out[j].EmbeddingID
	})
	return out, nil
}

// Get returns the stored metadata for an embedding id.
func (s *Store) Get(id string) (model.Embedding, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return model.Embedding{}, false
	}
	return s.meta[idx], true
}
