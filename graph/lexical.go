package graph

import (
	"sort"
	"strings"
	"unicode"

	"github.com/c360studio/kddindex/model"
)

// indexText feeds the inverted index from the node id, aliases, and every
// string value reachable in indexed_fields.
func (s *Store) indexText(n *model.GraphNode) {
	add := func(text string) {
		for _, tok := range Tokenize(text) {
			ids, ok := s.lexical[tok]
			if !ok {
				ids = make(map[string]bool)
				s.lexical[tok] = ids
			}
			ids[n.ID] = true
		}
	}
	add(n.ID)
	add(model.DocumentID(n.ID))
	for _, a := range n.Aliases {
		add(a)
	}
	for _, v := range n.IndexedFields {
		addFieldValue(add, v)
	}
}

func addFieldValue(add func(string), v any) {
	switch val := v.(type) {
	case string:
		add(val)
	case []string:
		for _, s := range val {
			add(s)
		}
	case []any:
		for _, item := range val {
			addFieldValue(add, item)
		}
	case map[string]string:
		for _, s := range val {
			add(s)
		}
	case map[string]any:
		for _, item := range val {
			addFieldValue(add, item)
		}
	case []map[string]string:
		for _, row := range val {
			for _, s := range row {
				add(s)
			}
		}
	}
}

// Tokenize lowercases and splits on non-alphanumeric runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// TextSearch runs the lexical index: a single token returns the union of
// hits; multiple tokens intersect (every token must match the node's
// searchable text). Results sort by id for determinism.
func (s *Store) TextSearch(query string) []*model.GraphNode {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	matched := make(map[string]bool)
	for id := range s.lexical[tokens[0]] {
		matched[id] = true
	}
	for _, tok := range tokens[1:] {
		ids := s.lexical[tok]
		for id := range matched {
			if !ids[id] {
				delete(matched, id)
			}
		}
	}

	out := make([]*model.GraphNode, 0, len(matched))
	for id := range matched {
		out = append(out, s.nodes[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
