package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexLevel is the progressive indexing level. L1 is always available, L2
// requires a functional embedder, L3 additionally an agent client.
type IndexLevel string

const (
	LevelL1 IndexLevel = "L1"
	LevelL2 IndexLevel = "L2"
	LevelL3 IndexLevel = "L3"
)

// AtLeast reports whether l provides the capabilities of min.
func (l IndexLevel) AtLeast(min IndexLevel) bool {
	return levelRank(l) >= levelRank(min)
}

func levelRank(l IndexLevel) int {
	switch l {
	case LevelL3:
		return 3
	case LevelL2:
		return 2
	default:
		return 1
	}
}

// Index structure values.
const (
	StructureSingleDomain = "single-domain"
	StructureMultiDomain  = "multi-domain"
)

// IndexStats holds the aggregate counts stored in a manifest. The counts
// must equal the actual artifact counts after every mutation.
type IndexStats struct {
	Nodes       int `json:"nodes"`
	Edges       int `json:"edges"`
	Embeddings  int `json:"embeddings"`
	Enrichments int `json:"enrichments"`
}

// Manifest describes one artifact store. Semver major determines
// mergeability; embedding fields are present iff the level is at least L2.
type Manifest struct {
	Version             string     `json:"version"`
	KDDVersion          string     `json:"kdd_version"`
	EmbeddingModel      string     `json:"embedding_model,omitempty"`
	EmbeddingDimensions int        `json:"embedding_dimensions,omitempty"`
	IndexedAt           time.Time  `json:"indexed_at"`
	IndexedBy           string     `json:"indexed_by"`
	Structure           string     `json:"structure"`
	IndexLevel          IndexLevel `json:"index_level"`
	Stats               IndexStats `json:"stats"`
	Domains             []string   `json:"domains,omitempty"`
	GitCommit           string     `json:"git_commit,omitempty"`
}

// Major returns the semver major component of Version.
func (m *Manifest) Major() (int, error) {
	head, _, _ := strings.Cut(m.Version, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("manifest version %q: %w", m.Version, err)
	}
	return n, nil
}

// Validate checks manifest internal consistency.
func (m *Manifest) Validate() error {
	if _, err := m.Major(); err != nil {
		return err
	}
	switch m.Structure {
	case StructureSingleDomain, StructureMultiDomain:
	default:
		return fmt.Errorf("manifest structure %q is not recognized", m.Structure)
	}
	if m.Structure == StructureMultiDomain && len(m.Domains) == 0 {
		return fmt.Errorf("multi-domain manifest requires domains")
	}
	if m.IndexLevel.AtLeast(LevelL2) {
		if m.EmbeddingModel == "" || m.EmbeddingDimensions <= 0 {
			return fmt.Errorf("level %s manifest requires embedding model and dimensions", m.IndexLevel)
		}
	} else if m.EmbeddingModel != "" || m.EmbeddingDimensions != 0 {
		return fmt.Errorf("L1 manifest must not carry embedding fields")
	}
	return nil
}
