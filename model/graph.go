package model

import "time"

// NodeStatus is the artifact lifecycle status carried in front-matter.
type NodeStatus string

const (
	StatusDraft      NodeStatus = "draft"
	StatusReview     NodeStatus = "review"
	StatusApproved   NodeStatus = "approved"
	StatusDeprecated NodeStatus = "deprecated"
)

// GraphNode is the persistent node produced by indexing one document.
// Exactly one node exists per persisted source document.
type GraphNode struct {
	ID            string         `json:"id"` // "{Kind}:{DocumentId}"
	Kind          Kind           `json:"kind"`
	SourceFile    string         `json:"source_file"`
	SourceHash    string         `json:"source_hash"`
	Layer         Layer          `json:"layer"`
	Status        NodeStatus     `json:"status"`
	Aliases       []string       `json:"aliases,omitempty"`
	Domain        string         `json:"domain,omitempty"`
	IndexedFields map[string]any `json:"indexed_fields"`
	IndexedAt     time.Time      `json:"indexed_at"` // RFC3339 UTC
}

// Extraction methods for graph edges.
const (
	ExtractionWikiLink       = "wiki_link"
	ExtractionSectionContent = "section_content"
	ExtractionImplicit       = "implicit"
	ExtractionFrontmatter    = "frontmatter"
)

// Structural edge types (SCREAMING_SNAKE_CASE, closed set). Business edge
// types are lower snake_case free-form strings and are not enumerated.
const (
	EdgeWikiLink          = "WIKI_LINK"
	EdgeDomainRelation    = "DOMAIN_RELATION"
	EdgeEntityRule        = "ENTITY_RULE"
	EdgeEntityPolicy      = "ENTITY_POLICY"
	EdgeEmits             = "EMITS"
	EdgeConsumes          = "CONSUMES"
	EdgeUCAppliesRule     = "UC_APPLIES_RULE"
	EdgeUCExecutesCmd     = "UC_EXECUTES_CMD"
	EdgeUCStory           = "UC_STORY"
	EdgeViewTriggersUC    = "VIEW_TRIGGERS_UC"
	EdgeViewUsesComponent = "VIEW_USES_COMPONENT"
	EdgeComponentUses     = "COMPONENT_USES_ENTITY"
	EdgeReqTracesTo       = "REQ_TRACES_TO"
	EdgeValidates         = "VALIDATES"
	EdgeDecidesFor        = "DECIDES_FOR"
	EdgeCrossDomainRef    = "CROSS_DOMAIN_REF"
	EdgeLayerDependency   = "LAYER_DEPENDENCY"
)

// GraphEdge is a typed directed relationship between two nodes. The
// uniqueness key is (FromNode, ToNode, EdgeType); duplicates merge by union
// of metadata.
type GraphEdge struct {
	FromNode         string            `json:"from_node"`
	ToNode           string            `json:"to_node"`
	EdgeType         string            `json:"edge_type"`
	SourceFile       string            `json:"source_file"`
	ExtractionMethod string            `json:"extraction_method"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	LayerViolation   bool              `json:"layer_violation"`
	Bidirectional    bool              `json:"bidirectional"`
}

// Key returns the edge uniqueness key.
func (e GraphEdge) Key() EdgeKey {
	return EdgeKey{From: e.FromNode, To: e.ToNode, Type: e.EdgeType}
}

// EdgeKey identifies an edge within a store.
type EdgeKey struct {
	From, To, Type string
}

// OrphanReason explains why an edge could not be attached at load time.
type OrphanReason string

const (
	OrphanMissingSource OrphanReason = "missing_source"
	OrphanMissingTarget OrphanReason = "missing_target"
	OrphanBothMissing   OrphanReason = "both_missing"
)

// OrphanEdge is an edge whose endpoint(s) are absent from the loaded index.
type OrphanEdge struct {
	Edge   GraphEdge    `json:"edge"`
	Reason OrphanReason `json:"reason"`
}

// Tombstone marks a previously indexed artifact as deleted. Tombstones are
// what lets the merge engine distinguish "deleted" from "never had".
type Tombstone struct {
	NodeID    string    `json:"node_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
