package query

import "github.com/c360studio/kddindex/model"

// ScoredNode is one ranked result.
type ScoredNode struct {
	NodeID      string     `json:"node_id"`
	Kind        model.Kind `json:"kind"`
	Score       float64    `json:"score"`
	Snippet     string     `json:"snippet,omitempty"`
	SectionPath string     `json:"section_path,omitempty"`
	RawText     string     `json:"raw_text,omitempty"`
	MatchSource string     `json:"match_source"`
	Distance    int        `json:"distance,omitempty"`
}

// GraphInput drives Q-graph.
type GraphInput struct {
	RootNode  string
	Depth     *int // 0..5, default 2; 0 returns only the root
	EdgeTypes []string
	Filters
}

// GraphResult is the Q-graph response.
type GraphResult struct {
	Center  *model.GraphNode  `json:"center"`
	Related []ScoredNode      `json:"related"`
	Edges   []model.GraphEdge `json:"edges"`
}

// SemanticInput drives Q-semantic.
type SemanticInput struct {
	QueryText string
	MinScore  float64 // default 0.7
	Limit     int
	Filters
}

// SemanticResult is the Q-semantic response.
type SemanticResult struct {
	Results []ScoredNode `json:"results"`
}

// HybridInput drives Q-hybrid, the principal query.
type HybridInput struct {
	QueryText string
	Depth     *int // graph expansion depth, 0..5; 0 disables expansion
	MinScore  float64
	Limit     int
	MaxTokens int
	Filters
}

// HybridResult is the Q-hybrid response.
type HybridResult struct {
	Results     []ScoredNode `json:"results"`
	TotalTokens int          `json:"total_tokens"`
	Warnings    []string     `json:"warnings,omitempty"`
	Partial     bool         `json:"partial,omitempty"`
}

// ImpactInput drives Q-impact.
type ImpactInput struct {
	NodeID string
	Depth  *int // 0..5, default 3; 0 reports no dependents
}

// AffectedNode is a direct dependent of the analyzed node.
type AffectedNode struct {
	NodeID      string     `json:"node_id"`
	Kind        model.Kind `json:"kind"`
	EdgeType    string     `json:"edge_type"`
	Description string     `json:"description"`
}

// TransitiveNode is an indirect dependent with its dependency chain.
type TransitiveNode struct {
	NodeID    string     `json:"node_id"`
	Kind      model.Kind `json:"kind"`
	Path      []string   `json:"path"`
	EdgeTypes []string   `json:"edge_types"`
}

// Scenario is a BDD scenario to re-run after a change.
type Scenario struct {
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

// ImpactResult is the Q-impact response.
type ImpactResult struct {
	Analyzed     *model.GraphNode `json:"analyzed"`
	Direct       []AffectedNode   `json:"directly_affected"`
	Transitive   []TransitiveNode `json:"transitively_affected"`
	Scenarios    []Scenario       `json:"scenarios_to_rerun"`
	TotalDirect  int              `json:"total_direct"`
	TotalIndirect int             `json:"total_indirect"`
}

// CoverageInput drives Q-coverage.
type CoverageInput struct {
	NodeID string
}

// CoverageStatus classifies one coverage category.
type CoverageStatus string

const (
	Covered        CoverageStatus = "covered"
	Missing        CoverageStatus = "missing"
	PartialCovered CoverageStatus = "partial"
)

// CoverageCategory is one required relationship class for a kind.
type CoverageCategory struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	EdgeType    string         `json:"edge_type"`
	Status      CoverageStatus `json:"status"`
	Found       []string       `json:"found"`
}

// CoverageResult is the Q-coverage response.
type CoverageResult struct {
	Analyzed        *model.GraphNode   `json:"analyzed"`
	Categories      []CoverageCategory `json:"categories"`
	Present         int                `json:"present"`
	Missing         int                `json:"missing"`
	CoveragePercent float64            `json:"coverage_percent"`
}

// ViolationsInput drives Q-layer-violations.
type ViolationsInput struct {
	Filters
}

// Violation is one reported layer violation.
type Violation struct {
	FromNode    string      `json:"from_node"`
	ToNode      string      `json:"to_node"`
	FromLayer   model.Layer `json:"from_layer"`
	ToLayer     model.Layer `json:"to_layer"`
	EdgeType    string      `json:"edge_type"`
	SourceFile  string      `json:"source_file"`
	Explanation string      `json:"explanation"`
}

// ViolationsResult is the Q-layer-violations response.
type ViolationsResult struct {
	Violations    []Violation `json:"violations"`
	TotalEdges    int         `json:"total_edges"`
	ViolationRate float64     `json:"violation_rate"` // percent, 2 decimals
}

// OrphansInput drives Q-orphans.
type OrphansInput struct {
	IncludeEdgeTypes []string
}

// OrphansResult is the Q-orphans response. It never fails; an empty index
// yields an empty result.
type OrphansResult struct {
	Orphans          []model.OrphanEdge `json:"orphans"`
	TotalOrphan      int                `json:"total_orphan"`
	TotalEdgesOnDisk int                `json:"total_edges_on_disk"`
	OrphanRate       float64            `json:"orphan_rate"` // percent, 2 decimals
}

// ContextInput drives Q-context.
type ContextInput struct {
	Hints     []string
	Depth     *int // default 1; 0 keeps only the resolved hint nodes
	MaxTokens int  // default 4000
}

// ResolvedHint records how a hint matched a node.
type ResolvedHint struct {
	NodeID      string `json:"node_id"`
	MatchedFrom string `json:"matched_from"`
	MatchMethod string `json:"match_method"` // exact | basename | text_search
}

// ContextItem is one prioritized piece of context.
type ContextItem struct {
	NodeID     string     `json:"node_id"`
	Kind       model.Kind `json:"kind"`
	Content    string     `json:"content"`
	SourceFile string     `json:"source_file"`
	ReachedVia string     `json:"reached_via"`
	Distance   int        `json:"distance"`
	Priority   int        `json:"priority"`
}

// ContextResult is the Q-context response, split into constraints
// (priority ≤ 1) and behavior (priority > 1).
type ContextResult struct {
	Resolved    []ResolvedHint `json:"resolved_entities"`
	Constraints []ContextItem  `json:"constraints"`
	Behavior    []ContextItem  `json:"behavior"`
	TotalTokens int            `json:"total_tokens"`
	Warnings    []string       `json:"warnings,omitempty"`
}
