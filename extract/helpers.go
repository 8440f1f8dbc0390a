package extract

import (
	"strings"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

// linkPrefixes resolves a wiki-link target to a node-ID prefix by its naming
// convention. Targets without a recognized prefix default to Entity.
var linkPrefixes = []struct {
	targetPrefix string
	nodePrefix   string
}{
	{"EVT-", "Event"},
	{"BR-", "BR"},
	{"BP-", "BP"},
	{"XP-", "XP"},
	{"CMD-", "CMD"},
	{"QRY-", "QRY"},
	{"UC-", "UC"},
	{"PROC-", "PROC"},
	{"REQ-", "REQ"},
	{"OBJ-", "OBJ"},
	{"ADR-", "ADR"},
	{"PRD-", "PRD"},
	{"UI-", "UIView"},
}

// ResolveLinkTarget maps a wiki-link target name to a node ID.
func ResolveLinkTarget(target string) string {
	for _, p := range linkPrefixes {
		if strings.HasPrefix(target, p.targetPrefix) {
			return p.nodePrefix + ":" + target
		}
	}
	return "Entity:" + target
}

// layerOfNodeID guesses the destination layer from a node-ID prefix.
func layerOfNodeID(nodeID string) (model.Layer, bool) {
	prefix, _, ok := strings.Cut(nodeID, ":")
	if !ok {
		return "", false
	}
	switch prefix {
	case "Entity", "Event", "BR":
		return model.LayerDomain, true
	case "BP", "XP", "CMD", "QRY", "PROC", "UC":
		return model.LayerBehavior, true
	case "UIView", "UIComp":
		return model.LayerExperience, true
	case "REQ":
		return model.LayerVerification, true
	case "OBJ", "PRD", "ADR":
		return model.LayerRequirements, true
	}
	return "", false
}

// linkEdge builds one edge from a wiki-link. Cross-domain links become
// CROSS_DOMAIN_REF with the target qualified by the foreign namespace.
func linkEdge(doc *model.Document, fromNode, edgeType string, link model.WikiLink, method string) model.GraphEdge {
	to := ResolveLinkTarget(link.Target)
	meta := map[string]string{}
	if link.Alias != "" {
		meta["display_alias"] = link.Alias
	}
	if link.Domain != "" {
		edgeType = model.EdgeCrossDomainRef
		meta["domain"] = link.Domain
		to = link.Domain + "::" + to
	}
	if len(meta) == 0 {
		meta = nil
	}
	return model.GraphEdge{
		FromNode:         fromNode,
		ToNode:           to,
		EdgeType:         edgeType,
		SourceFile:       doc.SourcePath,
		ExtractionMethod: method,
		Metadata:         meta,
		Bidirectional:    edgeType == model.EdgeWikiLink,
	}
}

// wikiLinkEdges produces the generic WIKI_LINK edges for every link in the
// document.
func wikiLinkEdges(doc *model.Document, fromNode string) []model.GraphEdge {
	out := make([]model.GraphEdge, 0, len(doc.WikiLinks))
	for _, link := range doc.WikiLinks {
		out = append(out, linkEdge(doc, fromNode, model.EdgeWikiLink, link, model.ExtractionWikiLink))
	}
	return out
}

// sectionEdges builds edges of the given type for every wiki-link inside the
// named sections.
func sectionEdges(doc *model.Document, fromNode, edgeType string, sections ...string) []model.GraphEdge {
	sec := doc.FindSection(sections...)
	if sec == nil {
		return nil
	}
	var out []model.GraphEdge
	for _, link := range parser.ExtractWikiLinks(sec.Content()) {
		out = append(out, linkEdge(doc, fromNode, edgeType, link, model.ExtractionSectionContent))
	}
	return out
}

// TableRow is one parsed pipe-table row keyed by header cell.
type TableRow struct {
	Cells map[string]string
	Order []string // header order for first-column access
}

// First returns the first cell value of the row.
func (r TableRow) First() string {
	if len(r.Order) == 0 {
		return ""
	}
	return r.Cells[r.Order[0]]
}

// Get looks a cell up by any of the given header names.
func (r TableRow) Get(headers ...string) string {
	for _, h := range headers {
		if v, ok := r.Cells[h]; ok {
			return v
		}
	}
	return ""
}

// ParseTable parses a markdown pipe-table into rows keyed by header.
func ParseTable(table string) []TableRow {
	var lines []string
	for _, l := range strings.Split(table, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "|") {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil
	}
	headers := splitRow(lines[0])
	var rows []TableRow
	for _, line := range lines[2:] { // skip separator
		cells := splitRow(line)
		if len(cells) < len(headers) {
			continue
		}
		row := TableRow{Cells: make(map[string]string, len(headers)), Order: headers}
		for i, h := range headers {
			row.Cells[h] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func splitRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(strings.TrimSpace(p), "`")
	}
	return out
}

// listItems extracts "- item" and "* item" entries from content.
func listItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			items = append(items, strings.TrimSpace(line[2:]))
		}
	}
	return items
}

// sectionContent returns the trimmed content of the first matching section.
func sectionContent(doc *model.Document, names ...string) string {
	if s := doc.FindSection(names...); s != nil {
		return strings.TrimSpace(s.Content())
	}
	return ""
}
