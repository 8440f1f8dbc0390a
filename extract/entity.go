package extract

import (
	"strings"
	"time"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

// entityExtractor handles kind: entity. Indexed fields: description,
// attributes, relations, invariants, state_machine. Edges: DOMAIN_RELATION
// (plus a business edge per relation name), EMITS/CONSUMES from lifecycle
// event sections, WIKI_LINK for everything else.
type entityExtractor struct{}

func (entityExtractor) Kind() model.Kind { return model.KindEntity }

func (entityExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Descripción", "Description"); v != "" {
		fields["description"] = v
	}
	if sec := doc.FindSection("Atributos", "Attributes"); sec != nil {
		fields["attributes"] = tableFieldRows(sec)
	}
	if sec := doc.FindSection("Relaciones", "Relations", "Relationships"); sec != nil {
		fields["relations"] = tableFieldRows(sec)
	}
	if sec := doc.FindSection("Invariantes", "Invariants", "Constraints"); sec != nil {
		fields["invariants"] = listItems(sec.Content())
	}
	if v := sectionContent(doc, "Ciclo de Vida", "Lifecycle", "State Machine"); v != "" {
		fields["state_machine"] = v
	}
	return buildNode(doc, model.KindEntity, fields, now)
}

func (entityExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindEntity.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)

	if sec := doc.FindSection("Relaciones", "Relations", "Relationships"); sec != nil {
		edges = append(edges, relationEdges(doc, sec, nodeID)...)
	}

	for i := range doc.Sections {
		sec := &doc.Sections[i]
		switch strings.ToLower(sec.Heading) {
		case "eventos del ciclo de vida", "lifecycle events", "eventos emitidos", "emitted events":
			edges = append(edges, eventEdges(doc, sec, nodeID, model.EdgeEmits)...)
		case "eventos consumidos", "consumed events":
			edges = append(edges, eventEdges(doc, sec, nodeID, model.EdgeConsumes)...)
		}
	}
	return edges
}

// tableFieldRows flattens a section's tables into indexed-field rows.
func tableFieldRows(sec *model.Section) []map[string]string {
	var rows []map[string]string
	for _, table := range sec.Tables {
		for _, r := range ParseTable(table) {
			rows = append(rows, r.Cells)
		}
	}
	return rows
}

// relationEdges emits one DOMAIN_RELATION per relations-table row plus a
// lower-snake business edge named after the relation.
func relationEdges(doc *model.Document, sec *model.Section, fromNode string) []model.GraphEdge {
	var edges []model.GraphEdge
	for _, table := range sec.Tables {
		for _, row := range ParseTable(table) {
			var link *model.WikiLink
			for _, h := range row.Order {
				if links := parser.ExtractWikiLinks(row.Cells[h]); len(links) > 0 {
					link = &links[0]
					break
				}
			}
			if link == nil {
				continue
			}

			relName := strings.TrimSpace(row.First())
			cardinality := row.Get("Cardinalidad", "Cardinality")

			rel := linkEdge(doc, fromNode, model.EdgeDomainRelation, *link, model.ExtractionSectionContent)
			if rel.Metadata == nil {
				rel.Metadata = map[string]string{}
			}
			rel.Metadata["relation"] = relName
			if cardinality != "" {
				rel.Metadata["cardinality"] = cardinality
			}
			edges = append(edges, rel)

			if business := businessEdgeName(relName); business != "" {
				be := linkEdge(doc, fromNode, business, *link, model.ExtractionSectionContent)
				be.Bidirectional = false
				edges = append(edges, be)
			}
		}
	}
	return edges
}

// businessEdgeName normalizes a relation name to lower snake_case. Names
// that do not normalize to an identifier produce no business edge.
func businessEdgeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r < 0x80 {
			return ""
		}
	}
	if name == "" || strings.ToUpper(name) == name {
		return ""
	}
	return name
}

// eventEdges links event wiki-links (EVT-*) in a section to the entity.
func eventEdges(doc *model.Document, sec *model.Section, fromNode, edgeType string) []model.GraphEdge {
	var edges []model.GraphEdge
	for _, link := range parser.ExtractWikiLinks(sec.Content()) {
		if !strings.HasPrefix(link.Target, "EVT-") {
			continue
		}
		edges = append(edges, linkEdge(doc, fromNode, edgeType, link, model.ExtractionWikiLink))
	}
	return edges
}
