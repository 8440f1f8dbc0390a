package extract

import (
	"strings"
	"time"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

// declarationExtractor covers business-rule, business-policy and
// cross-policy: an ENTITY_RULE or ENTITY_POLICY edge to any entity
// wiki-linked from the declaration section.
type declarationExtractor struct {
	kind     model.Kind
	edgeType string
}

func (d *declarationExtractor) Kind() model.Kind { return d.kind }

func (d *declarationExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Declaración", "Declaration"); v != "" {
		fields["declaration"] = v
	}
	if v := sectionContent(doc, "Cuándo aplica", "When applies"); v != "" {
		fields["when_applies"] = v
	}
	if v := sectionContent(doc, "Propósito", "Purpose"); v != "" {
		fields["purpose"] = v
	}
	if v := sectionContent(doc, "Excepciones", "Exceptions"); v != "" {
		fields["exceptions"] = v
	}
	return buildNode(doc, d.kind, fields, now)
}

func (d *declarationExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := d.kind.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)

	if sec := doc.FindSection("Declaración", "Declaration"); sec != nil {
		for _, link := range parser.ExtractWikiLinks(sec.Content()) {
			to := ResolveLinkTarget(link.Target)
			if !strings.HasPrefix(to, "Entity:") {
				continue
			}
			edges = append(edges, linkEdge(doc, nodeID, d.edgeType, link, model.ExtractionSectionContent))
		}
	}
	return edges
}

// commandExtractor handles kind: command. Indexed fields: purpose,
// input_params, preconditions, postconditions, errors. EMITS edges come from
// event links in postconditions.
type commandExtractor struct{}

func (commandExtractor) Kind() model.Kind { return model.KindCommand }

func (commandExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Propósito", "Purpose"); v != "" {
		fields["purpose"] = v
	}
	if sec := doc.FindSection("Parámetros de Entrada", "Input Parameters", "Input"); sec != nil {
		fields["input_params"] = tableFieldRows(sec)
	}
	if sec := doc.FindSection("Precondiciones", "Preconditions"); sec != nil {
		fields["preconditions"] = listItems(sec.Content())
	}
	if sec := doc.FindSection("Postcondiciones", "Postconditions"); sec != nil {
		fields["postconditions"] = listItems(sec.Content())
	}
	if sec := doc.FindSection("Errores", "Errors"); sec != nil {
		fields["errors"] = listItems(sec.Content())
	}
	return buildNode(doc, model.KindCommand, fields, now)
}

func (commandExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindCommand.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)

	if sec := doc.FindSection("Postcondiciones", "Postconditions"); sec != nil {
		for _, link := range parser.ExtractWikiLinks(sec.Content()) {
			if strings.HasPrefix(link.Target, "EVT-") {
				edges = append(edges, linkEdge(doc, nodeID, model.EdgeEmits, link, model.ExtractionSectionContent))
			}
		}
	}
	return edges
}

// useCaseExtractor handles kind: use-case. UC_APPLIES_RULE from the applied
// rules section, UC_EXECUTES_CMD from executed commands, UC_STORY to any
// OBJ-* reference.
type useCaseExtractor struct{}

func (useCaseExtractor) Kind() model.Kind { return model.KindUseCase }

func (useCaseExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Descripción", "Description"); v != "" {
		fields["description"] = v
	}
	if sec := doc.FindSection("Precondiciones", "Preconditions"); sec != nil {
		fields["preconditions"] = listItems(sec.Content())
	}
	if v := sectionContent(doc, "Flujo Principal", "Main Flow"); v != "" {
		fields["main_flow"] = v
	}
	if v := doc.FindSectionWithChildren("Flujos Alternativos", "Alternative Flows"); v != "" {
		fields["alternative_flows"] = v
	}
	return buildNode(doc, model.KindUseCase, fields, now)
}

func (useCaseExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindUseCase.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)
	edges = append(edges, sectionEdges(doc, nodeID, model.EdgeUCAppliesRule, "Reglas Aplicadas", "Applied Rules")...)
	edges = append(edges, sectionEdges(doc, nodeID, model.EdgeUCExecutesCmd, "Comandos Ejecutados", "Executed Commands")...)

	for _, link := range doc.WikiLinks {
		if strings.HasPrefix(link.Target, "OBJ-") {
			edges = append(edges, linkEdge(doc, nodeID, model.EdgeUCStory, link, model.ExtractionImplicit))
		}
	}
	return edges
}

// uiViewExtractor handles kind: ui-view.
type uiViewExtractor struct{}

func (uiViewExtractor) Kind() model.Kind { return model.KindUIView }

func (uiViewExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Descripción", "Description"); v != "" {
		fields["description"] = v
	}
	if v := sectionContent(doc, "Comportamiento", "Behavior"); v != "" {
		fields["behavior"] = v
	}
	return buildNode(doc, model.KindUIView, fields, now)
}

func (uiViewExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindUIView.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)
	for _, link := range doc.WikiLinks {
		to := ResolveLinkTarget(link.Target)
		switch {
		case strings.HasPrefix(to, "UC:"):
			edges = append(edges, linkEdge(doc, nodeID, model.EdgeViewTriggersUC, link, model.ExtractionImplicit))
		case strings.HasPrefix(to, "UIComp:") || strings.HasPrefix(link.Target, "UI-C"):
			edges = append(edges, linkEdge(doc, nodeID, model.EdgeViewUsesComponent, link, model.ExtractionImplicit))
		}
	}
	return edges
}

// uiComponentExtractor handles kind: ui-component.
type uiComponentExtractor struct{}

func (uiComponentExtractor) Kind() model.Kind { return model.KindUIComponent }

func (uiComponentExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Descripción", "Description"); v != "" {
		fields["description"] = v
	}
	return buildNode(doc, model.KindUIComponent, fields, now)
}

func (uiComponentExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindUIComponent.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)
	for _, link := range doc.WikiLinks {
		if strings.HasPrefix(ResolveLinkTarget(link.Target), "Entity:") {
			edges = append(edges, linkEdge(doc, nodeID, model.EdgeComponentUses, link, model.ExtractionImplicit))
		}
	}
	return edges
}

// requirementExtractor handles kind: requirement. REQ_TRACES_TO edges come
// from the traceability section.
type requirementExtractor struct{}

func (requirementExtractor) Kind() model.Kind { return model.KindRequirement }

func (requirementExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Descripción", "Description"); v != "" {
		fields["description"] = v
	}
	if sec := doc.FindSection("Criterios de Aceptación", "Acceptance Criteria"); sec != nil {
		fields["acceptance_criteria"] = listItems(sec.Content())
	}
	return buildNode(doc, model.KindRequirement, fields, now)
}

func (requirementExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindRequirement.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)
	edges = append(edges, sectionEdges(doc, nodeID, model.EdgeReqTracesTo, "Trazabilidad", "Traceability")...)
	return edges
}

// adrExtractor handles kind: adr. DECIDES_FOR to every wiki-link anywhere.
type adrExtractor struct{}

func (adrExtractor) Kind() model.Kind { return model.KindADR }

func (adrExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	if v := sectionContent(doc, "Contexto", "Context"); v != "" {
		fields["context"] = v
	}
	if v := sectionContent(doc, "Decisión", "Decision"); v != "" {
		fields["decision"] = v
	}
	if v := sectionContent(doc, "Consecuencias", "Consequences"); v != "" {
		fields["consequences"] = v
	}
	return buildNode(doc, model.KindADR, fields, now)
}

func (adrExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	nodeID := model.KindADR.NodeID(doc.ID)
	edges := wikiLinkEdges(doc, nodeID)
	for _, link := range doc.WikiLinks {
		edges = append(edges, linkEdge(doc, nodeID, model.EdgeDecidesFor, link, model.ExtractionImplicit))
	}
	return edges
}

// genericExtractor covers event, query, process, objective and prd: node
// plus generic WIKI_LINK edges only.
type genericExtractor struct {
	kind model.Kind
}

func (g *genericExtractor) Kind() model.Kind { return g.kind }

func (g *genericExtractor) ExtractNode(doc *model.Document, now time.Time) *model.GraphNode {
	fields := map[string]any{}
	for _, names := range [][]string{
		{"Descripción", "Description"},
		{"Propósito", "Purpose"},
		{"Objetivo", "Objective"},
		{"Payload"},
		{"Participantes", "Participants"},
		{"Pasos", "Steps"},
		{"Problema / Oportunidad", "Problem / Opportunity"},
	} {
		if v := sectionContent(doc, names...); v != "" {
			fields[fieldKey(names[len(names)-1])] = v
		}
	}
	return buildNode(doc, g.kind, fields, now)
}

func (g *genericExtractor) ExtractEdges(doc *model.Document) []model.GraphEdge {
	return wikiLinkEdges(doc, g.kind.NodeID(doc.ID))
}

func fieldKey(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " / ", "_")
	return strings.ReplaceAll(name, " ", "_")
}
