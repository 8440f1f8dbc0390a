package parser

import (
	"regexp"
	"strings"

	"github.com/c360studio/kddindex/model"
)

var wikiLinkRE = regexp.MustCompile(`\[\[([^\]|]+)(\|[^\]]+)?\]\]`)

// ExtractWikiLinks parses all [[...]] references from content, preserving
// order of occurrence. Handles [[Target]], [[Target|Alias]], and the
// cross-domain form [[domain::Target]].
func ExtractWikiLinks(content string) []model.WikiLink {
	var out []model.WikiLink
	for _, m := range wikiLinkRE.FindAllStringSubmatch(content, -1) {
		raw := strings.TrimSpace(m[1])
		if m[2] != "" {
			raw += m[2]
		}
		target := strings.TrimSpace(m[1])
		link := model.WikiLink{Raw: raw, Target: target}

		if domain, rest, ok := strings.Cut(link.Target, "::"); ok {
			link.Domain = strings.TrimSpace(domain)
			link.Target = strings.TrimSpace(rest)
		}
		if alias := strings.TrimPrefix(m[2], "|"); alias != "" {
			link.Alias = strings.TrimSpace(alias)
		}
		if link.Target == "" {
			continue
		}
		out = append(out, link)
	}
	return out
}

// extractDocumentLinks collects wiki-links across all sections, tagging each
// with its originating section path.
func extractDocumentLinks(sections []model.Section) []model.WikiLink {
	var out []model.WikiLink
	for _, s := range sections {
		for _, l := range ExtractWikiLinks(s.Content()) {
			l.Section = s.Path
			out = append(out, l)
		}
	}
	return out
}
