// Package parser turns KDD spec files into Documents: front-matter, section
// tree, wiki-links, tables, and the content hash.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/rules"
)

// SkipReason explains why a file produced no Document.
type SkipReason string

const (
	SkipNoFrontMatter SkipReason = "no_front_matter"
	SkipEmptyFile     SkipReason = "empty_file"
)

// Skipped is returned when a file is not a KDD artifact. It is not an
// engine failure; non-front-matter files are silently ignored.
type Skipped struct {
	Path   string
	Reason SkipReason
}

func (s *Skipped) Error() string {
	return fmt.Sprintf("skipped %s: %s", s.Path, s.Reason)
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Parse builds a Document from a file's path and raw bytes. The source hash
// covers the full raw bytes, before any normalization. Returns *Skipped for
// files without front-matter.
func Parse(path string, raw []byte) (*model.Document, error) {
	sourceHash := sha256.Sum256(raw)

	content := bytes.TrimPrefix(raw, bom)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &Skipped{Path: path, Reason: SkipEmptyFile}
	}

	frontMatter, body, err := splitFrontMatter(string(content))
	if err != nil {
		return nil, &Skipped{Path: path, Reason: SkipNoFrontMatter}
	}

	doc := &model.Document{
		ID:          documentID(path, frontMatter),
		SourcePath:  path,
		SourceHash:  hex.EncodeToString(sourceHash[:]),
		FrontMatter: frontMatter,
		Sections:    parseSections(body),
	}
	doc.WikiLinks = extractDocumentLinks(doc.Sections)
	if layer, ok := rules.LayerOfPath(path); ok {
		doc.Layer = layer
	} else {
		doc.Layer = model.LayerDomain
	}
	doc.Domain = rules.DomainOfPath(path)
	return doc, nil
}

// splitFrontMatter extracts the YAML block delimited by --- at byte 0.
func splitFrontMatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, "", fmt.Errorf("no front-matter delimiter")
	}
	start := 3
	for start < len(content) && (content[start] == '\r' || content[start] == '\n') {
		start++
		if content[start-1] == '\n' {
			break
		}
	}

	closeIdx := strings.Index(content[start:], "\n---")
	if closeIdx < 0 {
		return nil, "", fmt.Errorf("no closing front-matter delimiter")
	}
	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + 3
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return nil, "", fmt.Errorf("parse YAML front-matter: %w", err)
	}
	if len(fm) == 0 {
		return nil, "", fmt.Errorf("empty front-matter")
	}
	return fm, body, nil
}

// documentID prefers an explicit front-matter id, falling back to the file
// base name without extension.
func documentID(path string, fm map[string]any) string {
	if id, ok := fm["id"].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseSections lexes a markdown body into the flat section list. ATX
// headings define nesting; paragraphs split on blank lines; pipe-tables and
// fenced blocks are captured whole.
func parseSections(body string) []model.Section {
	var sections []model.Section

	var headings []string
	var levels []int
	var buf []string

	flush := func() {
		if len(headings) == 0 {
			buf = nil
			return
		}
		s := model.Section{
			Heading: headings[len(headings)-1],
			Level:   levels[len(levels)-1],
			Path:    anchorPath(headings),
		}
		fillBody(&s, buf)
		sections = append(sections, s)
		buf = nil
	}

	lines := strings.Split(body, "\n")
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}
		if inFence {
			buf = append(buf, line)
			continue
		}
		if level := headingLevel(line); level > 0 {
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			for len(levels) > 0 && levels[len(levels)-1] >= level {
				levels = levels[:len(levels)-1]
				headings = headings[:len(headings)-1]
			}
			headings = append(headings, heading)
			levels = append(levels, level)
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0
	}
	if n == len(line) || line[n] == ' ' || line[n] == '\t' {
		return n
	}
	return 0
}

// fillBody partitions raw lines into paragraphs, whole tables, and fenced
// blocks, and marks fence-only sections.
func fillBody(s *model.Section, lines []string) {
	var para []string
	var table []string
	inFence := false
	var fence []string
	sawText := false

	flushPara := func() {
		if len(para) > 0 {
			s.Paragraphs = append(s.Paragraphs, strings.Join(para, "\n"))
			para = nil
			sawText = true
		}
	}
	flushTable := func() {
		if len(table) > 0 {
			s.Tables = append(s.Tables, strings.Join(table, "\n"))
			table = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				fence = append(fence, line)
				s.Paragraphs = append(s.Paragraphs, strings.Join(fence, "\n"))
				fence = nil
				inFence = false
			} else {
				flushPara()
				flushTable()
				inFence = true
				fence = append(fence, line)
			}
			continue
		}
		if inFence {
			fence = append(fence, line)
			continue
		}
		switch {
		case trimmed == "":
			flushPara()
			flushTable()
		case strings.HasPrefix(trimmed, "|"):
			flushPara()
			table = append(table, trimmed)
		default:
			flushTable()
			para = append(para, line)
		}
	}
	if inFence {
		// Unterminated fence — keep what we have.
		s.Paragraphs = append(s.Paragraphs, strings.Join(fence, "\n"))
	}
	flushPara()
	flushTable()

	s.Fenced = !sawText && len(s.Tables) == 0 && allFenced(s.Paragraphs)
}

func allFenced(paragraphs []string) bool {
	if len(paragraphs) == 0 {
		return false
	}
	for _, p := range paragraphs {
		if !strings.HasPrefix(strings.TrimSpace(p), "```") {
			return false
		}
	}
	return true
}

var nonAnchor = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)

// anchorPath builds the dot-separated hierarchical path from the heading
// ancestry, each converted to a GitHub-compatible anchor slug.
func anchorPath(headings []string) string {
	parts := make([]string, len(headings))
	for i, h := range headings {
		parts[i] = Anchor(h)
	}
	return strings.Join(parts, ".")
}

// Anchor converts a heading to its anchor slug: lowercase, strip
// non-alphanumerics, spaces to hyphens.
func Anchor(heading string) string {
	text := strings.ToLower(heading)
	text = nonAnchor.ReplaceAllString(text, "")
	text = strings.Join(strings.FieldsFunc(text, unicode.IsSpace), "-")
	return strings.Trim(text, "-")
}
