// Package chunker splits the embeddable sections of a document into
// hierarchical chunks: paragraph-sized units enriched with ancestor-section
// summaries and a document identity line.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
	"github.com/c360studio/kddindex/rules"
)

// minFuseWords is the paragraph size below which a paragraph fuses into its
// neighbor instead of forming its own chunk.
const minFuseWords = 20

// summaryMaxChars caps each ancestor summary at its first sentence.
const summaryMaxChars = 160

// Chunk is one embedding-ready unit of text.
type Chunk struct {
	ID          string
	DocumentID  string
	SectionPath string
	Index       int // 0-based within the section
	RawText     string
	ContextText string
	TextHash    string // SHA-256 of ContextText
}

// ChunkDocument produces chunks for every embeddable section of the
// document. Kinds with an empty embeddable set (event) produce nothing, as
// do sections whose body is only a fenced or mermaid block.
func ChunkDocument(doc *model.Document) []Chunk {
	var chunks []Chunk
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		if !rules.IsEmbeddable(doc.Kind, sec.Heading) {
			continue
		}
		if sec.Fenced {
			continue
		}
		chunks = append(chunks, chunkSection(doc, sec)...)
	}
	return chunks
}

func chunkSection(doc *model.Document, sec *model.Section) []Chunk {
	texts := fuseParagraphs(sec.Paragraphs)
	// Tables are always single chunks.
	texts = append(texts, sec.Tables...)

	identity := fmt.Sprintf("[%s: %s]", doc.Kind, doc.ID)
	ancestry := ancestorSummaries(doc, sec)

	chunks := make([]Chunk, 0, len(texts))
	for i, raw := range texts {
		parts := append([]string{identity}, ancestry...)
		parts = append(parts, raw)
		context := strings.Join(parts, " > ")
		sum := sha256.Sum256([]byte(context))
		chunks = append(chunks, Chunk{
			ID:          model.EmbeddingID(doc.ID, sec.Path, i),
			DocumentID:  doc.ID,
			SectionPath: sec.Path,
			Index:       i,
			RawText:     raw,
			ContextText: context,
			TextHash:    hex.EncodeToString(sum[:]),
		})
	}
	return chunks
}

// fuseParagraphs merges short paragraphs into their successor; a trailing
// short paragraph fuses into its predecessor. Fenced blocks never chunk.
func fuseParagraphs(paragraphs []string) []string {
	var clean []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "```") {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return nil
	}

	var out []string
	var pending string
	for _, p := range clean {
		if pending != "" {
			p = pending + "\n\n" + p
			pending = ""
		}
		if len(strings.Fields(p)) < minFuseWords {
			pending = p
			continue
		}
		out = append(out, p)
	}
	if pending != "" {
		if len(out) > 0 {
			out[len(out)-1] += "\n\n" + pending
		} else {
			out = append(out, pending)
		}
	}
	return out
}

// ancestorSummaries returns the first sentence of each ancestor section's
// body, outermost first.
func ancestorSummaries(doc *model.Document, sec *model.Section) []string {
	var out []string
	for i := range doc.Sections {
		anc := &doc.Sections[i]
		if anc.Path == sec.Path {
			continue
		}
		if !strings.HasPrefix(sec.Path, anc.Path+".") {
			continue
		}
		if body := anc.Content(); strings.TrimSpace(body) != "" {
			if s := parser.FirstSentence(body, summaryMaxChars); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
