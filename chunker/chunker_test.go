package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/model"
	"github.com/c360studio/kddindex/parser"
)

func parseEntity(t *testing.T, body string) *model.Document {
	t.Helper()
	doc, err := parser.Parse("specs/01-domain/entities/Pedido.md", []byte(body))
	require.NoError(t, err)
	doc.Kind = model.KindEntity
	return doc
}

func TestChunkDocument_OnlyEmbeddableSections(t *testing.T) {
	doc := parseEntity(t, `---
kind: entity
id: Pedido
---

# Pedido

## Descripción

Un pedido representa la intención de compra de un usuario dentro del sistema de ventas y agrupa todas sus líneas.

## Atributos

| Nombre | Tipo |
|--------|------|
| id     | UUID |
`)

	chunks := ChunkDocument(doc)
	require.Len(t, chunks, 1, "Descripción embeds, Atributos does not")

	c := chunks[0]
	assert.Equal(t, "Pedido:pedido.descripción:0", c.ID)
	assert.Equal(t, 0, c.Index)
	assert.True(t, strings.HasPrefix(c.ContextText, "[entity: Pedido]"))
	assert.Contains(t, c.ContextText, c.RawText)
	assert.Len(t, c.TextHash, 64)
}

func TestChunkDocument_ShortParagraphFusesForward(t *testing.T) {
	doc := parseEntity(t, `---
kind: entity
id: Pedido
---

## Descripción

Corto.

Este párrafo es considerablemente más largo y supera sin problema el umbral de las veinte palabras que obliga a fusionar los fragmentos cortos con el siguiente.
`)

	chunks := ChunkDocument(doc)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0].RawText, "Corto."))
}

func TestChunkDocument_TrailingShortFusesBackward(t *testing.T) {
	doc := parseEntity(t, `---
kind: entity
id: Pedido
---

## Descripción

Este primer párrafo es considerablemente más largo y supera sin dificultad alguna el umbral de las veinte palabras que define un fragmento completo del texto.

Final corto.
`)

	chunks := ChunkDocument(doc)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasSuffix(chunks[0].RawText, "Final corto."))
}

func TestChunkDocument_TableIsSingleChunk(t *testing.T) {
	doc := parseEntity(t, `---
kind: entity
id: Pedido
---

## Descripción

Texto descriptivo suficientemente largo para constituir su propio fragmento de acuerdo con el umbral de veinte palabras definido por el algoritmo de fusión.

| Estado | Significado |
|--------|-------------|
| creado | Recién creado |
`)

	chunks := ChunkDocument(doc)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1].RawText, "| Estado |"))
}

func TestChunkDocument_EventNeverEmbeds(t *testing.T) {
	doc, err := parser.Parse("specs/01-domain/events/EVT-X.md", []byte(`---
kind: event
id: EVT-X
---

## Descripción

Un evento con texto más que suficiente para ser embebido si los eventos no estuvieran excluidos por regla.
`))
	require.NoError(t, err)
	doc.Kind = model.KindEvent

	assert.Empty(t, ChunkDocument(doc))
}

func TestChunkDocument_MermaidOnlySectionSkipped(t *testing.T) {
	doc := parseEntity(t, "---\nkind: entity\nid: Pedido\n---\n\n## Descripción\n\n```mermaid\nflowchart TD\n```\n")
	assert.Empty(t, ChunkDocument(doc))
}

func TestChunkDocument_DeterministicHash(t *testing.T) {
	body := `---
kind: entity
id: Pedido
---

## Descripción

Texto estable que produce siempre el mismo hash de contexto sin importar cuántas veces se ejecute el fragmentador sobre el documento.
`
	a := ChunkDocument(parseEntity(t, body))
	b := ChunkDocument(parseEntity(t, body))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].TextHash, b[0].TextHash)
	assert.Equal(t, a[0].ID, b[0].ID)
}
