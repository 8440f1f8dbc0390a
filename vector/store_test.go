package vector

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kddindex/model"
)

func emb(id, docID string, kind model.Kind, vec ...float32) model.Embedding {
	return model.Embedding{
		ID: id, DocumentID: docID, DocumentKind: kind,
		Vector: model.Vector(vec), Dimensions: len(vec),
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	s, err := Build(3, []model.Embedding{
		emb("a:d:0", "a", model.KindEntity, 1, 0, 0),
		emb("b:d:0", "b", model.KindEntity, 0.9, 0.1, 0),
		emb("c:d:0", "c", model.KindEntity, 0, 1, 0),
	})
	require.NoError(t, err)

	hits, err := s.Search(model.Vector{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a:d:0", hits[0].EmbeddingID)
	assert.Equal(t, "b:d:0", hits[1].EmbeddingID)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, float32(0))
		assert.LessOrEqual(t, h.Score, float32(1))
	}
}

func TestSearchKindFilter(t *testing.T) {
	s, err := Build(2, []model.Embedding{
		emb("a:d:0", "a", model.KindEntity, 1, 0),
		emb("b:d:0", "b", model.KindUseCase, 1, 0.01),
	})
	require.NoError(t, err)

	hits, err := s.Search(model.Vector{1, 0}, 5, model.KindUseCase)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b:d:0", hits[0].EmbeddingID)
}

func TestRemoveDocument(t *testing.T) {
	s, err := Build(2, []model.Embedding{
		emb("a:s:0", "a", model.KindEntity, 1, 0),
		emb("a:s:1", "a", model.KindEntity, 0.9, 0.1),
		emb("b:s:0", "b", model.KindEntity, 0.8, 0.2),
	})
	require.NoError(t, err)

	s.RemoveDocument("a")
	assert.Equal(t, 1, s.Len())

	hits, err := s.Search(model.Vector{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b:s:0", hits[0].EmbeddingID)
}

func TestDimensionMismatch(t *testing.T) {
	s := NewStore(3)
	err := s.Add(emb("a:d:0", "a", model.KindEntity, 1, 0))
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)

	_, err = s.Search(model.Vector{1, 0}, 3)
	require.ErrorAs(t, err, &dimErr)
}

func TestRecallOnClusteredVectors(t *testing.T) {
	// Two clusters in 8 dimensions; the nearest neighbor of a cluster-A
	// probe must come from cluster A.
	var embs []model.Embedding
	for i := 0; i < 50; i++ {
		vecA := make(model.Vector, 8)
		vecB := make(model.Vector, 8)
		for d := 0; d < 8; d++ {
			vecA[d] = float32(math.Sin(float64(i*8+d))) * 0.05
			vecB[d] = float32(math.Sin(float64(i*8+d))) * 0.05
		}
		vecA[0] += 1
		vecB[7] += 1
		embs = append(embs,
			emb(fmt.Sprintf("a%02d:s:0", i), fmt.Sprintf("a%02d", i), model.KindEntity, vecA...),
			emb(fmt.Sprintf("b%02d:s:0", i), fmt.Sprintf("b%02d", i), model.KindEntity, vecB...),
		)
	}
	s, err := Build(8, embs)
	require.NoError(t, err)

	probe := make(model.Vector, 8)
	probe[0] = 1
	hits, err := s.Search(probe, 10)
	require.NoError(t, err)
	require.Len(t, hits, 10)
	for _, h := range hits {
		assert.Equal(t, byte('a'), h.EmbeddingID[0], "cluster A expected, got %s", h.EmbeddingID)
	}
}

func TestBuildDeterministic(t *testing.T) {
	embs := []model.Embedding{
		emb("c:s:0", "c", model.KindEntity, 0, 1),
		emb("a:s:0", "a", model.KindEntity, 1, 0),
		emb("b:s:0", "b", model.KindEntity, 0.7, 0.7),
	}
	s1, err := Build(2, embs)
	require.NoError(t, err)
	// Same input in a different order builds the same structure.
	s2, err := Build(2, []model.Embedding{embs[1], embs[2], embs[0]})
	require.NoError(t, err)

	h1, err := s1.Search(model.Vector{1, 0.1}, 3)
	require.NoError(t, err)
	h2, err := s2.Search(model.Vector{1, 0.1}, 3)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
