package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/types"
)

func testChunk(id, docID, text string, vector []float32, extra map[string]string) Chunk {
	meta := types.ChunkMetadata{DocumentID: docID, Title: "doc " + docID}.ToMap()
	for k, v := range extra {
		meta[k] = v
	}
	return Chunk{ID: id, Text: text, Vector: vector, Metadata: meta}
}

func TestMemoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, []Chunk{
		testChunk("1_chunk_0", "1", "tax id letter", []float32{1, 0, 0}, map[string]string{types.MetaDocumentType: "Brief"}),
		testChunk("2_chunk_0", "2", "amazon invoice", []float32{0, 1, 0}, map[string]string{types.MetaDocumentType: "Rechnung"}),
		testChunk("3_chunk_0", "3", "rental contract", []float32{0.9, 0.1, 0}, map[string]string{types.MetaDocumentType: "Vertrag"}),
	}))

	t.Run("orders by ascending distance", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0, 0}, 3, nil)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "1_chunk_0", hits[0].ChunkID)
		assert.Equal(t, "3_chunk_0", hits[1].ChunkID)
		assert.Equal(t, "2_chunk_0", hits[2].ChunkID)
		assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
		assert.LessOrEqual(t, hits[1].Distance, hits[2].Distance)
	})

	t.Run("truncates to k", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0, 0}, 1, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "1_chunk_0", hits[0].ChunkID)
	})

	t.Run("where restricts candidates", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0, 0}, 3, map[string]string{
			types.MetaDocumentType: "Rechnung",
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "2_chunk_0", hits[0].ChunkID)
		assert.Equal(t, "2", hits[0].DocumentID)
	})

	t.Run("no match yields empty, not error", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0, 0}, 3, map[string]string{
			types.MetaDocumentType: "Urkunde",
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, []Chunk{
		testChunk("7_chunk_0", "7", "part one", []float32{1, 0}, nil),
		testChunk("7_chunk_1", "7", "part two", []float32{0, 1}, nil),
		testChunk("8_chunk_0", "8", "other doc", []float32{1, 1}, nil),
	}))

	t.Run("exists and get", func(t *testing.T) {
		ok, err := store.Exists(ctx, "7_chunk_0")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "9_chunk_0")
		require.NoError(t, err)
		assert.False(t, ok)

		c, err := store.Get(ctx, "7_chunk_1")
		require.NoError(t, err)
		assert.Equal(t, "part two", c.Text)
		assert.Equal(t, "7", c.Metadata[types.MetaDocumentID])

		_, err = store.Get(ctx, "9_chunk_0")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, []Chunk{
			testChunk("8_chunk_0", "8", "revised text", []float32{1, 1}, nil),
		}))
		c, err := store.Get(ctx, "8_chunk_0")
		require.NoError(t, err)
		assert.Equal(t, "revised text", c.Text)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete document removes all its chunks", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, "7"))

		ok, err := store.Exists(ctx, "7_chunk_0")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete all empties the store", func(t *testing.T) {
		require.NoError(t, store.DeleteAll(ctx))
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, cosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 1.0, cosineDistance([]float32{1}, []float32{1, 0}))
}
