package paperqa

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/types"
	"github.com/paperqa/paperqa/pkg/vectorstore"
)

func newIndexingClient(t *testing.T, source *fakeSource) (*Client, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	client, err := NewClient(source, &fakeEmbedder{}, &fakeLLM{response: "ok"}, store, testConfig(), nil)
	require.NoError(t, err)
	return client, store
}

func TestIndexDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes and is idempotent", func(t *testing.T) {
		source := newFakeSource(types.Document{
			ID: "1", Title: "Steuerbescheid", Content: "Ihre Steuernummer lautet 12/345/67890.",
		})
		client, store := newIndexingClient(t, source)

		status, err := client.IndexDocument(ctx, types.Document{ID: "1", Title: "Steuerbescheid"}, false)
		require.NoError(t, err)
		assert.Equal(t, types.IndexStatusIndexed, status)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		status, err = client.IndexDocument(ctx, types.Document{ID: "1", Title: "Steuerbescheid"}, false)
		require.NoError(t, err)
		assert.Equal(t, types.IndexStatusSkipped, status, "unchanged document must be skipped")
	})

	t.Run("changed content replaces stale chunks", func(t *testing.T) {
		long := strings.Repeat("Die Steuernummer steht im Bescheid. ", 60) // several chunks
		source := newFakeSource(types.Document{ID: "1", Title: "Bescheid", Content: long})
		client, store := newIndexingClient(t, source)

		_, err := client.IndexDocument(ctx, types.Document{ID: "1"}, false)
		require.NoError(t, err)
		before, _ := store.Count(ctx)
		require.Greater(t, before, 1)

		source.setContent("1", "Kurzer neuer Inhalt mit Steuernummer.")
		status, err := client.IndexDocument(ctx, types.Document{ID: "1"}, false)
		require.NoError(t, err)
		assert.Equal(t, types.IndexStatusIndexed, status)

		after, _ := store.Count(ctx)
		assert.Equal(t, 1, after, "shrunk document must leave no stale chunks")
	})

	t.Run("force re-indexes unchanged documents", func(t *testing.T) {
		source := newFakeSource(types.Document{ID: "1", Content: "Rechnung 59,99 EUR"})
		client, _ := newIndexingClient(t, source)

		_, err := client.IndexDocument(ctx, types.Document{ID: "1"}, false)
		require.NoError(t, err)

		status, err := client.IndexDocument(ctx, types.Document{ID: "1"}, true)
		require.NoError(t, err)
		assert.Equal(t, types.IndexStatusIndexed, status)
	})

	t.Run("empty content is skipped", func(t *testing.T) {
		source := newFakeSource(types.Document{ID: "1", Content: "   "})
		client, _ := newIndexingClient(t, source)

		status, err := client.IndexDocument(ctx, types.Document{ID: "1"}, false)
		require.NoError(t, err)
		assert.Equal(t, types.IndexStatusSkipped, status)
	})

	t.Run("chunk ids are derived from document id and index", func(t *testing.T) {
		long := strings.Repeat("Absatz über den Mietvertrag. ", 80)
		source := newFakeSource(types.Document{ID: "42", Content: long})
		client, store := newIndexingClient(t, source)

		_, err := client.IndexDocument(ctx, types.Document{ID: "42"}, false)
		require.NoError(t, err)

		ok, err := store.Exists(ctx, "42_chunk_0")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = store.Exists(ctx, "42_chunk_1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestIndexAll(t *testing.T) {
	ctx := context.Background()

	t.Run("counts outcomes and isolates failures", func(t *testing.T) {
		source := newFakeSource(
			types.Document{ID: "1", Content: "Steuernummer 12/345"},
			types.Document{ID: "2", Content: "Rechnung 59,99 EUR"},
			types.Document{ID: "3", Content: "FAIL marker makes the embedder reject this"},
			types.Document{ID: "4", Content: ""},
		)
		client, _ := newIndexingClient(t, source)

		stats, err := client.IndexAll(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Indexed)
		assert.Equal(t, 1, stats.Skipped, "empty document is skipped")
		assert.Equal(t, 1, stats.Failed, "one failing document must not abort the run")
		assert.Equal(t, 4, stats.Total())
	})

	t.Run("second run skips everything", func(t *testing.T) {
		source := newFakeSource(
			types.Document{ID: "1", Content: "Steuernummer 12/345"},
			types.Document{ID: "2", Content: "Rechnung 59,99 EUR"},
		)
		client, _ := newIndexingClient(t, source)

		_, err := client.IndexAll(ctx, false)
		require.NoError(t, err)

		stats, err := client.IndexAll(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Indexed)
		assert.Equal(t, 2, stats.Skipped)
	})

	t.Run("concurrent run is rejected", func(t *testing.T) {
		source := newFakeSource(types.Document{ID: "1", Content: "Rechnung"})
		client, _ := newIndexingClient(t, source)

		require.True(t, client.indexing.acquire())
		defer client.indexing.release()

		_, err := client.IndexAll(ctx, false)
		assert.ErrorIs(t, err, ErrIndexingInProgress)
	})
}

func TestMaintainer(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(
		types.Document{ID: "1", Content: "Steuernummer 12/345"},
		types.Document{ID: "2", Content: "Rechnung 59,99 EUR"},
	)
	client, store := newIndexingClient(t, source)

	_, err := client.IndexAll(ctx, false)
	require.NoError(t, err)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.IndexedChunks)

	require.NoError(t, client.DeleteDocument(ctx, "1"))
	n, _ := store.Count(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, client.Reset(ctx))
	n, _ = store.Count(ctx)
	assert.Equal(t, 0, n)
}
