package paperqa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/filters"
	"github.com/paperqa/paperqa/pkg/types"
	"github.com/paperqa/paperqa/pkg/vectorstore"
)

func seedCorpus(t *testing.T, store *vectorstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	upsert := func(docID string, idx int, text string, meta types.ChunkMetadata) {
		meta.DocumentID = docID
		meta.ChunkIndex = idx
		vec := keywordVector(text)
		require.NoError(t, store.Upsert(ctx, []vectorstore.Chunk{{
			ID:       types.ChunkID(docID, idx),
			Text:     text,
			Vector:   vec,
			Metadata: meta.ToMap(),
		}}))
	}

	upsert("1", 0, "Ihre Steuernummer lautet 12/345/67890.", types.ChunkMetadata{
		Title: "Steuerbescheid", Correspondent: "Finanzamt", DocumentType: "Brief",
		Created: "2024-03-15", Tags: "wichtig",
	})
	// Second chunk of the same document, slightly off-axis.
	upsert("1", 1, "Weitere Hinweise zur Steuernummer und Fristen.", types.ChunkMetadata{
		Title: "Steuerbescheid", Correspondent: "Finanzamt", DocumentType: "Brief",
		Created: "2024-03-15", Tags: "wichtig",
	})
	upsert("2", 0, "Rechnung über 59,99 EUR.", types.ChunkMetadata{
		Title: "Amazon Rechnung", Correspondent: "Amazon", DocumentType: "Rechnung",
		Created: "2024-06-01",
	})
	upsert("3", 0, "Rechnung über 89,00 EUR.", types.ChunkMetadata{
		Title: "Telekom Rechnung", Correspondent: "Telekom", DocumentType: "Rechnung",
		Created: "2023-02-01",
	})
	upsert("4", 0, "Der Mietvertrag beginnt am 1. Februar 2019.", types.ChunkMetadata{
		Title: "Mietvertrag", Correspondent: "Hausverwaltung", DocumentType: "Vertrag",
		Created: "2019-01-15",
	})
}

func newSearchClient(t *testing.T, cfg *Config, opts ...Option) (*Client, *fakeLLM) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	seedCorpus(t, store)
	llm := &fakeLLM{response: "Laut Dokument 1 lautet die Steuernummer 12/345/67890. Sie wurde vom Finanzamt im Steuerbescheid vom 15.03.2024 mitgeteilt."}
	client, err := NewClient(nil, &fakeEmbedder{}, llm, store, cfg, nil, opts...)
	require.NoError(t, err)
	return client, llm
}

func TestSearchDeduplicatesByDocument(t *testing.T) {
	client, _ := newSearchClient(t, testConfig())

	result, err := client.Search(context.Background(), "Wo steht meine Steuernummer?", 3, nil)
	require.NoError(t, err)
	require.False(t, result.Degraded)

	// Document 1 has two matching chunks; only one hit may survive.
	seen := make(map[string]int)
	for _, hit := range result.Hits {
		seen[hit.DocumentID]++
	}
	for docID, count := range seen {
		assert.Equal(t, 1, count, "document %s appears %d times", docID, count)
	}
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "1", result.Hits[0].DocumentID, "best match must come first")
}

func TestSearchOrdersByAscendingDistance(t *testing.T) {
	client, _ := newSearchClient(t, testConfig())

	result, err := client.Search(context.Background(), "Wo steht meine Steuernummer?", 4, nil)
	require.NoError(t, err)
	for i := 1; i < len(result.Hits); i++ {
		assert.LessOrEqual(t, result.Hits[i-1].Distance, result.Hits[i].Distance)
	}
}

func TestSearchTruncatesToK(t *testing.T) {
	client, _ := newSearchClient(t, testConfig())

	result, err := client.Search(context.Background(), "Rechnung", 1, nil)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)
}

func TestSearchSynonymExpansion(t *testing.T) {
	// "Steuer ID" never appears in the corpus; only the expanded query
	// containing "Steuernummer" lands near document 1.
	client, _ := newSearchClient(t, testConfig())

	result, err := client.Search(context.Background(), "Wie lautet meine Steuer ID?", 1, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "1", result.Hits[0].DocumentID)
}

func TestSearchWithFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit filter narrows natively and post-hoc", func(t *testing.T) {
		client, _ := newSearchClient(t, testConfig())

		result, err := client.Search(ctx, "Rechnung", 5, &types.Filter{
			DocumentType:  "Rechnung",
			Correspondent: "Amazon",
			Year:          "2024",
		})
		require.NoError(t, err)
		require.Len(t, result.Hits, 1)
		assert.Equal(t, "2", result.Hits[0].DocumentID)
	})

	t.Run("year filter works as prefix on the created date", func(t *testing.T) {
		client, _ := newSearchClient(t, testConfig())

		result, err := client.Search(ctx, "Rechnung", 5, &types.Filter{Year: "2023"})
		require.NoError(t, err)
		require.Len(t, result.Hits, 1)
		assert.Equal(t, "3", result.Hits[0].DocumentID)
	})

	t.Run("tag filter matches the tag list", func(t *testing.T) {
		client, _ := newSearchClient(t, testConfig())

		result, err := client.Search(ctx, "Steuernummer", 5, &types.Filter{Tags: []string{"wichtig"}})
		require.NoError(t, err)
		require.Len(t, result.Hits, 1)
		assert.Equal(t, "1", result.Hits[0].DocumentID)
	})

	t.Run("auto filter extraction from the question", func(t *testing.T) {
		cfg := testConfig()
		cfg.Retrieval.AutoFilters = true
		extractor := filters.NewRulesExtractor(filters.Vocabulary{
			DocumentTypes:  []string{"Rechnung", "Vertrag"},
			Correspondents: []string{"Amazon", "Telekom"},
		})
		client, _ := newSearchClient(t, cfg, WithFilterExtractor(extractor))

		result, err := client.Search(ctx, "Zeige mir Rechnungen von Amazon aus 2024", 5, nil)
		require.NoError(t, err)
		require.Len(t, result.Hits, 1)
		assert.Equal(t, "2", result.Hits[0].DocumentID)
	})
}

func TestSearchDegradedOnBackendFailure(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	embedder := &fakeEmbedder{fail: true}
	client, err := NewClient(nil, embedder, &fakeLLM{}, store, testConfig(), nil)
	require.NoError(t, err)

	result, err := client.Search(context.Background(), "Steuernummer?", 3, nil)
	require.NoError(t, err, "backend failure must degrade, not error")
	assert.True(t, result.Degraded)
	assert.True(t, result.Empty())
}

func TestSearchEmptyQuestion(t *testing.T) {
	client, _ := newSearchClient(t, testConfig())
	_, err := client.Search(context.Background(), "  ", 3, nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with sources and confidence", func(t *testing.T) {
		client, llm := newSearchClient(t, testConfig())

		answer, err := client.Ask(ctx, "Wo steht meine Steuernummer?")
		require.NoError(t, err)
		assert.Contains(t, answer.Text, "12/345/67890")
		assert.False(t, answer.Degraded)

		require.NotEmpty(t, answer.Sources)
		assert.Equal(t, "1", answer.Sources[0].DocID)
		assert.Equal(t, "Steuerbescheid", answer.Sources[0].Title)
		assert.Greater(t, answer.Sources[0].Relevance, 0.5)

		assert.Greater(t, answer.Confidence.Score, 0.0)
		assert.NotEqual(t, types.ConfidenceLabel(""), answer.Confidence.Label)

		prompt := llm.lastPrompt()
		assert.Contains(t, prompt, "[Dokument 1]")
		assert.Contains(t, prompt, "Steuernummer")
		assert.Contains(t, prompt, "Wo steht meine Steuernummer?")
	})

	t.Run("no matching documents yields an honest low-confidence answer", func(t *testing.T) {
		store := vectorstore.NewMemoryStore()
		client, err := NewClient(nil, &fakeEmbedder{}, &fakeLLM{response: "unused"}, store, testConfig(), nil)
		require.NoError(t, err)

		answer, err := client.Ask(ctx, "Wo steht meine Steuernummer?")
		require.NoError(t, err)
		assert.Equal(t, noDocumentsAnswer, answer.Text)
		assert.Equal(t, types.ConfidenceLow, answer.Confidence.Label)
		assert.Empty(t, answer.Sources)
	})

	t.Run("backend failure yields a degraded answer", func(t *testing.T) {
		store := vectorstore.NewMemoryStore()
		client, err := NewClient(nil, &fakeEmbedder{fail: true}, &fakeLLM{}, store, testConfig(), nil)
		require.NoError(t, err)

		answer, err := client.Ask(ctx, "Steuernummer?")
		require.NoError(t, err)
		assert.True(t, answer.Degraded)
		assert.Equal(t, types.ConfidenceLow, answer.Confidence.Label)
	})
}

func TestQueryVariantsCap(t *testing.T) {
	cfg := testConfig()
	cfg.Retrieval.MultiQuery = true
	cfg.Retrieval.QueryVariants = 10
	cfg.Retrieval.MaxVariants = 3

	llmResponse := "Variante eins\nVariante zwei\nVariante drei\nVariante vier\nVariante fünf\nVariante sechs\nVariante sieben\nVariante acht\nVariante neun\nVariante zehn"
	store := vectorstore.NewMemoryStore()
	seedCorpus(t, store)
	client, err := NewClient(nil, &fakeEmbedder{}, &fakeLLM{response: llmResponse}, store, cfg, nil)
	require.NoError(t, err)

	variants := client.queryVariants(context.Background(), "Frage?")
	assert.Len(t, variants, 3, "fan-out must be capped at MaxVariants")
	assert.Contains(t, variants[0], "Frage?")
}
