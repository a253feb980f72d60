// Package vectorstore provides the vector index behind document retrieval.
// Two implementations are available: a ChromaDB REST client for production
// and an in-memory brute-force store for tests and small corpora.
package vectorstore

import (
	"context"
	"errors"

	"github.com/paperqa/paperqa/pkg/types"
)

// ErrNotFound is returned when a requested chunk does not exist.
var ErrNotFound = errors.New("chunk not found")

// Chunk is a single indexed unit: the text of one document slice, its
// embedding, and the metadata used for filtering.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Store is the vector index contract. Distances are ascending: smaller
// means more similar.
type Store interface {
	// Upsert inserts or replaces chunks by id.
	Upsert(ctx context.Context, chunks []Chunk) error

	// Exists reports whether a chunk with the given id is indexed.
	Exists(ctx context.Context, chunkID string) (bool, error)

	// Get returns an indexed chunk by id, without its vector.
	Get(ctx context.Context, chunkID string) (*Chunk, error)

	// Search returns up to k nearest chunks to the query vector, most
	// similar first. A non-nil where map restricts candidates to chunks
	// whose metadata matches every entry exactly.
	Search(ctx context.Context, vector []float32, k int, where map[string]string) ([]types.SearchHit, error)

	// DeleteDocument removes every chunk belonging to the given source
	// document.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteAll drops the whole collection.
	DeleteAll(ctx context.Context) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

func hitFromChunk(c Chunk, distance float64) types.SearchHit {
	meta := types.MetadataFromMap(c.Metadata)
	return types.SearchHit{
		ChunkID:    c.ID,
		DocumentID: meta.DocumentID,
		Text:       c.Text,
		Distance:   distance,
		Metadata:   meta,
	}
}

func matchesWhere(metadata map[string]string, where map[string]string) bool {
	for k, v := range where {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
