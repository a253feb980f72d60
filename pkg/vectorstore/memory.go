package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/paperqa/paperqa/pkg/types"
)

// MemoryStore is a brute-force in-memory Store. Search computes cosine
// distance against every indexed chunk, which is fine for tests and corpora
// of a few thousand chunks.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]Chunk)}
}

// Upsert inserts or replaces chunks by id.
func (s *MemoryStore) Upsert(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		meta := make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			meta[k] = v
		}
		vec := make([]float32, len(c.Vector))
		copy(vec, c.Vector)
		s.chunks[c.ID] = Chunk{ID: c.ID, Text: c.Text, Vector: vec, Metadata: meta}
	}
	return nil
}

// Exists reports whether a chunk with the given id is indexed.
func (s *MemoryStore) Exists(ctx context.Context, chunkID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunks[chunkID]
	return ok, nil
}

// Get returns an indexed chunk by id, without its vector.
func (s *MemoryStore) Get(ctx context.Context, chunkID string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return nil, ErrNotFound
	}
	meta := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		meta[k] = v
	}
	return &Chunk{ID: c.ID, Text: c.Text, Metadata: meta}, nil
}

// Search returns up to k nearest chunks by cosine distance, ascending.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int, where map[string]string) ([]types.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]types.SearchHit, 0, len(s.chunks))
	for _, c := range s.chunks {
		if where != nil && !matchesWhere(c.Metadata, where) {
			continue
		}
		hits = append(hits, hitFromChunk(c, cosineDistance(vector, c.Vector)))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteDocument removes every chunk whose original document id matches.
func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.Metadata[types.MetaDocumentID] == documentID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// DeleteAll drops every chunk.
func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]Chunk)
	return nil
}

// Count returns the number of indexed chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cosineDistance returns 1 - cosine similarity. Zero-magnitude vectors are
// treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
