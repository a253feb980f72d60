package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperqa/paperqa/pkg/types"
)

const defaultChromaTimeout = 60 * time.Second

// ChromaStore talks to a ChromaDB server over its REST API.
type ChromaStore struct {
	baseURL    string
	collection string
	// collectionID holds the server-side uuid once the collection is
	// resolved.
	collectionID string
	httpClient   *http.Client
}

var _ Store = (*ChromaStore)(nil)

// ChromaConfig holds connection settings for a ChromaDB server.
type ChromaConfig struct {
	URL            string
	Collection     string
	TimeoutSeconds int
}

// NewChromaStore connects to a ChromaDB server and gets or creates the
// configured collection.
func NewChromaStore(ctx context.Context, cfg ChromaConfig) (*ChromaStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("chroma collection name is required")
	}

	timeout := defaultChromaTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	s := &ChromaStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *ChromaStore) ensureCollection(ctx context.Context) error {
	payload := map[string]any{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var coll chromaCollection
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections", payload, &coll); err != nil {
		return fmt.Errorf("get or create collection %q: %w", s.collection, err)
	}
	s.collectionID = coll.ID
	return nil
}

// Upsert inserts or replaces chunks by id.
func (s *ChromaStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		embeddings[i] = c.Vector
		documents[i] = c.Text
		metadatas[i] = c.Metadata
	}

	payload := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	return s.do(ctx, http.MethodPost, s.collectionPath("upsert"), payload, nil)
}

type chromaGetResponse struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
}

// Exists reports whether a chunk with the given id is indexed.
func (s *ChromaStore) Exists(ctx context.Context, chunkID string) (bool, error) {
	payload := map[string]any{
		"ids":     []string{chunkID},
		"include": []string{},
	}
	var resp chromaGetResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath("get"), payload, &resp); err != nil {
		return false, err
	}
	return len(resp.IDs) > 0, nil
}

// Get returns an indexed chunk by id, without its vector.
func (s *ChromaStore) Get(ctx context.Context, chunkID string) (*Chunk, error) {
	payload := map[string]any{
		"ids":     []string{chunkID},
		"include": []string{"documents", "metadatas"},
	}
	var resp chromaGetResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath("get"), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, ErrNotFound
	}

	c := &Chunk{ID: resp.IDs[0]}
	if len(resp.Documents) > 0 {
		c.Text = resp.Documents[0]
	}
	if len(resp.Metadatas) > 0 {
		c.Metadata = resp.Metadatas[0]
	}
	return c, nil
}

type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

// Search returns up to k nearest chunks by the collection's distance metric,
// ascending.
func (s *ChromaStore) Search(ctx context.Context, vector []float32, k int, where map[string]string) ([]types.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if w := chromaWhere(where); w != nil {
		payload["where"] = w
	}

	var resp chromaQueryResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath("query"), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	hits := make([]types.SearchHit, 0, len(ids))
	for i := range ids {
		c := Chunk{ID: ids[i]}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			c.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			c.Metadata = resp.Metadatas[0][i]
		}
		distance := 1.0
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			distance = resp.Distances[0][i]
		}
		hits = append(hits, hitFromChunk(c, distance))
	}
	return hits, nil
}

// DeleteDocument removes every chunk belonging to the given source document.
func (s *ChromaStore) DeleteDocument(ctx context.Context, documentID string) error {
	payload := map[string]any{
		"where": map[string]string{types.MetaDocumentID: documentID},
	}
	return s.do(ctx, http.MethodPost, s.collectionPath("delete"), payload, nil)
}

// DeleteAll drops the collection and recreates it empty.
func (s *ChromaStore) DeleteAll(ctx context.Context) error {
	path := "/api/v1/collections/" + s.collection
	if err := s.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.collection, err)
	}
	return s.ensureCollection(ctx)
}

// Count returns the number of indexed chunks.
func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.do(ctx, http.MethodGet, s.collectionPath("count"), nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the underlying HTTP connections.
func (s *ChromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *ChromaStore) collectionPath(op string) string {
	return "/api/v1/collections/" + s.collectionID + "/" + op
}

// chromaWhere builds the server-side filter document. Chroma requires a
// single operator at the top level, so multiple equality conditions are
// joined with $and.
func chromaWhere(where map[string]string) map[string]any {
	if len(where) == 0 {
		return nil
	}
	if len(where) == 1 {
		out := make(map[string]any, 1)
		for k, v := range where {
			out[k] = v
		}
		return out
	}
	conds := make([]map[string]any, 0, len(where))
	for k, v := range where {
		conds = append(conds, map[string]any{k: v})
	}
	return map[string]any{"$and": conds}
}

func (s *ChromaStore) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
