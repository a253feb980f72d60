package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func newPaperlessTestServer(t *testing.T) (*httptest.Server, *map[string]any) {
	t.Helper()
	lastPatch := make(map[string]any)

	docs := []document{
		{ID: 1, Title: "Steuerbescheid 2024", Correspondent: intPtr(10), DocumentType: intPtr(20),
			Created: "2024-03-15T00:00:00+01:00", Tags: []int{30, 31}, Content: "Ihre Steuer-ID lautet 12 345 678 901."},
		{ID: 2, Title: "Amazon Rechnung", Correspondent: intPtr(11), DocumentType: intPtr(21),
			Created: "2024-06-01T00:00:00+02:00", Tags: []int{30}, Content: "Rechnungsbetrag 59,99 EUR."},
		{ID: 3, Title: "Mietvertrag", DocumentType: intPtr(22),
			Created: "2019-01-01T00:00:00+01:00", Content: "Mietbeginn 1. Februar 2019."},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents/{$}", func(w http.ResponseWriter, r *http.Request) {
		if tagID := r.URL.Query().Get("tags__id__in"); tagID != "" {
			var matched []document
			for _, d := range docs {
				for _, id := range d.Tags {
					if fmt.Sprint(id) == tagID {
						matched = append(matched, d)
						break
					}
				}
			}
			json.NewEncoder(w).Encode(page[document]{Count: len(matched), Results: matched})
			return
		}
		// Two pages to exercise pagination.
		q := r.URL.Query().Get("page")
		switch q {
		case "", "1":
			json.NewEncoder(w).Encode(page[document]{
				Count: 3, Next: "http://ignored/api/documents/?page=2",
				Results: docs[:2],
			})
		case "2":
			json.NewEncoder(w).Encode(page[document]{Count: 3, Results: docs[2:]})
		default:
			http.Error(w, "no such page", http.StatusNotFound)
		}
	})
	for i := range docs {
		d := docs[i]
		mux.HandleFunc(fmt.Sprintf("GET /api/documents/%d/", d.ID), func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Token secret" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(d)
		})
		mux.HandleFunc(fmt.Sprintf("PATCH /api/documents/%d/", d.ID), func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lastPatch))
			json.NewEncoder(w).Encode(d)
		})
	}
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page[namedEntity]{Results: []namedEntity{
			{ID: 30, Name: "wichtig"}, {ID: 31, Name: "behörde"},
		}})
	})
	mux.HandleFunc("POST /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(namedEntity{ID: 99, Name: body["name"]})
	})
	mux.HandleFunc("GET /api/document_types/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page[namedEntity]{Results: []namedEntity{
			{ID: 20, Name: "Brief"}, {ID: 21, Name: "Rechnung"}, {ID: 22, Name: "Vertrag"},
		}})
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page[namedEntity]{Results: []namedEntity{
			{ID: 10, Name: "Finanzamt"}, {ID: 11, Name: "Amazon"},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &lastPatch
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{URL: serverURL, Token: "secret", PageSize: 2})
	require.NoError(t, err)
	return client
}

func TestClientListDocuments(t *testing.T) {
	server, _ := newPaperlessTestServer(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	docs, err := client.ListDocuments(ctx, "")
	require.NoError(t, err)
	require.Len(t, docs, 3, "pagination should collect both pages")

	first := docs[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Steuerbescheid 2024", first.Title)
	assert.Equal(t, "Finanzamt", first.Correspondent)
	assert.Equal(t, "Brief", first.DocumentType)
	assert.Equal(t, "2024-03-15", first.Created)
	assert.Equal(t, []string{"wichtig", "behörde"}, first.Tags)
	assert.Empty(t, first.Content, "listing must not carry full content")

	third := docs[2]
	assert.Empty(t, third.Correspondent)
	assert.Equal(t, "Vertrag", third.DocumentType)
}

func TestClientListDocumentsByTag(t *testing.T) {
	server, _ := newPaperlessTestServer(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	docs, err := client.ListDocuments(ctx, "behörde")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)

	// Tag names resolve case-insensitively.
	docs, err = client.ListDocuments(ctx, "WICHTIG")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = client.ListDocuments(ctx, "gibtesnicht")
	require.NoError(t, err)
	assert.Empty(t, docs, "an unknown tag matches nothing")
}

func TestClientGetDocument(t *testing.T) {
	server, _ := newPaperlessTestServer(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	doc, err := client.GetDocument(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Steuerbescheid 2024", doc.Title)
	assert.Contains(t, doc.Content, "Steuer-ID")

	content, err := client.GetContent(ctx, "2")
	require.NoError(t, err)
	assert.Contains(t, content, "59,99")

	_, err = client.GetDocument(ctx, "404")
	assert.Error(t, err)
}

func TestClientCreateTag(t *testing.T) {
	server, _ := newPaperlessTestServer(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	// Warm the lookup cache so duplicate detection can work.
	_, err := client.ListDocuments(ctx, "")
	require.NoError(t, err)

	id, err := client.CreateTag(ctx, "wichtig")
	require.NoError(t, err)
	assert.Equal(t, 30, id, "existing tag should be reused, not recreated")

	id, err = client.CreateTag(ctx, "neu")
	require.NoError(t, err)
	assert.Equal(t, 99, id)
}

func TestClientUpdateDocument(t *testing.T) {
	server, lastPatch := newPaperlessTestServer(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	err := client.UpdateDocument(ctx, "2", map[string]any{
		"document_type": 21,
		"tags":          []int{30},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 21, (*lastPatch)["document_type"])
}

func TestClientConfigValidation(t *testing.T) {
	_, err := NewClient(Config{Token: "secret"})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://localhost:8000"})
	assert.Error(t, err)
}
