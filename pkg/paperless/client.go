// Package paperless is a client for the Paperless-NGX REST API. It exposes
// documents with their tag, correspondent and document type names resolved,
// and supports writing classification results back.
package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paperqa/paperqa/pkg/types"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPageSize = 100
)

// Config holds connection settings for a Paperless-NGX server.
type Config struct {
	URL            string
	Token          string
	PageSize       int
	TimeoutSeconds int
}

// Client talks to a Paperless-NGX server.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client

	mu             sync.Mutex
	tags           map[int]string
	documentTypes  map[int]string
	correspondents map[int]string
}

// NewClient creates a Paperless-NGX client. The token is sent on every
// request as a Token authorization header.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("paperless URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("paperless API token is required")
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// wire types

type document struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	Correspondent       *int   `json:"correspondent"`
	DocumentType        *int   `json:"document_type"`
	Created             string `json:"created"`
	Tags                []int  `json:"tags"`
	ArchiveSerialNumber any    `json:"archive_serial_number"`
	Content             string `json:"content"`
}

type namedEntity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// TestConnection verifies the server is reachable and the token is valid.
func (c *Client) TestConnection(ctx context.Context) error {
	var p page[document]
	if err := c.get(ctx, "/api/documents/?page_size=1", &p); err != nil {
		return fmt.Errorf("paperless connection test failed: %w", err)
	}
	return nil
}

// ListDocuments returns documents from the archive, paging through the API.
// A non-empty tag restricts the listing to documents carrying that tag
// (matched case-insensitively); an unknown tag yields no documents. Content
// is not included; fetch it per document with GetDocument.
func (c *Client) ListDocuments(ctx context.Context, tag string) ([]types.Document, error) {
	if err := c.refreshLookups(ctx); err != nil {
		return nil, err
	}

	tagFilter := ""
	if tag != "" {
		tagID, ok := c.lookupTag(tag)
		if !ok {
			return nil, nil
		}
		tagFilter = fmt.Sprintf("&tags__id__in=%d", tagID)
	}

	var docs []types.Document
	pageNum := 1
	for {
		var p page[document]
		path := fmt.Sprintf("/api/documents/?page=%d&page_size=%d%s", pageNum, c.pageSize, tagFilter)
		if err := c.get(ctx, path, &p); err != nil {
			return nil, fmt.Errorf("failed to list documents page %d: %w", pageNum, err)
		}
		for _, d := range p.Results {
			docs = append(docs, c.resolve(d))
		}
		if p.Next == "" {
			break
		}
		pageNum++
	}
	return docs, nil
}

// GetDocument returns a single document with its full text content.
func (c *Client) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	if err := c.refreshLookups(ctx); err != nil {
		return nil, err
	}

	var d document
	if err := c.get(ctx, "/api/documents/"+url.PathEscape(id)+"/", &d); err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	doc := c.resolve(d)
	doc.Content = d.Content
	return &doc, nil
}

// GetContent returns the full text content of a document.
func (c *Client) GetContent(ctx context.Context, id string) (string, error) {
	var d document
	if err := c.get(ctx, "/api/documents/"+url.PathEscape(id)+"/", &d); err != nil {
		return "", fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return d.Content, nil
}

// ListTags returns all tag names keyed by id.
func (c *Client) ListTags(ctx context.Context) (map[int]string, error) {
	return c.listNamed(ctx, "/api/tags/")
}

// ListDocumentTypes returns all document type names keyed by id.
func (c *Client) ListDocumentTypes(ctx context.Context) (map[int]string, error) {
	return c.listNamed(ctx, "/api/document_types/")
}

// ListCorrespondents returns all correspondent names keyed by id.
func (c *Client) ListCorrespondents(ctx context.Context) (map[int]string, error) {
	return c.listNamed(ctx, "/api/correspondents/")
}

// CreateTag creates a tag and returns its id. Existing names are returned
// as-is rather than duplicated.
func (c *Client) CreateTag(ctx context.Context, name string) (int, error) {
	return c.createNamed(ctx, "/api/tags/", name, c.tags)
}

// CreateDocumentType creates a document type and returns its id.
func (c *Client) CreateDocumentType(ctx context.Context, name string) (int, error) {
	return c.createNamed(ctx, "/api/document_types/", name, c.documentTypes)
}

// CreateCorrespondent creates a correspondent and returns its id.
func (c *Client) CreateCorrespondent(ctx context.Context, name string) (int, error) {
	return c.createNamed(ctx, "/api/correspondents/", name, c.correspondents)
}

// UpdateDocument patches fields on a document. Keys follow the Paperless
// API field names, e.g. "document_type", "correspondent", "tags".
func (c *Client) UpdateDocument(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := c.do(ctx, http.MethodPatch, "/api/documents/"+url.PathEscape(id)+"/", fields, nil); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	// Field changes may invalidate the cached lookups.
	c.mu.Lock()
	c.tags = nil
	c.documentTypes = nil
	c.correspondents = nil
	c.mu.Unlock()
	return nil
}

// Close releases the underlying HTTP connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) resolve(d document) types.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := types.Document{
		ID:      strconv.Itoa(d.ID),
		Title:   d.Title,
		Created: isoDate(d.Created),
	}
	if d.Correspondent != nil {
		doc.Correspondent = c.correspondents[*d.Correspondent]
	}
	if d.DocumentType != nil {
		doc.DocumentType = c.documentTypes[*d.DocumentType]
	}
	for _, tagID := range d.Tags {
		if name, ok := c.tags[tagID]; ok {
			doc.Tags = append(doc.Tags, name)
		}
	}
	if d.ArchiveSerialNumber != nil {
		doc.ASN = fmt.Sprintf("%v", d.ArchiveSerialNumber)
	}
	return doc
}

// lookupTag resolves a tag name to its id, case-insensitively.
func (c *Client) lookupTag(name string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.tags {
		if strings.EqualFold(existing, name) {
			return id, true
		}
	}
	return 0, false
}

// isoDate trims a timestamp like 2024-03-15T00:00:00+01:00 to its date part.
func isoDate(created string) string {
	if i := strings.IndexByte(created, 'T'); i > 0 {
		return created[:i]
	}
	return created
}

func (c *Client) refreshLookups(ctx context.Context) error {
	c.mu.Lock()
	cached := c.tags != nil && c.documentTypes != nil && c.correspondents != nil
	c.mu.Unlock()
	if cached {
		return nil
	}

	tags, err := c.listNamed(ctx, "/api/tags/")
	if err != nil {
		return err
	}
	docTypes, err := c.listNamed(ctx, "/api/document_types/")
	if err != nil {
		return err
	}
	correspondents, err := c.listNamed(ctx, "/api/correspondents/")
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tags = tags
	c.documentTypes = docTypes
	c.correspondents = correspondents
	c.mu.Unlock()
	return nil
}

func (c *Client) listNamed(ctx context.Context, path string) (map[int]string, error) {
	out := make(map[int]string)
	pageNum := 1
	for {
		var p page[namedEntity]
		pagePath := fmt.Sprintf("%s?page=%d&page_size=%d", path, pageNum, c.pageSize)
		if err := c.get(ctx, pagePath, &p); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		for _, e := range p.Results {
			out[e.ID] = e.Name
		}
		if p.Next == "" {
			break
		}
		pageNum++
	}
	return out, nil
}

func (c *Client) createNamed(ctx context.Context, path, name string, cache map[int]string) (int, error) {
	c.mu.Lock()
	for id, existing := range cache {
		if strings.EqualFold(existing, name) {
			c.mu.Unlock()
			return id, nil
		}
	}
	c.mu.Unlock()

	var created namedEntity
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"name": name}, &created); err != nil {
		return 0, fmt.Errorf("failed to create %q at %s: %w", name, path, err)
	}

	c.mu.Lock()
	if cache != nil {
		cache[created.ID] = created.Name
	}
	c.mu.Unlock()
	return created.ID, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paperless returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
