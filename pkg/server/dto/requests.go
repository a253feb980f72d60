package dto

import "strings"

// AskRequest represents a question answering request.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Validate performs validation on AskRequest.
func (r *AskRequest) Validate() error {
	return validateQuestion(r.Question)
}

// AskResponse is the generated answer with its sources and confidence.
type AskResponse struct {
	Answer     string           `json:"answer"`
	Sources    []SourceResult   `json:"sources"`
	Confidence ConfidenceResult `json:"confidence"`
	Degraded   bool             `json:"degraded,omitempty"`
}

// SearchRequest represents a semantic search request. The filter fields are
// optional; empty fields are filled by automatic extraction from the
// question.
type SearchRequest struct {
	Question      string   `json:"question" binding:"required"`
	K             int      `json:"k,omitempty"`
	DocumentType  string   `json:"document_type,omitempty"`
	Correspondent string   `json:"correspondent,omitempty"`
	Year          string   `json:"year,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Validate performs validation on SearchRequest.
func (r *SearchRequest) Validate() error {
	if err := validateQuestion(r.Question); err != nil {
		return err
	}
	if r.K < 0 || r.K > MaxK {
		return ErrInvalidK
	}
	return nil
}

// SearchResponse lists the retrieved documents.
type SearchResponse struct {
	Hits     []HitResult `json:"hits"`
	Degraded bool        `json:"degraded,omitempty"`
}

// IndexRequest represents an indexing request. An empty DocumentID indexes
// the whole corpus.
type IndexRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// IndexResponse reports the outcome of an indexing run.
type IndexResponse struct {
	Status  string `json:"status,omitempty"` // single-document runs
	Indexed int    `json:"indexed"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// ClassifyRequest represents a classification request. Either a document id
// to fetch or literal content must be given.
type ClassifyRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	Content    string `json:"content,omitempty"`
	Apply      bool   `json:"apply,omitempty"`
}

// Validate performs validation on ClassifyRequest.
func (r *ClassifyRequest) Validate() error {
	if strings.TrimSpace(r.DocumentID) == "" && strings.TrimSpace(r.Content) == "" {
		return ErrEmptyDocument
	}
	if len(r.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if r.Apply && strings.TrimSpace(r.DocumentID) == "" {
		return ErrEmptyDocument
	}
	return nil
}

// ClassifyResponse carries the suggested metadata for a document.
type ClassifyResponse struct {
	DocumentType  string   `json:"document_type,omitempty"`
	PersonTags    []string `json:"person_tags,omitempty"`
	Correspondent string   `json:"correspondent,omitempty"`
	Date          string   `json:"date,omitempty"`
	Applied       bool     `json:"applied"`
}

// PendingDocument describes one document awaiting classification.
type PendingDocument struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Created string   `json:"created,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// PendingResponse lists the documents awaiting classification.
type PendingResponse struct {
	Documents []PendingDocument `json:"pending_documents"`
	Count     int               `json:"count"`
}

// ProcessRequest selects documents for batch classification. Without ids
// every pending document is processed.
type ProcessRequest struct {
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// ProcessResponse summarizes a batch classification run.
type ProcessResponse struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// StatsResponse reports index size and processing history.
type StatsResponse struct {
	IndexedChunks int            `json:"indexed_chunks"`
	History       *HistoryResult `json:"history,omitempty"`
}

// HistoryResult summarizes the processing ledger.
type HistoryResult struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
