// Package dto defines the request and response shapes of the HTTP API,
// with validation separated from transport.
package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrQuestionTooLong = errors.New("question exceeds maximum length (2000)")
	ErrEmptyDocument   = errors.New("either document_id or content is required")
	ErrContentTooLong  = errors.New("content exceeds maximum length (1MB)")
	ErrInvalidK        = errors.New("k must be between 1 and 50")
)

// Field limits to keep requests bounded.
const (
	MaxQuestionLength = 2000
	MaxContentLength  = 1024 * 1024 // 1MB
	MaxK              = 50
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SourceResult is one cited source document in an answer.
type SourceResult struct {
	DocID         string  `json:"doc_id"`
	Title         string  `json:"title"`
	Correspondent string  `json:"correspondent,omitempty"`
	DocumentType  string  `json:"document_type,omitempty"`
	Relevance     float64 `json:"relevance"`
}

// ConfidenceResult carries the answer confidence score and label.
type ConfidenceResult struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// HitResult is one retrieved document in a search response.
type HitResult struct {
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"title"`
	Correspondent string  `json:"correspondent,omitempty"`
	DocumentType  string  `json:"document_type,omitempty"`
	Created       string  `json:"created,omitempty"`
	Distance      float64 `json:"distance"`
	Snippet       string  `json:"snippet,omitempty"`
}

func validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if len(question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	return nil
}
