// Package embedder provides text embedding clients for OpenAI-compatible
// services, plus caching and circuit breaking wrappers.
package embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when no texts are supplied to an embedding call.
var ErrEmptyInput = errors.New("no input texts provided")

// ErrBackendUnavailable is returned when the embedding backend cannot be
// reached. Callers must treat this as a hard failure, never as a zero vector.
var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// Client generates vector embeddings for text.
type Client interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle returns the vector for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Close cleans up any resources.
	Close() error
}

// Config holds configuration for embedding clients.
type Config struct {
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// EmbedSingle is a convenience helper that adapts a batch Embed call to a
// single text.
func EmbedSingle(ctx context.Context, c Client, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}
