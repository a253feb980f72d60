package embedder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultTimeout = 30 * time.Second

// OpenAIClient implements the Client interface using the OpenAI embeddings
// API. It works against any OpenAI-compatible service (Ollama, vLLM) through
// a custom BaseURL.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new embedding client.
func NewOpenAIClient(apiKey string, config Config) (*OpenAIClient, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	timeout := defaultTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if apiKey == "" {
		apiKey = "dummy-key"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		parsed, err := url.Parse(config.BaseURL)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("invalid embedding base URL %q", config.BaseURL)
		}
		clientConfig.BaseURL = config.BaseURL
		if !strings.Contains(parsed.Path, "/v1") {
			clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/") + "/v1"
		}
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Embed returns one vector per input text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API does not guarantee response order, so place by index.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
	}
	return vectors, nil
}

// EmbedSingle returns the vector for a single text.
func (c *OpenAIClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return EmbedSingle(ctx, c, text)
}

// Close cleans up any resources.
func (c *OpenAIClient) Close() error {
	return nil
}
