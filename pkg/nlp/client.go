// Package nlp provides language model clients for answer generation, query
// rewriting and structured extraction.
//
// The Client interface is implemented by an OpenAI-compatible backend
// (which also covers Ollama through its /v1 endpoints) and composable
// wrappers adding retries and circuit breaking.
package nlp

import (
	"context"

	"github.com/paperqa/paperqa/pkg/types"
)

// Client defines the interface for language model operations.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// ChatWithTemperature sends a chat completion request overriding the
	// configured sampling temperature for this call.
	ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error)

	// Close cleans up any resources.
	Close() error
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// Config holds configuration for LLM clients.
type Config struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	// BaseURL points at an OpenAI-compatible service (e.g. Ollama).
	BaseURL string `json:"base_url,omitempty"`
	// TimeoutSeconds bounds every request; 0 uses the default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{Role: role, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// Generate is a convenience wrapper for single-prompt completion, the shape
// most of the retrieval pipeline needs.
func Generate(ctx context.Context, c Client, prompt string, temperature float32) (string, error) {
	resp, err := c.ChatWithTemperature(ctx, []types.Message{NewUserMessage(prompt)}, temperature)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", NewEmptyResponseError("the model returned an empty response")
	}
	return resp.Content, nil
}
