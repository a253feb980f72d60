package nlp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperqa/paperqa/pkg/types"
	"github.com/sashabaranov/go-openai"
)

const defaultTimeout = 180 * time.Second

// OpenAIClient implements the Client interface for OpenAI and
// OpenAI-compatible services (Ollama, vLLM, LM Studio) through a custom
// BaseURL.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient creates a new OpenAI client.
// Supports OpenAI-compatible services through custom BaseURL configuration.
func NewOpenAIClient(apiKey string, config Config) (*OpenAIClient, error) {
	timeout := defaultTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	var client *openai.Client
	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}

		// Some services don't require authentication.
		if apiKey == "" {
			apiKey = "dummy-key"
		}

		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		// Many services expect "/v1" appended to the base URL.
		if !hasAPIPath(config.BaseURL) {
			clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/") + "/v1"
		}
		clientConfig.HTTPClient = httpClient

		client = openai.NewClientWithConfig(clientConfig)
	} else {
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.HTTPClient = httpClient
		client = openai.NewClientWithConfig(clientConfig)
	}

	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	return &OpenAIClient{client: client, config: config}, nil
}

// Chat sends a chat completion request using the configured temperature.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	var temperature float32 = 0.7
	if c.config.Temperature != nil {
		temperature = *c.config.Temperature
	}
	return c.ChatWithTemperature(ctx, messages, temperature)
}

// ChatWithTemperature sends a chat completion request with an explicit
// sampling temperature.
func (c *OpenAIClient) ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
		Stop:        c.config.Stop,
	}
	if c.config.MaxTokens != nil {
		req.MaxTokens = *c.config.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimit(err) {
			return nil, NewRateLimitError(err.Error())
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewEmptyResponseError("no choices returned from the model")
	}

	choice := resp.Choices[0]
	return &types.Response{
		Content:      strings.TrimSpace(choice.Message.Content),
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		TokensUsed:   resp.Usage.TotalTokens,
	}, nil
}

// Close cleans up any resources.
func (c *OpenAIClient) Close() error {
	return nil
}

func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// validateBaseURL ensures the provided base URL is well formed.
func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", baseURL)
	}
	return nil
}

// hasAPIPath reports whether the URL already carries an API version path.
func hasAPIPath(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/v1")
}
