package nlp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/types"
)

type fakeClient struct {
	responses []*types.Response
	errs      []error
	calls     int
}

func (f *fakeClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return f.ChatWithTemperature(ctx, messages, 0.7)
}

func (f *fakeClient) ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &types.Response{Content: "ok"}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestRetryClient(t *testing.T) {
	t.Run("succeeds without retry", func(t *testing.T) {
		fake := &fakeClient{responses: []*types.Response{{Content: "hello"}}}
		client := NewRetryClient(fake, nil)

		resp, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("retries rate limit errors", func(t *testing.T) {
		fake := &fakeClient{
			errs:      []error{NewRateLimitError("slow down"), nil},
			responses: []*types.Response{nil, {Content: "eventually"}},
		}
		client := NewRetryClient(fake, &RetryConfig{
			MaxRetries:        3,
			InitialDelay:      time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			BackoffMultiplier: 2.0,
		})

		resp, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, "eventually", resp.Content)
		assert.Equal(t, 2, fake.calls)
	})

	t.Run("fails immediately on non-retryable error", func(t *testing.T) {
		fatal := errors.New("invalid model name")
		fake := &fakeClient{errs: []error{fatal, nil}}
		client := NewRetryClient(fake, &RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Millisecond,
		})

		_, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
		require.Error(t, err)
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		rl := NewRateLimitError("429")
		fake := &fakeClient{errs: []error{rl, rl, rl}}
		client := NewRetryClient(fake, &RetryConfig{
			MaxRetries:        2,
			InitialDelay:      time.Millisecond,
			MaxDelay:          2 * time.Millisecond,
			BackoffMultiplier: 2.0,
		})

		_, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed after 2 retries")
		assert.Equal(t, 3, fake.calls)
	})
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"rate limit typed", NewRateLimitError("too fast"), true},
		{"rate limit sentinel", ErrRateLimit, true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"timeout", errors.New("request timeout exceeded"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"bad request", errors.New("400 bad request"), false},
		{"empty response", NewEmptyResponseError("nothing"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, validateBaseURL("http://localhost:11434"))
	assert.NoError(t, validateBaseURL("https://api.example.com/v1"))
	assert.Error(t, validateBaseURL("ftp://example.com"))
	assert.Error(t, validateBaseURL("not a url"))
}

func TestHasAPIPath(t *testing.T) {
	assert.True(t, hasAPIPath("http://localhost:11434/v1"))
	assert.True(t, hasAPIPath("https://example.com/openai/v1/"))
	assert.False(t, hasAPIPath("http://localhost:11434"))
}
