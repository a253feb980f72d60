package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/types"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return s.ChatWithTemperature(ctx, messages, 0.7)
}

func (s *stubLLM) ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error) {
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &types.Response{Content: s.response}, nil
}

func (s *stubLLM) Close() error { return nil }

func TestExpanderSynonyms(t *testing.T) {
	expander := NewExpander(nil, nil, false, nil)

	t.Run("tax id question gains official long forms", func(t *testing.T) {
		expanded := expander.Expand(context.Background(), "Wie lautet meine Steuer ID?")
		assert.Contains(t, expanded, "Wie lautet meine Steuer ID?")
		assert.Contains(t, expanded, "Steuer-Identifikationsnummer")
		assert.Contains(t, expanded, "Steuernummer")
		assert.Contains(t, expanded, "Tax ID")
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		expanded := expander.Expand(context.Background(), "RECHNUNG von Amazon")
		assert.Contains(t, expanded, "Invoice")
		assert.Contains(t, expanded, "Faktura")
	})

	t.Run("unknown terms pass through unchanged", func(t *testing.T) {
		q := "Wann ist der Zahnarzttermin?"
		assert.Equal(t, q, expander.Expand(context.Background(), q))
	})

	t.Run("custom table overrides defaults", func(t *testing.T) {
		custom := NewExpander(map[string][]string{
			"Kita": {"Kindergarten", "Kindertagesstätte"},
		}, nil, false, nil)
		expanded := custom.Expand(context.Background(), "Beitrag für die kita")
		assert.Contains(t, expanded, "Kindertagesstätte")

		// Defaults are replaced, not merged.
		q := "Wie lautet meine Steuer ID?"
		assert.Equal(t, q, custom.Expand(context.Background(), q))
	})
}

func TestExpanderLLMFallback(t *testing.T) {
	t.Run("llm fills in when table misses", func(t *testing.T) {
		llm := &stubLLM{response: "Zahnarzt, Dentist, Zahnmedizin"}
		expander := NewExpander(nil, llm, true, nil)

		expanded := expander.Expand(context.Background(), "Wann ist der Zahnarzttermin?")
		assert.Contains(t, expanded, "Dentist")
		require.NotEmpty(t, llm.prompts)
		assert.Contains(t, llm.prompts[0], "Zahnarzttermin")
	})

	t.Run("llm is skipped when table matches", func(t *testing.T) {
		llm := &stubLLM{response: "should not be used"}
		expander := NewExpander(nil, llm, true, nil)

		expanded := expander.Expand(context.Background(), "Wo ist die Rechnung?")
		assert.NotContains(t, expanded, "should not be used")
		assert.Empty(t, llm.prompts)
	})

	t.Run("llm failure degrades silently", func(t *testing.T) {
		llm := &stubLLM{err: errors.New("connection refused")}
		expander := NewExpander(nil, llm, true, nil)

		q := "Wann ist der Zahnarzttermin?"
		assert.Equal(t, q, expander.Expand(context.Background(), q))
	})
}

func TestMultiQueryVariants(t *testing.T) {
	t.Run("original comes first, numbering stripped", func(t *testing.T) {
		llm := &stubLLM{response: "1. Welche Steuernummer habe ich?\n2) Wo finde ich meine Steuer-ID?\n"}
		mq := NewMultiQuery(llm, nil)

		variants := mq.Variants(context.Background(), "Wie lautet meine Steuer ID?", 2)
		require.Len(t, variants, 3)
		assert.Equal(t, "Wie lautet meine Steuer ID?", variants[0])
		assert.Equal(t, "Welche Steuernummer habe ich?", variants[1])
		assert.Equal(t, "Wo finde ich meine Steuer-ID?", variants[2])
	})

	t.Run("output is capped at n variants", func(t *testing.T) {
		llm := &stubLLM{response: "eins\nzwei\ndrei\nvier"}
		mq := NewMultiQuery(llm, nil)

		variants := mq.Variants(context.Background(), "Frage?", 2)
		assert.Len(t, variants, 3)
	})

	t.Run("generation failure returns only the original", func(t *testing.T) {
		llm := &stubLLM{err: errors.New("model not loaded")}
		mq := NewMultiQuery(llm, nil)

		variants := mq.Variants(context.Background(), "Frage?", 2)
		assert.Equal(t, []string{"Frage?"}, variants)
	})

	t.Run("blank lines are dropped", func(t *testing.T) {
		llm := &stubLLM{response: "\n\nVariante A\n\n\nVariante B\n"}
		mq := NewMultiQuery(llm, nil)

		variants := mq.Variants(context.Background(), "Frage?", 3)
		assert.Equal(t, []string{"Frage?", "Variante A", "Variante B"}, variants)
	})
}
