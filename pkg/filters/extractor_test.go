package filters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/pkg/types"
)

var testVocab = Vocabulary{
	DocumentTypes:  []string{"Rechnung", "Vertrag", "Lieferschein", "Brief"},
	Correspondents: []string{"Amazon", "Telekom", "Finanzamt"},
	Tags:           []string{"wichtig", "privat"},
}

func TestRulesExtractor(t *testing.T) {
	extractor := NewRulesExtractor(testVocab)
	ctx := context.Background()

	tests := []struct {
		name     string
		question string
		want     types.Filter
	}{
		{
			name:     "invoice from amazon in 2024",
			question: "Zeige mir Rechnungen von Amazon aus 2024",
			want:     types.Filter{DocumentType: "Rechnung", Correspondent: "Amazon", Year: "2024"},
		},
		{
			name:     "contract only",
			question: "Welche Verträge habe ich?",
			want:     types.Filter{},
		},
		{
			name:     "lowercase mention matches canonical casing",
			question: "gibt es einen brief vom finanzamt?",
			want:     types.Filter{DocumentType: "Brief", Correspondent: "Finanzamt"},
		},
		{
			name:     "tag and year",
			question: "Wichtige Dokumente von 2019",
			want:     types.Filter{Year: "2019", Tags: []string{"wichtig"}},
		},
		{
			name:     "no criteria",
			question: "Was steht in meinen Dokumenten?",
			want:     types.Filter{},
		},
		{
			name:     "number that is not a year",
			question: "Rechnung über 3500 Euro",
			want:     types.Filter{DocumentType: "Rechnung"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(ctx, tt.question)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubExtractorLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubExtractorLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return s.ChatWithTemperature(ctx, messages, 0.7)
}

func (s *stubExtractorLLM) ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.Response{Content: s.response}, nil
}

func (s *stubExtractorLLM) Close() error { return nil }

func TestLLMExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a clean json answer", func(t *testing.T) {
		llm := &stubExtractorLLM{response: `{"document_type": "Rechnung", "correspondent": "Amazon", "year": "2024"}`}
		e := NewLLMExtractor(llm, testVocab, nil)

		f := e.Extract(ctx, "Zeige mir Rechnungen von Amazon aus 2024")
		assert.Equal(t, "Rechnung", f.DocumentType)
		assert.Equal(t, "Amazon", f.Correspondent)
		assert.Equal(t, "2024", f.Year)
	})

	t.Run("repairs sloppy json", func(t *testing.T) {
		llm := &stubExtractorLLM{response: "Hier ist das Ergebnis: {document_type: 'Vertrag',}"}
		e := NewLLMExtractor(llm, testVocab, nil)

		f := e.Extract(ctx, "Welche Verträge habe ich?")
		assert.Equal(t, "Vertrag", f.DocumentType)
	})

	t.Run("empty object means no filter", func(t *testing.T) {
		llm := &stubExtractorLLM{response: "{}"}
		e := NewLLMExtractor(llm, testVocab, nil)

		f := e.Extract(ctx, "Was steht in meinen Dokumenten?")
		assert.True(t, f.IsZero())
	})

	t.Run("model failure yields zero filter not error", func(t *testing.T) {
		llm := &stubExtractorLLM{err: errors.New("model not loaded")}
		e := NewLLMExtractor(llm, testVocab, nil)

		f := e.Extract(ctx, "Rechnungen von Amazon")
		assert.True(t, f.IsZero())
	})

	t.Run("prose without json yields zero filter", func(t *testing.T) {
		llm := &stubExtractorLLM{response: "Ich konnte keine Filter finden."}
		e := NewLLMExtractor(llm, testVocab, nil)

		f := e.Extract(ctx, "Irgendwas")
		assert.True(t, f.IsZero())
	})
}

func TestHybridExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("rules win when they match", func(t *testing.T) {
		llm := &stubExtractorLLM{response: `{"document_type": "Brief"}`}
		h := NewHybridExtractor(NewRulesExtractor(testVocab), NewLLMExtractor(llm, testVocab, nil))

		f := h.Extract(ctx, "Rechnungen von Amazon aus 2024")
		assert.Equal(t, "Rechnung", f.DocumentType)
		assert.Zero(t, llm.calls, "llm must not be consulted when rules match")
	})

	t.Run("llm fills in when rules find nothing", func(t *testing.T) {
		llm := &stubExtractorLLM{response: `{"correspondent": "Stadtwerke"}`}
		h := NewHybridExtractor(NewRulesExtractor(testVocab), NewLLMExtractor(llm, testVocab, nil))

		f := h.Extract(ctx, "Post von den Stadtwerken?")
		require.Equal(t, 1, llm.calls)
		assert.Equal(t, "Stadtwerke", f.Correspondent)
	})

	t.Run("nil llm extractor is allowed", func(t *testing.T) {
		h := NewHybridExtractor(NewRulesExtractor(testVocab), nil)
		f := h.Extract(ctx, "Post von den Stadtwerken?")
		assert.True(t, f.IsZero())
	})
}
