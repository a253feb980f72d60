package paperqa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paperqa/paperqa/pkg/types"
)

// fakeSource serves documents from memory.
type fakeSource struct {
	mu   sync.Mutex
	docs map[string]types.Document
}

func newFakeSource(docs ...types.Document) *fakeSource {
	s := &fakeSource{docs: make(map[string]types.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeSource) ListDocuments(ctx context.Context, tag string) ([]types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if tag != "" && !hasTag(d, tag) {
			continue
		}
		// Listings carry no content, like the real source.
		listed := d
		listed.Content = ""
		out = append(out, listed)
	}
	return out, nil
}

func hasTag(d types.Document, tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *fakeSource) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &d, nil
}

func (s *fakeSource) setContent(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[id]
	d.Content = content
	s.docs[id] = d
}

// fakeEmbedder maps texts to fixed axes by keyword so distances are
// predictable: texts sharing a keyword are close, others are far apart.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

var embeddingAxes = []string{"steuernummer", "rechnung", "mietvertrag"}

func keywordVector(text string) []float32 {
	v := []float32{0.05, 0.05, 0.05}
	lower := strings.ToLower(text)
	for i, axis := range embeddingAxes {
		if strings.Contains(lower, axis) {
			v[i] = 1
		}
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("embedding backend unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "FAIL") {
			return nil, errors.New("embedding rejected")
		}
		vectors[i] = keywordVector(t)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Close() error { return nil }

// fakeLLM returns a canned response, recording prompts.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return f.ChatWithTemperature(ctx, messages, 0.7)
}

func (f *fakeLLM) ChatWithTemperature(ctx context.Context, messages []types.Message, temperature float32) (*types.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.Response{Content: f.response}, nil
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// testConfig disables the model-driven stages so retrieval behavior is
// deterministic by default. Individual tests re-enable what they exercise.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Retrieval.MultiQuery = false
	cfg.Retrieval.AutoFilters = false
	return cfg
}
