package filters

import (
	"context"

	"github.com/paperqa/paperqa/pkg/types"
)

// HybridExtractor runs the cheap rules pass first and consults the model
// pass only when the rules found nothing.
type HybridExtractor struct {
	rules Extractor
	llm   Extractor
}

var _ Extractor = (*HybridExtractor)(nil)

// NewHybridExtractor combines a rules extractor with an optional LLM
// extractor. The llm extractor may be nil.
func NewHybridExtractor(rules, llm Extractor) *HybridExtractor {
	return &HybridExtractor{rules: rules, llm: llm}
}

// Extract returns the rules result when it carries any predicate, otherwise
// the model result.
func (h *HybridExtractor) Extract(ctx context.Context, question string) types.Filter {
	f := h.rules.Extract(ctx, question)
	if !f.IsZero() {
		return f
	}
	if h.llm == nil {
		return f
	}
	return h.llm.Extract(ctx, question)
}
