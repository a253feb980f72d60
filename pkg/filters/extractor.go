// Package filters turns natural-language questions into metadata filters
// for retrieval. A fast rules pass handles years and known vocabulary; a
// language model pass picks up anything the rules miss.
package filters

import (
	"context"

	"github.com/paperqa/paperqa/pkg/types"
)

// Vocabulary holds the known metadata values an extractor may match
// against. Values outside the vocabulary are never produced by the rules
// pass; the LLM pass may still surface them verbatim from the question.
type Vocabulary struct {
	DocumentTypes  []string
	Correspondents []string
	Tags           []string
}

// Extractor derives a metadata filter from a question. Extraction is best
// effort: a failed or inconclusive pass yields the zero filter, never an
// error that would abort a search.
type Extractor interface {
	Extract(ctx context.Context, question string) types.Filter
}
