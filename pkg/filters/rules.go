package filters

import (
	"context"
	"regexp"
	"strings"

	"github.com/paperqa/paperqa/pkg/types"
)

var yearPattern = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// RulesExtractor matches questions against a fixed vocabulary and a year
// pattern. It is deterministic, cheap and runs before any model call.
type RulesExtractor struct {
	vocab Vocabulary
}

var _ Extractor = (*RulesExtractor)(nil)

// NewRulesExtractor creates a rules-based extractor over the given
// vocabulary.
func NewRulesExtractor(vocab Vocabulary) *RulesExtractor {
	return &RulesExtractor{vocab: vocab}
}

// Extract returns the filter criteria literally present in the question:
// a four-digit year and case-insensitive mentions of known document types,
// correspondents and tags.
func (r *RulesExtractor) Extract(ctx context.Context, question string) types.Filter {
	var f types.Filter
	lower := strings.ToLower(question)

	if m := yearPattern.FindStringSubmatch(question); m != nil {
		f.Year = m[1]
	}
	if v := matchVocab(lower, r.vocab.DocumentTypes); v != "" {
		f.DocumentType = v
	}
	if v := matchVocab(lower, r.vocab.Correspondents); v != "" {
		f.Correspondent = v
	}
	for _, tag := range r.vocab.Tags {
		if tag != "" && strings.Contains(lower, strings.ToLower(tag)) {
			f.Tags = append(f.Tags, tag)
		}
	}
	return f
}

// matchVocab returns the first vocabulary value mentioned in the question.
// The canonical casing of the vocabulary entry is returned, not the
// question's.
func matchVocab(lowerQuestion string, vocab []string) string {
	for _, v := range vocab {
		if v == "" {
			continue
		}
		if strings.Contains(lowerQuestion, strings.ToLower(v)) {
			return v
		}
	}
	return ""
}
