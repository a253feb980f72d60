package query

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/paperqa/paperqa/pkg/nlp"
)

const variantPrompt = `Generiere %d alternative Formulierungen für diese Frage.
Die Varianten sollen die gleiche Information suchen, aber anders formuliert sein.

Original-Frage: %s

Aufgabe:
- Erstelle %d alternative Formulierungen
- Behalte die Kernintention bei
- Variiere Wortstellung, Synonyme, Perspektive
- Antworte NUR mit den Fragen, eine pro Zeile, KEINE Nummerierung!

Varianten:`

// numberingPattern strips list markers the model adds despite instructions,
// e.g. "1. " or "2) ".
var numberingPattern = regexp.MustCompile(`^\d+[\.\)]\s*`)

// MultiQuery generates alternative formulations of a question so retrieval
// can run once per variant and merge the results.
type MultiQuery struct {
	llm    nlp.Client
	logger *slog.Logger
}

// NewMultiQuery creates a multi-query generator.
func NewMultiQuery(llm nlp.Client, logger *slog.Logger) *MultiQuery {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiQuery{llm: llm, logger: logger}
}

// Variants returns the original question followed by up to n alternative
// formulations. Generation failures degrade silently to just the original.
func (m *MultiQuery) Variants(ctx context.Context, question string, n int) []string {
	if n <= 0 || m.llm == nil {
		return []string{question}
	}

	prompt := fmt.Sprintf(variantPrompt, n, question, n)
	text, err := nlp.Generate(ctx, m.llm, prompt, 0.7)
	if err != nil {
		m.logger.Warn("multi-query generation failed", "error", err)
		return []string{question}
	}

	variants := parseVariants(text, n)
	m.logger.Debug("multi-query variants generated", "count", len(variants))
	return append([]string{question}, variants...)
}

// parseVariants splits the model output into one variant per line, strips
// numbering, and truncates to n.
func parseVariants(text string, n int) []string {
	var variants []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = numberingPattern.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		variants = append(variants, line)
		if len(variants) == n {
			break
		}
	}
	return variants
}
