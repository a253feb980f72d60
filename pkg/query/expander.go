// Package query widens search queries before embedding: a synonym expander
// appends known alternative spellings, and a multi-query generator asks the
// language model for reformulations of the question.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/paperqa/paperqa/pkg/nlp"
)

// DefaultSynonyms maps common (German) search terms to alternative
// spellings that show up in scanned documents, including the official long
// forms and English equivalents from bilingual correspondence.
var DefaultSynonyms = map[string][]string{
	"steuer id":    {"Steuer-ID", "Steuer-Identifikationsnummer", "Steuernummer", "Tax ID", "TIN"},
	"steuernummer": {"Steuer-ID", "Steuer-Identifikationsnummer", "Tax ID", "TIN"},
	"rechnung":     {"Rechnung", "Invoice", "Faktura", "Beleg"},
	"lieferschein": {"Lieferschein", "Delivery Note", "Warenbegleitschein"},
	"vertrag":      {"Vertrag", "Contract", "Vereinbarung"},
	"adresse":      {"Adresse", "Address", "Anschrift", "Wohnort"},
	"telefon":      {"Telefon", "Telefonnummer", "Phone", "Tel", "Mobil"},
	"email":        {"E-Mail", "Email", "Mailadresse", "Elektronische Post"},
	"geburtsdatum": {"Geburtsdatum", "Geburtstag", "Date of Birth", "DOB"},
	"gehalt":       {"Gehalt", "Lohn", "Vergütung", "Salary", "Verdienst"},
	"versicherung": {"Versicherung", "Insurance", "Police"},
}

const synonymPrompt = `Generiere Synonyme und alternative Schreibweisen für die Suchbegriffe in dieser Frage.

Frage: %s

Aufgabe: Extrahiere die wichtigsten Suchbegriffe und gib 2-4 Synonyme oder alternative Schreibweisen pro Begriff.

Beispiele:
- "Steuer ID" → Steuer-Identifikationsnummer, Steuernummer, Tax ID
- "Rechnung" → Invoice, Faktura, Beleg
- "Adresse" → Anschrift, Wohnort, Address

WICHTIG: Antworte NUR mit den Synonymen, durch Komma getrennt, KEINE Erklärungen!

Synonyme:`

// Expander appends synonyms to a query so that the embedding also covers
// alternative spellings of the searched terms. The static table is checked
// first; the language model is only consulted when no table entry matched
// and LLM expansion is enabled.
type Expander struct {
	synonyms map[string][]string
	llm      nlp.Client
	useLLM   bool
	logger   *slog.Logger
}

// NewExpander creates an expander. A nil or empty synonyms map falls back
// to DefaultSynonyms. The llm client may be nil when useLLM is false.
func NewExpander(synonyms map[string][]string, llm nlp.Client, useLLM bool, logger *slog.Logger) *Expander {
	if len(synonyms) == 0 {
		synonyms = DefaultSynonyms
	}
	normalized := make(map[string][]string, len(synonyms))
	for k, v := range synonyms {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		synonyms: normalized,
		llm:      llm,
		useLLM:   useLLM,
		logger:   logger,
	}
}

// Expand returns the query with matching synonyms appended. Expansion never
// fails: when nothing matches and the LLM is unavailable or errors, the
// original query is returned unchanged.
func (e *Expander) Expand(ctx context.Context, query string) string {
	lower := strings.ToLower(query)

	var terms []string
	for key, synonyms := range e.synonyms {
		if strings.Contains(lower, key) {
			terms = append(terms, synonyms...)
		}
	}
	if len(terms) > 0 {
		expanded := query + " " + strings.Join(terms, " ")
		e.logger.Debug("query expanded from synonym table", "query", query, "terms", len(terms))
		return expanded
	}

	if e.useLLM && e.llm != nil {
		return e.expandLLM(ctx, query)
	}
	return query
}

func (e *Expander) expandLLM(ctx context.Context, query string) string {
	prompt := strings.Replace(synonymPrompt, "%s", query, 1)
	// Low temperature keeps the synonym list close to the input terms.
	text, err := nlp.Generate(ctx, e.llm, prompt, 0.3)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.Warn("llm query expansion failed", "error", err)
		}
		return query
	}
	e.logger.Debug("query expanded by llm", "query", query)
	return query + " " + strings.TrimSpace(text)
}
