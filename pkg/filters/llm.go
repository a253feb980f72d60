package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/paperqa/paperqa/pkg/nlp"
	"github.com/paperqa/paperqa/pkg/types"
)

const extractPrompt = `Analysiere diese Suchanfrage und extrahiere Filter-Kriterien.

Suchanfrage: %s
%s
Aufgabe: Extrahiere folgende Filter falls in der Frage enthalten:
- document_type: Dokumenttyp (z.B. "Rechnung", "Vertrag", "Lieferschein")
- correspondent: Absender/Korrespondent (z.B. "Amazon", "Telekom")
- tags: Tags (z.B. "wichtig", "privat")
- year: Jahr (z.B. "2024")

WICHTIG:
- Nutze NUR Werte die in der Frage explizit genannt werden
- Wenn nichts gefunden wurde, gib leeres JSON zurück: {}
- Antworte NUR mit JSON, keine Erklärungen!

Beispiele:
Frage: "Zeige mir Rechnungen von Amazon aus 2024"
Antwort: {"document_type": "Rechnung", "correspondent": "Amazon", "year": "2024"}

Frage: "Welche Verträge habe ich?"
Antwort: {"document_type": "Vertrag"}

Frage: "Was steht in meinen Dokumenten?"
Antwort: {}

JSON:`

// LLMExtractor asks the language model to pull filter criteria out of a
// question. Malformed model output is repaired before parsing; anything
// still unparseable yields the zero filter.
type LLMExtractor struct {
	llm    nlp.Client
	vocab  Vocabulary
	logger *slog.Logger
}

var _ Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates a model-backed extractor. The vocabulary is
// included in the prompt so the model prefers known values.
func NewLLMExtractor(llm nlp.Client, vocab Vocabulary, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{llm: llm, vocab: vocab, logger: logger}
}

type extractedFilters struct {
	DocumentType  string   `json:"document_type"`
	Correspondent string   `json:"correspondent"`
	Year          string   `json:"year"`
	Tags          []string `json:"tags"`
}

// Extract returns the filter the model read out of the question, or the
// zero filter when the model fails or answers with something unusable.
func (e *LLMExtractor) Extract(ctx context.Context, question string) types.Filter {
	prompt := fmt.Sprintf(extractPrompt, question, e.vocabContext())

	// Low temperature keeps the extraction literal.
	text, err := nlp.Generate(ctx, e.llm, prompt, 0.1)
	if err != nil {
		e.logger.Warn("llm filter extraction failed", "error", err)
		return types.Filter{}
	}

	return parseFilterResponse(text, e.logger)
}

func (e *LLMExtractor) vocabContext() string {
	var b strings.Builder
	if len(e.vocab.DocumentTypes) > 0 {
		fmt.Fprintf(&b, "\nVerfügbare Dokumenttypen: %s", strings.Join(e.vocab.DocumentTypes, ", "))
	}
	if len(e.vocab.Correspondents) > 0 {
		fmt.Fprintf(&b, "\nVerfügbare Korrespondenten: %s", strings.Join(e.vocab.Correspondents, ", "))
	}
	if len(e.vocab.Tags) > 0 {
		fmt.Fprintf(&b, "\nVerfügbare Tags: %s", strings.Join(e.vocab.Tags, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// parseFilterResponse isolates the JSON object in the model output, repairs
// common syntax damage and unmarshals it. Unusable output maps to the zero
// filter.
func parseFilterResponse(text string, logger *slog.Logger) types.Filter {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return types.Filter{}
	}

	jsonStr := text[start : end+1]
	if repaired, err := jsonrepair.JSONRepair(jsonStr); err == nil {
		jsonStr = repaired
	}

	var ef extractedFilters
	if err := json.Unmarshal([]byte(jsonStr), &ef); err != nil {
		logger.Warn("could not parse filter response", "error", err)
		return types.Filter{}
	}

	return types.Filter{
		DocumentType:  strings.TrimSpace(ef.DocumentType),
		Correspondent: strings.TrimSpace(ef.Correspondent),
		Year:          strings.TrimSpace(ef.Year),
		Tags:          ef.Tags,
	}
}
