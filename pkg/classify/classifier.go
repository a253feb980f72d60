// Package classify assigns Paperless metadata to documents using a language
// model: document type, correspondent, person tags and the issue date. The
// model may only pick values from a configured vocabulary; anything else is
// discarded during validation.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/paperqa/paperqa/pkg/nlp"
)

// maxContentLength caps how much of the document text is sent to the model.
const maxContentLength = 3000

const classifyPrompt = `Analysiere das folgende Dokument und extrahiere die Metadaten SEHR GENAU.

DOKUMENTENTEXT:
%s

WICHTIG: Sei KONSERVATIV bei der Klassifizierung. Wenn du dir nicht SICHER bist, setze null!

AUFGABE:
Extrahiere folgende Informationen im JSON-Format:

1. DOKUMENTENTYP - Wähle NUR EINEN aus dieser exakten Liste (oder null wenn NICHTS passt):
%s

2. PERSONEN-TAGS - Wähle NUR Namen die SOWOHL im Dokument vorkommen ALS AUCH in dieser Liste stehen:
%s
WICHTIG: Wenn ein Name im Dokument ist aber NICHT in dieser Liste -> IGNORIERE ihn!

3. KORRESPONDENT - Wähle EINEN aus dieser exakten Liste (oder null wenn unsicher):
%s

4. AUSSTELLDATUM - Extrahiere das Datum im Format YYYY-MM-DD (oder null wenn nicht gefunden)

REGELN:
- Verwende NUR Werte aus den Listen oben
- Wenn der Dokumententyp nicht EINDEUTIG einer Kategorie entspricht -> null
- Wenn kein Korrespondent aus der Liste im Dokument vorkommt -> null
- Sei VORSICHTIG: Lieber null als falsche Zuordnung!

ANTWORTFORMAT (nur JSON, keine Erklärungen):
{
    "document_type": "Rechnung",
    "person_tags": ["Fahad"],
    "correspondent": "Amazon",
    "date": "2024-03-15"
}

Antworte NUR mit dem JSON-Objekt.
`

// Vocabulary lists the values the classifier may assign.
type Vocabulary struct {
	DocumentTypes  []string
	PersonTags     []string
	Correspondents []string
}

// Result is a validated classification. Empty fields mean the model was not
// confident enough to assign a value.
type Result struct {
	DocumentType  string   `json:"document_type,omitempty"`
	PersonTags    []string `json:"person_tags,omitempty"`
	Correspondent string   `json:"correspondent,omitempty"`
	Date          string   `json:"date,omitempty"`
}

// Empty reports whether no metadata was assigned.
func (r Result) Empty() bool {
	return r.DocumentType == "" && len(r.PersonTags) == 0 && r.Correspondent == "" && r.Date == ""
}

// Classifier extracts document metadata with a language model.
type Classifier struct {
	llm    nlp.Client
	vocab  Vocabulary
	logger *slog.Logger
}

// NewClassifier creates a classifier over the given vocabulary.
func NewClassifier(llm nlp.Client, vocab Vocabulary, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: llm, vocab: vocab, logger: logger}
}

// rawResult mirrors the JSON the model is asked to produce. person_tags may
// come back as a single string instead of a list.
type rawResult struct {
	DocumentType  string          `json:"document_type"`
	PersonTags    json.RawMessage `json:"person_tags"`
	Correspondent string          `json:"correspondent"`
	Date          string          `json:"date"`
}

// Classify sends the document text to the model and returns the validated
// classification.
func (c *Classifier) Classify(ctx context.Context, content string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, fmt.Errorf("document content is empty")
	}
	if len(content) > maxContentLength {
		content = content[:maxContentLength]
	}

	prompt := fmt.Sprintf(classifyPrompt,
		content,
		strings.Join(c.vocab.DocumentTypes, ", "),
		strings.Join(c.vocab.PersonTags, ", "),
		strings.Join(c.vocab.Correspondents, ", "),
	)

	// Very low temperature keeps the classification deterministic.
	text, err := nlp.Generate(ctx, c.llm, prompt, 0.05)
	if err != nil {
		return Result{}, fmt.Errorf("classification failed: %w", err)
	}

	raw, err := parseClassification(text)
	if err != nil {
		c.logger.Warn("could not parse classification response", "error", err)
		return Result{}, nil
	}

	return c.validate(raw), nil
}

func parseClassification(text string) (rawResult, error) {
	var raw rawResult

	start := strings.Index(text, "{")
	if start == -1 {
		return raw, fmt.Errorf("no JSON object in response")
	}
	end := strings.LastIndex(text, "}")
	var jsonStr string
	if end > start {
		jsonStr = text[start : end+1]
	} else {
		// Truncated output, the repairer can usually close it.
		jsonStr = text[start:]
	}

	if repaired, err := jsonrepair.JSONRepair(jsonStr); err == nil {
		jsonStr = repaired
	}

	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return raw, fmt.Errorf("invalid classification JSON: %w", err)
	}
	return raw, nil
}

// validate drops every value outside the vocabulary. The model is told to
// stick to the lists, but smaller models routinely invent entries.
func (c *Classifier) validate(raw rawResult) Result {
	var result Result

	if containsValue(c.vocab.DocumentTypes, raw.DocumentType) {
		result.DocumentType = raw.DocumentType
	} else if raw.DocumentType != "" && raw.DocumentType != "null" {
		c.logger.Warn("discarding unknown document type", "value", raw.DocumentType)
	}

	if containsValue(c.vocab.Correspondents, raw.Correspondent) {
		result.Correspondent = raw.Correspondent
	} else if raw.Correspondent != "" && raw.Correspondent != "null" {
		c.logger.Warn("discarding unknown correspondent", "value", raw.Correspondent)
	}

	for _, tag := range decodeTags(raw.PersonTags) {
		if containsValue(c.vocab.PersonTags, tag) {
			result.PersonTags = append(result.PersonTags, tag)
		}
	}

	if len(raw.Date) >= 10 && raw.Date != "null" {
		result.Date = raw.Date[:10]
	}

	return result
}

// decodeTags accepts both a JSON list and a bare string.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

func containsValue(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
