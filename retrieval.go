package paperqa

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperqa/paperqa/pkg/nlp"
	"github.com/paperqa/paperqa/pkg/types"
)

const ragPrompt = `Du bist ein hilfreicher Assistent, der Fragen über Dokumente beantwortet.

Kontext aus relevanten Dokumenten:
%s

Frage: %s

Anleitung:
- Beantworte die Frage basierend NUR auf den bereitgestellten Dokumenten
- WICHTIG: Verstehe Synonyme! Beispiele:
  * "Steuer ID" = "Steuer-Identifikationsnummer" = "Steuernummer" = "Tax ID"
  * "Rechnung" = "Invoice" = "Faktura"
  * "Adresse" = "Anschrift" = "Wohnort"
- Wenn die Dokumente die Information unter einem anderen Namen enthalten, nutze sie trotzdem!
- Wenn die Dokumente keine Antwort enthalten, sage das ehrlich
- Sei präzise und konkret - zitiere die genaue Fundstelle
- Gib Dokumentnummer an wenn du etwas zitierst (z.B. "laut Dokument 2")
- Antworte auf Deutsch in vollständigen Sätzen

Antwort:`

const (
	noDocumentsAnswer = "Ich konnte keine relevanten Dokumente finden, um diese Frage zu beantworten."
	degradedAnswer    = "Die Suche ist momentan nicht verfügbar. Bitte versuche es später erneut."
	noAnswerGenerated = "Entschuldigung, ich konnte keine Antwort generieren."
)

// Search retrieves the k best-matching documents for the question.
//
// The question fans out into several variants (the original plus model
// reformulations, each widened by synonym expansion). Every variant is
// embedded and searched independently with over-fetch; the per-variant hits
// are merged with at most one hit per source document, keeping the lowest
// distance seen for it. The merged set is ordered by ascending distance and
// truncated to k.
//
// A nil filter enables automatic extraction of metadata filters from the
// question; a non-nil filter is applied as given, with extracted values
// filling only the criteria the caller left empty.
func (c *Client) Search(ctx context.Context, question string, k int, filter *types.Filter) (*types.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = c.config.Retrieval.ContextDocs
	}

	filter = c.resolveFilter(ctx, question, filter)

	variants := c.queryVariants(ctx, question)
	fetchK := k * c.config.Retrieval.OverFetchFactor
	if fetchK < k {
		fetchK = k
	}

	where := filter.Where()
	best := make(map[string]types.SearchHit)
	order := make([]string, 0)
	failures := 0

	for _, variant := range variants {
		hits, err := c.searchVariant(ctx, variant, fetchK, where)
		if err != nil {
			c.logger.Warn("query variant failed", "variant", variant, "error", err)
			failures++
			continue
		}
		for _, hit := range hits {
			if !filter.MatchesPost(hit.Metadata) {
				continue
			}
			existing, seen := best[hit.DocumentID]
			if !seen {
				best[hit.DocumentID] = hit
				order = append(order, hit.DocumentID)
			} else if hit.Distance < existing.Distance {
				// Keep the better distance; the document keeps its
				// first-seen position for stable ties.
				best[hit.DocumentID] = hit
			}
		}
	}

	if failures == len(variants) {
		c.logger.Error("all query variants failed", "question", question)
		return &types.RetrievalResult{Degraded: true}, nil
	}

	merged := make([]types.SearchHit, 0, len(order))
	for _, docID := range order {
		merged = append(merged, best[docID])
	}
	types.SortHitsByDistance(merged)
	if len(merged) > k {
		merged = merged[:k]
	}

	c.logger.Info("search finished",
		"question", question, "variants", len(variants), "hits", len(merged))
	return &types.RetrievalResult{Hits: merged}, nil
}

// resolveFilter merges the caller's filter with criteria extracted from the
// question. Explicit values always win.
func (c *Client) resolveFilter(ctx context.Context, question string, explicit *types.Filter) *types.Filter {
	if explicit == nil {
		explicit = &types.Filter{}
	}
	if !c.config.Retrieval.AutoFilters || c.extractor == nil {
		return explicit
	}
	extracted := c.extractor.Extract(ctx, question)
	if !extracted.IsZero() {
		c.logger.Debug("auto filter extracted",
			"type", extracted.DocumentType, "correspondent", extracted.Correspondent,
			"year", extracted.Year, "tags", len(extracted.Tags))
	}
	return types.Merge(explicit, &extracted)
}

// queryVariants builds the expanded query fan-out for a question: the
// original plus model reformulations, each run through synonym expansion,
// capped at MaxVariants.
func (c *Client) queryVariants(ctx context.Context, question string) []string {
	raw := []string{question}
	if c.config.Retrieval.MultiQuery && c.multi != nil {
		raw = c.multi.Variants(ctx, question, c.config.Retrieval.QueryVariants)
	}

	max := c.config.Retrieval.MaxVariants
	if max > 0 && len(raw) > max {
		raw = raw[:max]
	}

	variants := make([]string, len(raw))
	for i, q := range raw {
		variants[i] = c.expander.Expand(ctx, q)
	}
	return variants
}

func (c *Client) searchVariant(ctx context.Context, variant string, k int, where map[string]string) ([]types.SearchHit, error) {
	vector, err := c.embedder.EmbedSingle(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return c.store.Search(ctx, vector, k, where)
}

// Ask retrieves context for the question and generates a cited answer. The
// answer carries its sources and a confidence estimate; retrieval backend
// failures produce a degraded answer instead of an error.
func (c *Client) Ask(ctx context.Context, question string) (*types.Answer, error) {
	k := c.config.Retrieval.ContextDocs

	result, err := c.Search(ctx, question, k, nil)
	if err != nil {
		return nil, err
	}

	if result.Degraded {
		return &types.Answer{
			Text:       degradedAnswer,
			Sources:    []types.Source{},
			Confidence: types.Confidence{Label: types.ConfidenceLow},
			Degraded:   true,
		}, nil
	}

	if result.Empty() {
		return &types.Answer{
			Text:       noDocumentsAnswer,
			Sources:    []types.Source{},
			Confidence: types.Confidence{Label: types.ConfidenceLow},
		}, nil
	}

	prompt := fmt.Sprintf(ragPrompt, buildContext(result.Hits), question)

	resp, err := c.llm.Chat(ctx, []types.Message{nlp.NewUserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return &types.Answer{
			Text:       noAnswerGenerated,
			Sources:    collectSources(result.Hits),
			Confidence: types.Confidence{Label: types.ConfidenceLow},
		}, nil
	}

	return &types.Answer{
		Text:       text,
		Sources:    collectSources(result.Hits),
		Confidence: c.estimator.Estimate(result.Hits, text, k),
	}, nil
}

// buildContext renders the retrieved chunks as numbered documents for the
// prompt, so the model can cite them by number.
func buildContext(hits []types.SearchHit) string {
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Dokument %d]\n", i+1)
		title := hit.Metadata.Title
		if title == "" {
			title = "Unbekannt"
		}
		fmt.Fprintf(&b, "Titel: %s\n", title)
		if hit.Metadata.Correspondent != "" {
			fmt.Fprintf(&b, "Von: %s\n", hit.Metadata.Correspondent)
		}
		if hit.Metadata.DocumentType != "" {
			fmt.Fprintf(&b, "Typ: %s\n", hit.Metadata.DocumentType)
		}
		fmt.Fprintf(&b, "Inhalt: %s\n", hit.Text)
	}
	return b.String()
}

func collectSources(hits []types.SearchHit) []types.Source {
	sources := make([]types.Source, 0, len(hits))
	for _, hit := range hits {
		title := hit.Metadata.Title
		if title == "" {
			title = "Unbekannt"
		}
		sources = append(sources, types.Source{
			DocID:         hit.DocumentID,
			Title:         title,
			Correspondent: hit.Metadata.Correspondent,
			DocumentType:  hit.Metadata.DocumentType,
			Relevance:     1 - hit.Distance/2,
		})
	}
	return sources
}
