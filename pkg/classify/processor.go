package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperqa/paperqa/pkg/history"
	"github.com/paperqa/paperqa/pkg/types"
)

// Source is the slice of the document archive the processor reads from.
type Source interface {
	ListDocuments(ctx context.Context, tag string) ([]types.Document, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
}

// Ledger records which documents have already been classified, so repeated
// runs skip them.
type Ledger interface {
	IsProcessed(documentID string) (bool, error)
	Record(entry history.Entry) error
}

// Report summarizes one batch run.
type Report struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Processor runs the batch classification workflow: list the documents
// tagged for processing, skip those already in the ledger, classify the
// rest, write the metadata back and record each outcome.
type Processor struct {
	source     Source
	classifier *Classifier
	applier    *Applier
	ledger     Ledger
	tag        string
	logger     *slog.Logger
}

// NewProcessor creates a processor. With a nil applier classifications are
// recorded but never written back.
func NewProcessor(source Source, classifier *Classifier, applier *Applier, ledger Ledger, tag string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		source:     source,
		classifier: classifier,
		applier:    applier,
		ledger:     ledger,
		tag:        tag,
		logger:     logger,
	}
}

// Pending returns the tagged documents that have no ledger entry yet.
func (p *Processor) Pending(ctx context.Context) ([]types.Document, error) {
	docs, err := p.source.ListDocuments(ctx, p.tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list tagged documents: %w", err)
	}

	var pending []types.Document
	for _, doc := range docs {
		done, err := p.ledger.IsProcessed(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("ledger lookup for document %s failed: %w", doc.ID, err)
		}
		if !done {
			pending = append(pending, doc)
		}
	}
	return pending, nil
}

// ProcessPending classifies every pending document and records each
// outcome. Failures are counted and recorded, not fatal; the run only stops
// when the context is cancelled.
func (p *Processor) ProcessPending(ctx context.Context) (Report, error) {
	docs, err := p.source.ListDocuments(ctx, p.tag)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list tagged documents: %w", err)
	}
	p.logger.Info("batch classification started", "tag", p.tag, "documents", len(docs))

	var report Report
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		done, err := p.ledger.IsProcessed(doc.ID)
		if err != nil {
			return report, fmt.Errorf("ledger lookup for document %s failed: %w", doc.ID, err)
		}
		if done {
			report.Skipped++
			continue
		}

		if err := p.ProcessDocument(ctx, doc); err != nil {
			p.logger.Error("classification failed", "doc", doc.ID, "title", doc.Title, "error", err)
			report.Failed++
			continue
		}
		report.Processed++
	}

	p.logger.Info("batch classification finished",
		"processed", report.Processed, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// ProcessDocuments classifies the given documents regardless of their
// ledger state. An explicit selection overrides the skip check, like a
// forced re-index; outcomes are still recorded.
func (p *Processor) ProcessDocuments(ctx context.Context, ids []string) (Report, error) {
	var report Report
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc, err := p.source.GetDocument(ctx, id)
		if err != nil {
			p.logger.Error("could not fetch document", "doc", id, "error", err)
			p.record(types.Document{ID: id}, Result{}, err)
			report.Failed++
			continue
		}
		if err := p.ProcessDocument(ctx, *doc); err != nil {
			p.logger.Error("classification failed", "doc", id, "error", err)
			report.Failed++
			continue
		}
		report.Processed++
	}
	return report, nil
}

// ProcessDocument classifies one document, writes the result back and
// records the outcome in the ledger.
func (p *Processor) ProcessDocument(ctx context.Context, doc types.Document) error {
	if strings.TrimSpace(doc.Content) == "" {
		full, err := p.source.GetDocument(ctx, doc.ID)
		if err != nil {
			p.record(doc, Result{}, err)
			return err
		}
		doc = *full
	}
	if strings.TrimSpace(doc.Content) == "" {
		err := fmt.Errorf("document %s has no content", doc.ID)
		p.record(doc, Result{}, err)
		return err
	}

	result, err := p.classifier.Classify(ctx, doc.Content)
	if err != nil {
		p.record(doc, Result{}, err)
		return err
	}

	if p.applier != nil && !result.Empty() {
		if err := p.applier.Apply(ctx, doc, result); err != nil {
			p.record(doc, result, err)
			return err
		}
	}

	p.record(doc, result, nil)
	return nil
}

// record writes the processing outcome. Ledger failures are logged, not
// returned; losing one entry must not abort a batch run.
func (p *Processor) record(doc types.Document, result Result, procErr error) {
	entry := history.Entry{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Success:    procErr == nil,
	}
	if procErr != nil {
		entry.Error = procErr.Error()
	}
	if !result.Empty() {
		if raw, err := json.Marshal(result); err == nil {
			entry.Result = raw
		}
	}
	if err := p.ledger.Record(entry); err != nil {
		p.logger.Warn("could not record ledger entry", "doc", doc.ID, "error", err)
	}
}
