package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paperqa/paperqa/pkg/types"
)

// MetadataWriter is the slice of the Paperless client the applier needs to
// write a classification back.
type MetadataWriter interface {
	CreateTag(ctx context.Context, name string) (int, error)
	CreateDocumentType(ctx context.Context, name string) (int, error)
	CreateCorrespondent(ctx context.Context, name string) (int, error)
	UpdateDocument(ctx context.Context, id string, fields map[string]any) error
}

// Applier writes classification results back to Paperless, creating missing
// tags, document types and correspondents on the fly.
type Applier struct {
	writer MetadataWriter
	logger *slog.Logger
}

// NewApplier creates an applier.
func NewApplier(writer MetadataWriter, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{writer: writer, logger: logger}
}

// Apply patches the document with the classified metadata. Empty result
// fields leave the corresponding document fields untouched.
func (a *Applier) Apply(ctx context.Context, doc types.Document, result Result) error {
	if result.Empty() {
		a.logger.Debug("classification empty, nothing to apply", "doc", doc.ID)
		return nil
	}

	fields := make(map[string]any)

	if result.DocumentType != "" {
		id, err := a.writer.CreateDocumentType(ctx, result.DocumentType)
		if err != nil {
			return fmt.Errorf("resolve document type %q: %w", result.DocumentType, err)
		}
		fields["document_type"] = id
	}

	if result.Correspondent != "" {
		id, err := a.writer.CreateCorrespondent(ctx, result.Correspondent)
		if err != nil {
			return fmt.Errorf("resolve correspondent %q: %w", result.Correspondent, err)
		}
		fields["correspondent"] = id
	}

	if len(result.PersonTags) > 0 {
		var tagIDs []int
		for _, tag := range result.PersonTags {
			id, err := a.writer.CreateTag(ctx, tag)
			if err != nil {
				return fmt.Errorf("resolve tag %q: %w", tag, err)
			}
			tagIDs = append(tagIDs, id)
		}
		fields["tags"] = tagIDs
	}

	if result.Date != "" {
		fields["created"] = result.Date
	}

	if err := a.writer.UpdateDocument(ctx, doc.ID, fields); err != nil {
		return err
	}
	a.logger.Info("classification applied", "doc", doc.ID, "fields", len(fields))
	return nil
}
