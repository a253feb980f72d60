package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa/pkg/classify"
	"github.com/paperqa/paperqa/pkg/server/dto"
	"github.com/paperqa/paperqa/pkg/types"
)

// BatchProcessor runs the ledger-gated classification workflow.
type BatchProcessor interface {
	Pending(ctx context.Context) ([]types.Document, error)
	ProcessPending(ctx context.Context) (classify.Report, error)
	ProcessDocuments(ctx context.Context, ids []string) (classify.Report, error)
}

// DocumentsHandler exposes the batch classification workflow.
type DocumentsHandler struct {
	processor BatchProcessor
}

// NewDocumentsHandler creates a handler around the batch processor.
func NewDocumentsHandler(processor BatchProcessor) *DocumentsHandler {
	return &DocumentsHandler{processor: processor}
}

// Pending handles GET /api/v1/documents/pending.
func (h *DocumentsHandler) Pending(c *gin.Context) {
	docs, err := h.processor.Pending(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusInternalServerError, "pending_failed", err.Error())
		return
	}

	resp := dto.PendingResponse{
		Documents: make([]dto.PendingDocument, 0, len(docs)),
		Count:     len(docs),
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, dto.PendingDocument{
			ID:      d.ID,
			Title:   d.Title,
			Created: d.Created,
			Tags:    d.Tags,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Process handles POST /api/v1/documents/process.
func (h *DocumentsHandler) Process(c *gin.Context) {
	// An empty body means: process everything pending.
	var req dto.ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	var (
		report classify.Report
		err    error
	)
	if len(req.DocumentIDs) > 0 {
		report, err = h.processor.ProcessDocuments(ctx, req.DocumentIDs)
	} else {
		report, err = h.processor.ProcessPending(ctx)
	}
	if err != nil {
		abortError(c, http.StatusInternalServerError, "processing_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.ProcessResponse{
		Processed: report.Processed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	})
}
