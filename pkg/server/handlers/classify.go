package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa"
	"github.com/paperqa/paperqa/pkg/classify"
	"github.com/paperqa/paperqa/pkg/server/dto"
	"github.com/paperqa/paperqa/pkg/types"
)

// DocumentClassifier suggests metadata for document text.
type DocumentClassifier interface {
	Classify(ctx context.Context, content string) (classify.Result, error)
}

// MetadataApplier writes a classification back to the document source.
type MetadataApplier interface {
	Apply(ctx context.Context, doc types.Document, result classify.Result) error
}

// ClassifyHandler handles document classification requests.
type ClassifyHandler struct {
	classifier DocumentClassifier
	applier    MetadataApplier
	source     paperqa.DocumentSource
}

// NewClassifyHandler creates a new classification handler. The applier and
// source may be nil; apply requests then fail with 400.
func NewClassifyHandler(classifier DocumentClassifier, applier MetadataApplier, source paperqa.DocumentSource) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier, applier: applier, source: source}
}

// Classify handles POST /api/v1/classify.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx := c.Request.Context()

	var doc types.Document
	content := req.Content
	if strings.TrimSpace(req.DocumentID) != "" {
		if h.source == nil {
			abortError(c, http.StatusBadRequest, "invalid_request", "no document source configured")
			return
		}
		full, err := h.source.GetDocument(ctx, req.DocumentID)
		if err != nil {
			abortError(c, http.StatusNotFound, "document_not_found", err.Error())
			return
		}
		doc = *full
		if content == "" {
			content = full.Content
		}
	}

	result, err := h.classifier.Classify(ctx, content)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "classification_failed", err.Error())
		return
	}

	applied := false
	if req.Apply && !result.Empty() {
		if h.applier == nil {
			abortError(c, http.StatusBadRequest, "invalid_request", "metadata write-back not configured")
			return
		}
		if err := h.applier.Apply(ctx, doc, result); err != nil {
			abortError(c, http.StatusInternalServerError, "apply_failed", err.Error())
			return
		}
		applied = true
	}

	c.JSON(http.StatusOK, dto.ClassifyResponse{
		DocumentType:  result.DocumentType,
		PersonTags:    result.PersonTags,
		Correspondent: result.Correspondent,
		Date:          result.Date,
		Applied:       applied,
	})
}
