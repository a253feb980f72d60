package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa"
	"github.com/paperqa/paperqa/pkg/server/dto"
	"github.com/paperqa/paperqa/pkg/types"
)

// IndexHandler handles indexing and index maintenance requests.
type IndexHandler struct {
	indexer    paperqa.Indexer
	maintainer paperqa.Maintainer
	source     paperqa.DocumentSource
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(indexer paperqa.Indexer, maintainer paperqa.Maintainer, source paperqa.DocumentSource) *IndexHandler {
	return &IndexHandler{indexer: indexer, maintainer: maintainer, source: source}
}

// Index handles POST /api/v1/index. An empty document_id indexes the whole
// corpus; a concurrent bulk run is rejected with 409.
func (h *IndexHandler) Index(c *gin.Context) {
	var req dto.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if strings.TrimSpace(req.DocumentID) != "" {
		h.indexOne(c, req)
		return
	}

	stats, err := h.indexer.IndexAll(c.Request.Context(), req.Force)
	if err != nil {
		if errors.Is(err, paperqa.ErrIndexingInProgress) {
			abortError(c, http.StatusConflict, "indexing_in_progress", err.Error())
			return
		}
		abortError(c, http.StatusInternalServerError, "indexing_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.IndexResponse{
		Indexed: stats.Indexed,
		Skipped: stats.Skipped,
		Failed:  stats.Failed,
	})
}

func (h *IndexHandler) indexOne(c *gin.Context, req dto.IndexRequest) {
	doc := types.Document{ID: req.DocumentID}
	if h.source != nil {
		full, err := h.source.GetDocument(c.Request.Context(), req.DocumentID)
		if err != nil {
			abortError(c, http.StatusNotFound, "document_not_found", err.Error())
			return
		}
		doc = *full
	}

	status, err := h.indexer.IndexDocument(c.Request.Context(), doc, req.Force)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "indexing_failed", err.Error())
		return
	}

	resp := dto.IndexResponse{Status: string(status)}
	switch status {
	case types.IndexStatusIndexed:
		resp.Indexed = 1
	case types.IndexStatusSkipped:
		resp.Skipped = 1
	case types.IndexStatusFailed:
		resp.Failed = 1
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDocument handles DELETE /api/v1/documents/:id.
func (h *IndexHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		abortError(c, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}
	if err := h.maintainer.DeleteDocument(c.Request.Context(), id); err != nil {
		abortError(c, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Reset handles DELETE /api/v1/index - drops the whole index.
func (h *IndexHandler) Reset(c *gin.Context) {
	if err := h.maintainer.Reset(c.Request.Context()); err != nil {
		abortError(c, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// Stats handles GET /api/v1/stats.
func (h *IndexHandler) Stats(c *gin.Context) {
	stats, err := h.maintainer.Stats(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusInternalServerError, "stats_failed", err.Error())
		return
	}

	resp := dto.StatsResponse{IndexedChunks: stats.IndexedChunks}
	if stats.History != nil {
		resp.History = &dto.HistoryResult{
			Total:      stats.History.Total,
			Successful: stats.History.Successful,
			Failed:     stats.History.Failed,
		}
	}
	c.JSON(http.StatusOK, resp)
}
