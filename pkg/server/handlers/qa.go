package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa"
	"github.com/paperqa/paperqa/pkg/server/dto"
	"github.com/paperqa/paperqa/pkg/types"
)

// QAHandler handles question answering and search requests.
type QAHandler struct {
	answerer paperqa.Answerer
	searcher paperqa.Searcher
}

// NewQAHandler creates a new question answering handler.
func NewQAHandler(answerer paperqa.Answerer, searcher paperqa.Searcher) *QAHandler {
	return &QAHandler{answerer: answerer, searcher: searcher}
}

// Ask handles POST /api/v1/ask.
func (h *QAHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	answer, err := h.answerer.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, paperqa.ErrEmptyQuestion) {
			abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		abortError(c, http.StatusInternalServerError, "ask_failed", err.Error())
		return
	}

	sources := make([]dto.SourceResult, 0, len(answer.Sources))
	for _, s := range answer.Sources {
		sources = append(sources, dto.SourceResult{
			DocID:         s.DocID,
			Title:         s.Title,
			Correspondent: s.Correspondent,
			DocumentType:  s.DocumentType,
			Relevance:     s.Relevance,
		})
	}

	c.JSON(http.StatusOK, dto.AskResponse{
		Answer:  answer.Text,
		Sources: sources,
		Confidence: dto.ConfidenceResult{
			Score: answer.Confidence.Score,
			Label: string(answer.Confidence.Label),
		},
		Degraded: answer.Degraded,
	})
}

// Search handles POST /api/v1/search.
func (h *QAHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filter := &types.Filter{
		DocumentType:  req.DocumentType,
		Correspondent: req.Correspondent,
		Year:          req.Year,
		Tags:          req.Tags,
	}
	var filterArg *types.Filter
	if !filter.IsZero() {
		filterArg = filter
	}

	result, err := h.searcher.Search(c.Request.Context(), req.Question, req.K, filterArg)
	if err != nil {
		if errors.Is(err, paperqa.ErrEmptyQuestion) {
			abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		abortError(c, http.StatusInternalServerError, "search_failed", err.Error())
		return
	}

	hits := make([]dto.HitResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, dto.HitResult{
			DocumentID:    hit.DocumentID,
			Title:         hit.Metadata.Title,
			Correspondent: hit.Metadata.Correspondent,
			DocumentType:  hit.Metadata.DocumentType,
			Created:       hit.Metadata.Created,
			Distance:      hit.Distance,
			Snippet:       snippet(hit.Text),
		})
	}

	c.JSON(http.StatusOK, dto.SearchResponse{
		Hits:     hits,
		Degraded: result.Degraded,
	})
}
