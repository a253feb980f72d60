// Package handlers implements the HTTP API endpoints. Each handler struct
// takes the smallest interface it needs, so tests can substitute fakes.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa/pkg/server/dto"
)

// snippetLength bounds the content excerpt returned per search hit.
const snippetLength = 200

func abortError(c *gin.Context, status int, errCode, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

func snippet(text string) string {
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength] + "..."
}
