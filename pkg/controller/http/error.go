package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

func statusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as {error} with the status of its kind. Server side
// failures are logged with their full chain.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusOf(model.KindOf(err))
	if status >= http.StatusInternalServerError {
		logging.From(c.Request.Context()).Error("request failed",
			"error", err,
			"kind", model.KindOf(err).String(),
			"path", c.Request.URL.Path,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": model.PublicMessage(err)})
}
