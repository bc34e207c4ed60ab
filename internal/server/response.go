package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuscloset/closetmail/internal/logging"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

func badRequest(c *gin.Context, message string) {
	abortError(c, http.StatusBadRequest, message)
}

func notFound(c *gin.Context, message string) {
	abortError(c, http.StatusNotFound, message)
}

func serverError(c *gin.Context, err error) {
	logger := logging.FromContext(c.Request.Context())
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	abortError(c, http.StatusInternalServerError, "internal server error")
}
