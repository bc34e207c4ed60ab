package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuscloset/closetmail/internal/logging"
)

const (
	headerUserID    = "X-USER-ID"
	headerRequestID = "X-Request-ID"
	userKey         = "closetd.user"
)

// requestID echoes or assigns X-Request-ID and attaches a tagged logger to
// the request context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		logger := logging.WithRequest(s.log, id)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger := logging.FromContext(c.Request.Context())
		logger.Error().Interface("panic", recovered).Msg("handler panicked")
		abortError(c, http.StatusInternalServerError, "internal server error")
	})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := logging.FromContext(c.Request.Context())
		event := logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("user_id", c.GetInt64(userKey)).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// authenticate requires a positive numeric X-USER-ID.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		userID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || userID <= 0 {
			abortError(c, http.StatusUnauthorized, "missing or invalid "+headerUserID+" header")
			return
		}
		c.Set(userKey, userID)
		logger := logging.WithUser(logging.FromContext(c.Request.Context()), userID)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userKey)
}
