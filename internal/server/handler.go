package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuscloset/closetmail/internal/db"
	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/models"
)

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) { success(c, gin.H{"status": "ok"}) })
	s.router.GET("/metrics", gin.WrapH(s.metricsHandler()))

	api := s.router.Group("/messages", s.authenticate())

	api.POST("", s.sendMessage)
	api.GET("/inbox", s.listInbox)
	api.GET("/sent", s.listSent)
	api.GET("/conversation", s.conversation)
	api.GET("/unread-count", s.unreadCount)
	api.GET("/:id", s.readMessage)
}

// queryPage reads page/size, clamping size to the configured maximum.
// Without either parameter the whole listing is returned.
func (s *Server) queryPage(c *gin.Context) db.Page {
	_, hasPage := c.GetQuery("page")
	_, hasSize := c.GetQuery("size")
	if !hasPage && !hasSize {
		return db.Page{}
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	if page < 0 {
		page = 0
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(db.DefaultPageSize)))
	if size < 1 {
		size = db.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return db.Page{Number: page, Size: size}
}

func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	if raw == "" {
		raw = c.Query(name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) sendMessage(c *gin.Context) {
	user := currentUser(c)
	if !s.limiter.Allow(user) {
		s.metrics.rateLimited.Inc()
		abortError(c, http.StatusTooManyRequests, "sending too fast, slow down")
		return
	}

	var req models.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	req = req.Normalize()
	if err := req.Validate(user); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg := &models.Message{
		SenderID:   user,
		ReceiverID: req.ReceiverID,
		PostID:     req.PostID,
		Content:    req.Content,
	}
	if err := s.messages.Create(c.Request.Context(), msg); err != nil {
		serverError(c, err)
		return
	}
	msg.OtherUserID = msg.ReceiverID
	s.metrics.sent.Inc()

	logger := logging.FromContext(c.Request.Context())
	logger.Info().
		Int64("message_id", msg.ID).
		Int64("post_id", msg.PostID).
		Int64("receiver_id", msg.ReceiverID).
		Msg("message sent")
	created(c, msg)
}

func (s *Server) listInbox(c *gin.Context) {
	items, err := s.messages.ListInbox(c.Request.Context(), currentUser(c), s.queryPage(c))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

func (s *Server) listSent(c *gin.Context) {
	items, err := s.messages.ListSent(c.Request.Context(), currentUser(c), s.queryPage(c))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

func (s *Server) conversation(c *gin.Context) {
	postID, ok := queryID(c, "postId")
	if !ok {
		return
	}
	otherUserID, ok := queryID(c, "otherUserId")
	if !ok {
		return
	}
	items, err := s.messages.Conversation(c.Request.Context(), currentUser(c), postID, otherUserID)
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

func (s *Server) unreadCount(c *gin.Context) {
	count, err := s.messages.CountUnread(c.Request.Context(), currentUser(c))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, models.UnreadCount{Unread: count})
}

func (s *Server) readMessage(c *gin.Context) {
	id, ok := queryID(c, "id")
	if !ok {
		return
	}
	msg, err := s.messages.ReadAsRecipient(c.Request.Context(), id, currentUser(c))
	switch {
	case errors.Is(err, db.ErrMessageNotFound):
		notFound(c, "message not found")
	case errors.Is(err, db.ErrNotRecipient):
		abortError(c, http.StatusForbidden, "message was not addressed to you")
	case err != nil:
		serverError(c, err)
	default:
		success(c, msg)
	}
}
