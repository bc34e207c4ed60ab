package data

import (
	"context"
	"net/http"
	"time"

	"github.com/campuscloset/closetmail/internal/models"
)

const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultTimeout  = 15 * time.Second
	MinTimeout      = time.Second
	MaxTimeout      = 60 * time.Second
	headerUserID    = "X-USER-ID"
	headerRequestID = "X-Request-ID"
	maxResponseSize = 4 << 20
)

// MessageProvider abstracts message access for the closetmail client.
// Every call is a fresh request; nothing is cached between calls.
type MessageProvider interface {
	// Inbox lists every message the current user sent or received.
	Inbox(ctx context.Context) ([]models.Message, error)
	// Sent lists messages sent by the current user.
	Sent(ctx context.Context) ([]models.Message, error)
	// Conversation returns the full history for one thread, oldest first.
	Conversation(ctx context.Context, postID, otherUserID int64) ([]models.Message, error)
	// Message fetches a single received message and marks it read.
	Message(ctx context.Context, id int64) (models.Message, error)
	// UnreadCount returns the number of unread received messages.
	UnreadCount(ctx context.Context) (int64, error)
	// Send delivers a new message from the current user.
	Send(ctx context.Context, req models.SendRequest) (models.Message, error)
}

type APIProviderConfig struct {
	// BaseURL is the messages backend root, e.g. http://localhost:8080.
	BaseURL string
	// UserID is sent as X-USER-ID on every request.
	UserID int64
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}
