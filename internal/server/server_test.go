package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campuscloset/closetmail/internal/db"
	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t        *testing.T
	srv      *Server
	repo     *db.MessageRepository
	database *db.DB
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	database, err := db.Open(context.Background(), db.DefaultConfig(filepath.Join(t.TempDir(), "closetd.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	repo := db.NewMessageRepository(database)
	return &harness{t: t, srv: NewServer(repo, cfg), repo: repo, database: database}
}

func (h *harness) do(method, path string, user int64, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(headerUserID, fmt.Sprint(user))
	}
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (h *harness) seed(msgs ...models.Message) {
	h.t.Helper()
	for i := range msgs {
		msg := msgs[i]
		require.NoError(h.t, h.repo.Create(context.Background(), &msg))
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthzAndRequestID(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	rec := h.do(http.MethodGet, "/healthz", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec = httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get(headerRequestID))
}

func TestMessagesRequireUser(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	for _, header := range []string{"", "abc", "-4", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/messages/inbox", nil)
		if header != "" {
			req.Header.Set(headerUserID, header)
		}
		rec := httptest.NewRecorder()
		h.srv.Engine().ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)

		body := decode[errorBody](t, rec)
		require.Equal(t, http.StatusUnauthorized, body.Status)
		require.Equal(t, "Unauthorized", body.Error)
		require.Equal(t, "/messages/inbox", body.Path)
		require.False(t, body.Timestamp.IsZero())
	}
}

func TestSendMessage(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	rec := h.do(http.MethodPost, "/messages", 1, models.SendRequest{ReceiverID: 2, PostID: 10, Content: "  still available?  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	msg := decode[models.Message](t, rec)
	require.NotZero(t, msg.ID)
	require.Equal(t, int64(1), msg.SenderID)
	require.Equal(t, int64(2), msg.ReceiverID)
	require.Equal(t, int64(2), msg.OtherUserID)
	require.Equal(t, "still available?", msg.Content)
	require.False(t, msg.CreatedAt.IsZero())
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t, Config{SendRPS: 100, SendBurst: 100, MaxPageSize: 50})

	cases := map[string]any{
		"blank":        models.SendRequest{ReceiverID: 2, PostID: 10, Content: "   "},
		"self":         models.SendRequest{ReceiverID: 1, PostID: 10, Content: "hi"},
		"no receiver":  models.SendRequest{PostID: 10, Content: "hi"},
		"no post":      models.SendRequest{ReceiverID: 2, Content: "hi"},
		"too long":     models.SendRequest{ReceiverID: 2, PostID: 10, Content: strings.Repeat("x", models.MaxContentLength+1)},
		"wrong shapes": map[string]any{"receiverId": "two"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/messages", 1, body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Equal(t, "Bad Request", decode[errorBody](t, rec).Error)
		})
	}

	rec := h.do(http.MethodGet, "/messages/inbox", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]models.Message](t, rec))
}

func TestSendRateLimit(t *testing.T) {
	h := newHarness(t, Config{SendRPS: 0.001, SendBurst: 2, MaxPageSize: 50})
	req := models.SendRequest{ReceiverID: 2, PostID: 10, Content: "hi"}

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", 1, req).Code)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", 1, req).Code)

	rec := h.do(http.MethodPost, "/messages", 1, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, http.StatusTooManyRequests, decode[errorBody](t, rec).Status)

	// Other users have their own bucket.
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", 2, models.SendRequest{ReceiverID: 1, PostID: 10, Content: "hey"}).Code)
}

func TestInboxIncludesBothDirections(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	h.seed(
		models.Message{SenderID: 2, ReceiverID: 1, PostID: 10, Content: "hi", CreatedAt: base},
		models.Message{SenderID: 1, ReceiverID: 2, PostID: 10, Content: "hello", CreatedAt: base.Add(time.Minute)},
		models.Message{SenderID: 3, ReceiverID: 1, PostID: 11, Content: "price?", CreatedAt: base.Add(2 * time.Minute)},
	)

	rec := h.do(http.MethodGet, "/messages/inbox", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]models.Message](t, rec)
	require.Len(t, inbox, 3)
	require.Equal(t, "price?", inbox[0].Content)
	require.Equal(t, int64(3), inbox[0].OtherUserID)
	require.Equal(t, int64(2), inbox[1].OtherUserID)

	rec = h.do(http.MethodGet, "/messages/inbox?page=1&size=2", 1, nil)
	require.Len(t, decode[[]models.Message](t, rec), 1)

	rec = h.do(http.MethodGet, "/messages/sent", 1, nil)
	sent := decode[[]models.Message](t, rec)
	require.Len(t, sent, 1)
	require.Equal(t, "hello", sent[0].Content)
}

func TestPageSizeIsClamped(t *testing.T) {
	h := newHarness(t, Config{SendRPS: 1, SendBurst: 1, MaxPageSize: 2})
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		h.seed(models.Message{SenderID: 2, ReceiverID: 1, PostID: 10, Content: "m", CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	rec := h.do(http.MethodGet, "/messages/inbox?size=500", 1, nil)
	require.Len(t, decode[[]models.Message](t, rec), 2)
}

func TestInboxWithoutPagingReturnsEverything(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	total := db.DefaultPageSize + 10
	for i := 0; i < total; i++ {
		h.seed(models.Message{SenderID: 2, ReceiverID: 1, PostID: int64(100 + i), Content: "m", CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	rec := h.do(http.MethodGet, "/messages/inbox", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Message](t, rec), total)

	rec = h.do(http.MethodGet, "/messages/sent", 2, nil)
	require.Len(t, decode[[]models.Message](t, rec), total)

	rec = h.do(http.MethodGet, "/messages/inbox?page=0", 1, nil)
	require.Len(t, decode[[]models.Message](t, rec), db.DefaultPageSize)
}

func TestHandlersLogThroughRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	h := newHarness(t, DefaultConfig())
	rec := h.do(http.MethodPost, "/messages", 1, models.SendRequest{ReceiverID: 2, PostID: 10, Content: "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := buf.String()
	require.Contains(t, out, `"message":"database opened"`)
	require.Contains(t, out, `"message":"message sent"`)
	require.Contains(t, out, `"user_id":1`)
	require.Contains(t, out, `"request_id":"`+rec.Header().Get(headerRequestID)+`"`)

	require.NoError(t, h.database.Close())
	buf.Reset()
	rec = h.do(http.MethodGet, "/messages/inbox", 1, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decode[errorBody](t, rec).Message)
	require.Contains(t, buf.String(), `"message":"internal error"`)
}

func TestConversationEndpoint(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	h.seed(
		models.Message{SenderID: 1, ReceiverID: 2, PostID: 10, Content: "second", CreatedAt: base.Add(time.Minute)},
		models.Message{SenderID: 2, ReceiverID: 1, PostID: 10, Content: "first", CreatedAt: base},
		models.Message{SenderID: 2, ReceiverID: 1, PostID: 11, Content: "elsewhere", CreatedAt: base},
	)

	rec := h.do(http.MethodGet, "/messages/conversation?postId=10&otherUserId=2", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[[]models.Message](t, rec)
	require.Len(t, conv, 2)
	require.Equal(t, "first", conv[0].Content)
	require.Equal(t, "second", conv[1].Content)

	rec = h.do(http.MethodGet, "/messages/conversation?postId=10", 1, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadMessageAndUnreadCount(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.seed(models.Message{SenderID: 2, ReceiverID: 1, PostID: 10, Content: "hi"})

	rec := h.do(http.MethodGet, "/messages/unread-count", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), decode[models.UnreadCount](t, rec).Unread)

	require.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/messages/1", 2, nil).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/messages/99", 1, nil).Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/messages/abc", 1, nil).Code)

	rec = h.do(http.MethodGet, "/messages/1", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msg := decode[models.Message](t, rec)
	require.True(t, msg.Read)

	rec = h.do(http.MethodGet, "/messages/unread-count", 1, nil)
	require.Equal(t, int64(0), decode[models.UnreadCount](t, rec).Unread)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", 1, models.SendRequest{ReceiverID: 2, PostID: 10, Content: "hi"}).Code)

	rec := h.do(http.MethodGet, "/metrics", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "closetd_messages_sent_total 1")
	require.Contains(t, body, `closetd_http_requests_total{method="POST",route="/messages",status="201"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	rec := h.do(http.MethodGet, "/nope", 0, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "/nope", decode[errorBody](t, rec).Path)
}
