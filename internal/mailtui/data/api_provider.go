package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/mailtui/threading"
	"github.com/campuscloset/closetmail/internal/models"
)

var (
	ErrMissingUser    = errors.New("current user id is not configured")
	ErrInvalidBaseURL = errors.New("invalid api base url")
)

// APIError is a non-2xx response from the messages backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Path    string
}

func (e *APIError) Error() string {
	text := strings.TrimSpace(e.Message)
	if text == "" {
		text = strings.TrimSpace(e.Code)
	}
	if text == "" {
		text = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api %d: %s", e.Status, text)
}

// StatusCode returns the HTTP status of err if it is an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// apiErrorBody mirrors the backend's error payload.
type apiErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

// APIProvider talks to the messages REST backend.
type APIProvider struct {
	base    *url.URL
	userID  int64
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

var _ MessageProvider = (*APIProvider)(nil)

func NewAPIProvider(cfg APIProviderConfig) (*APIProvider, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	if cfg.UserID <= 0 {
		return nil, ErrMissingUser
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &APIProvider{
		base:    base,
		userID:  cfg.UserID,
		timeout: timeout,
		client:  client,
		log:     logging.Component("api"),
	}, nil
}

func (p *APIProvider) Inbox(ctx context.Context) ([]models.Message, error) {
	body, err := p.do(ctx, http.MethodGet, "/messages/inbox", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeMessageList(body)
}

func (p *APIProvider) Sent(ctx context.Context) ([]models.Message, error) {
	body, err := p.do(ctx, http.MethodGet, "/messages/sent", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeMessageList(body)
}

func (p *APIProvider) Conversation(ctx context.Context, postID, otherUserID int64) ([]models.Message, error) {
	if postID <= 0 || otherUserID <= 0 {
		return nil, fmt.Errorf("conversation requires post and counterparty, got post=%d other=%d", postID, otherUserID)
	}
	query := url.Values{}
	query.Set("postId", strconv.FormatInt(postID, 10))
	query.Set("otherUserId", strconv.FormatInt(otherUserID, 10))

	body, err := p.do(ctx, http.MethodGet, "/messages/conversation", query, nil)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessageList(body)
	if err != nil {
		return nil, err
	}
	threading.SortConversation(msgs)
	return msgs, nil
}

func (p *APIProvider) Message(ctx context.Context, id int64) (models.Message, error) {
	if id <= 0 {
		return models.Message{}, fmt.Errorf("invalid message id %d", id)
	}
	body, err := p.do(ctx, http.MethodGet, "/messages/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return models.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func (p *APIProvider) UnreadCount(ctx context.Context) (int64, error) {
	body, err := p.do(ctx, http.MethodGet, "/messages/unread-count", nil, nil)
	if err != nil {
		return 0, err
	}
	var out models.UnreadCount
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode unread count: %w", err)
	}
	return out.Unread, nil
}

func (p *APIProvider) Send(ctx context.Context, req models.SendRequest) (models.Message, error) {
	req = req.Normalize()
	if err := req.Validate(p.userID); err != nil {
		return models.Message{}, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return models.Message{}, fmt.Errorf("encode message: %w", err)
	}

	body, err := p.do(ctx, http.MethodPost, "/messages", nil, payload)
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return models.Message{}, fmt.Errorf("decode sent message: %w", err)
	}
	return msg, nil
}

func (p *APIProvider) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := *p.base
	target.Path = strings.TrimRight(p.base.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerUserID, strconv.FormatInt(p.userID, 10))
	req.Header.Set(headerRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	p.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, path, body)
	}
	return body, nil
}

func decodeAPIError(status int, path string, body []byte) error {
	apiErr := &APIError{Status: status, Path: path}
	var payload apiErrorBody
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
		if strings.TrimSpace(payload.Path) != "" {
			apiErr.Path = payload.Path
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
