package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the largest message body accepted, in bytes.
const MaxContentLength = 4096

// Message validation errors.
var (
	ErrEmptyContent    = errors.New("message content is required")
	ErrContentTooLong  = errors.New("message content exceeds 4096 bytes")
	ErrMissingSender   = errors.New("sender is required")
	ErrMissingReceiver = errors.New("receiver is required")
	ErrMissingPost     = errors.New("post is required")
	ErrSelfMessage     = errors.New("sender and receiver must differ")
)

// Message is a single direct message exchanged about a post.
type Message struct {
	// ID is the server-assigned identifier.
	ID int64 `json:"id"`

	// SenderID is the user who wrote the message.
	SenderID int64 `json:"senderId"`

	// ReceiverID is the user the message was addressed to.
	ReceiverID int64 `json:"receiverId"`

	// PostID is the listing the message is about.
	PostID int64 `json:"postId"`

	// Content is the message body.
	Content string `json:"content"`

	// CreatedAt is the server timestamp for the message.
	CreatedAt time.Time `json:"createdAt"`

	// Read is set once the receiver has opened the message.
	Read bool `json:"isRead"`

	// OtherUserID is an optional server hint naming the counterparty
	// from the requesting user's point of view. Zero when absent.
	OtherUserID int64 `json:"otherUserId,omitempty"`
}

// Validate checks a stored message.
func (m *Message) Validate() error {
	validation := &ValidationErrors{}
	if m.SenderID == 0 {
		validation.Add("senderId", ErrMissingSender)
	}
	if m.ReceiverID == 0 {
		validation.Add("receiverId", ErrMissingReceiver)
	}
	if m.SenderID != 0 && m.SenderID == m.ReceiverID {
		validation.Add("receiverId", ErrSelfMessage)
	}
	if m.PostID == 0 {
		validation.Add("postId", ErrMissingPost)
	}
	validation.Add("content", validateContent(m.Content))
	return validation.Err()
}

// SendRequest is the body of POST /messages. The sender is implied by the
// authenticated user.
type SendRequest struct {
	ReceiverID int64  `json:"receiverId"`
	PostID     int64  `json:"postId"`
	Content    string `json:"content"`
}

// Normalize trims the content.
func (r SendRequest) Normalize() SendRequest {
	r.Content = strings.TrimSpace(r.Content)
	return r
}

// Validate checks the request on behalf of sender.
func (r SendRequest) Validate(sender int64) error {
	validation := &ValidationErrors{}
	if sender == 0 {
		validation.Add("senderId", ErrMissingSender)
	}
	if r.ReceiverID == 0 {
		validation.Add("receiverId", ErrMissingReceiver)
	} else if r.ReceiverID == sender {
		validation.Add("receiverId", ErrSelfMessage)
	}
	if r.PostID == 0 {
		validation.Add("postId", ErrMissingPost)
	}
	validation.Add("content", validateContent(r.Content))
	return validation.Err()
}

// UnreadCount is the body of GET /messages/unread-count.
type UnreadCount struct {
	Unread int64 `json:"unread"`
}

func validateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyContent
	}
	if len(trimmed) > MaxContentLength {
		return ErrContentTooLong
	}
	if !utf8.ValidString(trimmed) {
		return errors.New("message content must be valid UTF-8")
	}
	return nil
}
