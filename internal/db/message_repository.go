package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campuscloset/closetmail/internal/models"
)

// Message repository errors.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotRecipient    = errors.New("message was not addressed to user")
)

// createdAtLayout is fixed width so text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const messageColumns = `id, sender_id, receiver_id, post_id, content, created_at, is_read`

// DefaultPageSize is the window used when a page is requested without a size.
const DefaultPageSize = 50

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Page selects a window of a listing. Page numbers start at 0. The zero
// Page lists everything.
type Page struct {
	Number int
	Size   int
}

// limitOffset returns -1 as the limit for an unpaged listing, which SQLite
// treats as no limit.
func (p Page) limitOffset() (int, int) {
	size := p.Size
	if size <= 0 {
		return -1, 0
	}
	number := p.Number
	if number < 0 {
		number = 0
	}
	return size, number * size
}

// Create stores a new message and fills in its ID and timestamp.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	msg.Content = strings.TrimSpace(msg.Content)
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	} else {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}

	return defaultRetry.run(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO messages (sender_id, receiver_id, post_id, content, created_at, is_read)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			msg.SenderID,
			msg.ReceiverID,
			msg.PostID,
			msg.Content,
			msg.CreatedAt.Format(createdAtLayout),
			boolToInt(msg.Read),
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read message id: %w", err)
		}
		msg.ID = id
		return nil
	})
}

// Get retrieves a message by ID.
func (r *MessageRepository) Get(ctx context.Context, id int64) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// ListInbox returns every message the user sent or received, newest first,
// with OtherUserID set to the counterparty.
func (r *MessageRepository) ListInbox(ctx context.Context, userID int64, page Page) ([]models.Message, error) {
	limit, offset := page.limitOffset()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox: %w", err)
	}
	return collectMessages(rows, userID)
}

// ListSent returns messages sent by the user, newest first.
func (r *MessageRepository) ListSent(ctx context.Context, userID int64, page Page) ([]models.Message, error) {
	limit, offset := page.limitOffset()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE sender_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sent messages: %w", err)
	}
	return collectMessages(rows, userID)
}

// Conversation returns the messages exchanged between the user and
// otherUserID about postID, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, userID, postID, otherUserID int64) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE post_id = ?
		  AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		ORDER BY created_at ASC, id ASC
	`, postID, userID, otherUserID, otherUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return collectMessages(rows, userID)
}

// ReadAsRecipient returns the message and marks it read. Only the receiver
// may read a message; anyone else gets ErrNotRecipient.
func (r *MessageRepository) ReadAsRecipient(ctx context.Context, id, userID int64) (*models.Message, error) {
	var msg *models.Message
	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
		found, err := scanMessage(row)
		if err != nil {
			return err
		}
		if found.ReceiverID != userID {
			return ErrNotRecipient
		}
		if !found.Read {
			if _, err := tx.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("failed to mark message read: %w", err)
			}
			found.Read = true
		}
		found.OtherUserID = found.SenderID
		msg = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CountUnread returns how many messages addressed to the user are unread.
func (r *MessageRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var createdAt string
	var isRead int

	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.PostID,
		&msg.Content,
		&createdAt,
		&isRead,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	msg.CreatedAt = ts
	msg.Read = isRead != 0
	return &msg, nil
}

func collectMessages(rows *sql.Rows, userID int64) ([]models.Message, error) {
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msg.OtherUserID = counterparty(*msg, userID)
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func counterparty(msg models.Message, userID int64) int64 {
	if msg.SenderID == userID {
		return msg.ReceiverID
	}
	return msg.SenderID
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
