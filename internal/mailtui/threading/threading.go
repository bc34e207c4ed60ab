package threading

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/campuscloset/closetmail/internal/models"
)

// Key identifies a thread: one post discussed with one counterparty.
type Key struct {
	PostID         int64
	CounterpartyID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d-%d", k.PostID, k.CounterpartyID)
}

// ParseKey parses the String form of a key.
func ParseKey(s string) (Key, error) {
	post, other, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Key{}, fmt.Errorf("invalid thread key %q", s)
	}
	postID, err := strconv.ParseInt(post, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("invalid thread key %q: %w", s, err)
	}
	otherID, err := strconv.ParseInt(other, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("invalid thread key %q: %w", s, err)
	}
	return Key{PostID: postID, CounterpartyID: otherID}, nil
}

// IsZero reports whether the key names no thread.
func (k Key) IsZero() bool {
	return k.PostID == 0 && k.CounterpartyID == 0
}

type Thread struct {
	Key          Key
	Latest       models.Message // most recent message for the key
	MessageCount int            // inbox messages folded into this thread
	UnreadCount  int            // received by me and not yet read
}

// ResolveCounterparty returns the other participant of msg from me's point of
// view. An explicit OtherUserID always wins. When only the sender is known the
// sender is returned even if it is me.
func ResolveCounterparty(msg models.Message, me int64) int64 {
	if msg.OtherUserID != 0 {
		return msg.OtherUserID
	}
	if msg.SenderID != 0 && msg.ReceiverID != 0 {
		if msg.SenderID == me {
			return msg.ReceiverID
		}
		return msg.SenderID
	}
	return msg.SenderID
}

// KeyFor returns the thread key msg belongs to.
func KeyFor(msg models.Message, me int64) Key {
	return Key{PostID: msg.PostID, CounterpartyID: ResolveCounterparty(msg, me)}
}

// BuildThreads collapses a flat inbox into one thread per (post, counterparty),
// newest first. The result is rebuilt from scratch on every call.
func BuildThreads(messages []models.Message, me int64) []Thread {
	index := make(map[Key]int, len(messages))
	threads := make([]Thread, 0, len(messages))

	for i := range messages {
		msg := messages[i]
		key := KeyFor(msg, me)
		unread := 0
		if !msg.Read && msg.ReceiverID == me && msg.SenderID != me {
			unread = 1
		}

		pos, ok := index[key]
		if !ok {
			index[key] = len(threads)
			threads = append(threads, Thread{Key: key, Latest: msg, MessageCount: 1, UnreadCount: unread})
			continue
		}

		th := &threads[pos]
		th.MessageCount++
		th.UnreadCount += unread
		if newer(msg, th.Latest) {
			th.Latest = msg
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threadLess(threads[i], threads[j])
	})
	return threads
}

// FindThread returns the index of key in threads, or -1.
func FindThread(threads []Thread, key Key) int {
	for i := range threads {
		if threads[i].Key == key {
			return i
		}
	}
	return -1
}

// SortConversation orders messages oldest first in place.
func SortConversation(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messageLess(messages[i], messages[j])
	})
}

// newer reports whether candidate should replace current as the thread's
// representative: strictly later wins, equal timestamps fall back to the
// larger ID.
func newer(candidate, current models.Message) bool {
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}

func threadLess(a, b Thread) bool {
	if !a.Latest.CreatedAt.Equal(b.Latest.CreatedAt) {
		return a.Latest.CreatedAt.After(b.Latest.CreatedAt)
	}
	if a.Latest.ID != b.Latest.ID {
		return a.Latest.ID > b.Latest.ID
	}
	if a.Key.PostID != b.Key.PostID {
		return a.Key.PostID < b.Key.PostID
	}
	return a.Key.CounterpartyID < b.Key.CounterpartyID
}

func messageLess(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
