package threading

import (
	"math/rand"
	"testing"
	"time"

	"github.com/campuscloset/closetmail/internal/models"
)

var base = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func TestResolveCounterparty(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		me   int64
		want int64
	}{
		{name: "explicit hint wins", msg: models.Message{SenderID: 5, ReceiverID: 9, OtherUserID: 42}, me: 9, want: 42},
		{name: "i sent it", msg: models.Message{SenderID: 9, ReceiverID: 5}, me: 9, want: 5},
		{name: "i received it", msg: models.Message{SenderID: 5, ReceiverID: 9}, me: 9, want: 5},
		{name: "third party view", msg: models.Message{SenderID: 5, ReceiverID: 7}, me: 9, want: 5},
		{name: "sender only", msg: models.Message{SenderID: 5}, me: 9, want: 5},
		{name: "sender only and it is me", msg: models.Message{SenderID: 9}, me: 9, want: 9},
		{name: "nothing known", msg: models.Message{}, me: 9, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveCounterparty(tt.msg, tt.me); got != tt.want {
				t.Fatalf("ResolveCounterparty() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveCounterpartySymmetric(t *testing.T) {
	msg := models.Message{SenderID: 3, ReceiverID: 8}
	if ResolveCounterparty(msg, 3) != 8 {
		t.Fatalf("sender should see receiver")
	}
	if ResolveCounterparty(msg, 8) != 3 {
		t.Fatalf("receiver should see sender")
	}
}

func TestBuildThreads_CollapsesBothDirections(t *testing.T) {
	msgs := []models.Message{
		{ID: 1, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(1)},
		{ID: 2, SenderID: 9, ReceiverID: 5, PostID: 100, CreatedAt: at(2)},
	}

	threads := BuildThreads(msgs, 9)
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	th := threads[0]
	if th.Key != (Key{PostID: 100, CounterpartyID: 5}) {
		t.Fatalf("unexpected key: %+v", th.Key)
	}
	if th.Latest.ID != 2 {
		t.Fatalf("expected latest id 2, got %d", th.Latest.ID)
	}
	if th.MessageCount != 2 {
		t.Fatalf("expected 2 messages, got %d", th.MessageCount)
	}
}

func TestBuildThreads_EmptyInput(t *testing.T) {
	threads := BuildThreads(nil, 9)
	if threads == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(threads) != 0 {
		t.Fatalf("expected no threads, got %d", len(threads))
	}
}

func TestBuildThreads_OrderedNewestFirst(t *testing.T) {
	msgs := []models.Message{
		{ID: 1, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(10)},
		{ID: 2, SenderID: 6, ReceiverID: 9, PostID: 100, CreatedAt: at(30)},
		{ID: 3, SenderID: 5, ReceiverID: 9, PostID: 200, CreatedAt: at(20)},
	}

	threads := BuildThreads(msgs, 9)
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(threads))
	}
	got := []int64{threads[0].Latest.ID, threads[1].Latest.ID, threads[2].Latest.ID}
	want := []int64{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v, want %v", got, want)
		}
	}
}

func TestBuildThreads_OlderMessageDoesNotReplace(t *testing.T) {
	msgs := []models.Message{
		{ID: 7, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(50), Content: "new"},
		{ID: 3, SenderID: 9, ReceiverID: 5, PostID: 100, CreatedAt: at(10), Content: "old"},
	}

	threads := BuildThreads(msgs, 9)
	if len(threads) != 1 || threads[0].Latest.Content != "new" {
		t.Fatalf("expected newest message to stay representative, got %+v", threads)
	}
}

func TestBuildThreads_EqualTimestampLargerIDWins(t *testing.T) {
	msgs := []models.Message{
		{ID: 12, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(5)},
		{ID: 4, SenderID: 9, ReceiverID: 5, PostID: 100, CreatedAt: at(5)},
	}

	forward := BuildThreads(msgs, 9)
	reverse := BuildThreads([]models.Message{msgs[1], msgs[0]}, 9)
	if forward[0].Latest.ID != 12 || reverse[0].Latest.ID != 12 {
		t.Fatalf("expected id 12 regardless of order, got %d and %d", forward[0].Latest.ID, reverse[0].Latest.ID)
	}
}

func TestBuildThreads_HintKeysThread(t *testing.T) {
	msgs := []models.Message{
		{ID: 1, SenderID: 9, ReceiverID: 5, PostID: 100, CreatedAt: at(1), OtherUserID: 5},
		{ID: 2, SenderID: 5, PostID: 100, CreatedAt: at(2)},
	}

	threads := BuildThreads(msgs, 9)
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if threads[0].Key.CounterpartyID != 5 {
		t.Fatalf("unexpected counterparty %d", threads[0].Key.CounterpartyID)
	}
}

func TestBuildThreads_CountsUnreadReceivedOnly(t *testing.T) {
	msgs := []models.Message{
		{ID: 1, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(1)},
		{ID: 2, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(2), Read: true},
		{ID: 3, SenderID: 9, ReceiverID: 5, PostID: 100, CreatedAt: at(3)},
		{ID: 4, SenderID: 5, ReceiverID: 9, PostID: 100, CreatedAt: at(4)},
	}

	threads := BuildThreads(msgs, 9)
	if threads[0].UnreadCount != 2 {
		t.Fatalf("expected 2 unread, got %d", threads[0].UnreadCount)
	}
}

func TestBuildThreads_Idempotent(t *testing.T) {
	msgs := randomInbox(rand.New(rand.NewSource(7)), 200, 9)

	first := BuildThreads(msgs, 9)
	latest := make([]models.Message, 0, len(first))
	for _, th := range first {
		latest = append(latest, th.Latest)
	}
	second := BuildThreads(latest, 9)
	if len(first) != len(second) {
		t.Fatalf("expected %d threads, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key || first[i].Latest.ID != second[i].Latest.ID {
			t.Fatalf("thread %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuildThreads_CompleteAndRecent(t *testing.T) {
	msgs := randomInbox(rand.New(rand.NewSource(11)), 300, 9)
	threads := BuildThreads(msgs, 9)

	seen := make(map[Key]int, len(threads))
	for i, th := range threads {
		if _, dup := seen[th.Key]; dup {
			t.Fatalf("duplicate key %v", th.Key)
		}
		seen[th.Key] = i
	}

	for _, msg := range msgs {
		key := KeyFor(msg, 9)
		idx, ok := seen[key]
		if !ok {
			t.Fatalf("message %d has no thread", msg.ID)
		}
		if msg.CreatedAt.After(threads[idx].Latest.CreatedAt) {
			t.Fatalf("thread %v latest %v older than member %d", key, threads[idx].Latest.CreatedAt, msg.ID)
		}
	}

	for i := 1; i < len(threads); i++ {
		if threads[i].Latest.CreatedAt.After(threads[i-1].Latest.CreatedAt) {
			t.Fatalf("threads not newest first at %d", i)
		}
	}
}

func TestSortConversationAscending(t *testing.T) {
	msgs := []models.Message{
		{ID: 3, CreatedAt: at(30)},
		{ID: 1, CreatedAt: at(10)},
		{ID: 5, CreatedAt: at(10)},
		{ID: 2, CreatedAt: at(20)},
	}
	SortConversation(msgs)
	want := []int64{1, 5, 2, 3}
	for i := range want {
		if msgs[i].ID != want[i] {
			t.Fatalf("position %d: got id %d, want %d", i, msgs[i].ID, want[i])
		}
	}
}

func TestFindThread(t *testing.T) {
	threads := []Thread{{Key: Key{PostID: 1, CounterpartyID: 2}}, {Key: Key{PostID: 3, CounterpartyID: 4}}}
	if FindThread(threads, Key{PostID: 3, CounterpartyID: 4}) != 1 {
		t.Fatal("expected index 1")
	}
	if FindThread(threads, Key{PostID: 9, CounterpartyID: 9}) != -1 {
		t.Fatal("expected -1 for missing key")
	}
}

func randomInbox(r *rand.Rand, n int, me int64) []models.Message {
	msgs := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		other := int64(r.Intn(6) + 1)
		if other >= me {
			other++
		}
		msg := models.Message{
			ID:        int64(i + 1),
			PostID:    int64(r.Intn(4) + 100),
			CreatedAt: at(r.Intn(500)),
		}
		if r.Intn(2) == 0 {
			msg.SenderID, msg.ReceiverID = me, other
		} else {
			msg.SenderID, msg.ReceiverID = other, me
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestParseKey(t *testing.T) {
	key := Key{PostID: 12, CounterpartyID: 7}
	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != key {
		t.Fatalf("expected %v, got %v", key, parsed)
	}
	for _, bad := range []string{"", "12", "a-7", "12-b"} {
		if _, err := ParseKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
