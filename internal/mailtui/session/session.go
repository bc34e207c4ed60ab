// Package session owns the message page view state: the inbox snapshot, the
// derived thread list, the selected thread, its conversation and the reply
// draft. All mutation goes through the transition methods below and must
// happen on a single goroutine (the UI update loop); I/O is performed by the
// caller, which hands results back together with the generation it was
// started under. Results from superseded generations are dropped.
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/mailtui/data"
	"github.com/campuscloset/closetmail/internal/mailtui/threading"
	"github.com/campuscloset/closetmail/internal/models"
)

var (
	ErrEmptyReply       = errors.New("reply cannot be empty")
	ErrNoThreadSelected = errors.New("select a conversation first")
	ErrSendInFlight     = errors.New("a reply is already being sent")
)

type Session struct {
	me  int64
	log zerolog.Logger

	inbox        []models.Message
	inboxLoaded  bool
	inboxLoading bool
	inboxGen     uint64
	threads      []threading.Thread

	selected     threading.Key
	conversation []models.Message
	convLoading  bool
	convErr      error
	convGen      uint64

	draft    string
	drafts   map[threading.Key]string // stashed drafts of unselected threads
	sending  bool
	replyErr error

	notice string
}

func New(me int64) *Session {
	return &Session{
		me:           me,
		log:          logging.Component("session"),
		threads:      []threading.Thread{},
		conversation: []models.Message{},
		drafts:       make(map[threading.Key]string),
	}
}

func (s *Session) Me() int64 { return s.me }

// BeginInboxLoad starts a new inbox fetch and returns its generation.
func (s *Session) BeginInboxLoad() uint64 {
	s.inboxGen++
	s.inboxLoading = true
	return s.inboxGen
}

// ApplyInbox installs the result of the inbox fetch started under gen.
// A failed refresh keeps the previous snapshot; a failed first load leaves
// the thread list empty. Returns false when the result is stale.
func (s *Session) ApplyInbox(gen uint64, msgs []models.Message, err error) bool {
	if gen != s.inboxGen {
		s.log.Debug().Uint64("gen", gen).Uint64("current", s.inboxGen).Msg("discarding stale inbox result")
		return false
	}
	s.inboxLoading = false
	if err != nil {
		s.log.Warn().Err(err).Bool("had_snapshot", s.inboxLoaded).Msg("inbox load failed")
		s.notice = inboxNotice(err)
		if !s.inboxLoaded {
			s.inbox = []models.Message{}
			s.threads = []threading.Thread{}
		}
		return true
	}

	s.inbox = append([]models.Message{}, msgs...)
	s.threads = threading.BuildThreads(s.inbox, s.me)
	s.inboxLoaded = true
	s.notice = ""
	return true
}

func inboxNotice(err error) string {
	if data.StatusCode(err) == http.StatusUnauthorized {
		return "Not signed in: the backend rejected this user id"
	}
	return "Could not load messages: " + err.Error()
}

// Select makes key the current thread and starts a conversation load for it.
// The draft of the previous thread is stashed and the new thread's restored.
func (s *Session) Select(key threading.Key) uint64 {
	if key != s.selected {
		s.stashDraft()
		s.selected = key
		s.draft = s.drafts[key]
		s.replyErr = nil
	}
	s.conversation = []models.Message{}
	s.convErr = nil
	return s.beginConversationLoad()
}

// ReloadConversation re-fetches the selected thread.
func (s *Session) ReloadConversation() (uint64, bool) {
	if s.selected.IsZero() {
		return 0, false
	}
	return s.beginConversationLoad(), true
}

// SelectNext moves the selection by delta rows in the thread list and starts
// a load. With nothing selected the first thread is chosen.
func (s *Session) SelectNext(delta int) (uint64, bool) {
	if len(s.threads) == 0 {
		return 0, false
	}
	idx := threading.FindThread(s.threads, s.selected)
	if idx < 0 {
		idx = 0
	} else {
		idx += delta
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.threads) {
		idx = len(s.threads) - 1
	}
	key := s.threads[idx].Key
	if key == s.selected && !s.selected.IsZero() {
		return 0, false
	}
	return s.Select(key), true
}

func (s *Session) beginConversationLoad() uint64 {
	s.convGen++
	s.convLoading = true
	return s.convGen
}

// ApplyConversation installs the conversation fetched under gen. A failure
// shows the empty state and is logged. Returns false when the result is stale.
func (s *Session) ApplyConversation(gen uint64, msgs []models.Message, err error) bool {
	if gen != s.convGen {
		s.log.Debug().Uint64("gen", gen).Uint64("current", s.convGen).Msg("discarding stale conversation")
		return false
	}
	s.convLoading = false
	if err != nil {
		s.log.Warn().Err(err).Str("thread", s.selected.String()).Msg("conversation load failed")
		s.conversation = []models.Message{}
		s.convErr = err
		return true
	}
	s.conversation = append([]models.Message{}, msgs...)
	threading.SortConversation(s.conversation)
	s.convErr = nil
	return true
}

func (s *Session) SetDraft(text string) {
	s.draft = text
	if s.replyErr != nil && strings.TrimSpace(text) != "" {
		s.replyErr = nil
	}
}

// PrepareReply validates the draft against the selected thread and, if it
// passes, marks a send as in flight. No request may be issued on error.
func (s *Session) PrepareReply() (models.SendRequest, error) {
	if s.sending {
		return models.SendRequest{}, ErrSendInFlight
	}
	content := strings.TrimSpace(s.draft)
	if content == "" {
		s.replyErr = ErrEmptyReply
		return models.SendRequest{}, ErrEmptyReply
	}
	if s.selected.IsZero() {
		s.replyErr = ErrNoThreadSelected
		return models.SendRequest{}, ErrNoThreadSelected
	}

	s.sending = true
	s.replyErr = nil
	return models.SendRequest{
		ReceiverID: s.selected.CounterpartyID,
		PostID:     s.selected.PostID,
		Content:    content,
	}, nil
}

// ApplySendResult records the outcome of a send prepared by PrepareReply.
// On success for the still-selected thread the draft is cleared and a
// conversation reload is started; its generation is returned with true.
// The thread list is left as is until the next inbox load.
func (s *Session) ApplySendResult(req models.SendRequest, msg models.Message, err error) (uint64, bool) {
	s.sending = false
	key := threading.Key{PostID: req.PostID, CounterpartyID: req.ReceiverID}

	if err != nil {
		s.log.Warn().Err(err).Str("thread", key.String()).Msg("send failed")
		if key == s.selected {
			s.replyErr = err
		} else {
			s.notice = "Reply not sent: " + err.Error()
		}
		return 0, false
	}

	s.log.Debug().Int64("message_id", msg.ID).Str("thread", key.String()).Msg("reply sent")
	delete(s.drafts, key)
	if key != s.selected {
		return 0, false
	}
	s.draft = ""
	s.replyErr = nil
	return s.beginConversationLoad(), true
}

// Drafts returns every non-empty draft, including the current one.
func (s *Session) Drafts() map[threading.Key]string {
	out := make(map[threading.Key]string, len(s.drafts)+1)
	for k, v := range s.drafts {
		out[k] = v
	}
	if !s.selected.IsZero() {
		if strings.TrimSpace(s.draft) != "" {
			out[s.selected] = s.draft
		} else {
			delete(out, s.selected)
		}
	}
	return out
}

// RestoreDrafts seeds stashed drafts, e.g. from persisted state.
func (s *Session) RestoreDrafts(drafts map[threading.Key]string) {
	for k, v := range drafts {
		if k.IsZero() || strings.TrimSpace(v) == "" {
			continue
		}
		s.drafts[k] = v
		if k == s.selected && s.draft == "" {
			s.draft = v
		}
	}
}

func (s *Session) stashDraft() {
	if s.selected.IsZero() {
		return
	}
	if strings.TrimSpace(s.draft) == "" {
		delete(s.drafts, s.selected)
		return
	}
	s.drafts[s.selected] = s.draft
}

func (s *Session) Threads() []threading.Thread { return s.threads }

func (s *Session) Inbox() []models.Message { return s.inbox }

func (s *Session) InboxLoaded() bool { return s.inboxLoaded }

func (s *Session) InboxLoading() bool { return s.inboxLoading }

func (s *Session) Selected() (threading.Key, bool) {
	return s.selected, !s.selected.IsZero()
}

// SelectedThread returns the thread row for the selection, if it is present
// in the current snapshot.
func (s *Session) SelectedThread() (threading.Thread, bool) {
	idx := threading.FindThread(s.threads, s.selected)
	if idx < 0 {
		return threading.Thread{}, false
	}
	return s.threads[idx], true
}

func (s *Session) Conversation() []models.Message { return s.conversation }

func (s *Session) ConversationLoading() bool { return s.convLoading }

func (s *Session) ConversationErr() error { return s.convErr }

func (s *Session) Draft() string { return s.draft }

func (s *Session) Sending() bool { return s.sending }

func (s *Session) ReplyErr() error { return s.replyErr }

func (s *Session) Notice() string { return s.notice }

func (s *Session) ClearNotice() { s.notice = "" }
