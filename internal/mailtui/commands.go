package mailtui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuscloset/closetmail/internal/mailtui/threading"
	"github.com/campuscloset/closetmail/internal/models"
)

// Results carry the generation they were started under so the session can
// drop superseded ones.

type inboxLoadedMsg struct {
	gen  uint64
	msgs []models.Message
	err  error
}

type conversationLoadedMsg struct {
	gen  uint64
	key  threading.Key
	msgs []models.Message
	err  error
}

type sendResultMsg struct {
	req models.SendRequest
	msg models.Message
	err error
}

func (m *Model) loadInboxCmd(gen uint64) tea.Cmd {
	ctx := m.ctx
	provider := m.provider
	return func() tea.Msg {
		msgs, err := provider.Inbox(ctx)
		return inboxLoadedMsg{gen: gen, msgs: msgs, err: err}
	}
}

func (m *Model) loadConversationCmd(gen uint64, key threading.Key) tea.Cmd {
	ctx := m.ctx
	provider := m.provider
	return func() tea.Msg {
		msgs, err := provider.Conversation(ctx, key.PostID, key.CounterpartyID)
		return conversationLoadedMsg{gen: gen, key: key, msgs: msgs, err: err}
	}
}

func (m *Model) sendCmd(req models.SendRequest) tea.Cmd {
	ctx := m.ctx
	provider := m.provider
	return func() tea.Msg {
		msg, err := provider.Send(ctx, req)
		return sendResultMsg{req: req, msg: msg, err: err}
	}
}
