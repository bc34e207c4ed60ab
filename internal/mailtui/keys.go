package mailtui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuscloset/closetmail/internal/mailtui/session"
)

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}
	return m.handleThreadKey(msg)
}

func (m *Model) handleThreadKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return m.quit()
	case "?":
		m.showHelp = !m.showHelp
		return nil
	case "j", "down":
		return m.moveSelection(1)
	case "k", "up":
		return m.moveSelection(-1)
	case "enter", "tab":
		if _, ok := m.session.Selected(); !ok {
			m.setToast(session.ErrNoThreadSelected.Error())
			return nil
		}
		m.focus = focusInput
		return nil
	case "T":
		m.cycleTheme()
		return nil
	case "R":
		m.session.ClearNotice()
		return m.loadInboxCmd(m.session.BeginInboxLoad())
	case "r":
		gen, ok := m.session.ReloadConversation()
		if !ok {
			return nil
		}
		key, _ := m.session.Selected()
		return m.loadConversationCmd(gen, key)
	}
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.focus = focusThreads
		return nil
	case "enter", "ctrl+s":
		return m.submitReply()
	case "alt+enter", "ctrl+j":
		m.editDraft(m.session.Draft() + "\n")
		return nil
	case "backspace", "ctrl+h":
		runes := []rune(m.session.Draft())
		if len(runes) == 0 {
			return nil
		}
		m.editDraft(string(runes[:len(runes)-1]))
		return nil
	case "ctrl+u":
		m.editDraft("")
		return nil
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		if len(msg.Runes) == 0 {
			return nil
		}
		m.editDraft(m.session.Draft() + string(msg.Runes))
	}
	return nil
}

func (m *Model) moveSelection(delta int) tea.Cmd {
	gen, ok := m.session.SelectNext(delta)
	if !ok {
		return nil
	}
	m.persistDrafts()
	key, _ := m.session.Selected()
	return m.loadConversationCmd(gen, key)
}

// submitReply validates locally and only then issues the send.
func (m *Model) submitReply() tea.Cmd {
	req, err := m.session.PrepareReply()
	if err != nil {
		if errors.Is(err, session.ErrSendInFlight) {
			m.setToast("Sending…")
		}
		return nil
	}
	return m.sendCmd(req)
}

func (m *Model) editDraft(text string) {
	if m.session.Sending() {
		return
	}
	m.session.SetDraft(text)
	m.persistDrafts()
}

func (m *Model) quit() tea.Cmd {
	m.persistDrafts()
	return tea.Quit
}
