package mailtui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/campuscloset/closetmail/internal/mailtui/styles"
	"github.com/campuscloset/closetmail/internal/mailtui/threading"
	"github.com/campuscloset/closetmail/internal/models"
)

const (
	threadRowHeight = 2
	inputHeight     = 3
)

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading…"
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := maxInt(0, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	widths := styles.ComputePaneWidths(m.width)
	var body string
	switch {
	case widths.Stacked() && m.focus == focusInput:
		body = m.renderConversationPane(m.width, bodyHeight)
	case widths.Stacked():
		body = m.renderThreadPane(m.width, bodyHeight)
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderThreadPane(widths.Threads, bodyHeight),
			strings.Repeat(" ", styles.LayoutGap),
			m.renderConversationPane(widths.Conversation, bodyHeight),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	left := "closetmail"
	center := fmt.Sprintf("user %d", m.session.Me())
	right := m.inboxStatus()
	return m.theme.HeaderStyle().Width(m.width).Render(joinHeader(left, center, right, m.width))
}

func (m *Model) inboxStatus() string {
	if m.session.InboxLoading() && !m.session.InboxLoaded() {
		return "loading…"
	}
	unread := 0
	for _, thread := range m.session.Threads() {
		unread += thread.UnreadCount
	}
	status := fmt.Sprintf("%d threads", len(m.session.Threads()))
	if unread > 0 {
		status += fmt.Sprintf(" · %d unread", unread)
	}
	if m.session.InboxLoading() {
		status += " · refreshing"
	}
	return status
}

func (m *Model) renderFooter() string {
	var line string
	switch {
	case m.toast != "" && m.now().Before(m.toastUntil):
		line = m.theme.SuccessStyle().Render(m.toast)
	case m.session.Notice() != "":
		line = m.theme.ErrorStyle().Render(m.session.Notice())
	case m.focus == focusInput:
		line = "enter/ctrl+s send · alt+enter newline · esc back"
	default:
		line = "j/k move · enter reply · r reload thread · R reload inbox · q quit"
		if m.showHelp {
			line += " · T theme · ctrl+u clear reply · ? hide help"
		} else {
			line += " · ? help"
		}
	}
	return m.theme.FooterStyle().Width(m.width).Render(styles.Truncate(line, m.width))
}

func (m *Model) renderThreadPane(width, height int) string {
	focused := m.focus == focusThreads
	inner := maxInt(1, width-2-2*styles.LayoutInnerPadding)
	innerHeight := maxInt(1, height-2)

	threads := m.session.Threads()
	var lines []string
	switch {
	case len(threads) == 0 && !m.session.InboxLoaded():
		lines = []string{m.theme.MutedStyle().Render("Loading messages…")}
	case len(threads) == 0:
		lines = []string{m.theme.MutedStyle().Render("No conversations yet.")}
	default:
		selected, _ := m.session.Selected()
		start, end := visibleWindow(len(threads), threading.FindThread(threads, selected), maxInt(1, innerHeight/threadRowHeight))
		for _, thread := range threads[start:end] {
			lines = append(lines, m.renderThreadRow(thread, thread.Key == selected, inner)...)
		}
	}

	return styles.PanelStyle(m.theme, focused).
		Width(maxInt(0, width-2)).
		Height(innerHeight).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) renderThreadRow(thread threading.Thread, selected bool, width int) []string {
	marker := "  "
	if thread.UnreadCount > 0 {
		marker = m.msgStyle.RenderUnreadIndicator(true) + " "
	}
	when := styles.RelativeTime(thread.Latest.CreatedAt, m.now())
	title := fmt.Sprintf("post #%d · user %d", thread.Key.PostID, thread.Key.CounterpartyID)
	titleWidth := maxInt(1, width-lipgloss.Width(marker)-lipgloss.Width(when)-1)
	top := marker + styles.Truncate(title, titleWidth)
	if gap := width - lipgloss.Width(top) - lipgloss.Width(when); gap > 0 {
		top += strings.Repeat(" ", gap) + m.theme.MutedStyle().Render(when)
	}

	preview := thread.Latest.Content
	if thread.Latest.SenderID == m.session.Me() {
		preview = "you: " + preview
	}
	bottom := "  " + m.theme.MutedStyle().Render(styles.Truncate(preview, maxInt(1, width-2)))

	if selected {
		top = m.theme.SelectedStyle().Render(top)
	}
	return []string{top, bottom}
}

func (m *Model) renderConversationPane(width, height int) string {
	focused := m.focus == focusInput
	inner := maxInt(1, width-2-2*styles.LayoutInnerPadding)
	innerHeight := maxInt(1, height-2)

	key, ok := m.session.Selected()
	if !ok {
		return styles.PanelStyle(m.theme, focused).
			Width(maxInt(0, width-2)).
			Height(innerHeight).
			Render(m.theme.MutedStyle().Render("Select a conversation."))
	}

	title := m.theme.AccentStyle().Render(styles.Truncate(fmt.Sprintf("post #%d with user %d", key.PostID, key.CounterpartyID), inner))
	divider := styles.DividerStyle(m.theme).Render(strings.Repeat("─", inner))
	input := m.renderInput(inner)

	historyHeight := maxInt(0, innerHeight-2-lipgloss.Height(input))
	history := m.renderHistory(inner)
	history = tailLines(history, historyHeight)
	for len(history) < historyHeight {
		history = append([]string{""}, history...)
	}

	content := append([]string{title, divider}, history...)
	content = append(content, input)
	return styles.PanelStyle(m.theme, focused).
		Width(maxInt(0, width-2)).
		Height(innerHeight).
		Render(strings.Join(content, "\n"))
}

func (m *Model) renderHistory(width int) []string {
	if m.session.ConversationLoading() && len(m.session.Conversation()) == 0 {
		return []string{m.theme.MutedStyle().Render("Loading conversation…")}
	}
	if m.session.ConversationErr() != nil {
		return []string{m.theme.ErrorStyle().Render("Could not load this conversation. Press r to retry.")}
	}
	conversation := m.session.Conversation()
	if len(conversation) == 0 {
		return []string{m.theme.MutedStyle().Render("No messages yet.")}
	}

	var lines []string
	now := m.now()
	for _, msg := range conversation {
		lines = append(lines, m.renderMessage(msg, width, now)...)
		lines = append(lines, "")
	}
	return lines[:len(lines)-1]
}

func (m *Model) renderMessage(msg models.Message, width int, now time.Time) []string {
	own := msg.SenderID == m.session.Me()
	label := fmt.Sprintf("user %d", msg.SenderID)
	if own {
		label = "you"
	}
	header := m.msgStyle.RenderHeader(msg.SenderID, label, msg.CreatedAt, now)
	var body string
	if own {
		body = m.msgStyle.RenderOwn(msg.Content, width)
	} else {
		body = m.msgStyle.RenderBody(msg.Content, width)
	}
	return append([]string{header}, strings.Split(body, "\n")...)
}

func (m *Model) renderInput(width int) string {
	draft := m.session.Draft()
	prompt := "> "
	line := draft
	if m.focus == focusInput && !m.session.Sending() {
		line += "_"
	}
	if draft == "" && m.focus != focusInput {
		line = m.theme.MutedStyle().Render("press enter to reply")
	}
	wrapped := styles.WrapText(prompt+line, width)
	rows := tailLines(strings.Split(wrapped, "\n"), inputHeight-1)

	status := ""
	switch {
	case m.session.Sending():
		status = m.theme.MutedStyle().Render("Sending…")
	case m.session.ReplyErr() != nil:
		status = m.theme.ErrorStyle().Render(styles.Truncate(m.session.ReplyErr().Error(), width))
	}
	return strings.Join(append(rows, status), "\n")
}

func joinHeader(left, center, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if space < 2 {
		return styles.Truncate(left+"  "+right, width)
	}
	leftGap := space / 2
	rightGap := space - leftGap
	return left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right
}

// visibleWindow returns the [start, end) rows to show so that selected stays
// on screen.
func visibleWindow(total, selected, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	if selected < 0 {
		selected = 0
	}
	start := selected - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}

func tailLines(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
