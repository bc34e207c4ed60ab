package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
)

const ownPrefix = "│ "

// MessageStyles contains pre-built styles for message rendering.
type MessageStyles struct {
	Theme      Theme
	UserColors *UserColorMapper

	HeaderBase lipgloss.Style
	Timestamp  lipgloss.Style
	Body       lipgloss.Style
	OwnBody    lipgloss.Style
	OwnMarker  lipgloss.Style
	Unread     lipgloss.Style
}

// NewMessageStyles builds a reusable style set for messages.
func NewMessageStyles(theme Theme, mapper *UserColorMapper) MessageStyles {
	if mapper == nil {
		mapper = NewUserColorMapper(theme.UserPalette)
	}

	return MessageStyles{
		Theme:      theme,
		UserColors: mapper,
		HeaderBase: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Other)),
		OwnBody:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Own)),
		OwnMarker:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Bold(true),
		Unread: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Status.Unread)).
			Bold(true),
	}
}

// RenderHeader renders the author label and a relative timestamp.
func (s MessageStyles) RenderHeader(userID int64, label string, ts, now time.Time) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "unknown"
	}
	author := s.UserColors.Foreground(userID).Render(label)
	return s.HeaderBase.Render(author + " " + s.Timestamp.Render(RelativeTime(ts, now)))
}

// RenderBody renders wrapped body text from the other party.
func (s MessageStyles) RenderBody(body string, width int) string {
	return s.Body.Render(WrapText(body, width))
}

// RenderOwn renders wrapped body text written by the current user, marked
// with a vertical bar.
func (s MessageStyles) RenderOwn(body string, width int) string {
	renderWidth := width - lipgloss.Width(ownPrefix)
	if renderWidth < 1 {
		renderWidth = 1
	}
	lines := strings.Split(WrapText(body, renderWidth), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.OwnMarker.Render(ownPrefix)+s.OwnBody.Render(line))
	}
	return strings.Join(out, "\n")
}

// RenderUnreadIndicator renders a bold unread dot.
func (s MessageStyles) RenderUnreadIndicator(unread bool) string {
	if !unread {
		return ""
	}
	return s.Unread.Render("●")
}

// RelativeTime formats ts relative to now ("3 minutes ago"). Zero times
// render as an empty string.
func RelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	if ts.After(now) {
		return "just now"
	}
	if now.Sub(ts) < time.Minute {
		return "just now"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

// WrapText word-wraps every line of body to width.
func WrapText(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}

// Truncate shortens s to width cells, adding an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width == 1 {
		return "…"
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
