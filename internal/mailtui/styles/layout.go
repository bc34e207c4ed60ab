package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the space between the two panes.
	LayoutGap = 1

	// LayoutInnerPadding is the default panel content padding.
	LayoutInnerPadding = 1
)

const (
	minThreadsWidth      = 24
	maxThreadsWidth      = 42
	minConversationWidth = 36
)

// PaneWidths defines responsive widths for the thread list and conversation.
type PaneWidths struct {
	Threads      int
	Conversation int
}

// Stacked reports whether the terminal is too narrow for side-by-side panes.
func (p PaneWidths) Stacked() bool {
	return p.Threads == 0 || p.Conversation == 0
}

// ComputePaneWidths splits totalWidth between the two panes. Below the
// combined minimum both panes get the full width and are shown one at a time.
func ComputePaneWidths(totalWidth int) PaneWidths {
	if totalWidth <= 0 {
		return PaneWidths{}
	}
	if totalWidth < minThreadsWidth+minConversationWidth+LayoutGap {
		return PaneWidths{Threads: totalWidth, Conversation: 0}
	}

	threads := clampInt(totalWidth/3, minThreadsWidth, maxThreadsWidth)
	conversation := totalWidth - threads - LayoutGap
	if conversation < minConversationWidth {
		threads -= minConversationWidth - conversation
		conversation = minConversationWidth
	}
	return PaneWidths{Threads: threads, Conversation: conversation}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		Padding(0, LayoutInnerPadding)
}

// DividerStyle returns the divider style between sections.
func DividerStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider))
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
