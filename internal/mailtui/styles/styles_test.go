package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestComputePaneWidths(t *testing.T) {
	wide := ComputePaneWidths(160)
	require.False(t, wide.Stacked())
	require.Equal(t, maxThreadsWidth, wide.Threads)
	require.Equal(t, 160-maxThreadsWidth-LayoutGap, wide.Conversation)

	medium := ComputePaneWidths(80)
	require.False(t, medium.Stacked())
	require.Equal(t, 80, medium.Threads+medium.Conversation+LayoutGap)
	require.GreaterOrEqual(t, medium.Conversation, minConversationWidth)

	narrow := ComputePaneWidths(40)
	require.True(t, narrow.Stacked())
	require.Equal(t, 40, narrow.Threads)

	require.Equal(t, PaneWidths{}, ComputePaneWidths(0))
}

func TestWrapTextRespectsWidth(t *testing.T) {
	wrapped := WrapText("the denim jacket is still available if you want it", 12)
	for _, line := range strings.Split(wrapped, "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 12, line)
	}
	require.Equal(t, "keep\nnewlines", WrapText("keep\nnewlines", 40))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	require.Equal(t, "a b", Truncate("a\n b", 10))
	require.Equal(t, "", Truncate("abc", 0))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "", RelativeTime(time.Time{}, now))
	require.Equal(t, "just now", RelativeTime(now.Add(-10*time.Second), now))
	require.Equal(t, "just now", RelativeTime(now.Add(time.Minute), now))
	require.Equal(t, "3 minutes ago", RelativeTime(now.Add(-3*time.Minute), now))
	require.Equal(t, "2 hours ago", RelativeTime(now.Add(-2*time.Hour), now))
}

func TestUserColorMapperStable(t *testing.T) {
	m := NewUserColorMapper(nil)
	require.Equal(t, m.ColorCode(42), m.ColorCode(42))
	require.Contains(t, UserColorPalette, m.ColorCode(7))
}

func TestLookupFallsBackToDefault(t *testing.T) {
	require.Equal(t, "high-contrast", Lookup(" High-Contrast ").Name)
	require.Equal(t, "default", Lookup("neon").Name)
	for _, name := range ThemeNames() {
		_, ok := Themes[name]
		require.True(t, ok, name)
	}
}
