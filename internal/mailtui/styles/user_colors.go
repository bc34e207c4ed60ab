package styles

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// UserColorPalette is an ANSI 256 palette for stable per-user colors.
// Red/green slots are left to error and success notices.
var UserColorPalette = []string{
	"33", "39", "45", "69", "75", "81", "87", "99",
	"111", "117", "123", "147", "153", "159", "183", "189",
}

// UserColorMapper resolves deterministic per-user styles and caches them.
type UserColorMapper struct {
	palette []string

	mu      sync.RWMutex
	fgCache map[int64]lipgloss.Style
}

func NewUserColorMapper(palette []string) *UserColorMapper {
	if len(palette) == 0 {
		palette = UserColorPalette
	}
	return &UserColorMapper{
		palette: append([]string(nil), palette...),
		fgCache: make(map[int64]lipgloss.Style, 32),
	}
}

// Foreground returns a cached bold foreground style for a user.
func (m *UserColorMapper) Foreground(userID int64) lipgloss.Style {
	m.mu.RLock()
	if style, ok := m.fgCache[userID]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.ColorCode(userID))).Bold(true)

	m.mu.Lock()
	m.fgCache[userID] = style
	m.mu.Unlock()
	return style
}

// ColorCode returns the ANSI-256 color code selected for a user.
func (m *UserColorMapper) ColorCode(userID int64) string {
	if len(m.palette) == 0 {
		return "252"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return m.palette[int(h.Sum32()%uint32(len(m.palette)))]
}
