// Package mailtui implements the closetmail terminal message page: a thread
// list on the left, the selected conversation and a reply box on the right.
package mailtui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/mailtui/data"
	"github.com/campuscloset/closetmail/internal/mailtui/session"
	"github.com/campuscloset/closetmail/internal/mailtui/state"
	"github.com/campuscloset/closetmail/internal/mailtui/styles"
	"github.com/campuscloset/closetmail/internal/mailtui/threading"
)

const toastDuration = 2 * time.Second

type focusArea int

const (
	focusThreads focusArea = iota
	focusInput
)

type Config struct {
	Provider  data.MessageProvider
	UserID    int64
	Theme     string
	StatePath string // empty keeps drafts in memory only
	Now       func() time.Time
}

type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	provider data.MessageProvider
	session  *session.Session
	tuiState *state.Manager
	theme    styles.Theme
	msgStyle styles.MessageStyles
	now      func() time.Time
	log      zerolog.Logger

	width    int
	height   int
	focus    focusArea
	showHelp bool

	toast      string
	toastUntil time.Time

	// restoreThread is reselected once the first inbox snapshot arrives.
	restoreThread threading.Key
}

func (c Config) normalize() (Config, error) {
	if c.Provider == nil {
		return Config{}, errors.New("message provider is required")
	}
	if c.UserID <= 0 {
		return Config{}, errors.New("user id is required")
	}
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	if c.Theme == "" {
		c.Theme = "default"
	}
	if _, ok := styles.Themes[c.Theme]; !ok {
		return Config{}, fmt.Errorf("invalid theme %q (want one of %s)", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

func NewModel(cfg Config) (*Model, error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:      ctx,
		cancel:   cancel,
		provider: normalized.Provider,
		session:  session.New(normalized.UserID),
		tuiState: state.New(normalized.StatePath),
		now:      normalized.Now,
		log:      logging.Component("tui"),
	}

	// Non-fatal: fall back to in-memory state.
	if err := m.tuiState.Load(); err != nil {
		m.log.Warn().Err(err).Str("path", normalized.StatePath).Msg("could not load tui state")
	}
	m.tuiState.BindUser(normalized.UserID)

	themeName := normalized.Theme
	if saved := m.tuiState.Theme(); saved != "" {
		if _, ok := styles.Themes[saved]; ok {
			themeName = saved
		}
	}
	m.applyTheme(themeName)
	m.restoreState()
	return m, nil
}

func Run(cfg Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.tuiState == nil {
		return nil
	}
	m.persistDrafts()
	return m.tuiState.Close()
}

func (m *Model) Init() tea.Cmd {
	return m.loadInboxCmd(m.session.BeginInboxLoad())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case inboxLoadedMsg:
		return m, m.applyInbox(typed)
	case conversationLoadedMsg:
		m.session.ApplyConversation(typed.gen, typed.msgs, typed.err)
		return m, nil
	case sendResultMsg:
		return m, m.applySendResult(typed)
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) applyInbox(msg inboxLoadedMsg) tea.Cmd {
	if !m.session.ApplyInbox(msg.gen, msg.msgs, msg.err) {
		return nil
	}
	if msg.err != nil {
		return nil
	}

	restore := m.restoreThread
	m.restoreThread = threading.Key{}
	if restore.IsZero() {
		return nil
	}
	if _, selected := m.session.Selected(); selected {
		return nil
	}
	if threading.FindThread(m.session.Threads(), restore) < 0 {
		return nil
	}
	return m.selectThread(restore)
}

func (m *Model) applySendResult(msg sendResultMsg) tea.Cmd {
	gen, reload := m.session.ApplySendResult(msg.req, msg.msg, msg.err)
	if msg.err != nil {
		m.setToast("Reply not sent")
	} else {
		m.setToast("Sent ✓")
	}
	m.persistDrafts()
	if !reload {
		return nil
	}
	key, _ := m.session.Selected()
	return m.loadConversationCmd(gen, key)
}

func (m *Model) selectThread(key threading.Key) tea.Cmd {
	gen := m.session.Select(key)
	m.persistDrafts()
	return m.loadConversationCmd(gen, key)
}

func (m *Model) restoreState() {
	snapshot := m.tuiState.Snapshot()
	drafts := make(map[threading.Key]string, len(snapshot.Drafts))
	for thread, draft := range snapshot.Drafts {
		key, err := threading.ParseKey(thread)
		if err != nil {
			continue
		}
		drafts[key] = draft.Body
	}
	m.session.RestoreDrafts(drafts)

	if key, err := threading.ParseKey(snapshot.LastThread); err == nil {
		m.restoreThread = key
	}
}

func (m *Model) persistDrafts() {
	if m.tuiState == nil {
		return
	}
	drafts := m.session.Drafts()
	out := make(map[string]string, len(drafts))
	for key, body := range drafts {
		out[key.String()] = body
	}
	m.tuiState.ReplaceDrafts(out)
	if key, ok := m.session.Selected(); ok {
		m.tuiState.SetLastThread(key.String())
	}
}

func (m *Model) applyTheme(name string) {
	m.theme = styles.Lookup(name)
	m.msgStyle = styles.NewMessageStyles(m.theme, nil)
}

// cycleTheme switches to the next theme and remembers it for later sessions.
func (m *Model) cycleTheme() {
	names := styles.ThemeNames()
	next := names[0]
	for i, name := range names {
		if name == m.theme.Name {
			next = names[(i+1)%len(names)]
			break
		}
	}
	m.applyTheme(next)
	m.tuiState.SetTheme(next)
	m.setToast("Theme: " + next)
}

func (m *Model) setToast(text string) {
	m.toast = strings.TrimSpace(text)
	m.toastUntil = m.now().Add(toastDuration)
}
