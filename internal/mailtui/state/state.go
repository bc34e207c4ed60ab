package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	CurrentVersion = 1

	defaultDebounce = 1 * time.Second
	maxDrafts       = 200
	draftMaxAge     = 30 * 24 * time.Hour
)

type TUIState struct {
	Version     int                   `json:"version"`
	UserID      int64                 `json:"user_id,omitempty"`     // owner; state for another user is discarded
	Drafts      map[string]ReplyDraft `json:"drafts,omitempty"`      // thread key -> unsent reply
	LastThread  string                `json:"last_thread,omitempty"` // last selected thread key
	Preferences Preferences           `json:"preferences,omitempty"`
}

type ReplyDraft struct {
	Thread    string    `json:"thread"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Preferences struct {
	Theme string `json:"theme,omitempty"` // picked in the TUI; wins over tui.theme
}

type Manager struct {
	path     string
	lockPath string

	mu        sync.Mutex
	state     TUIState
	dirty     bool
	timer     *time.Timer
	debounce  time.Duration
	lastWrite time.Time
}

func New(path string) *Manager {
	path = strings.TrimSpace(path)
	lockPath := ""
	if path != "" {
		lockPath = path + ".lock"
	}
	return &Manager{
		path:     path,
		lockPath: lockPath,
		state: TUIState{
			Version: CurrentVersion,
			Drafts:  make(map[string]ReplyDraft),
		},
		debounce: defaultDebounce,
	}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}

	loaded, err := m.loadLocked()
	if err != nil {
		return err
	}
	m.state = loaded
	m.dirty = false
	return nil
}

// BindUser discards persisted state that belongs to a different user.
func (m *Manager) BindUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.UserID == userID {
		return
	}
	if m.state.UserID != 0 {
		m.state.Drafts = make(map[string]ReplyDraft)
		m.state.LastThread = ""
	}
	m.state.UserID = userID
	m.markDirtyLocked()
}

func (m *Manager) Snapshot() TUIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// ReplaceDrafts makes drafts the complete set of saved drafts.
func (m *Manager) ReplaceDrafts(drafts map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	next := make(map[string]ReplyDraft, len(drafts))
	changed := len(drafts) != len(m.state.Drafts)
	for thread, body := range drafts {
		thread = strings.TrimSpace(thread)
		if thread == "" || strings.TrimSpace(body) == "" {
			continue
		}
		prev, ok := m.state.Drafts[thread]
		if ok && prev.Body == body {
			next[thread] = prev
			continue
		}
		changed = true
		next[thread] = ReplyDraft{Thread: thread, Body: body, UpdatedAt: now}
	}
	if !changed && len(next) == len(m.state.Drafts) {
		return
	}
	m.state.Drafts = next
	m.markDirtyLocked()
}

func (m *Manager) LastThread() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastThread
}

func (m *Manager) SetLastThread(thread string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread = strings.TrimSpace(thread)
	if m.state.LastThread == thread {
		return
	}
	m.state.LastThread = thread
	m.markDirtyLocked()
}

func (m *Manager) Theme() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Preferences.Theme
}

func (m *Manager) SetTheme(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.TrimSpace(name)
	if m.state.Preferences.Theme == name {
		return
	}
	m.state.Preferences.Theme = name
	m.markDirtyLocked()
}

func (m *Manager) SaveSoon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markDirtyLocked()
}

func (m *Manager) Close() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	needsSave := m.dirty
	m.mu.Unlock()
	if !needsSave {
		return nil
	}
	return m.SaveNow()
}

func (m *Manager) SaveNow() error {
	m.mu.Lock()
	if m.path == "" {
		m.mu.Unlock()
		return nil
	}
	state := cloneState(m.state)
	m.dirty = false
	m.mu.Unlock()

	state.Version = CurrentVersion
	state = normalizeState(state, time.Now().UTC())

	if err := withFileLock(m.lockPath, func() error {
		return writeAtomicJSON(m.path, state)
	}); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.lastWrite = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	if m.path == "" {
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, func() {
			_ = m.SaveNow()
		})
		return
	}
	_ = m.timer.Reset(m.debounce)
}

func (m *Manager) loadLocked() (TUIState, error) {
	var out TUIState
	if err := withFileLock(m.lockPath, func() error {
		payload, err := os.ReadFile(m.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = TUIState{Version: CurrentVersion}
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			out = TUIState{Version: CurrentVersion}
			return nil
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return fmt.Errorf("decode %s: %w", m.path, err)
		}
		return nil
	}); err != nil {
		return TUIState{}, err
	}

	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	if out.Drafts == nil {
		out.Drafts = make(map[string]ReplyDraft)
	}
	return out, nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state TUIState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// normalizeState drops empty and expired drafts and keeps the newest maxDrafts.
func normalizeState(state TUIState, now time.Time) TUIState {
	if state.Drafts == nil {
		state.Drafts = make(map[string]ReplyDraft)
		return state
	}

	kept := make([]ReplyDraft, 0, len(state.Drafts))
	for thread, draft := range state.Drafts {
		if strings.TrimSpace(thread) == "" || strings.TrimSpace(draft.Body) == "" {
			continue
		}
		if !draft.UpdatedAt.IsZero() && now.Sub(draft.UpdatedAt) > draftMaxAge {
			continue
		}
		draft.Thread = thread
		kept = append(kept, draft)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].UpdatedAt.Equal(kept[j].UpdatedAt) {
			return kept[i].UpdatedAt.After(kept[j].UpdatedAt)
		}
		return kept[i].Thread < kept[j].Thread
	})
	if len(kept) > maxDrafts {
		kept = kept[:maxDrafts]
	}

	state.Drafts = make(map[string]ReplyDraft, len(kept))
	for _, draft := range kept {
		state.Drafts[draft.Thread] = draft
	}
	return state
}

func cloneState(state TUIState) TUIState {
	out := state
	if state.Drafts != nil {
		out.Drafts = make(map[string]ReplyDraft, len(state.Drafts))
		for k, v := range state.Drafts {
			out.Drafts[k] = v
		}
	}
	return out
}
