// Package session turns live conversations into persisted, browsable
// sessions: debounced auto-save, title derivation, and the read path over
// the stored collection.
package session

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/chat"
)

// DefaultDebounce is the quiet period auto-save waits for before
// persisting.
const DefaultDebounce = 2 * time.Second

// titleLimit is the maximum derived title length in runes before
// truncation.
const titleLimit = 50

// Store is the slice of the persistence layer the session components
// need.
type Store interface {
	Sessions() []chat.ChatSession
	UpsertSession(chat.ChatSession) error
	DeleteSession(id string) error
}

// Manager is the single authority for persisting sessions. One instance
// per process: the debounce timer map must be shared by every caller or
// rapid updates to the same session stop coalescing.
type Manager struct {
	store Store
	sched *Scheduler
	now   func() time.Time
}

// ManagerOpts holds parameters for creating a Manager.
type ManagerOpts struct {
	Store    Store
	Debounce time.Duration    // defaults to DefaultDebounce
	Now      func() time.Time // defaults to time.Now, override in tests
}

// NewManager creates a Manager.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session: manager: store is required")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store: opts.Store,
		sched: NewScheduler(debounce),
		now:   now,
	}, nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID synthesizes a session id from the current epoch
// milliseconds and a short random suffix.
func NewSessionID() string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), b.String())
}

// AutoSave schedules a debounced save of msgs under id, synthesizing an
// id when the caller has none yet. The id is returned synchronously so
// the caller knows its session before the save lands. Rapid successive
// calls for the same id collapse into one save of the latest message
// list. onSaved, if non-nil, runs after a save completes.
func (m *Manager) AutoSave(id string, msgs []chat.StoredMessage, onSaved func(id string)) string {
	if id == "" {
		id = NewSessionID()
	}
	m.sched.Schedule(id, func() {
		if err := m.SaveSession(id, msgs); err != nil {
			log.Printf("session: auto-save %s: %v", id, err)
			return
		}
		if onSaved != nil {
			onSaved(id)
		}
	})
	return id
}

// SaveSession persists msgs as the session with the given id. An empty
// message list is a no-op: a real session must never be clobbered by a
// blank one. The existing createdAt is preserved; updatedAt is always
// restamped. Write failures propagate.
func (m *Manager) SaveSession(id string, msgs []chat.StoredMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := m.now()
	sess := chat.ChatSession{
		ID:        id,
		Title:     DeriveTitle(msgs, now),
		Messages:  msgs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, existing := range m.store.Sessions() {
		if existing.ID == id {
			sess.CreatedAt = existing.CreatedAt
			break
		}
	}
	if err := m.store.UpsertSession(sess); err != nil {
		return fmt.Errorf("session: save %s: %w", id, err)
	}
	return nil
}

// ForceSaveAll cancels every pending auto-save without executing it.
// Deltas younger than the debounce window are dropped. Intended for
// process teardown, after any explicit final save has already been
// issued.
func (m *Manager) ForceSaveAll() {
	if n := m.sched.Pending(); n > 0 {
		log.Printf("session: force-save-all: dropping %d pending save(s)", n)
	}
	m.sched.CancelAll()
}

// PendingSaves returns the number of sessions with an auto-save still
// waiting out its debounce.
func (m *Manager) PendingSaves() int {
	return m.sched.Pending()
}

// DeriveTitle builds a session title from the first user message: the
// first 50 runes, with an ellipsis when truncated. Without a user
// message the title falls back to a date stamp.
func DeriveTitle(msgs []chat.StoredMessage, now time.Time) string {
	for _, m := range msgs {
		if m.Role != chat.RoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		runes := []rune(content)
		if len(runes) > titleLimit {
			return string(runes[:titleLimit]) + "..."
		}
		return content
	}
	return "Chat " + now.Format("Jan 2, 2006")
}
