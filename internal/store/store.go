// Package store is the durable key-value persistence layer. Three logical
// records live here: the active draft message list, the bounded session
// collection, and user preferences. Reads fail soft: a missing, unreadable,
// or malformed record is treated as absent, logged, and never surfaced.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/parleyhq/parley/internal/chat"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Logical record keys.
const (
	KeyCurrentChat  = "current-chat"
	KeyChatSessions = "chat-sessions"
	KeyPreferences  = "user-preferences"
)

// MaxSessions bounds the stored session collection. When the cap is
// exceeded the oldest entries by array position are evicted.
const MaxSessions = 50

// Record is one key-value row. Values are JSON text.
type Record struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// Store persists records in a local SQLite database. A Store whose backing
// database failed to open is detached: every operation is a logged no-op.
type Store struct {
	db       *gorm.DB
	notifier *Notifier
}

// Open opens (or creates) the backing database at path. Storage failure is
// not fatal: the error is logged and a detached store is returned, so the
// client keeps working without persistence.
func Open(path string) *Store {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("store: create %s: %v (persistence disabled)", dir, err)
			return &Store{notifier: NewNotifier()}
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("store: open %s: %v (persistence disabled)", path, err)
		return &Store{notifier: NewNotifier()}
	}
	return New(db)
}

// New wraps an existing gorm connection and ensures the schema exists.
func New(db *gorm.DB) *Store {
	if db != nil {
		if err := db.AutoMigrate(&Record{}); err != nil {
			log.Printf("store: migrate: %v (persistence disabled)", err)
			db = nil
		}
	}
	return &Store{db: db, notifier: NewNotifier()}
}

// Available reports whether the store has a usable backing database.
func (s *Store) Available() bool { return s.db != nil }

// Subscribe registers for change notifications. Each write publishes the
// mutated record key. The returned cancel func must be called to release
// the subscription.
func (s *Store) Subscribe() (<-chan string, func()) {
	return s.notifier.Subscribe()
}

// get returns the raw JSON value for key, or false when the record is
// absent or the store is detached.
func (s *Store) get(key string) (string, bool) {
	if s.db == nil {
		return "", false
	}
	var rec Record
	err := s.db.First(&rec, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return "", false
	}
	if err != nil {
		log.Printf("store: get %s: %v", key, err)
		return "", false
	}
	return rec.Value, true
}

// set writes the raw JSON value for key and publishes a change
// notification. The error is both logged and returned; background callers
// ignore it, explicit save paths propagate it.
func (s *Store) set(key, value string) error {
	if s.db == nil {
		return nil
	}
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		log.Printf("store: set %s: %v", key, err)
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	s.notifier.Publish(key)
	return nil
}

// remove deletes the record for key and publishes a change notification.
func (s *Store) remove(key string) {
	if s.db == nil {
		return
	}
	if err := s.db.Delete(&Record{}, "key = ?", key).Error; err != nil {
		log.Printf("store: remove %s: %v", key, err)
		return
	}
	s.notifier.Publish(key)
}

// ---------------------------------------------------------------------------
// Active draft
// ---------------------------------------------------------------------------

// LoadDraft returns the persisted active draft. Entries missing required
// fields are dropped, matching the write-side validation.
func (s *Store) LoadDraft() []chat.StoredMessage {
	raw, ok := s.get(KeyCurrentChat)
	if !ok {
		return nil
	}
	var msgs []chat.StoredMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		log.Printf("store: parse %s: %v", KeyCurrentChat, err)
		return nil
	}
	valid := msgs[:0]
	for _, m := range msgs {
		if m.ID == "" || m.Content == "" || m.Role == "" || m.Timestamp.IsZero() {
			continue
		}
		valid = append(valid, m)
	}
	return valid
}

// SaveDraft persists the active draft, capped to the most recent
// maxHistoryLength entries from preferences. Best-effort: failures are
// logged, never returned.
func (s *Store) SaveDraft(msgs []chat.StoredMessage) {
	maxLen := s.Preferences().MaxHistoryLength
	if maxLen > 0 && len(msgs) > maxLen {
		msgs = msgs[len(msgs)-maxLen:]
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		log.Printf("store: marshal %s: %v", KeyCurrentChat, err)
		return
	}
	s.set(KeyCurrentChat, string(data))
}

// ClearDraft removes the active draft record.
func (s *Store) ClearDraft() {
	s.remove(KeyCurrentChat)
}

// ---------------------------------------------------------------------------
// Session collection
// ---------------------------------------------------------------------------

// Sessions returns the stored session collection. Malformed JSON yields an
// empty list, not an error.
func (s *Store) Sessions() []chat.ChatSession {
	raw, ok := s.get(KeyChatSessions)
	if !ok {
		return nil
	}
	var sessions []chat.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		log.Printf("store: parse %s: %v", KeyChatSessions, err)
		return nil
	}
	return sessions
}

// UpsertSession replaces the entry with a matching id, or appends, then
// truncates the collection to MaxSessions (oldest by position evicted).
// This is the explicit save path, so write failures propagate.
//
// The read-modify-write is not atomic across concurrent writers; the last
// writer wins. Acceptable for a single-user local client.
func (s *Store) UpsertSession(session chat.ChatSession) error {
	sessions := s.Sessions()
	replaced := false
	for i := range sessions {
		if sessions[i].ID == session.ID {
			sessions[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, session)
	}
	if len(sessions) > MaxSessions {
		sessions = sessions[len(sessions)-MaxSessions:]
	}
	return s.saveSessions(sessions)
}

// DeleteSession removes the session with the given id. Deleting an absent
// id is a no-op.
func (s *Store) DeleteSession(id string) error {
	sessions := s.Sessions()
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return s.saveSessions(kept)
}

func (s *Store) saveSessions(sessions []chat.ChatSession) error {
	if sessions == nil {
		sessions = []chat.ChatSession{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", KeyChatSessions, err)
	}
	return s.set(KeyChatSessions, string(data))
}

// ---------------------------------------------------------------------------
// Preferences
// ---------------------------------------------------------------------------

// Preferences returns stored preferences merged over defaults. A partial
// stored value never clobbers fields it does not mention.
func (s *Store) Preferences() chat.Preferences {
	prefs := chat.DefaultPreferences()
	raw, ok := s.get(KeyPreferences)
	if !ok {
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		log.Printf("store: parse %s: %v", KeyPreferences, err)
		return chat.DefaultPreferences()
	}
	return prefs
}

// SavePreferences persists the full preference set. Best-effort: failures
// are logged, never returned.
func (s *Store) SavePreferences(prefs chat.Preferences) {
	data, err := json.Marshal(prefs)
	if err != nil {
		log.Printf("store: marshal %s: %v", KeyPreferences, err)
		return
	}
	s.set(KeyPreferences, string(data))
}
