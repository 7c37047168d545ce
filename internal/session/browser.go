package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/chat"
)

// Browser is the read path over the stored session collection: listing,
// filtering, date grouping, rename, and delete.
type Browser struct {
	store Store
	now   func() time.Time
}

// NewBrowser creates a Browser.
func NewBrowser(store Store) *Browser {
	return &Browser{store: store, now: time.Now}
}

// List returns sessions sorted by updatedAt descending, optionally
// filtered by a case-insensitive substring match on the title.
func (b *Browser) List(filter string) []chat.ChatSession {
	sessions := b.store.Sessions()
	if filter != "" {
		needle := strings.ToLower(filter)
		kept := sessions[:0]
		for _, s := range sessions {
			if strings.Contains(strings.ToLower(s.Title), needle) {
				kept = append(kept, s)
			}
		}
		sessions = kept
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}

// Get returns the session with the given id.
func (b *Browser) Get(id string) (chat.ChatSession, bool) {
	for _, s := range b.store.Sessions() {
		if s.ID == id {
			return s, true
		}
	}
	return chat.ChatSession{}, false
}

// Rename overwrites the session's title and refreshes its updatedAt.
func (b *Browser) Rename(id, title string) error {
	sess, ok := b.Get(id)
	if !ok {
		return fmt.Errorf("session: rename %s: not found", id)
	}
	sess.Title = title
	sess.UpdatedAt = b.now()
	if err := b.store.UpsertSession(sess); err != nil {
		return fmt.Errorf("session: rename %s: %w", id, err)
	}
	return nil
}

// Delete removes the session from the stored collection. Callers holding
// the deleted session open must start a new one.
func (b *Browser) Delete(id string) error {
	if err := b.store.DeleteSession(id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

// Bucket is one date group of sessions, newest group first.
type Bucket struct {
	Label    string             `json:"label"`
	Sessions []chat.ChatSession `json:"sessions"`
}

// Group splits sessions into date buckets by updatedAt relative to now:
// Today, Yesterday, Previous 7 days, Previous 30 days, then one bucket
// per calendar month. Bucket assignment is mutually exclusive and
// evaluated in that priority order. Empty buckets are omitted; input
// order is preserved within a bucket.
func Group(sessions []chat.ChatSession, now time.Time) []Bucket {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := startOfDay.AddDate(0, 0, -1)
	weekAgo := startOfDay.AddDate(0, 0, -7)
	monthAgo := startOfDay.AddDate(0, 0, -30)

	var order []string
	byLabel := make(map[string]*Bucket)
	add := func(label string, s chat.ChatSession) {
		b, ok := byLabel[label]
		if !ok {
			b = &Bucket{Label: label}
			byLabel[label] = b
			order = append(order, label)
		}
		b.Sessions = append(b.Sessions, s)
	}

	for _, s := range sessions {
		t := s.UpdatedAt
		switch {
		case !t.Before(startOfDay):
			add("Today", s)
		case !t.Before(yesterday):
			add("Yesterday", s)
		case !t.Before(weekAgo):
			add("Previous 7 days", s)
		case !t.Before(monthAgo):
			add("Previous 30 days", s)
		default:
			add(t.Format("January 2006"), s)
		}
	}

	out := make([]Bucket, 0, len(order))
	for _, label := range order {
		out = append(out, *byLabel[label])
	}
	return out
}
