// Package chat holds the conversation data model and the in-memory state
// controller for the active conversation.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single turn in the active conversation. Content is mutable
// while IsStreaming is true, then frozen. IsStreaming is transient and is
// never persisted as true.
type Message struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Role        Role      `json:"role"`
	Timestamp   time.Time `json:"timestamp"`
	IsStreaming bool      `json:"isStreaming,omitempty"`
	Error       bool      `json:"error,omitempty"`
}

// StoredMessage is the persisted shape of a Message: the streaming flag is
// stripped, the timestamp serializes as ISO-8601.
type StoredMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// ChatSession is a named, persisted conversation.
type ChatSession struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewMessageID returns a fresh opaque message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// Stored converts a live message to its persisted shape.
func (m Message) Stored() StoredMessage {
	return StoredMessage{
		ID:        m.ID,
		Content:   m.Content,
		Role:      m.Role,
		Timestamp: m.Timestamp,
		Error:     m.Error,
	}
}

// Runtime converts a persisted message back to a live one. Restored
// messages are never streaming.
func (s StoredMessage) Runtime() Message {
	return Message{
		ID:        s.ID,
		Content:   s.Content,
		Role:      s.Role,
		Timestamp: s.Timestamp,
		Error:     s.Error,
	}
}

// ToStored converts a message list to its persisted shape.
func ToStored(msgs []Message) []StoredMessage {
	out := make([]StoredMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Stored())
	}
	return out
}

// FromStored converts a persisted message list back to live messages.
func FromStored(msgs []StoredMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Runtime())
	}
	return out
}

// Preferences are user-tunable settings. MaxHistoryLength caps the active
// draft, not saved sessions.
type Preferences struct {
	Theme            string `json:"theme"`
	AutoSave         bool   `json:"autoSave"`
	MaxHistoryLength int    `json:"maxHistoryLength"`
	ExportFormat     string `json:"exportFormat"`
}

// DefaultPreferences returns the baseline preferences. Stored partial
// values are merged over these, never the other way around.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:            "system",
		AutoSave:         true,
		MaxHistoryLength: 1000,
		ExportFormat:     "text",
	}
}
