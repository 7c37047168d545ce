package chat

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultErrorTTL is how long an error message stays visible before the
// controller clears it.
const DefaultErrorTTL = 5 * time.Second

// DraftStore is the slice of the persistence layer the controller needs
// to mirror the active conversation.
type DraftStore interface {
	LoadDraft() []StoredMessage
	SaveDraft(msgs []StoredMessage)
	ClearDraft()
}

// ControllerOpts configures a Controller.
type ControllerOpts struct {
	Store DraftStore
	// OnChange runs after every mutation, outside the controller lock.
	// The session manager hangs its auto-save trigger here.
	OnChange func()
	// ErrorTTL overrides DefaultErrorTTL. Zero means the default.
	ErrorTTL time.Duration
}

// Controller owns the in-memory state of the active conversation and
// mirrors it into the draft record. Every mutation goes through here so
// the persisted draft can never drift from what the user sees.
type Controller struct {
	mu           sync.Mutex
	messages     []Message
	loading      bool
	rateLimited  bool
	lastActivity time.Time

	store    DraftStore
	onChange func()
	errorTTL time.Duration
}

// State is a point-in-time snapshot of the active conversation and its
// transient flags.
type State struct {
	Messages      []Message `json:"messages"`
	IsLoading     bool      `json:"isLoading"`
	IsRateLimited bool      `json:"isRateLimited"`
	LastActivity  time.Time `json:"lastActivity"`
}

// NewController restores the active draft from the store and returns a
// controller over it.
func NewController(opts ControllerOpts) *Controller {
	ttl := opts.ErrorTTL
	if ttl <= 0 {
		ttl = DefaultErrorTTL
	}
	c := &Controller{
		store:    opts.Store,
		onChange: opts.OnChange,
		errorTTL: ttl,
	}
	if opts.Store != nil {
		c.messages = FromStored(opts.Store.LoadDraft())
	}
	return c
}

// Messages returns a copy of the active conversation.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// State returns the conversation plus transient flags.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Messages:      c.snapshot(),
		IsLoading:     c.loading,
		IsRateLimited: c.rateLimited,
		LastActivity:  c.lastActivity,
	}
}

// SetLoading flips the in-flight request flag.
func (c *Controller) SetLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// SetRateLimited flips the rate-limit flag, which the UI renders as a
// specific retry message instead of a generic failure.
func (c *Controller) SetRateLimited(v bool) {
	c.mu.Lock()
	c.rateLimited = v
	c.mu.Unlock()
}

func (c *Controller) snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// AddMessage appends a message with a fresh id and timestamp and returns
// it. Error messages are scheduled for expiry.
func (c *Controller) AddMessage(content string, role Role, opts ...func(*Message)) Message {
	msg := Message{
		ID:        NewMessageID(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&msg)
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.lastActivity = msg.Timestamp
	c.mu.Unlock()

	if msg.Error {
		c.scheduleErrorExpiry(msg.ID)
	}
	c.changed()
	return msg
}

// WithStreaming marks the new message as streaming.
func WithStreaming() func(*Message) {
	return func(m *Message) { m.IsStreaming = true }
}

// WithError marks the new message as an error message.
func WithError() func(*Message) {
	return func(m *Message) { m.Error = true }
}

// MessageUpdate is a partial update. Nil fields are left untouched.
type MessageUpdate struct {
	Content       *string
	AppendContent *string
	IsStreaming   *bool
	Error         *bool
}

// UpdateMessage applies a partial update to the message with the given
// id. Updating an unknown id is a no-op, not an error: stream chunks can
// arrive after the message was deleted.
func (c *Controller) UpdateMessage(id string, upd MessageUpdate) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	m := &c.messages[i]
	if upd.Content != nil {
		m.Content = *upd.Content
	}
	if upd.AppendContent != nil {
		m.Content += *upd.AppendContent
	}
	if upd.IsStreaming != nil {
		m.IsStreaming = *upd.IsStreaming
	}
	becameError := false
	if upd.Error != nil {
		becameError = *upd.Error && !m.Error
		m.Error = *upd.Error
	}
	c.mu.Unlock()

	if becameError {
		c.scheduleErrorExpiry(id)
	}
	c.changed()
}

// DeleteMessage removes the message with the given id. Deleting an
// unknown id is a no-op.
func (c *Controller) DeleteMessage(id string) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	c.mu.Unlock()
	c.changed()
}

// RegenerateMessage drops the model message with the given id along with
// everything after it and returns the remaining history, ready to be
// resent to the provider. Only model messages can be regenerated.
func (c *Controller) RegenerateMessage(id string) ([]Message, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("chat: regenerate %s: not found", id)
	}
	if c.messages[i].Role != RoleModel {
		c.mu.Unlock()
		return nil, fmt.Errorf("chat: regenerate %s: not a model message", id)
	}
	c.messages = c.messages[:i]
	history := c.snapshot()
	c.mu.Unlock()

	c.changed()
	return history, nil
}

// EditMessage rewrites the content of the message with the given id,
// re-stamps its timestamp, drops everything after it, and returns the
// remaining history ready for resubmission. Any role is editable.
func (c *Controller) EditMessage(id, content string) ([]Message, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("chat: edit %s: not found", id)
	}
	c.messages[i].Content = content
	c.messages[i].Timestamp = time.Now()
	c.lastActivity = c.messages[i].Timestamp
	c.messages = c.messages[:i+1]
	history := c.snapshot()
	c.mu.Unlock()

	c.changed()
	return history, nil
}

// ClearChat empties the conversation and removes the draft record.
func (c *Controller) ClearChat() {
	c.mu.Lock()
	c.messages = nil
	c.loading = false
	c.rateLimited = false
	c.mu.Unlock()

	if c.store != nil {
		c.store.ClearDraft()
	}
	if c.onChange != nil {
		c.onChange()
	}
}

// Restore replaces the conversation with a saved session's messages.
// Restored messages are never streaming.
func (c *Controller) Restore(msgs []StoredMessage) {
	c.mu.Lock()
	c.messages = FromStored(msgs)
	c.mu.Unlock()
	c.changed()
}

// Streaming reports whether any message is still streaming.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamingLocked()
}

func (c *Controller) streamingLocked() bool {
	for _, m := range c.messages {
		if m.IsStreaming {
			return true
		}
	}
	return false
}

func (c *Controller) indexLocked(id string) int {
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// changed mirrors the conversation into the draft record and fires the
// change hook. The draft write is skipped while a response is still
// streaming; the write after the final chunk catches up.
func (c *Controller) changed() {
	c.mu.Lock()
	streaming := c.streamingLocked()
	var stored []StoredMessage
	if !streaming {
		stored = ToStored(c.messages)
	}
	c.mu.Unlock()

	if c.store != nil && !streaming {
		c.store.SaveDraft(stored)
	}
	if c.onChange != nil {
		c.onChange()
	}
}

// scheduleErrorExpiry clears a surfaced error after errorTTL unless it
// was superseded. A bare error banner is removed outright; a failed turn
// that accumulated partial content keeps the content and only loses the
// flag.
func (c *Controller) scheduleErrorExpiry(id string) {
	time.AfterFunc(c.errorTTL, func() {
		c.mu.Lock()
		i := c.indexLocked(id)
		if i < 0 || !c.messages[i].Error {
			c.mu.Unlock()
			return
		}
		if c.messages[i].Content == "" {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
		} else {
			c.messages[i].Error = false
		}
		c.mu.Unlock()
		log.Printf("chat: expired error on message %s", id)
		c.changed()
	})
}
