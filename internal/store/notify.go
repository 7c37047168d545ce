package store

import "sync"

// Notifier fans record-change notifications out to subscribers. Same-process
// consumers (the session browser, the SSE endpoint) subscribe directly;
// other browser contexts receive the change over SSE or fall back to
// polling.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan string
	next int
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan string)}
}

// Subscribe returns a buffered channel of mutated record keys and a cancel
// func that releases the subscription and closes the channel.
func (n *Notifier) Subscribe() (<-chan string, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan string, 16)
	n.subs[id] = ch
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers key to every subscriber. Slow subscribers with a full
// buffer miss the notification rather than block a write; the poll
// fallback covers them.
func (n *Notifier) Publish(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- key:
		default:
		}
	}
}
