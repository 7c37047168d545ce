package session

import (
	"sync"
	"time"
)

// Scheduler coalesces repeated requests per key into a single delayed
// execution. Scheduling a key that already has a pending task supersedes
// it, so the task runs only after a full quiet period.
type Scheduler struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewScheduler creates a Scheduler with the given debounce delay.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule queues task to run after the debounce delay, cancelling and
// replacing any pending task for the same key. Tasks for different keys
// are independent.
func (s *Scheduler) Schedule(key string, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// A Stop can lose the race with the timer firing; only the
		// timer still registered for the key may run its task.
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		task()
	})
	s.timers[key] = t
}

// Cancel drops the pending task for key, reporting whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}

// CancelAll drops every pending task without running it.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// Pending returns the number of keys with a scheduled task.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
