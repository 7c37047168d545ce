package session

import (
	"sync"
	"testing"
	"time"
)

// counter tallies task executions per label.
type counter struct {
	mu   sync.Mutex
	runs map[string]int
}

func newCounter() *counter {
	return &counter{runs: make(map[string]int)}
}

func (c *counter) task(label string) func() {
	return func() {
		c.mu.Lock()
		c.runs[label]++
		c.mu.Unlock()
	}
}

func (c *counter) count(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[label]
}

func TestSchedule_DebouncesSameKey(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	c := newCounter()

	s.Schedule("k", c.task("first"))
	s.Schedule("k", c.task("second"))
	s.Schedule("k", c.task("third"))

	time.Sleep(80 * time.Millisecond)
	if got := c.count("first") + c.count("second"); got != 0 {
		t.Errorf("superseded tasks ran %d times, want 0", got)
	}
	if got := c.count("third"); got != 1 {
		t.Errorf("last task ran %d times, want 1", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after fire, want 0", s.Pending())
	}
}

func TestSchedule_RestartsDelay(t *testing.T) {
	s := NewScheduler(40 * time.Millisecond)
	c := newCounter()

	s.Schedule("k", c.task("a"))
	time.Sleep(25 * time.Millisecond)
	// Rescheduling before the delay elapses restarts the clock.
	s.Schedule("k", c.task("b"))
	time.Sleep(25 * time.Millisecond)
	if got := c.count("a") + c.count("b"); got != 0 {
		t.Errorf("task ran %d times before a full quiet period, want 0", got)
	}

	time.Sleep(40 * time.Millisecond)
	if got := c.count("b"); got != 1 {
		t.Errorf("task b ran %d times, want 1", got)
	}
}

func TestSchedule_IndependentKeys(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	c := newCounter()

	s.Schedule("k1", c.task("k1"))
	s.Schedule("k2", c.task("k2"))

	time.Sleep(80 * time.Millisecond)
	if c.count("k1") != 1 || c.count("k2") != 1 {
		t.Errorf("runs = %d/%d, want 1/1", c.count("k1"), c.count("k2"))
	}
}

func TestCancel_DropsPendingTask(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	c := newCounter()

	s.Schedule("k", c.task("k"))
	if !s.Cancel("k") {
		t.Error("Cancel should report a pending task existed")
	}
	if s.Cancel("k") {
		t.Error("second Cancel should report nothing pending")
	}

	time.Sleep(60 * time.Millisecond)
	if got := c.count("k"); got != 0 {
		t.Errorf("cancelled task ran %d times, want 0", got)
	}
}

func TestCancelAll(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	c := newCounter()

	s.Schedule("k1", c.task("k1"))
	s.Schedule("k2", c.task("k2"))
	s.CancelAll()

	if s.Pending() != 0 {
		t.Errorf("Pending = %d after CancelAll, want 0", s.Pending())
	}
	time.Sleep(60 * time.Millisecond)
	if got := c.count("k1") + c.count("k2"); got != 0 {
		t.Errorf("cancelled tasks ran %d times, want 0", got)
	}
}
