package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/store"
)

// mockSource hand-feeds change notifications to a watcher.
type mockSource struct {
	ch chan string
}

func newMockSource() *mockSource {
	return &mockSource{ch: make(chan string, 8)}
}

func (m *mockSource) Subscribe() (<-chan string, func()) {
	return m.ch, func() {}
}

// refreshRecorder collects refresh callbacks.
type refreshRecorder struct {
	mu      sync.Mutex
	reasons []RefreshReason
	notify  chan struct{}
}

func newRefreshRecorder() *refreshRecorder {
	return &refreshRecorder{notify: make(chan struct{}, 8)}
}

func (r *refreshRecorder) callback(reason RefreshReason) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *refreshRecorder) all() []RefreshReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RefreshReason, len(r.reasons))
	copy(out, r.reasons)
	return out
}

func (r *refreshRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
}

func TestNewWatcher_Validation(t *testing.T) {
	rec := newRefreshRecorder()
	if _, err := NewWatcher(WatcherOpts{OnRefresh: rec.callback}); err == nil {
		t.Error("expected error without a change source")
	}
	if _, err := NewWatcher(WatcherOpts{Source: newMockSource()}); err == nil {
		t.Error("expected error without a refresh callback")
	}
	_, err := NewWatcher(WatcherOpts{
		Source:      newMockSource(),
		OnRefresh:   rec.callback,
		RefreshCron: "not a cron",
	})
	if err == nil {
		t.Error("expected error for an unparseable cron expression")
	}
}

func TestWatcher_RefreshOnSessionWrite(t *testing.T) {
	src := newMockSource()
	rec := newRefreshRecorder()
	w, err := NewWatcher(WatcherOpts{Source: src, OnRefresh: rec.callback})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	src.ch <- store.KeyChatSessions
	rec.wait(t)

	reasons := rec.all()
	if len(reasons) == 0 || reasons[0] != RefreshNotify {
		t.Errorf("reasons = %v, want a notify-driven refresh", reasons)
	}
}

func TestWatcher_IgnoresOtherKeys(t *testing.T) {
	src := newMockSource()
	rec := newRefreshRecorder()
	w, err := NewWatcher(WatcherOpts{Source: src, OnRefresh: rec.callback})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	src.ch <- store.KeyPreferences
	src.ch <- store.KeyCurrentChat
	src.ch <- store.KeyChatSessions
	rec.wait(t)

	for _, reason := range rec.all() {
		if reason != RefreshNotify {
			t.Errorf("unexpected reason %q", reason)
		}
	}
	if got := len(rec.all()); got != 1 {
		t.Errorf("refreshes = %d, want 1 (draft and preference writes ignored)", got)
	}
}

func TestWatcher_PollFallback(t *testing.T) {
	src := newMockSource()
	rec := newRefreshRecorder()
	w, err := NewWatcher(WatcherOpts{
		Source:      src,
		OnRefresh:   rec.callback,
		RefreshCron: "* * * * * *", // every second
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	rec.wait(t)
	reasons := rec.all()
	if reasons[len(reasons)-1] != RefreshPoll {
		t.Errorf("reasons = %v, want a poll-driven refresh", reasons)
	}
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	src := newMockSource()
	rec := newRefreshRecorder()
	w, err := NewWatcher(WatcherOpts{Source: src, OnRefresh: rec.callback})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
