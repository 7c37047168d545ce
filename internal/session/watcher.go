package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/parleyhq/parley/internal/store"
)

// fallbackRefreshInterval is used when the refresh cron expression does
// not parse.
const fallbackRefreshInterval = 5 * time.Second

// ChangeSource delivers record-change notifications, keyed by the
// mutated record. The durable store satisfies this.
type ChangeSource interface {
	Subscribe() (<-chan string, func())
}

// RefreshReason says what triggered a session-list refresh.
type RefreshReason string

const (
	RefreshNotify RefreshReason = "notify" // push notification from a store write
	RefreshPoll   RefreshReason = "poll"   // scheduled fallback poll
)

// Watcher tells session-list consumers when to refresh: immediately on a
// store write to the session collection, and on a cron schedule as a
// fallback for mutations that arrive without a notification.
type Watcher struct {
	source      ChangeSource
	refreshCron string
	onRefresh   func(RefreshReason)
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	Source      ChangeSource
	RefreshCron string // 6-field cron expression, e.g. "*/5 * * * * *"
	OnRefresh   func(RefreshReason)
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("session: watcher: source is required")
	}
	if opts.OnRefresh == nil {
		return nil, fmt.Errorf("session: watcher: refresh callback is required")
	}
	if opts.RefreshCron != "" {
		if _, err := cronParser.Parse(opts.RefreshCron); err != nil {
			return nil, fmt.Errorf("session: watcher: refresh cron %q: %w", opts.RefreshCron, err)
		}
	}
	return &Watcher{
		source:      opts.Source,
		refreshCron: opts.RefreshCron,
		onRefresh:   opts.OnRefresh,
	}, nil
}

// Run blocks until ctx is cancelled, firing the refresh callback on
// session-collection writes and on the poll schedule.
func (w *Watcher) Run(ctx context.Context) {
	changes, cancel := w.source.Subscribe()
	defer cancel()

	for {
		timer := time.NewTimer(w.nextPoll())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case key, ok := <-changes:
			timer.Stop()
			if !ok {
				log.Printf("session: watcher: change source closed, polling only")
				changes = nil
				continue
			}
			if key != store.KeyChatSessions {
				continue
			}
			w.onRefresh(RefreshNotify)
		case <-timer.C:
			w.onRefresh(RefreshPoll)
		}
	}
}

func (w *Watcher) nextPoll() time.Duration {
	if w.refreshCron == "" {
		return fallbackRefreshInterval
	}
	if d := nextCronDuration(w.refreshCron); d > 0 {
		return d
	}
	return fallbackRefreshInterval
}
