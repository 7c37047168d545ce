package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parleyhq/parley/internal/session"
)

// handleEvents streams session-collection refresh signals to the client.
// Each connection gets its own watcher: push on store writes, cron poll
// as the fallback.
func (a *App) handleEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	refresh := make(chan session.RefreshReason, 8)
	watcher, err := session.NewWatcher(session.WatcherOpts{
		Source:      a.store,
		RefreshCron: a.refreshCron,
		OnRefresh: func(reason session.RefreshReason) {
			select {
			case refresh <- reason:
			default:
			}
		},
	})
	if err != nil {
		log.Printf("server: events: %v", err)
		return
	}

	ctx := c.Request.Context()
	go watcher.Run(ctx)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case reason := <-refresh:
			writeSSE(c.Writer, "sessions", map[string]string{
				"reason": string(reason),
			})
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
