// Package server exposes the chat client over a local HTTP surface:
// JSON endpoints for the conversation and session collection, a
// streaming chat endpoint, and an SSE channel for cross-context refresh.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/provider"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/store"
)

// App wires the store, controller, manager, and provider together and
// owns the identity of the currently open session.
type App struct {
	store    *store.Store
	ctrl     *chat.Controller
	manager  *session.Manager
	browser  *session.Browser
	streamer provider.Streamer

	refreshCron string

	mu        sync.Mutex
	currentID string
}

// AppOpts holds parameters for creating an App.
type AppOpts struct {
	Store       *store.Store
	Streamer    provider.Streamer
	Debounce    time.Duration
	RefreshCron string
}

// NewApp creates an App, restoring the active draft from the store.
func NewApp(opts AppOpts) (*App, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if opts.Streamer == nil {
		return nil, fmt.Errorf("server: streamer is required")
	}
	manager, err := session.NewManager(session.ManagerOpts{
		Store:    opts.Store,
		Debounce: opts.Debounce,
	})
	if err != nil {
		return nil, err
	}
	a := &App{
		store:       opts.Store,
		manager:     manager,
		browser:     session.NewBrowser(opts.Store),
		streamer:    opts.Streamer,
		refreshCron: opts.RefreshCron,
	}
	a.ctrl = chat.NewController(chat.ControllerOpts{
		Store:    opts.Store,
		OnChange: a.autoSave,
	})
	return a, nil
}

// autoSave schedules a debounced session save after each conversation
// change. Skipped while a response is streaming (never persist a partial
// turn) and when the user has auto-save disabled.
func (a *App) autoSave() {
	if a.ctrl.Streaming() {
		return
	}
	if !a.store.Preferences().AutoSave {
		return
	}
	msgs := chat.ToStored(a.ctrl.Messages())
	if len(msgs) == 0 {
		return
	}

	a.mu.Lock()
	id := a.currentID
	a.mu.Unlock()

	id = a.manager.AutoSave(id, msgs, nil)

	a.mu.Lock()
	a.currentID = id
	a.mu.Unlock()
}

// currentSession returns the id of the open session, if any.
func (a *App) currentSession() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentID
}

func (a *App) setCurrentSession(id string) {
	a.mu.Lock()
	a.currentID = id
	a.mu.Unlock()
}

// Router builds the gin engine with all routes registered.
func (a *App) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	a.registerRoutes(router)
	return router
}

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Port int
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// issues a final explicit save of the open conversation, drops any still
// pending auto-saves, and shuts down gracefully.
func (a *App) Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: a.Router(),
	}

	go func() {
		<-ctx.Done()
		a.shutdownSave()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Parley running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// shutdownSave is the teardown hook: one explicit save of the open
// conversation, then ForceSaveAll cancels whatever is still debouncing.
func (a *App) shutdownSave() {
	id := a.currentSession()
	if id != "" {
		if err := a.manager.SaveSession(id, chat.ToStored(a.ctrl.Messages())); err != nil {
			log.Printf("server: shutdown save %s: %v", id, err)
		}
	}
	a.manager.ForceSaveAll()
}
