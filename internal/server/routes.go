package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/export"
	"github.com/parleyhq/parley/internal/provider"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/template"
)

// registerRoutes sets up all API routes on the gin router.
func (a *App) registerRoutes(router *gin.Engine) {
	router.GET("/", a.handleIndex)

	api := router.Group("/api")

	api.GET("/state", a.handleState)
	api.POST("/chat", a.handleChat)
	api.POST("/chat/clear", a.handleClearChat)
	api.DELETE("/chat/messages/:id", a.handleDeleteMessage)
	api.POST("/chat/messages/:id/regenerate", a.handleRegenerate)
	api.PUT("/chat/messages/:id", a.handleEditMessage)

	api.GET("/sessions", a.handleListSessions)
	api.POST("/sessions/save", a.handleSaveSession)
	api.GET("/sessions/:id", a.handleGetSession)
	api.POST("/sessions/:id/open", a.handleOpenSession)
	api.PUT("/sessions/:id", a.handleRenameSession)
	api.DELETE("/sessions/:id", a.handleDeleteSession)

	api.GET("/preferences", a.handleGetPreferences)
	api.PUT("/preferences", a.handlePutPreferences)
	api.GET("/draft", a.handleDraft)
	api.GET("/export", a.handleExport)
	api.GET("/templates", a.handleListTemplates)
	api.GET("/templates/:id", a.handleGetTemplate)
	api.GET("/events", a.handleEvents)
}

// indexPage is a placeholder landing page. The actual client UI talks to
// /api directly.
const indexPage = `<!DOCTYPE html>
<html>
<head><title>Parley</title></head>
<body>
<h1>Parley</h1>
<p>API is up. Conversation state at <a href="/api/state">/api/state</a>,
saved sessions at <a href="/api/sessions">/api/sessions</a>.</p>
</body>
</html>`

func (a *App) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}

func (a *App) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":     a.ctrl.State(),
		"sessionId": a.currentSession(),
	})
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

func (a *App) handleChat(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	a.ctrl.AddMessage(req.Content, chat.RoleUser)
	a.streamCompletion(c, a.ctrl.Messages())
}

func (a *App) handleRegenerate(c *gin.Context) {
	history, err := a.ctrl.RegenerateMessage(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.streamCompletion(c, history)
}

func (a *App) handleEditMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	history, err := a.ctrl.EditMessage(c.Param("id"), req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.streamCompletion(c, history)
}

func (a *App) handleDeleteMessage(c *gin.Context) {
	a.ctrl.DeleteMessage(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (a *App) handleClearChat(c *gin.Context) {
	a.ctrl.ClearChat()
	a.setCurrentSession("")
	c.Status(http.StatusNoContent)
}

// streamCompletion sends history upstream and relays the model response
// to the client as SSE events, mutating the controller as fragments
// arrive. A mid-stream failure keeps the partial content and marks the
// turn errored.
func (a *App) streamCompletion(c *gin.Context, history []chat.Message) {
	a.ctrl.SetLoading(true)
	a.ctrl.SetRateLimited(false)
	defer a.ctrl.SetLoading(false)

	model := a.ctrl.AddMessage("", chat.RoleModel, chat.WithStreaming())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	writeSSE(c.Writer, "start", gin.H{"id": model.ID})
	c.Writer.Flush()

	err := a.streamer.Stream(c.Request.Context(), provider.TurnsFromMessages(history), func(frag string) error {
		a.ctrl.UpdateMessage(model.ID, chat.MessageUpdate{AppendContent: &frag})
		writeSSE(c.Writer, "fragment", gin.H{"id": model.ID, "content": frag})
		c.Writer.Flush()
		return nil
	})

	off := false
	if err != nil {
		rateLimited := errors.Is(err, provider.ErrRateLimited)
		if rateLimited {
			a.ctrl.SetRateLimited(true)
		}
		errored := true
		a.ctrl.UpdateMessage(model.ID, chat.MessageUpdate{IsStreaming: &off, Error: &errored})
		writeSSE(c.Writer, "error", gin.H{
			"id":          model.ID,
			"rateLimited": rateLimited,
			"message":     err.Error(),
		})
		c.Writer.Flush()
		return
	}

	a.ctrl.UpdateMessage(model.ID, chat.MessageUpdate{IsStreaming: &off})
	writeSSE(c.Writer, "done", gin.H{"id": model.ID})
	c.Writer.Flush()
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (a *App) handleListSessions(c *gin.Context) {
	list := a.browser.List(c.Query("q"))
	if c.Query("grouped") == "true" {
		c.JSON(http.StatusOK, gin.H{"buckets": session.Group(list, time.Now())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

// handleSaveSession is the explicit save path: write failures surface to
// the caller instead of being swallowed.
func (a *App) handleSaveSession(c *gin.Context) {
	msgs := chat.ToStored(a.ctrl.Messages())
	if len(msgs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to save"})
		return
	}
	id := a.currentSession()
	if id == "" {
		id = session.NewSessionID()
	}
	if err := a.manager.SaveSession(id, msgs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	a.setCurrentSession(id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (a *App) handleGetSession(c *gin.Context) {
	sess, ok := a.browser.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (a *App) handleOpenSession(c *gin.Context) {
	sess, ok := a.browser.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	a.ctrl.Restore(sess.Messages)
	a.setCurrentSession(sess.ID)
	c.JSON(http.StatusOK, sess)
}

func (a *App) handleRenameSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if err := a.browser.Rename(c.Param("id"), req.Title); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := a.browser.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Deleting the open session starts a fresh one.
	if id == a.currentSession() {
		a.ctrl.ClearChat()
		a.setCurrentSession("")
	}
	c.Status(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Preferences, draft, export, templates
// ---------------------------------------------------------------------------

func (a *App) handleGetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.Preferences())
}

func (a *App) handlePutPreferences(c *gin.Context) {
	// Bind over the stored value so a partial update keeps the rest.
	prefs := a.store.Preferences()
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validatePreferences(prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.store.SavePreferences(prefs)
	c.JSON(http.StatusOK, prefs)
}

func validatePreferences(p chat.Preferences) error {
	switch p.Theme {
	case "light", "dark", "system":
	default:
		return fmt.Errorf("theme must be light, dark, or system")
	}
	switch p.ExportFormat {
	case export.FormatText, export.FormatJSON:
	default:
		return fmt.Errorf("exportFormat must be text or json")
	}
	if p.MaxHistoryLength < 1 {
		return fmt.Errorf("maxHistoryLength must be positive")
	}
	return nil
}

func (a *App) handleDraft(c *gin.Context) {
	msgs := a.store.LoadDraft()
	if msgs == nil {
		msgs = []chat.StoredMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// handleExport renders the open conversation, or a saved session when
// ?session=<id> is given. Format defaults to the exportFormat
// preference.
func (a *App) handleExport(c *gin.Context) {
	format := c.Query("format")
	if format == "" {
		format = a.store.Preferences().ExportFormat
	}

	msgs := chat.ToStored(a.ctrl.Messages())
	if id := c.Query("session"); id != "" {
		sess, ok := a.browser.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		msgs = sess.Messages
	}

	now := time.Now()
	out, err := export.Render(format, msgs, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format, now)))
	c.Data(http.StatusOK, export.ContentType(format), []byte(out))
}

func (a *App) handleListTemplates(c *gin.Context) {
	if cat := c.Query("category"); cat != "" {
		c.JSON(http.StatusOK, gin.H{"templates": template.ByCategory(cat)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"templates":  template.All(),
		"categories": template.Categories(),
	})
}

func (a *App) handleGetTemplate(c *gin.Context) {
	tpl, err := template.ByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tpl)
}
