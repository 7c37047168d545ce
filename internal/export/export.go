// Package export renders a conversation for download or archival.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/chat"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// jsonDocument is the JSON export envelope.
type jsonDocument struct {
	ExportDate   time.Time            `json:"exportDate"`
	MessageCount int                  `json:"messageCount"`
	Messages     []chat.StoredMessage `json:"messages"`
}

// Render serializes msgs in the given format. now stamps the export.
func Render(format string, msgs []chat.StoredMessage, now time.Time) (string, error) {
	switch format {
	case FormatText:
		return renderText(msgs, now), nil
	case FormatJSON:
		doc := jsonDocument{
			ExportDate:   now,
			MessageCount: len(msgs),
			Messages:     msgs,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("export: marshal: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("export: unknown format %q", format)
	}
}

func renderText(msgs []chat.StoredMessage, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat Export - %s\n\n", now.Format("Jan 2, 2006 15:04"))
	for _, m := range msgs {
		speaker := "You"
		if m.Role == chat.RoleModel {
			speaker = "AI"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), speaker, m.Content)
	}
	return b.String()
}

// Filename returns a date-stamped download name for the format.
func Filename(format string, now time.Time) string {
	ext := "txt"
	if format == FormatJSON {
		ext = "json"
	}
	return fmt.Sprintf("chat-export-%s.%s", now.Format("2006-01-02"), ext)
}

// ContentType returns the MIME type for the format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
