// Package provider streams model responses from an OpenAI-compatible
// backend.
package provider

import (
	"context"
	"errors"

	"github.com/parleyhq/parley/internal/chat"
)

// ErrRateLimited marks an upstream rate limit. Callers surface it as a
// distinct retry state instead of a generic failure.
var ErrRateLimited = errors.New("provider: rate limited")

// Turn is one conversation turn sent upstream.
type Turn struct {
	Role    chat.Role
	Content string
}

// Streamer produces a model response as an ordered sequence of text
// fragments. Stream returns nil on completion, ErrRateLimited on a rate
// limit, or the fragment callback's error if it aborts the stream.
type Streamer interface {
	Stream(ctx context.Context, turns []Turn, onFragment func(fragment string) error) error
}

// TurnsFromMessages converts live messages to upstream turns.
func TurnsFromMessages(msgs []chat.Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Content: m.Content})
	}
	return out
}
