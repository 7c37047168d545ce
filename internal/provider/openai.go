package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/parleyhq/parley/internal/chat"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI streams completions from any OpenAI-compatible endpoint,
// including Gemini's compatibility surface.
type OpenAI struct {
	client *openai.Client
	model  string
}

// OpenAIOpts holds parameters for creating an OpenAI streamer.
type OpenAIOpts struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewOpenAI creates an OpenAI streamer.
func NewOpenAI(opts OpenAIOpts) (*OpenAI, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("provider: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}, nil
}

// Stream sends the conversation upstream and delivers response fragments
// to onFragment as they arrive.
func (p *OpenAI) Stream(ctx context.Context, turns []Turn, onFragment func(string) error) error {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Stream:   true,
		Messages: toChatMessages(turns),
	}
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return classify(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onFragment(delta); err != nil {
				return err
			}
		}
	}
}

func toChatMessages(turns []Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == chat.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: t.Content,
		})
	}
	return out
}

// classify maps upstream HTTP 429 responses onto ErrRateLimited and
// wraps everything else.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("provider: %s: %w", apiErr.Message, ErrRateLimited)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("provider: %w", ErrRateLimited)
	}
	return fmt.Errorf("provider: stream: %w", err)
}
