package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 1024
)

// jsonOnlySuffix is appended to the user turn when JSON output is requested,
// since the Messages API has no response format switch.
const jsonOnlySuffix = "\n\nRespond with the JSON object only, no prose and no code fences."

// AnthropicCompleter implements Completer with the Anthropic Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer. An empty model selects
// claude-sonnet-4-20250514; opts are passed through to the SDK client.
func NewAnthropicCompleter(apiKey, model string, opts ...option.RequestOption) *AnthropicCompleter {
	if model == "" {
		model = defaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{client: &client, model: model}
}

// anthropicOptions turns an optional base URL into SDK request options.
func anthropicOptions(baseURL string) []option.RequestOption {
	if baseURL == "" {
		return nil
	}
	return []option.RequestOption{option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/")}
}

// Complete sends the prompt and returns the concatenated text blocks of the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	user := p.User
	if p.JSON {
		user += jsonOnlySuffix
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(ctx, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text content in response", ErrInvalidResponse)
	}
	return b.String(), nil
}

func classifyAnthropicError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 529:
			return fmt.Errorf("%w: %s", ErrRateLimit, err)
		case 408, 504:
			return fmt.Errorf("%w: %s", ErrTimeout, err)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
	}
	return fmt.Errorf("anthropic completion: %w", err)
}

var _ Completer = (*AnthropicCompleter)(nil)
