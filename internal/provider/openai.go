package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIOption configures OpenAI-backed providers.
type OpenAIOption func(*openaiSettings)

type openaiSettings struct {
	baseURL    string
	dimensions int
}

// WithOpenAIBaseURL points the client at a compatible endpoint. Empty keeps the default.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(s *openaiSettings) { s.baseURL = url }
}

// WithDimensions requests a specific embedding length. Zero keeps the model default.
func WithDimensions(n int) OpenAIOption {
	return func(s *openaiSettings) { s.dimensions = n }
}

func newOpenAIClient(apiKey string, opts []OpenAIOption) (*openai.Client, openaiSettings) {
	var s openaiSettings
	for _, opt := range opts {
		opt(&s)
	}
	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg), s
}

// classifyOpenAIError maps API failures onto the provider sentinels.
func classifyOpenAIError(ctx context.Context, op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("%w: %s", ErrRateLimit, err)
		}
		if apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 504 {
			return fmt.Errorf("%w: %s", ErrTimeout, err)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
	}
	return fmt.Errorf("openai %s: %w", op, err)
}

// OpenAICompleter implements the Completer interface using the OpenAI API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a new OpenAICompleter.
// If model is empty, it defaults to gpt-4o-mini.
func NewOpenAICompleter(apiKey, model string, opts ...OpenAIOption) *OpenAICompleter {
	client, _ := newOpenAIClient(apiKey, opts)
	return newOpenAICompleterWithClient(client, model)
}

func newOpenAICompleterWithClient(client *openai.Client, model string) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{client: client, model: model}
}

// Complete sends the prompt as a system + user exchange and returns the reply text.
func (o *OpenAICompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.User,
	})

	req := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: 1024,
	}
	if p.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(ctx, "completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedder implements the Embedder interface using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates a new OpenAIEmbedder. Unknown models fall back to
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string, opts ...OpenAIOption) *OpenAIEmbedder {
	client, s := newOpenAIClient(apiKey, opts)
	e := newOpenAIEmbedderWithClient(client, model)
	e.dimensions = s.dimensions
	return e
}

func newOpenAIEmbedderWithClient(client *openai.Client, model string) *OpenAIEmbedder {
	m := openai.SmallEmbedding3
	switch model {
	case string(openai.LargeEmbedding3):
		m = openai.LargeEmbedding3
	case string(openai.AdaEmbeddingV2):
		m = openai.AdaEmbeddingV2
	}
	return &OpenAIEmbedder{client: client, model: m}
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	}
	// Only the v3 models accept a dimensions override.
	if e.dimensions > 0 && e.model != openai.AdaEmbeddingV2 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(ctx, "embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", ErrInvalidResponse)
	}
	return resp.Data[0].Embedding, nil
}

var (
	_ Completer = (*OpenAICompleter)(nil)
	_ Embedder  = (*OpenAIEmbedder)(nil)
)
