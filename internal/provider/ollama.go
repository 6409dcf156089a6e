package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaModel      = "llama3.1:8b"
	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOllamaURL        = "http://localhost:11434"
)

// ollamaClient is the HTTP plumbing shared by the Ollama embedder and completer.
type ollamaClient struct {
	url    string
	model  string
	client *http.Client
}

func newOllamaClient(url, model, fallbackModel string) ollamaClient {
	if url == "" {
		url = defaultOllamaURL
	}
	if model == "" {
		model = fallbackModel
	}
	return ollamaClient{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// post sends body as JSON to path and decodes a 200 response into out.
// Status codes map onto the provider sentinels.
func (c ollamaClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
		}
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", ErrRateLimit)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrTimeout, resp.StatusCode)
	default:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding ollama response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// OllamaEmbedder embeds text with a local Ollama server via /api/embed.
type OllamaEmbedder struct {
	ollamaClient
}

// NewOllamaEmbedder creates an embedder. Empty url or model use the defaults.
// The vector width is the model's own, e.g. 768 for nomic-embed-text, so
// providers.embedding.dimensions must match it.
func NewOllamaEmbedder(url, model string) *OllamaEmbedder {
	return &OllamaEmbedder{newOllamaClient(url, model, defaultOllamaEmbedModel)}
}

type ollamaEmbedRequest struct {
	Model    string `json:"model"`
	Input    string `json:"input"`
	Truncate bool   `json:"truncate"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed returns the embedding of text. Over-long input is truncated server side.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	var out ollamaEmbedResponse
	if err := e.post(ctx, "/api/embed", ollamaEmbedRequest{Model: e.model, Input: text, Truncate: true}, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", out.Error)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned from ollama", ErrInvalidResponse)
	}
	return out.Embeddings[0], nil
}

var _ Embedder = (*OllamaEmbedder)(nil)

// OllamaCompleter runs chat completions against a local Ollama server.
type OllamaCompleter struct {
	ollamaClient
}

// NewOllamaCompleter creates a completer. Empty url or model use the defaults.
func NewOllamaCompleter(url, model string) *OllamaCompleter {
	return &OllamaCompleter{newOllamaClient(url, model, defaultOllamaModel)}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// Complete sends the prompt as a system and user message and returns the reply.
func (o *OllamaCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	req := ollamaChatRequest{
		Model:   o.model,
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}
	if p.System != "" {
		req.Messages = append(req.Messages, ollamaMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, ollamaMessage{Role: "user", Content: p.User})
	if p.JSON {
		req.Format = "json"
	}

	var out ollamaChatResponse
	if err := o.post(ctx, "/api/chat", req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	return out.Message.Content, nil
}

var _ Completer = (*OllamaCompleter)(nil)
