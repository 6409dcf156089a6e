package provider

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Prompt is a single-turn completion request.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider to constrain output to a JSON object where the
	// API supports it.
	JSON bool
}

// Completer generates text completions from a prompt.
type Completer interface {
	// Complete returns the raw text completion for the given prompt.
	Complete(ctx context.Context, p Prompt) (string, error)
}

// EmbedderConfig holds configuration for creating an Embedder.
type EmbedderConfig struct {
	Type       string
	Model      string
	APIKey     string
	URL        string
	Dimensions int
}

// CompleterConfig holds configuration for creating a Completer.
type CompleterConfig struct {
	Type   string
	Model  string
	APIKey string
	URL    string
}

// NewEmbedder builds the embedder named by cfg.Type.
func NewEmbedder(cfg EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedder requires an api_key")
		}
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, WithOpenAIBaseURL(cfg.URL), WithDimensions(cfg.Dimensions)), nil
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = defaultOllamaURL
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaEmbedModel
		}
		return NewOllamaEmbedder(url, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider type: %s", cfg.Type)
	}
}

// NewCompleter builds the completer named by cfg.Type.
func NewCompleter(cfg CompleterConfig) (Completer, error) {
	switch cfg.Type {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai completer requires an api_key")
		}
		return NewOpenAICompleter(cfg.APIKey, cfg.Model, WithOpenAIBaseURL(cfg.URL)), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic completer requires an api_key")
		}
		return NewAnthropicCompleter(cfg.APIKey, cfg.Model, anthropicOptions(cfg.URL)...), nil
	case "ollama":
		return NewOllamaCompleter(cfg.URL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Type)
	}
}
