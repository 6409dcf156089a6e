package provider

import "testing"

func TestNewEmbedderFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmbedderConfig
		wantErr bool
	}{
		{"openai default", EmbedderConfig{APIKey: "k"}, false},
		{"openai missing key", EmbedderConfig{Type: "openai"}, true},
		{"ollama", EmbedderConfig{Type: "ollama"}, false},
		{"unknown", EmbedderConfig{Type: "cohere"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEmbedder(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewEmbedder error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && e == nil {
				t.Error("expected non-nil embedder")
			}
		})
	}
}

func TestNewEmbedderOllamaDefaults(t *testing.T) {
	e, err := NewEmbedder(EmbedderConfig{Type: "ollama"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oe, ok := e.(*OllamaEmbedder)
	if !ok {
		t.Fatalf("expected *OllamaEmbedder, got %T", e)
	}
	if oe.url != defaultOllamaURL || oe.model != defaultOllamaEmbedModel {
		t.Errorf("unexpected defaults: %s %s", oe.url, oe.model)
	}
}

func TestNewCompleterFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CompleterConfig
		want    string
		wantErr bool
	}{
		{"openai default", CompleterConfig{APIKey: "k"}, "*provider.OpenAICompleter", false},
		{"anthropic", CompleterConfig{Type: "anthropic", APIKey: "k"}, "*provider.AnthropicCompleter", false},
		{"anthropic missing key", CompleterConfig{Type: "anthropic"}, "", true},
		{"ollama", CompleterConfig{Type: "ollama"}, "*provider.OllamaCompleter", false},
		{"unknown", CompleterConfig{Type: "mystery"}, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewCompleter(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewCompleter error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if got := typeName(c); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *OpenAICompleter:
		return "*provider.OpenAICompleter"
	case *AnthropicCompleter:
		return "*provider.AnthropicCompleter"
	case *OllamaCompleter:
		return "*provider.OllamaCompleter"
	}
	return "unknown"
}

func TestOpenAIDefaults(t *testing.T) {
	if c := NewOpenAICompleter("k", ""); c.model != defaultOpenAIModel {
		t.Errorf("expected default completion model, got %q", c.model)
	}
	e := NewOpenAIEmbedder("k", "unknown-model", WithDimensions(512))
	if e.model != "text-embedding-3-small" {
		t.Errorf("unknown embedding model should fall back to small, got %q", e.model)
	}
	if e.dimensions != 512 {
		t.Errorf("expected dimensions override 512, got %d", e.dimensions)
	}
}
