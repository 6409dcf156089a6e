package config

import (
	"os"
	"testing"
	"time"
)

func TestParseBasicConfig(t *testing.T) {
	yaml := `
providers:
  embedding:
    type: openai
    model: text-embedding-3-small
    api_key: sk-test-key
  llm:
    type: anthropic
    model: claude-sonnet-4-20250514
    api_key: sk-ant-key
  requests_per_minute: 120
notify:
  discord_webhook: https://discord.com/api/webhooks/test
feed:
  user_agent: test-agent/2.0
  timeout: 5s
  max_attempts: 2
  base_delay: 10ms
defaults:
  sources: [golang, devops]
  heuristic_patterns: [wish there was]
  cluster_distance_threshold: 0.3
  distance_metric: cosine
  poll_interval: 10m
  request_timeout: 90s
store:
  path: /tmp/oppradar.db
server:
  addr: ":9090"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Providers.Embedding.Type != "openai" {
		t.Errorf("expected embedding type 'openai', got %q", cfg.Providers.Embedding.Type)
	}
	if cfg.Providers.Embedding.Dimensions != DefaultEmbeddingDims {
		t.Errorf("expected default dimensions %d, got %d", DefaultEmbeddingDims, cfg.Providers.Embedding.Dimensions)
	}
	if cfg.Providers.LLM.Type != "anthropic" {
		t.Errorf("expected llm type 'anthropic', got %q", cfg.Providers.LLM.Type)
	}
	if cfg.Providers.RequestsPerMinute != 120 {
		t.Errorf("expected 120 rpm, got %d", cfg.Providers.RequestsPerMinute)
	}
	if cfg.Notify.DiscordWebhook != "https://discord.com/api/webhooks/test" {
		t.Errorf("expected discord webhook, got %q", cfg.Notify.DiscordWebhook)
	}
	if cfg.Feed.UserAgent != "test-agent/2.0" {
		t.Errorf("expected user agent override, got %q", cfg.Feed.UserAgent)
	}
	if cfg.Feed.MaxAttempts != 2 {
		t.Errorf("expected max_attempts 2, got %d", cfg.Feed.MaxAttempts)
	}
	if len(cfg.Defaults.Sources) != 2 || cfg.Defaults.Sources[0] != "golang" {
		t.Errorf("unexpected sources: %v", cfg.Defaults.Sources)
	}
	if cfg.Defaults.ClusterDistanceThreshold != 0.3 {
		t.Errorf("expected threshold 0.3, got %f", cfg.Defaults.ClusterDistanceThreshold)
	}
	if cfg.Defaults.DistanceMetric != "cosine" {
		t.Errorf("expected cosine metric, got %q", cfg.Defaults.DistanceMetric)
	}
	if cfg.Store.Path != "/tmp/oppradar.db" {
		t.Errorf("expected store path '/tmp/oppradar.db', got %q", cfg.Store.Path)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected server addr ':9090', got %q", cfg.Server.Addr)
	}

	dur, err := cfg.Defaults.PollInterval()
	if err != nil {
		t.Fatalf("unexpected error parsing poll interval: %v", err)
	}
	if dur != 10*time.Minute {
		t.Errorf("expected 10m poll interval, got %v", dur)
	}

	timeout, err := cfg.Feed.Timeout()
	if err != nil {
		t.Fatalf("unexpected error parsing feed timeout: %v", err)
	}
	if timeout != 5*time.Second {
		t.Errorf("expected 5s feed timeout, got %v", timeout)
	}

	delay, err := cfg.Feed.BaseDelay()
	if err != nil {
		t.Fatalf("unexpected error parsing base delay: %v", err)
	}
	if delay != 10*time.Millisecond {
		t.Errorf("expected 10ms base delay, got %v", delay)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`notify: {}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Defaults.PollIntervalRaw != "15m" {
		t.Errorf("expected default poll_interval '15m', got %q", cfg.Defaults.PollIntervalRaw)
	}
	if cfg.Defaults.ClusterDistanceThreshold != DefaultThreshold {
		t.Errorf("expected default threshold %f, got %f", DefaultThreshold, cfg.Defaults.ClusterDistanceThreshold)
	}
	if cfg.Defaults.DistanceMetric != "l2" {
		t.Errorf("expected default metric l2, got %q", cfg.Defaults.DistanceMetric)
	}
	if len(cfg.Defaults.Sources) != len(DefaultSources) {
		t.Errorf("expected %d default sources, got %d", len(DefaultSources), len(cfg.Defaults.Sources))
	}
	if len(cfg.Defaults.HeuristicPatterns) != len(DefaultHeuristicPatterns) {
		t.Errorf("expected %d default patterns, got %d", len(DefaultHeuristicPatterns), len(cfg.Defaults.HeuristicPatterns))
	}
	if cfg.Feed.UserAgent != DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", cfg.Feed.UserAgent)
	}
	if cfg.Feed.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", DefaultMaxAttempts, cfg.Feed.MaxAttempts)
	}
	if cfg.Feed.BaseURL != DefaultFeedBaseURL {
		t.Errorf("expected default base url, got %q", cfg.Feed.BaseURL)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}
	expectedStorePath := home + "/.oppradar/oppradar.db"
	if cfg.Store.Path != expectedStorePath {
		t.Errorf("expected default store path %q, got %q", expectedStorePath, cfg.Store.Path)
	}
}

func TestDefaultsAreNotShared(t *testing.T) {
	cfg, err := Parse([]byte(`notify: {}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Defaults.Sources[0] = "mutated"
	if DefaultSources[0] == "mutated" {
		t.Error("defaults slice must be copied, not aliased")
	}
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_API_KEY", "my-secret-key")

	yaml := `
providers:
  embedding:
    type: openai
    api_key: ${TEST_API_KEY}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Providers.Embedding.APIKey != "my-secret-key" {
		t.Errorf("expected api_key 'my-secret-key', got %q", cfg.Providers.Embedding.APIKey)
	}
}

func TestEnvVarMissing(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")

	yaml := `
providers:
  embedding:
    api_key: ${NONEXISTENT_VAR_12345}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing env var, got nil")
	}

	expected := "missing required environment variables: NONEXISTENT_VAR_12345"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "negative threshold",
			yaml: `
defaults:
  cluster_distance_threshold: -0.1
`,
		},
		{
			name: "unknown metric",
			yaml: `
defaults:
  distance_metric: manhattan
`,
		},
		{
			name: "invalid poll interval",
			yaml: `
defaults:
  poll_interval: not-a-duration
`,
		},
		{
			name: "invalid feed timeout",
			yaml: `
feed:
  timeout: soon
`,
		},
		{
			name: "negative attempts",
			yaml: `
feed:
  max_attempts: -1
`,
		},
		{
			name: "negative rpm",
			yaml: `
providers:
  requests_per_minute: -5
`,
		},
		{
			name: "invalid embedding provider",
			yaml: `
providers:
  embedding:
    type: OpenAI
`,
		},
		{
			name: "invalid llm provider",
			yaml: `
providers:
  llm:
    type: openAI
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidationValidProviderTypes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "openai embedding and llm",
			yaml: `
providers:
  embedding:
    type: openai
    api_key: test
  llm:
    type: openai
    api_key: test
`,
		},
		{
			name: "ollama embedding and llm",
			yaml: `
providers:
  embedding:
    type: ollama
  llm:
    type: ollama
`,
		},
		{
			name: "anthropic llm",
			yaml: `
providers:
  llm:
    type: anthropic
    api_key: test
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err != nil {
				t.Errorf("unexpected error for valid config: %v", err)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tilde prefix", input: "~/.oppradar/oppradar.db", expected: home + "/.oppradar/oppradar.db"},
		{name: "tilde only", input: "~", expected: home},
		{name: "absolute path unchanged", input: "/tmp/oppradar.db", expected: "/tmp/oppradar.db"},
		{name: "relative path unchanged", input: "data/oppradar.db", expected: "data/oppradar.db"},
		{name: "tilde in middle unchanged", input: "/some/~/path", expected: "/some/~/path"},
		{name: "memory unchanged", input: ":memory:", expected: ":memory:"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpandHome(tc.input); got != tc.expected {
				t.Errorf("ExpandHome(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
