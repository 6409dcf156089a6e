package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Notify    NotifyConfig    `yaml:"notify"`
	Feed      FeedConfig      `yaml:"feed"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
}

// ProviderConfig holds settings for a single provider (embedding or LLM).
type ProviderConfig struct {
	Type       string `yaml:"type"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	URL        string `yaml:"url"`
	Dimensions int    `yaml:"dimensions"`
}

// ProvidersConfig groups embedding and LLM provider configs.
type ProvidersConfig struct {
	Embedding         ProviderConfig `yaml:"embedding"`
	LLM               ProviderConfig `yaml:"llm"`
	RequestsPerMinute int            `yaml:"requests_per_minute"`
}

// NotifyConfig holds notification webhook URLs.
type NotifyConfig struct {
	DiscordWebhook string `yaml:"discord_webhook"`
	SlackWebhook   string `yaml:"slack_webhook"`
}

// FeedConfig holds feed retrieval settings.
type FeedConfig struct {
	BaseURL      string `yaml:"base_url"`
	UserAgent    string `yaml:"user_agent"`
	TimeoutRaw   string `yaml:"timeout"`
	MaxAttempts  int    `yaml:"max_attempts"`
	BaseDelayRaw string `yaml:"base_delay"`
}

// DefaultsConfig holds operational defaults. Sources, HeuristicPatterns and
// ClusterDistanceThreshold seed the ingest settings row until it is saved.
type DefaultsConfig struct {
	Sources                  []string `yaml:"sources"`
	HeuristicPatterns        []string `yaml:"heuristic_patterns"`
	ClusterDistanceThreshold float64  `yaml:"cluster_distance_threshold"`
	DistanceMetric           string   `yaml:"distance_metric"`
	PollIntervalRaw          string   `yaml:"poll_interval"`
	RequestTimeoutRaw        string   `yaml:"request_timeout"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default values.
const (
	DefaultThreshold      = 0.15
	DefaultUserAgent      = "market-validator/1.0"
	DefaultFeedBaseURL    = "https://www.reddit.com"
	DefaultEmbeddingDims  = 1536
	DefaultMaxAttempts    = 4
	DefaultDistanceMetric = "l2"
)

// DefaultSources are the communities watched until settings are saved.
var DefaultSources = []string{"SaaS", "marketing", "smallbusiness", "startups"}

// DefaultHeuristicPatterns are the pre-filter terms used until settings are saved.
var DefaultHeuristicPatterns = []string{
	"how to",
	"struggling with",
	"hate doing",
	"alternative to",
	"too expensive",
	"wish there was",
}

// PollInterval returns the parsed scheduled-run interval.
func (d DefaultsConfig) PollInterval() (time.Duration, error) {
	if d.PollIntervalRaw == "" {
		return 15 * time.Minute, nil
	}
	return time.ParseDuration(d.PollIntervalRaw)
}

// RequestTimeout returns the parsed provider request timeout.
func (d DefaultsConfig) RequestTimeout() (time.Duration, error) {
	if d.RequestTimeoutRaw == "" {
		return 60 * time.Second, nil
	}
	return time.ParseDuration(d.RequestTimeoutRaw)
}

// Timeout returns the parsed per-attempt feed timeout.
func (f FeedConfig) Timeout() (time.Duration, error) {
	if f.TimeoutRaw == "" {
		return 15 * time.Second, nil
	}
	return time.ParseDuration(f.TimeoutRaw)
}

// BaseDelay returns the parsed initial retry backoff.
func (f FeedConfig) BaseDelay() (time.Duration, error) {
	if f.BaseDelayRaw == "" {
		return 500 * time.Millisecond, nil
	}
	return time.ParseDuration(f.BaseDelayRaw)
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func applyDefaults(cfg *Config) {
	if cfg.Providers.Embedding.Dimensions == 0 {
		cfg.Providers.Embedding.Dimensions = DefaultEmbeddingDims
	}
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = DefaultFeedBaseURL
	}
	if cfg.Feed.UserAgent == "" {
		cfg.Feed.UserAgent = DefaultUserAgent
	}
	if cfg.Feed.TimeoutRaw == "" {
		cfg.Feed.TimeoutRaw = "15s"
	}
	if cfg.Feed.MaxAttempts == 0 {
		cfg.Feed.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Feed.BaseDelayRaw == "" {
		cfg.Feed.BaseDelayRaw = "500ms"
	}
	if len(cfg.Defaults.Sources) == 0 {
		cfg.Defaults.Sources = append([]string(nil), DefaultSources...)
	}
	if len(cfg.Defaults.HeuristicPatterns) == 0 {
		cfg.Defaults.HeuristicPatterns = append([]string(nil), DefaultHeuristicPatterns...)
	}
	if cfg.Defaults.ClusterDistanceThreshold == 0 {
		cfg.Defaults.ClusterDistanceThreshold = DefaultThreshold
	}
	if cfg.Defaults.DistanceMetric == "" {
		cfg.Defaults.DistanceMetric = DefaultDistanceMetric
	}
	if cfg.Defaults.PollIntervalRaw == "" {
		cfg.Defaults.PollIntervalRaw = "15m"
	}
	if cfg.Defaults.RequestTimeoutRaw == "" {
		cfg.Defaults.RequestTimeoutRaw = "60s"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.oppradar/oppradar.db"
	}
	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
}

func validate(cfg *Config) error {
	t := cfg.Defaults.ClusterDistanceThreshold
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("cluster_distance_threshold must be a non-negative number, got %f", t)
	}

	switch cfg.Defaults.DistanceMetric {
	case "l2", "cosine":
	default:
		return fmt.Errorf("unsupported distance_metric: %s", cfg.Defaults.DistanceMetric)
	}

	if cfg.Feed.MaxAttempts < 1 {
		return fmt.Errorf("feed max_attempts must be at least 1, got %d", cfg.Feed.MaxAttempts)
	}
	if cfg.Providers.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Providers.Embedding.Dimensions)
	}
	if cfg.Providers.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", cfg.Providers.RequestsPerMinute)
	}

	durations := map[string]string{
		"poll_interval":   cfg.Defaults.PollIntervalRaw,
		"request_timeout": cfg.Defaults.RequestTimeoutRaw,
		"feed timeout":    cfg.Feed.TimeoutRaw,
		"feed base_delay": cfg.Feed.BaseDelayRaw,
	}
	for name, raw := range durations {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}

	validEmbedTypes := map[string]bool{"openai": true, "ollama": true, "": true}
	if !validEmbedTypes[cfg.Providers.Embedding.Type] {
		return fmt.Errorf("unsupported embedding provider type: %s", cfg.Providers.Embedding.Type)
	}

	validLLMTypes := map[string]bool{"openai": true, "ollama": true, "anthropic": true, "": true}
	if !validLLMTypes[cfg.Providers.LLM.Type] {
		return fmt.Errorf("unsupported LLM provider type: %s", cfg.Providers.LLM.Type)
	}

	return nil
}
