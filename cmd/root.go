package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jacklau/oppradar/internal/analyze"
	"github.com/jacklau/oppradar/internal/cluster"
	"github.com/jacklau/oppradar/internal/config"
	"github.com/jacklau/oppradar/internal/feed"
	"github.com/jacklau/oppradar/internal/notify"
	"github.com/jacklau/oppradar/internal/pipeline"
	"github.com/jacklau/oppradar/internal/progress"
	"github.com/jacklau/oppradar/internal/provider"
	"github.com/jacklau/oppradar/internal/pubsub"
	"github.com/jacklau/oppradar/internal/server"
	"github.com/jacklau/oppradar/internal/store"
)

var (
	cfgFile string
	envFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "oppradar",
	Short: "Find product opportunities in Reddit posts",
	Long: `oppradar polls subreddit feeds, keeps posts that describe a pain point,
asks an LLM whether each one is a product opportunity, and groups similar
opportunities into clusters using embeddings.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initColors(noColor)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config, ignored when missing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oppradar/config.yaml"
	}
	return filepath.Join(home, ".oppradar", "config.yaml")
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

// components holds initialized components for use by subcommands.
type components struct {
	Config   *config.Config
	Store    *store.DB
	Broker   *pubsub.Broker[progress.State]
	Progress *progress.Tracker
	Pipeline *pipeline.Pipeline
	Runner   *server.Runner
	Logger   *slog.Logger
}

// Close releases the store.
func (c *components) Close() error {
	return c.Store.Close()
}

// settingsDefaults seeds the ingest settings from the config file.
func settingsDefaults(cfg *config.Config) store.IngestSettings {
	return store.IngestSettings{
		Sources:                  cfg.Defaults.Sources,
		HeuristicPatterns:        cfg.Defaults.HeuristicPatterns,
		ClusterDistanceThreshold: cfg.Defaults.ClusterDistanceThreshold,
	}
}

// openStore opens the database, creating its directory if needed.
func openStore(cfg *config.Config) (*store.DB, error) {
	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return db, nil
}

// initStoreOnly builds the components needed by read-only commands.
func initStoreOnly(cfg *config.Config, logger *slog.Logger) (*components, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &components{Config: cfg, Store: db, Logger: logger}, nil
}

// initComponents creates all components from config.
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	c, err := initStoreOnly(cfg, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := provider.NewEmbedder(provider.EmbedderConfig{
		Type:       cfg.Providers.Embedding.Type,
		Model:      cfg.Providers.Embedding.Model,
		APIKey:     cfg.Providers.Embedding.APIKey,
		URL:        cfg.Providers.Embedding.URL,
		Dimensions: cfg.Providers.Embedding.Dimensions,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	completer, err := provider.NewCompleter(provider.CompleterConfig{
		Type:   cfg.Providers.LLM.Type,
		Model:  cfg.Providers.LLM.Model,
		APIKey: cfg.Providers.LLM.APIKey,
		URL:    cfg.Providers.LLM.URL,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	// One limiter paces both providers.
	if limiter := provider.NewLimiter(cfg.Providers.RequestsPerMinute); limiter != nil {
		embedder = provider.LimitEmbedder(embedder, limiter)
		completer = provider.LimitCompleter(completer, limiter)
	}

	timeout, err := cfg.Defaults.RequestTimeout()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("parsing request_timeout: %w", err)
	}

	metric, err := cluster.ParseMetric(cfg.Defaults.DistanceMetric)
	if err != nil {
		c.Close()
		return nil, err
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Broker = pubsub.NewBroker[progress.State]()
	c.Progress = progress.NewTracker(c.Broker)
	c.Pipeline = pipeline.New(pipeline.PipelineDeps{
		Fetcher:          fetcher,
		Classifier:       analyze.NewAnalyzer(completer, timeout),
		Embedder:         embedder,
		Store:            c.Store,
		Resolver:         cluster.NewResolver(c.Store, cluster.WithMetric(metric), cluster.WithLogger(logger)),
		Notifier:         notify.NewNotifier(cfg.Notify.DiscordWebhook, cfg.Notify.SlackWebhook),
		Progress:         c.Progress,
		Logger:           logger,
		Dimensions:       cfg.Providers.Embedding.Dimensions,
		DefaultThreshold: cfg.Defaults.ClusterDistanceThreshold,
	})
	c.Runner = server.NewRunner(c.Pipeline, c.Store, settingsDefaults(cfg), logger)

	return c, nil
}

func newFetcher(cfg *config.Config, logger *slog.Logger) (*feed.Fetcher, error) {
	timeout, err := cfg.Feed.Timeout()
	if err != nil {
		return nil, fmt.Errorf("parsing feed timeout: %w", err)
	}
	delay, err := cfg.Feed.BaseDelay()
	if err != nil {
		return nil, fmt.Errorf("parsing feed base_delay: %w", err)
	}
	return feed.NewFetcher(
		feed.WithBaseURL(cfg.Feed.BaseURL),
		feed.WithUserAgent(cfg.Feed.UserAgent),
		feed.WithTimeout(timeout),
		feed.WithRetry(cfg.Feed.MaxAttempts, delay),
		feed.WithLogger(logger),
	), nil
}
