package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacklau/oppradar/internal/config"
	"github.com/jacklau/oppradar/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup for oppradar configuration",
	Long:  `Creates a default configuration file with guided prompts.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Welcome to oppradar setup!")
	fmt.Println("This will create a configuration file for you.")
	fmt.Println()

	configPath := cfgFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists at %s\n", configPath)
		fmt.Print("Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Gather inputs
	fmt.Printf("Subreddits to watch, comma separated [%s]: ", strings.Join(config.DefaultSources, ","))
	sourcesRaw, _ := reader.ReadString('\n')
	sources := store.NormalizeList(strings.Split(sourcesRaw, ","))

	fmt.Print("Embedding provider (openai/ollama) [openai]: ")
	embedProvider, _ := reader.ReadString('\n')
	embedProvider = strings.TrimSpace(embedProvider)
	if embedProvider == "" {
		embedProvider = "openai"
	}

	fmt.Print("LLM provider (openai/ollama/anthropic) [openai]: ")
	llmProvider, _ := reader.ReadString('\n')
	llmProvider = strings.TrimSpace(llmProvider)
	if llmProvider == "" {
		llmProvider = "openai"
	}

	fmt.Print("Slack webhook URL (or press Enter to skip): ")
	slackURL, _ := reader.ReadString('\n')
	slackURL = strings.TrimSpace(slackURL)

	fmt.Print("Discord webhook URL (or press Enter to skip): ")
	discordURL, _ := reader.ReadString('\n')
	discordURL = strings.TrimSpace(discordURL)

	// Build config
	cfgYAML := buildConfigYAML(sources, embedProvider, llmProvider, slackURL, discordURL)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(cfgYAML), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", configPath)
	fmt.Println("Edit the file to add API keys, then run 'oppradar run' or 'oppradar serve'.")
	return nil
}

func buildConfigYAML(sources []string, embedProvider, llmProvider, slackURL, discordURL string) string {
	var b strings.Builder

	b.WriteString("# oppradar configuration\n")
	b.WriteString("# api_key placeholders are expanded from the environment or the .env file.\n\n")

	b.WriteString("providers:\n")
	b.WriteString("  embedding:\n")
	b.WriteString(fmt.Sprintf("    type: %s\n", embedProvider))
	embedModel, embedAPIKey := embeddingProviderDefaults(embedProvider)
	b.WriteString(fmt.Sprintf("    model: %s\n", embedModel))
	b.WriteString(fmt.Sprintf("    api_key: %s\n", embedAPIKey))
	b.WriteString(fmt.Sprintf("    dimensions: %d\n", embeddingDimensions(embedProvider)))
	b.WriteString("  llm:\n")
	b.WriteString(fmt.Sprintf("    type: %s\n", llmProvider))
	llmModel, llmAPIKey := llmProviderDefaults(llmProvider)
	b.WriteString(fmt.Sprintf("    model: %s\n", llmModel))
	b.WriteString(fmt.Sprintf("    api_key: %s\n", llmAPIKey))
	b.WriteString("  # requests_per_minute: 60\n")
	b.WriteString("\n")

	b.WriteString("notify:\n")
	if slackURL != "" {
		b.WriteString(fmt.Sprintf("  slack_webhook: %s\n", slackURL))
	} else {
		b.WriteString("  # slack_webhook: https://hooks.slack.com/services/...\n")
	}
	if discordURL != "" {
		b.WriteString(fmt.Sprintf("  discord_webhook: %s\n", discordURL))
	} else {
		b.WriteString("  # discord_webhook: https://discord.com/api/webhooks/...\n")
	}
	b.WriteString("\n")

	b.WriteString("feed:\n")
	b.WriteString(fmt.Sprintf("  user_agent: %s\n", config.DefaultUserAgent))
	b.WriteString("  timeout: 15s\n")
	b.WriteString(fmt.Sprintf("  max_attempts: %d\n", config.DefaultMaxAttempts))
	b.WriteString("\n")

	if len(sources) == 0 {
		sources = config.DefaultSources
	}
	b.WriteString("defaults:\n")
	b.WriteString(fmt.Sprintf("  sources: [%s]\n", strings.Join(sources, ", ")))
	b.WriteString(fmt.Sprintf("  cluster_distance_threshold: %g\n", config.DefaultThreshold))
	b.WriteString(fmt.Sprintf("  distance_metric: %s\n", config.DefaultDistanceMetric))
	b.WriteString("  poll_interval: 15m\n")
	b.WriteString("  request_timeout: 60s\n")
	b.WriteString("\n")

	b.WriteString("store:\n")
	b.WriteString("  path: ~/.oppradar/oppradar.db\n")
	b.WriteString("\n")

	b.WriteString("server:\n")
	b.WriteString("  addr: 127.0.0.1:8080\n")

	return b.String()
}

// embeddingDimensions returns the vector width of the default model for the
// given embedding provider type.
func embeddingDimensions(provider string) int {
	if provider == "ollama" {
		return 768
	}
	return config.DefaultEmbeddingDims
}

// embeddingProviderDefaults returns the default model and api_key placeholder
// for the given embedding provider type.
func embeddingProviderDefaults(provider string) (model, apiKey string) {
	switch provider {
	case "ollama":
		return "nomic-embed-text", "# not required for ollama"
	default: // openai
		return "text-embedding-3-small", "${OPENAI_API_KEY}"
	}
}

// llmProviderDefaults returns the default model and api_key placeholder
// for the given LLM provider type.
func llmProviderDefaults(provider string) (model, apiKey string) {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-20250514", "${ANTHROPIC_API_KEY}"
	case "ollama":
		return "llama3", "# not required for ollama"
	default: // openai
		return "gpt-4o-mini", "${OPENAI_API_KEY}"
	}
}
