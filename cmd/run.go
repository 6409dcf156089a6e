package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass",
	Long: `Fetch the configured subreddit feed once, filter, classify and cluster
new posts, then send notifications for every clustered post.

Sources, heuristic patterns and the distance threshold come from the stored
ingest settings (see 'oppradar settings').`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := c.Runner.Ingest(ctx)
	if err != nil {
		printError(cmd.ErrOrStderr(), "ingestion failed: %v", err)
		return err
	}
	printIngestStats(cmd.OutOrStdout(), stats)
	return nil
}
