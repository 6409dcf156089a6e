package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-classify and re-cluster every stored post",
	Long: `Wipe all clusters and replay every analyzed post, oldest first, through
the classifier and the clustering step. Posts the classifier now rejects are
dropped. No notifications are sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReanalyze(cmd, false)
	},
}

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Re-cluster stored posts reusing their existing analysis",
	Long: `Wipe all clusters and rebuild them from stored posts without calling the
classifier. Each post reuses the summary of the cluster it belonged to, so
only the embedding and nearest-cluster steps run. Useful after changing the
distance threshold or metric.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReanalyze(cmd, true)
	},
}

var reanalyzeQuiet bool

func init() {
	for _, c := range []*cobra.Command{reanalyzeCmd, reclusterCmd} {
		c.Flags().BoolVarP(&reanalyzeQuiet, "quiet", "q", false, "do not draw a progress bar")
		rootCmd.AddCommand(c)
	}
}

func runReanalyze(cmd *cobra.Command, reuse bool) error {
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

	mode := "Reanalysis"
	if reuse {
		mode = "Recluster"
	}

	barCtx, cancelBar := context.WithCancel(ctx)
	defer cancelBar()
	var barDone chan struct{}
	if !reanalyzeQuiet {
		barDone = make(chan struct{})
		updates := c.Broker.Subscribe(barCtx)
		go func() {
			defer close(barDone)
			renderProgress(updates, mode, cmd.ErrOrStderr())
		}()
	}

	stats, err := c.Runner.Reanalyze(ctx, reuse)
	cancelBar()
	if barDone != nil {
		<-barDone
	}
	if err != nil {
		printError(cmd.ErrOrStderr(), "%s failed: %v", mode, err)
		return err
	}
	printReanalyzeStats(cmd.OutOrStdout(), mode, stats)
	return nil
}
