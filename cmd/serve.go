package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jacklau/oppradar/internal/server"
)

var (
	serveAddr     string
	serveInterval string
	serveNoCron   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled ingestion",
	Long: `Start the HTTP API and a scheduler that runs ingestion every poll
interval while cron ingestion is enabled in the stored settings.

Manual and scheduled runs share one guard: a trigger that arrives while a
run is active is rejected (HTTP 409) rather than queued.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveInterval, "interval", "", "scheduler interval (overrides defaults.poll_interval)")
	serveCmd.Flags().BoolVar(&serveNoCron, "no-scheduler", false, "serve the API without the scheduler")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveInterval != "" {
		cfg.Defaults.PollIntervalRaw = serveInterval
	}
	interval, err := cfg.Defaults.PollInterval()
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", cfg.Defaults.PollIntervalRaw, err)
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server.Addr, c.Store, c.Runner, c.Progress, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if !serveNoCron {
		sched := server.NewScheduler(c.Runner, interval, logger)
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
