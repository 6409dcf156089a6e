package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/oppradar/internal/store"
)

var (
	settingsSources   []string
	settingsPatterns  []string
	settingsThreshold float64
	settingsCron      bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the ingest settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the ingest settings",
	Long: `Update the stored ingest settings. Only the flags given are changed.

  oppradar settings set --source SaaS --source startups --pattern "wish there was"
  oppradar settings set --threshold 0.2 --cron=true`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringSliceVar(&settingsSources, "source", nil, "subreddit to watch (repeatable, replaces the list)")
	f.StringSliceVar(&settingsPatterns, "pattern", nil, "heuristic pattern (repeatable, replaces the list)")
	f.Float64Var(&settingsThreshold, "threshold", 0, "cluster distance threshold")
	f.BoolVar(&settingsCron, "cron", false, "enable scheduled ingestion")
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c, err := initStoreOnly(cfg, setupLogger())
	if err != nil {
		return err
	}
	defer c.Close()

	s, err := c.Store.GetIngestSettings(cmd.Context(), settingsDefaults(cfg))
	if err != nil {
		return err
	}
	printSettings(cmd.OutOrStdout(), s)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c, err := initStoreOnly(cfg, setupLogger())
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	s, err := c.Store.GetIngestSettings(ctx, settingsDefaults(cfg))
	if err != nil {
		return err
	}
	s = applySettingsFlags(cmd, s)

	saved, err := c.Store.SaveIngestSettings(ctx, s, cfg.Defaults.ClusterDistanceThreshold)
	if err != nil {
		return err
	}
	green.Fprintln(cmd.OutOrStdout(), "Settings saved.")
	printSettings(cmd.OutOrStdout(), saved)
	return nil
}

// applySettingsFlags overlays the flags the user actually set.
func applySettingsFlags(cmd *cobra.Command, s store.IngestSettings) store.IngestSettings {
	f := cmd.Flags()
	if f.Changed("source") {
		s.Sources = settingsSources
	}
	if f.Changed("pattern") {
		s.HeuristicPatterns = settingsPatterns
	}
	if f.Changed("threshold") {
		s.ClusterDistanceThreshold = settingsThreshold
	}
	if f.Changed("cron") {
		s.CronIngestEnabled = settingsCron
	}
	return s
}

func printSettings(w io.Writer, s store.IngestSettings) {
	fmt.Fprintf(w, "Sources:            %s\n", strings.Join(s.Sources, ", "))
	fmt.Fprintf(w, "Heuristic patterns: %s\n", strings.Join(s.HeuristicPatterns, ", "))
	fmt.Fprintf(w, "Distance threshold: %g\n", s.ClusterDistanceThreshold)
	fmt.Fprintf(w, "Cron ingestion:     %t\n", s.CronIngestEnabled)
	if s.UpdatedAt > 0 {
		dim.Fprintf(w, "Updated:            %s\n", formatTimeAgo(time.Unix(s.UpdatedAt, 0)))
	} else {
		dim.Fprintln(w, "Updated:            never (config defaults)")
	}
}
