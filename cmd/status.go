package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/oppradar/internal/config"
	"github.com/jacklau/oppradar/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health overview",
	Long: `Display cluster, post and vector counts, whether cluster counters agree
with the stored posts, when the ingest settings were last saved, and the
database size.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initStoreOnly(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	ctx := cmd.Context()
	stats, err := c.Store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}
	settings, err := c.Store.GetIngestSettings(ctx, settingsDefaults(cfg))
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	printStatus(cmd.OutOrStdout(), stats, settings)

	fmt.Fprintln(cmd.OutOrStdout())
	dbSize, err := dbFileSize(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (size unknown)\n", cfg.Store.Path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (%s)\n", cfg.Store.Path, formatBytes(dbSize))
	}
	return nil
}

func printStatus(w io.Writer, stats *store.Stats, settings store.IngestSettings) {
	fmt.Fprintf(w, "Clusters:  %d\n", stats.Clusters)
	fmt.Fprintf(w, "Posts:     %d\n", stats.Posts)
	fmt.Fprintf(w, "Vectors:   %d\n", stats.Vectors)
	if stats.Consistent() {
		green.Fprintln(w, "Counters:  consistent")
	} else {
		red.Fprintf(w, "Counters:  inconsistent (post_count sum %d, posts %d, vectors %d)\n",
			stats.PostCountSum, stats.Posts, stats.Vectors)
	}

	updated := "never"
	if settings.UpdatedAt > 0 {
		updated = formatTimeAgo(time.Unix(settings.UpdatedAt, 0))
	}
	fmt.Fprintf(w, "Sources:   %d watched, cron %s, settings saved %s\n",
		len(settings.Sources), onOff(settings.CronIngestEnabled), updated)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// formatTimeAgo formats a time as a human-readable relative string.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// dbFileSize returns the size in bytes of the database file.
func dbFileSize(path string) (int64, error) {
	info, err := os.Stat(config.ExpandHome(path))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
