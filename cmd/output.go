package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/jacklau/oppradar/internal/pipeline"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func initColors(disable bool) {
	if disable {
		color.NoColor = true
	}
}

// printIngestStats writes the summary of an ingestion run.
func printIngestStats(w io.Writer, s *pipeline.Stats) {
	bold.Fprintln(w, "Ingestion complete")
	fmt.Fprintf(w, "  fetched     %d\n", s.Total)
	fmt.Fprintf(w, "  filtered in %d\n", s.Filtered)
	fmt.Fprintf(w, "  deduped     %d\n", s.Deduped)
	fmt.Fprintf(w, "  analyzed    %d\n", s.Analyzed)
	fmt.Fprintf(w, "  skipped     %d\n", s.Skipped)
	green.Fprintf(w, "  new         %d\n", s.ClusteredNew)
	cyan.Fprintf(w, "  existing    %d\n", s.ClusteredExisting)
	fmt.Fprintf(w, "  pruned      %d\n", s.PrunedOrphans)
	fmt.Fprintf(w, "  notified    %d\n", s.Notified)
	if s.NotifyErrors > 0 {
		yellow.Fprintf(w, "  notify errs %d\n", s.NotifyErrors)
	}
}

// printReanalyzeStats writes the summary of a reanalysis or recluster run.
func printReanalyzeStats(w io.Writer, mode string, s *pipeline.Stats) {
	bold.Fprintf(w, "%s complete\n", mode)
	fmt.Fprintf(w, "  posts       %d\n", s.Total)
	fmt.Fprintf(w, "  analyzed    %d\n", s.Analyzed)
	fmt.Fprintf(w, "  reused      %d\n", s.ReusedAnalysis)
	fmt.Fprintf(w, "  skipped     %d\n", s.Skipped)
	green.Fprintf(w, "  new         %d\n", s.ClusteredNew)
	cyan.Fprintf(w, "  existing    %d\n", s.ClusteredExisting)
	fmt.Fprintf(w, "  pruned      %d\n", s.PrunedOrphans)
}

func printError(w io.Writer, format string, args ...any) {
	red.Fprintf(w, format+"\n", args...)
}
