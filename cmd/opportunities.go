package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/oppradar/internal/store"
)

var opportunitiesSort string

var opportunitiesCmd = &cobra.Command{
	Use:     "opportunities",
	Aliases: []string{"opps"},
	Short:   "List opportunity clusters",
	Args:    cobra.NoArgs,
	RunE:    runOpportunitiesList,
}

var opportunityShowCmd = &cobra.Command{
	Use:   "show <cluster-id>",
	Short: "Show one opportunity and its posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpportunityShow,
}

var opportunityRemovePostCmd = &cobra.Command{
	Use:   "remove-post <cluster-id> <post-id>",
	Short: "Remove a post from a cluster",
	Long: `Remove one post from a cluster. A cluster left without posts is deleted
together with its representative vector.`,
	Args: cobra.ExactArgs(2),
	RunE: runOpportunityRemovePost,
}

func init() {
	opportunitiesCmd.Flags().StringVar(&opportunitiesSort, "sort", store.SortDemand, "sort order: demand or fresh")
	opportunitiesCmd.AddCommand(opportunityShowCmd, opportunityRemovePostCmd)
	rootCmd.AddCommand(opportunitiesCmd)
}

func openForCommand() (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return initStoreOnly(cfg, setupLogger())
}

func runOpportunitiesList(cmd *cobra.Command, args []string) error {
	c, err := openForCommand()
	if err != nil {
		return err
	}
	defer c.Close()

	opps, err := c.Store.ListOpportunities(cmd.Context(), opportunitiesSort)
	if err != nil {
		return err
	}
	if len(opps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No opportunities yet. Run 'oppradar run' to ingest posts.")
		return nil
	}
	printOpportunities(cmd.OutOrStdout(), opps)
	return nil
}

func printOpportunities(out io.Writer, opps []store.Opportunity) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSTS\tLAST SEEN\tSOURCES\tTITLE")
	fmt.Fprintln(w, "--\t-----\t---------\t-------\t-----")
	for _, o := range opps {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.PostCount, formatTimeAgo(time.Unix(o.LastSeenAt, 0)),
			strings.Join(o.Sources, ","), truncateTitle(o.Title, 60))
	}
	w.Flush()
}

func truncateTitle(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runOpportunityShow(cmd *cobra.Command, args []string) error {
	c, err := openForCommand()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	cl, err := c.Store.GetCluster(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("opportunity %s not found", args[0])
	}
	if err != nil {
		return err
	}
	posts, err := c.Store.ListClusterPosts(ctx, cl.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bold.Fprintln(out, cl.Title)
	fmt.Fprintf(out, "Solution idea: %s\n", cl.SolutionIdea)
	fmt.Fprintf(out, "Posts: %d  Status: %s  Last seen: %s\n\n",
		cl.PostCount, cl.Status, formatTimeAgo(time.Unix(cl.LastSeenAt, 0)))
	for _, p := range posts {
		cyan.Fprintf(out, "[%s] r/%s ", p.ID, p.Subreddit)
		fmt.Fprintln(out, p.Title)
		dim.Fprintf(out, "    %s\n", p.URL)
	}
	return nil
}

func runOpportunityRemovePost(cmd *cobra.Command, args []string) error {
	c, err := openForCommand()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Store.DeletePostFromCluster(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !res.Deleted:
		yellow.Fprintf(out, "Post %s not found in opportunity %s\n", args[1], args[0])
	case res.ClusterRemoved:
		green.Fprintf(out, "Removed post %s; opportunity %s had no posts left and was deleted\n", args[1], args[0])
	default:
		green.Fprintf(out, "Removed post %s from opportunity %s\n", args[1], args[0])
	}
	return nil
}
