package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jacklau/oppradar/internal/analyze"
	"github.com/jacklau/oppradar/internal/cluster"
	"github.com/jacklau/oppradar/internal/feed"
	"github.com/jacklau/oppradar/internal/heuristic"
	"github.com/jacklau/oppradar/internal/metrics"
	"github.com/jacklau/oppradar/internal/notify"
	"github.com/jacklau/oppradar/internal/progress"
	"github.com/jacklau/oppradar/internal/provider"
	"github.com/jacklau/oppradar/internal/store"
)

// ErrEmbedding is returned when the embedder yields no vector or one of the
// wrong length.
var ErrEmbedding = errors.New("invalid embedding")

// noSolutionIdea is stored when a replayed cluster has no solution text.
const noSolutionIdea = "No AI idea available."

// reanalyzeLogEvery controls how often reanalysis progress is logged.
const reanalyzeLogEvery = 10

// Fetcher retrieves normalized posts for a list of sources.
type Fetcher interface {
	FetchPosts(ctx context.Context, sources []string) ([]feed.Post, error)
}

// PipelineDeps holds the dependencies for the Pipeline.
type PipelineDeps struct {
	Fetcher    Fetcher
	Classifier analyze.Classifier
	Embedder   provider.Embedder
	Store      store.Store
	Resolver   *cluster.Resolver
	Notifier   notify.Notifier // nil disables notifications
	Progress   *progress.Tracker
	Logger     *slog.Logger

	// Dimensions is the expected embedding length. Zero accepts any non-empty vector.
	Dimensions int
	// DefaultThreshold is used when a run is given a non-finite threshold.
	DefaultThreshold float64
}

// RunOptions configures one ingestion run. Callers load these from the
// ingest settings once, before the run starts.
type RunOptions struct {
	Sources           []string
	HeuristicPatterns []string
	DistanceThreshold float64
}

// ReanalyzeOptions configures one reanalysis run.
type ReanalyzeOptions struct {
	// ReuseExistingAnalysis replays stored summaries instead of calling the classifier.
	ReuseExistingAnalysis bool
	DistanceThreshold     float64
}

// Pipeline orchestrates ingestion: fetch, filter, dedup, classify, embed,
// cluster and notify. Posts are processed strictly one at a time.
type Pipeline struct {
	deps PipelineDeps
	now  func() time.Time
}

// New creates a new Pipeline with the given dependencies.
func New(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Resolver == nil && deps.Store != nil {
		deps.Resolver = cluster.NewResolver(deps.Store, cluster.WithLogger(deps.Logger))
	}
	if deps.Progress == nil {
		deps.Progress = progress.NewTracker(nil)
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Progress returns the tracker updated by Reanalyze.
func (p *Pipeline) Progress() *progress.Tracker { return p.deps.Progress }

func (p *Pipeline) threshold(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return p.deps.DefaultThreshold
	}
	return t
}

// RunIngestion fetches the combined feed for opts.Sources and processes
// every post that passes the heuristic filter. Classifier, embedder and
// storage failures abort the run; posts finished earlier keep their writes.
func (p *Pipeline) RunIngestion(ctx context.Context, opts RunOptions) (stats *Stats, err error) {
	start := time.Now()
	defer func() { metrics.RecordRun(metrics.ModeIngest, err, time.Since(start)) }()

	threshold := p.threshold(opts.DistanceThreshold)
	logger := p.deps.Logger.With("mode", metrics.ModeIngest)
	logger.Info("ingest start", "sources", opts.Sources, "threshold", threshold, "metric", p.deps.Resolver.Metric())

	posts, err := p.deps.Fetcher.FetchPosts(ctx, opts.Sources)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	filter := heuristic.New(opts.HeuristicPatterns)
	if filter.Empty() {
		logger.Warn("no heuristic patterns configured, every post passes the filter")
	}
	now := p.now().Unix()
	stats = &Stats{Total: len(posts)}

	for _, post := range posts {
		if !filter.Match(post.Title, post.Body) {
			stats.record(OutcomeFilteredOut, NotifyNone)
			metrics.RecordOutcome(metrics.ModeIngest, OutcomeFilteredOut.String())
			continue
		}
		stats.Filtered++

		outcome, notified, err := p.ingestPost(ctx, post, threshold, now, logger)
		if err != nil {
			return nil, err
		}
		stats.record(outcome, notified)
		metrics.RecordOutcome(metrics.ModeIngest, outcome.String())
	}

	pruned, err := p.deps.Store.PruneOrphanClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("pruning orphan clusters: %w", err)
	}
	stats.PrunedOrphans = pruned
	metrics.RecordPruned(pruned)

	logger.Info("ingest done",
		"total", stats.Total,
		"filtered", stats.Filtered,
		"deduped", stats.Deduped,
		"analyzed", stats.Analyzed,
		"new", stats.ClusteredNew,
		"existing", stats.ClusteredExisting,
		"notified", stats.Notified,
		"notify_errors", stats.NotifyErrors,
		"duration", time.Since(start),
	)
	return stats, nil
}

// ingestPost takes one filtered-in post to a terminal state.
func (p *Pipeline) ingestPost(ctx context.Context, post feed.Post, threshold float64, now int64, logger *slog.Logger) (Outcome, NotifyResult, error) {
	logger = logger.With("post", post.PostID)

	seen, err := p.deps.Store.IsPostAnalyzed(ctx, post.PostID)
	if err != nil {
		return OutcomeUnknown, NotifyNone, fmt.Errorf("checking post %s: %w", post.PostID, err)
	}
	if seen {
		logger.Debug("post already analyzed")
		return OutcomeDeduped, NotifyNone, nil
	}

	analysis, err := p.deps.Classifier.Analyze(ctx, post.Title, post.Body)
	if err != nil {
		return OutcomeUnknown, NotifyNone, fmt.Errorf("analyzing post %s: %w", post.PostID, err)
	}
	if !analysis.IsOpportunity {
		logger.Debug("not an opportunity")
		return OutcomeSkipped, NotifyNone, nil
	}

	record := store.PostRecord{
		ID:        post.PostID,
		Subreddit: post.Subreddit,
		Title:     post.Title,
		Body:      post.Body,
		URL:       post.Link,
		CreatedAt: post.EffectiveTime(now),
	}
	outcome, clusterID, err := p.clusterPost(ctx, record, analysis, threshold)
	if err != nil {
		return OutcomeUnknown, NotifyNone, err
	}
	logger.Info("post clustered", "cluster", clusterID, "outcome", outcome.String())

	notified := NotifyNone
	if outcome.Clustered() {
		notified = p.notify(ctx, outcome, clusterID, post, analysis, logger)
	}
	return outcome, notified, nil
}

// clusterPost embeds the pain point summary and attaches the post to the
// nearest cluster within threshold, or founds a new one.
func (p *Pipeline) clusterPost(ctx context.Context, post store.PostRecord, analysis *analyze.Result, threshold float64) (Outcome, string, error) {
	vec, err := p.embed(ctx, analysis.PainPointSummary)
	if err != nil {
		return OutcomeUnknown, "", fmt.Errorf("embedding post %s: %w", post.ID, err)
	}

	match, ok, err := p.deps.Resolver.Nearest(ctx, vec, threshold)
	if err != nil {
		return OutcomeUnknown, "", fmt.Errorf("resolving cluster for post %s: %w", post.ID, err)
	}
	if ok {
		if _, err := p.deps.Store.AttachPostToCluster(ctx, match.ClusterID, post); err != nil {
			return OutcomeUnknown, "", fmt.Errorf("attaching post %s: %w", post.ID, err)
		}
		return OutcomeClusteredExisting, match.ClusterID, nil
	}

	id, err := p.deps.Store.CreateClusterFromPost(ctx, store.NewCluster{
		Summary:      analysis.PainPointSummary,
		SolutionIdea: analysis.ProposedSolution,
		Vector:       vec,
		Post:         post,
	})
	if err != nil {
		return OutcomeUnknown, "", fmt.Errorf("creating cluster for post %s: %w", post.ID, err)
	}
	return OutcomeClusteredNew, id, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.deps.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}
	if p.deps.Dimensions > 0 && len(vec) != p.deps.Dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrEmbedding, len(vec), p.deps.Dimensions)
	}
	return vec, nil
}

// notify sends the best-effort webhook message. Failures are logged and
// counted, never returned.
func (p *Pipeline) notify(ctx context.Context, outcome Outcome, clusterID string, post feed.Post, analysis *analyze.Result, logger *slog.Logger) NotifyResult {
	if p.deps.Notifier == nil {
		return NotifyNone
	}

	mode := notify.ModeExisting
	if outcome == OutcomeClusteredNew {
		mode = notify.ModeNew
	}
	err := p.deps.Notifier.Notify(ctx, notify.Event{
		Mode:      mode,
		ClusterID: clusterID,
		Subreddit: post.Subreddit,
		Title:     post.Title,
		Link:      post.Link,
		PainPoint: analysis.PainPointSummary,
		Solution:  analysis.ProposedSolution,
	})
	metrics.RecordNotification(err)
	if err != nil {
		logger.Error("notification failed", "cluster", clusterID, "error", err)
		return NotifyFailed
	}
	return NotifySent
}

// Reanalyze wipes all clusters and replays every stored post through
// analysis and clustering, oldest first. With ReuseExistingAnalysis set,
// posts whose cluster holds a summary skip the classifier. Progress is
// reported on the tracker; on failure the tracker is marked failed and the
// error returned. Writes applied before the failure are kept.
func (p *Pipeline) Reanalyze(ctx context.Context, opts ReanalyzeOptions) (stats *Stats, err error) {
	mode := metrics.ModeReanalyze
	verb := "Analyzed"
	if opts.ReuseExistingAnalysis {
		mode = metrics.ModeRecluster
		verb = "Processed"
	}

	start := time.Now()
	defer func() { metrics.RecordRun(mode, err, time.Since(start)) }()

	tracker := p.deps.Progress
	logger := p.deps.Logger.With("mode", mode)
	threshold := p.threshold(opts.DistanceThreshold)

	defer func() {
		if err != nil {
			tracker.Fail(err)
		}
	}()

	snapshot, err := p.deps.Store.ListAllAnalyzedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing analyzed posts: %w", err)
	}

	logger.Info("reanalysis start", "existing_posts", len(snapshot), "threshold", threshold)
	stats = &Stats{Total: len(snapshot)}
	tracker.Start(len(snapshot), fmt.Sprintf("%s 0/%d", verb, len(snapshot)))

	if len(snapshot) == 0 {
		tracker.Complete(stats, "Nothing to reanalyze")
		logger.Info("reanalysis done", "existing_posts", 0)
		return stats, nil
	}

	logger.Info("resetting clusters and vectors")
	if err := p.deps.Store.ResetOpportunityData(ctx); err != nil {
		return nil, fmt.Errorf("resetting opportunity data: %w", err)
	}

	for _, stored := range snapshot {
		analysis, reused, err := p.replayAnalysis(ctx, stored, opts.ReuseExistingAnalysis)
		if err != nil {
			return nil, err
		}
		if reused {
			stats.ReusedAnalysis++
			metrics.RecordReused()
		}

		processed := stats.Analyzed + 1
		tracker.Update(processed, fmt.Sprintf("%s %d/%d", verb, processed, stats.Total))
		if processed%reanalyzeLogEvery == 0 || processed == stats.Total {
			logger.Info("reanalysis progress", "analyzed", processed, "total", stats.Total)
		}

		outcome := OutcomeSkipped
		if analysis.IsOpportunity {
			if analysis.ProposedSolution == "" {
				analysis.ProposedSolution = orDefault(stored.ExistingSolutionIdea, noSolutionIdea)
			}
			outcome, _, err = p.clusterPost(ctx, stored.PostRecord, analysis, threshold)
			if err != nil {
				return nil, err
			}
		}
		stats.record(outcome, NotifyNone)
		metrics.RecordOutcome(mode, outcome.String())
	}

	pruned, err := p.deps.Store.PruneOrphanClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("pruning orphan clusters: %w", err)
	}
	stats.PrunedOrphans = pruned
	metrics.RecordPruned(pruned)

	tracker.Complete(stats, fmt.Sprintf("%s %d/%d", verb, stats.Analyzed, stats.Total))
	logger.Info("reanalysis done",
		"total", stats.Total,
		"analyzed", stats.Analyzed,
		"new", stats.ClusteredNew,
		"existing", stats.ClusteredExisting,
		"skipped", stats.Skipped,
		"reused", stats.ReusedAnalysis,
		"pruned", stats.PrunedOrphans,
		"duration", time.Since(start),
	)
	return stats, nil
}

// replayAnalysis returns the analysis for a stored post, synthesized from
// its cluster's text when reuse is requested and a summary exists.
func (p *Pipeline) replayAnalysis(ctx context.Context, stored store.AnalyzedPostSnapshot, reuse bool) (*analyze.Result, bool, error) {
	if reuse && stored.PainPointSummary != "" {
		return &analyze.Result{
			IsOpportunity:    true,
			PainPointSummary: stored.PainPointSummary,
			ProposedSolution: orDefault(stored.ExistingSolutionIdea, noSolutionIdea),
		}, true, nil
	}

	analysis, err := p.deps.Classifier.Analyze(ctx, stored.Title, stored.Body)
	if err != nil {
		return nil, false, fmt.Errorf("analyzing post %s: %w", stored.ID, err)
	}
	return analysis, false, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
