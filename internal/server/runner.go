package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jacklau/oppradar/internal/pipeline"
	"github.com/jacklau/oppradar/internal/store"
)

// ErrRunInProgress is returned when a run is triggered while another one is active.
var ErrRunInProgress = errors.New("an engine run is already in progress")

// Engine is the pipeline surface the runner drives.
type Engine interface {
	RunIngestion(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Stats, error)
	Reanalyze(ctx context.Context, opts pipeline.ReanalyzeOptions) (*pipeline.Stats, error)
}

// SettingsStore reads and writes the ingest settings row.
type SettingsStore interface {
	GetIngestSettings(ctx context.Context, defaults store.IngestSettings) (store.IngestSettings, error)
	SaveIngestSettings(ctx context.Context, in store.IngestSettings, fallbackThreshold float64) (store.IngestSettings, error)
}

// Runner serializes engine runs process-wide. Scheduled and manual
// triggers share one Runner, and an overlapping trigger is rejected with
// ErrRunInProgress instead of queued.
type Runner struct {
	mu       sync.Mutex
	engine   Engine
	settings SettingsStore
	defaults store.IngestSettings
	logger   *slog.Logger
}

// NewRunner creates a Runner. defaults seed the settings until a row is saved.
func NewRunner(engine Engine, settings SettingsStore, defaults store.IngestSettings, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, settings: settings, defaults: defaults, logger: logger}
}

// Settings loads the current ingest settings.
func (r *Runner) Settings(ctx context.Context) (store.IngestSettings, error) {
	return r.settings.GetIngestSettings(ctx, r.defaults)
}

// SaveSettings validates and stores new settings.
func (r *Runner) SaveSettings(ctx context.Context, in store.IngestSettings) (store.IngestSettings, error) {
	return r.settings.SaveIngestSettings(ctx, in, r.defaults.ClusterDistanceThreshold)
}

// Ingest loads the settings once and runs ingestion with them.
func (r *Runner) Ingest(ctx context.Context) (*pipeline.Stats, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	s, err := r.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return r.engine.RunIngestion(ctx, pipeline.RunOptions{
		Sources:           s.Sources,
		HeuristicPatterns: s.HeuristicPatterns,
		DistanceThreshold: s.ClusterDistanceThreshold,
	})
}

// Reanalyze replays every stored post. reuse selects recluster mode.
func (r *Runner) Reanalyze(ctx context.Context, reuse bool) (*pipeline.Stats, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	s, err := r.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return r.engine.Reanalyze(ctx, pipeline.ReanalyzeOptions{
		ReuseExistingAnalysis: reuse,
		DistanceThreshold:     s.ClusterDistanceThreshold,
	})
}
