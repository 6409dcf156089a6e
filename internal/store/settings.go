package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// IngestSettings is the singleton engine configuration read at the start of
// each run. Values are copied out of the store, so a run holds an immutable
// snapshot.
type IngestSettings struct {
	Sources                  []string `json:"sources"`
	HeuristicPatterns        []string `json:"heuristicPatterns"`
	ClusterDistanceThreshold float64  `json:"clusterDistanceThreshold"`
	CronIngestEnabled        bool     `json:"cronIngestEnabled"`
	UpdatedAt                int64    `json:"updatedAt"`
}

// NormalizeList trims entries, drops empties and removes case-insensitive
// duplicates, keeping the first spelling seen.
func NormalizeList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// Normalize returns a cleaned copy of s. A threshold that is not a finite
// non-negative number is replaced by fallbackThreshold.
func (s IngestSettings) Normalize(fallbackThreshold float64) IngestSettings {
	out := s
	out.Sources = NormalizeList(s.Sources)
	out.HeuristicPatterns = NormalizeList(s.HeuristicPatterns)
	t := s.ClusterDistanceThreshold
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		out.ClusterDistanceThreshold = fallbackThreshold
	}
	return out
}

// Validate rejects settings the engine cannot run with.
func (s IngestSettings) Validate() error {
	if len(s.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", ErrInvalidSettings)
	}
	if len(s.HeuristicPatterns) == 0 {
		return fmt.Errorf("%w: at least one heuristic pattern is required", ErrInvalidSettings)
	}
	return nil
}

// GetIngestSettings returns the stored settings, or defaults when none have
// been saved yet.
func (d *DB) GetIngestSettings(ctx context.Context, defaults IngestSettings) (IngestSettings, error) {
	var (
		sourcesJSON, patternsJSON string
		s                         IngestSettings
		cron                      int
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT sources, heuristic_patterns, cluster_distance_threshold, cron_ingest_enabled, updated_at
		FROM ingest_settings WHERE id = 1`,
	).Scan(&sourcesJSON, &patternsJSON, &s.ClusterDistanceThreshold, &cron, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		out := defaults
		out.Sources = append([]string(nil), defaults.Sources...)
		out.HeuristicPatterns = append([]string(nil), defaults.HeuristicPatterns...)
		return out, nil
	}
	if err != nil {
		return IngestSettings{}, fmt.Errorf("reading ingest settings: %w", err)
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &s.Sources); err != nil {
		return IngestSettings{}, fmt.Errorf("decoding sources: %w", err)
	}
	if err := json.Unmarshal([]byte(patternsJSON), &s.HeuristicPatterns); err != nil {
		return IngestSettings{}, fmt.Errorf("decoding heuristic patterns: %w", err)
	}
	s.CronIngestEnabled = cron != 0
	return s, nil
}

// SaveIngestSettings normalizes, validates and upserts the singleton row,
// returning what was stored.
func (d *DB) SaveIngestSettings(ctx context.Context, in IngestSettings, fallbackThreshold float64) (IngestSettings, error) {
	s := in.Normalize(fallbackThreshold)
	if err := s.Validate(); err != nil {
		return IngestSettings{}, err
	}
	s.UpdatedAt = d.unixNow()

	sourcesJSON, err := json.Marshal(s.Sources)
	if err != nil {
		return IngestSettings{}, fmt.Errorf("encoding sources: %w", err)
	}
	patternsJSON, err := json.Marshal(s.HeuristicPatterns)
	if err != nil {
		return IngestSettings{}, fmt.Errorf("encoding heuristic patterns: %w", err)
	}

	cron := 0
	if s.CronIngestEnabled {
		cron = 1
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO ingest_settings (id, sources, heuristic_patterns, cluster_distance_threshold, cron_ingest_enabled, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sources = excluded.sources,
			heuristic_patterns = excluded.heuristic_patterns,
			cluster_distance_threshold = excluded.cluster_distance_threshold,
			cron_ingest_enabled = excluded.cron_ingest_enabled,
			updated_at = excluded.updated_at`,
		string(sourcesJSON), string(patternsJSON), s.ClusterDistanceThreshold, cron, s.UpdatedAt,
	)
	if err != nil {
		return IngestSettings{}, fmt.Errorf("saving ingest settings: %w", err)
	}
	return s, nil
}
