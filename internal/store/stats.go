package store

import (
	"context"
	"fmt"
)

// Stats holds aggregate counts for the status command.
type Stats struct {
	Clusters     int   `json:"clusters"`
	Posts        int   `json:"posts"`
	Vectors      int   `json:"vectors"`
	PostCountSum int   `json:"postCountSum"`
	SizeBytes    int64 `json:"sizeBytes"`
}

// Consistent reports whether cluster counters match the stored posts and
// every cluster has a vector.
func (s Stats) Consistent() bool {
	return s.PostCountSum == s.Posts && s.Vectors == s.Clusters
}

// GetStats returns aggregate statistics for the whole store.
func (d *DB) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(post_count), 0) FROM clusters`,
	).Scan(&stats.Clusters, &stats.PostCountSum)
	if err != nil {
		return nil, fmt.Errorf("counting clusters: %w", err)
	}

	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyzed_posts`).Scan(&stats.Posts)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cluster_vectors`).Scan(&stats.Vectors)
	if err != nil {
		return nil, fmt.Errorf("counting vectors: %w", err)
	}

	var pages, pageSize int64
	if err := d.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pages); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}
	stats.SizeBytes = pages * pageSize

	return &stats, nil
}
