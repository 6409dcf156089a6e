package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PostRecord is an analyzed post as written to the store. CreatedAt is the
// post's publish time, or the ingest time when unknown.
type PostRecord struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// AnalyzedPost is a stored post with its owning cluster.
type AnalyzedPost struct {
	PostRecord
	ClusterID string `json:"clusterId"`
}

// AnalyzedPostSnapshot is a stored post joined with the analysis text held
// on its cluster. Used to replay posts after a reset.
type AnalyzedPostSnapshot struct {
	AnalyzedPost
	PainPointSummary     string
	ExistingSolutionIdea string
}

// insertPost inserts a post unless its id exists. Returns whether a row was written.
func insertPost(ctx context.Context, q querier, clusterID string, p PostRecord) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO analyzed_posts (id, cluster_id, subreddit, title, body, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, clusterID, nullStr(p.Subreddit), p.Title, nullStr(p.Body), nullStr(p.URL), p.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting post %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

// IsPostAnalyzed reports whether postID has been recorded.
func (d *DB) IsPostAnalyzed(ctx context.Context, postID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM analyzed_posts WHERE id = ?`, postID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking post %s: %w", postID, err)
	}
	return true, nil
}

// ListAllAnalyzedPosts returns every post with its cluster's summary and
// solution idea, oldest first.
func (d *DB) ListAllAnalyzedPosts(ctx context.Context) ([]AnalyzedPostSnapshot, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.cluster_id, p.subreddit, p.title, p.body, p.url, p.created_at,
		       c.description, c.solution_idea
		FROM analyzed_posts p
		LEFT JOIN clusters c ON c.id = p.cluster_id
		ORDER BY p.created_at ASC, p.rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying analyzed posts: %w", err)
	}
	defer rows.Close()

	var out []AnalyzedPostSnapshot
	for rows.Next() {
		var s AnalyzedPostSnapshot
		var subreddit, body, url, summary, solution sql.NullString
		err := rows.Scan(&s.ID, &s.ClusterID, &subreddit, &s.Title, &body, &url, &s.CreatedAt,
			&summary, &solution)
		if err != nil {
			return nil, fmt.Errorf("scanning analyzed post: %w", err)
		}
		s.Subreddit = subreddit.String
		s.Body = body.String
		s.URL = url.String
		s.PainPointSummary = summary.String
		s.ExistingSolutionIdea = solution.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListClusterPosts returns the posts of one cluster, newest first.
func (d *DB) ListClusterPosts(ctx context.Context, clusterID string) ([]AnalyzedPost, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, cluster_id, subreddit, title, body, url, created_at
		FROM analyzed_posts WHERE cluster_id = ?
		ORDER BY created_at DESC, rowid DESC`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("querying cluster posts: %w", err)
	}
	defer rows.Close()

	out := []AnalyzedPost{}
	for rows.Next() {
		var p AnalyzedPost
		var subreddit, body, url sql.NullString
		if err := rows.Scan(&p.ID, &p.ClusterID, &subreddit, &p.Title, &body, &url, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning cluster post: %w", err)
		}
		p.Subreddit = subreddit.String
		p.Body = body.String
		p.URL = url.String
		out = append(out, p)
	}
	return out, rows.Err()
}
