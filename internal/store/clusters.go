package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jacklau/oppradar/internal/cluster"
)

// Cluster is a persisted opportunity cluster.
type Cluster struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SolutionIdea string `json:"solutionIdea"`
	PostCount    int    `json:"postCount"`
	Status       string `json:"status"`
	LastSeenAt   int64  `json:"lastSeenAt"`
	CreatedAt    int64  `json:"createdAt"`
}

// Opportunity is a cluster plus the distinct communities its posts came from.
type Opportunity struct {
	Cluster
	Sources []string `json:"sources"`
}

// NewCluster is the input for CreateClusterFromPost.
type NewCluster struct {
	Summary      string
	SolutionIdea string
	Vector       []float32
	Post         PostRecord
}

// DeleteResult reports the outcome of DeletePostFromCluster.
type DeleteResult struct {
	Deleted        bool `json:"deleted"`
	ClusterRemoved bool `json:"clusterRemoved"`
}

// Sort orders accepted by ListOpportunities.
const (
	SortDemand = "demand"
	SortFresh  = "fresh"
)

// CreateClusterFromPost atomically inserts a cluster, its representative
// vector and its founding post, returning the new cluster id. If the post was
// already analyzed, nothing is written and ErrDuplicatePost is returned.
func (d *DB) CreateClusterFromPost(ctx context.Context, in NewCluster) (string, error) {
	if len(in.Vector) == 0 {
		return "", fmt.Errorf("creating cluster: empty representative vector")
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	now := d.unixNow()

	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO clusters (id, title, description, solution_idea, post_count, status, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, 1, 'new', ?, ?)`,
		id, in.Summary, in.Summary, nullStr(in.SolutionIdea), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("inserting cluster: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil || seq == 0 {
		return "", fmt.Errorf("%w: resolving storage identity of cluster %s: %v", ErrStorageInvariant, id, err)
	}

	_, err = tx.tx.ExecContext(ctx,
		`INSERT INTO cluster_vectors (cluster_seq, dims, embedding) VALUES (?, ?, ?)`,
		seq, len(in.Vector), cluster.EncodeVector(in.Vector),
	)
	if err != nil {
		return "", fmt.Errorf("inserting cluster vector: %w", err)
	}

	inserted, err := insertPost(ctx, tx.tx, id, in.Post)
	if err != nil {
		return "", err
	}
	if !inserted {
		return "", fmt.Errorf("%w: %s", ErrDuplicatePost, in.Post.ID)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// AttachPostToCluster inserts post into the cluster unless it already exists.
// A fresh insert bumps post_count and advances last_seen_at to the post's
// timestamp when that is later. Returns whether the post was inserted.
func (d *DB) AttachPostToCluster(ctx context.Context, clusterID string, post PostRecord) (bool, error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	inserted, err := insertPost(ctx, tx.tx, clusterID, post)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, tx.Commit()
	}

	res, err := tx.tx.ExecContext(ctx, `
		UPDATE clusters
		SET post_count = post_count + 1,
		    last_seen_at = MAX(last_seen_at, ?)
		WHERE id = ?`,
		post.CreatedAt, clusterID,
	)
	if err != nil {
		return false, fmt.Errorf("updating cluster %s: %w", clusterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("cluster %s: %w", clusterID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// PruneOrphanClusters deletes every cluster without posts. Vectors go with
// them through the foreign key cascade.
func (d *DB) PruneOrphanClusters(ctx context.Context) (int, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM clusters
		WHERE NOT EXISTS (SELECT 1 FROM analyzed_posts p WHERE p.cluster_id = clusters.id)`)
	if err != nil {
		return 0, fmt.Errorf("pruning orphan clusters: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeletePostFromCluster removes one post from one cluster. When the cluster
// empties it is deleted with its vector; otherwise post_count and
// last_seen_at are recomputed from the remaining posts. A missing pair is
// reported as Deleted=false with no error.
func (d *DB) DeletePostFromCluster(ctx context.Context, clusterID, postID string) (DeleteResult, error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()

	res, err := tx.tx.ExecContext(ctx,
		`DELETE FROM analyzed_posts WHERE id = ? AND cluster_id = ?`, postID, clusterID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("deleting post %s: %w", postID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return DeleteResult{}, nil
	}

	var remaining int
	var lastSeen sql.NullInt64
	err = tx.tx.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM analyzed_posts WHERE cluster_id = ?`, clusterID,
	).Scan(&remaining, &lastSeen)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("counting remaining posts: %w", err)
	}

	result := DeleteResult{Deleted: true}
	if remaining == 0 {
		_, err = tx.tx.ExecContext(ctx,
			`DELETE FROM cluster_vectors WHERE cluster_seq = (SELECT seq FROM clusters WHERE id = ?)`, clusterID)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("deleting cluster vector: %w", err)
		}
		if _, err = tx.tx.ExecContext(ctx, `DELETE FROM clusters WHERE id = ?`, clusterID); err != nil {
			return DeleteResult{}, fmt.Errorf("deleting cluster: %w", err)
		}
		result.ClusterRemoved = true
	} else {
		_, err = tx.tx.ExecContext(ctx,
			`UPDATE clusters SET post_count = ?, last_seen_at = ? WHERE id = ?`,
			remaining, lastSeen.Int64, clusterID)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("updating cluster: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return DeleteResult{}, err
	}
	return result, nil
}

// ResetOpportunityData deletes all posts, vectors and clusters in one unit.
func (d *DB) ResetOpportunityData(ctx context.Context) error {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"analyzed_posts", "cluster_vectors", "clusters"} {
		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// GetCluster retrieves a cluster by id.
func (d *DB) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, title, description, solution_idea, post_count, status, last_seen_at, created_at
		FROM clusters WHERE id = ?`, id)

	c, err := scanCluster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cluster %s: %w", id, ErrNotFound)
	}
	return c, err
}

// ListOpportunities lists clusters ordered by demand or freshness, each with
// the distinct set of communities its posts came from.
func (d *DB) ListOpportunities(ctx context.Context, sort string) ([]Opportunity, error) {
	var order string
	switch sort {
	case "", SortDemand:
		order = "c.post_count DESC, c.last_seen_at DESC"
	case SortFresh:
		order = "c.last_seen_at DESC, c.post_count DESC"
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, sort)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.description, c.solution_idea, c.post_count, c.status,
		       c.last_seen_at, c.created_at, GROUP_CONCAT(DISTINCT p.subreddit)
		FROM clusters c
		LEFT JOIN analyzed_posts p ON p.cluster_id = c.id
		GROUP BY c.seq
		ORDER BY `+order)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var out []Opportunity
	for rows.Next() {
		var o Opportunity
		var solution, sources sql.NullString
		err := rows.Scan(&o.ID, &o.Title, &o.Description, &solution, &o.PostCount,
			&o.Status, &o.LastSeenAt, &o.CreatedAt, &sources)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity: %w", err)
		}
		o.SolutionIdea = solution.String
		o.Sources = splitSources(sources.String)
		out = append(out, o)
	}
	return out, rows.Err()
}

func splitSources(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func scanCluster(row *sql.Row) (*Cluster, error) {
	var c Cluster
	var solution sql.NullString
	err := row.Scan(&c.ID, &c.Title, &c.Description, &solution, &c.PostCount,
		&c.Status, &c.LastSeenAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.SolutionIdea = solution.String
	return &c, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
