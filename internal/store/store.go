package store

import (
	"context"
	"errors"

	"github.com/jacklau/oppradar/internal/cluster"
)

// Sentinel errors for store operations.
var (
	// ErrDuplicatePost is returned when a cluster's founding post already exists.
	ErrDuplicatePost = errors.New("post already analyzed")
	// ErrNotFound is returned when a cluster does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("invalid ingest settings")
	// ErrInvalidSort is returned for an unknown opportunity sort order.
	ErrInvalidSort = errors.New("invalid sort order")
	// ErrStorageInvariant is returned when a just-written row cannot be resolved.
	ErrStorageInvariant = errors.New("storage invariant violated")
)

// Store defines the storage operations used by the pipeline.
// It is satisfied by *DB and can be replaced with a mock for testing.
type Store interface {
	cluster.VectorSource

	// IsPostAnalyzed reports whether a post id has been recorded.
	IsPostAnalyzed(ctx context.Context, postID string) (bool, error)

	// CreateClusterFromPost atomically creates a cluster, its vector and its founding post.
	CreateClusterFromPost(ctx context.Context, in NewCluster) (string, error)

	// AttachPostToCluster inserts a post into an existing cluster if absent.
	AttachPostToCluster(ctx context.Context, clusterID string, post PostRecord) (bool, error)

	// PruneOrphanClusters deletes clusters with no posts.
	PruneOrphanClusters(ctx context.Context) (int, error)

	// ResetOpportunityData deletes every cluster, post and vector.
	ResetOpportunityData(ctx context.Context) error

	// ListAllAnalyzedPosts returns every post with its cluster's analysis, oldest first.
	ListAllAnalyzedPosts(ctx context.Context) ([]AnalyzedPostSnapshot, error)
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)
