package store

import (
	"context"
	"testing"
)

func TestGetStats_Empty(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.GetStats(context.Background())
	if err != nil {
		t.Fatalf("getting stats: %v", err)
	}
	if stats.Clusters != 0 || stats.Posts != 0 || stats.Vectors != 0 || stats.PostCountSum != 0 {
		t.Errorf("expected zero counts, got %+v", stats)
	}
	if stats.SizeBytes <= 0 {
		t.Errorf("expected positive size, got %d", stats.SizeBytes)
	}
	if !stats.Consistent() {
		t.Error("expected empty store to be consistent")
	}
}

func TestGetStats_WithData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := mustCreate(t, db, post("p1", 1), []float32{1, 2})
	db.AttachPostToCluster(ctx, a, post("p2", 2))
	mustCreate(t, db, post("p3", 3), []float32{3, 4})

	stats := mustStats(t, db)
	if stats.Clusters != 2 {
		t.Errorf("expected 2 clusters, got %d", stats.Clusters)
	}
	if stats.Posts != 3 || stats.PostCountSum != 3 {
		t.Errorf("expected 3 posts counted both ways, got %+v", stats)
	}
	if stats.Vectors != 2 {
		t.Errorf("expected 2 vectors, got %d", stats.Vectors)
	}
}

func TestStatsConsistent(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  bool
	}{
		{"matching", Stats{Clusters: 2, Vectors: 2, Posts: 5, PostCountSum: 5}, true},
		{"count drift", Stats{Clusters: 2, Vectors: 2, Posts: 5, PostCountSum: 6}, false},
		{"missing vector", Stats{Clusters: 2, Vectors: 1, Posts: 5, PostCountSum: 5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stats.Consistent(); got != tc.want {
				t.Errorf("Consistent() = %v, want %v", got, tc.want)
			}
		})
	}
}
