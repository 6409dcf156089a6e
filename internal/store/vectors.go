package store

import (
	"context"
	"fmt"

	"github.com/jacklau/oppradar/internal/cluster"
)

// ListClusterVectors returns every cluster's founding vector.
func (d *DB) ListClusterVectors(ctx context.Context) ([]cluster.Representative, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, v.embedding
		FROM cluster_vectors v
		JOIN clusters c ON c.seq = v.cluster_seq`)
	if err != nil {
		return nil, fmt.Errorf("querying cluster vectors: %w", err)
	}
	defer rows.Close()

	var out []cluster.Representative
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning cluster vector: %w", err)
		}
		vec, err := cluster.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding vector of cluster %s: %w", id, err)
		}
		out = append(out, cluster.Representative{ClusterID: id, Vector: vec})
	}
	return out, rows.Err()
}
