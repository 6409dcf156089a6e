// Package cluster resolves which opportunity cluster a new post belongs to.
//
// Every cluster is represented by the embedding of its founding post. That
// vector is written once and never moved toward later members, so a
// cluster's reach is fixed at creation.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
)

// Representative is a cluster's founding vector.
type Representative struct {
	ClusterID string
	Vector    []float32
}

// VectorSource lists every stored representative.
type VectorSource interface {
	ListClusterVectors(ctx context.Context) ([]Representative, error)
}

// Match is the nearest cluster within threshold.
type Match struct {
	ClusterID string
	Distance  float64
}

// Resolver performs an exact 1-nearest-neighbour search over representatives.
type Resolver struct {
	source VectorSource
	metric Metric
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetric sets the distance metric. Defaults to l2.
func WithMetric(m Metric) Option {
	return func(r *Resolver) { r.metric = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver reading representatives from source.
func NewResolver(source VectorSource, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		metric: MetricL2,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metric returns the configured metric.
func (r *Resolver) Metric() Metric { return r.metric }

// Nearest returns the closest cluster if its distance is <= threshold.
// The boolean is false when no cluster qualifies.
func (r *Resolver) Nearest(ctx context.Context, vec []float32, threshold float64) (Match, bool, error) {
	reps, err := r.source.ListClusterVectors(ctx)
	if err != nil {
		return Match{}, false, fmt.Errorf("listing cluster vectors: %w", err)
	}

	best, found := NearestOf(reps, vec, r.metric, func(rep Representative, err error) {
		r.logger.Warn("skipping cluster vector", "cluster_id", rep.ClusterID, "error", err)
	})
	if !found || best.Distance > threshold {
		return Match{}, false, nil
	}
	return best, true, nil
}

// NearestOf scans reps for the vector closest to vec. Representatives whose
// dimensions differ from vec are reported to onSkip and ignored.
func NearestOf(reps []Representative, vec []float32, metric Metric, onSkip func(Representative, error)) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, rep := range reps {
		d, err := metric.Distance(vec, rep.Vector)
		if err != nil {
			if onSkip != nil {
				onSkip(rep, err)
			}
			continue
		}
		if !found || d < best.Distance {
			best = Match{ClusterID: rep.ClusterID, Distance: d}
			found = true
		}
	}
	return best, found
}
