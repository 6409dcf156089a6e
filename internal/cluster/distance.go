package cluster

import (
	"fmt"
	"math"
)

// Metric names a vector distance function. Smaller is closer for every metric.
type Metric string

const (
	// MetricL2 is Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine is 1 - cosine similarity, in [0, 2].
	MetricCosine Metric = "cosine"
)

// ParseMetric validates a configured metric name. Empty means l2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unsupported distance metric: %q", s)
	}
}

// Distance computes the metric between a and b.
func (m Metric) Distance(a, b []float32) (float64, error) {
	switch m {
	case MetricCosine:
		sim, err := CosineSimilarity(a, b)
		if err != nil {
			return 0, err
		}
		return 1 - sim, nil
	default:
		return L2Distance(a, b)
	}
}

// L2Distance computes the Euclidean distance between two vectors.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for zero vectors, and an error if dimensions don't match.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / math.Sqrt(normA*normB), nil
}
