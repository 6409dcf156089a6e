// Package metrics exposes Prometheus instruments for ingestion runs.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run modes.
const (
	ModeIngest    = "ingest"
	ModeReanalyze = "reanalyze"
	ModeRecluster = "recluster"
)

type instruments struct {
	once sync.Once

	runs          *prometheus.CounterVec
	postOutcomes  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	reused        prometheus.Counter
	pruned        prometheus.Counter
	runDuration   *prometheus.HistogramVec
}

var m instruments

func (i *instruments) init() {
	i.once.Do(func() {
		i.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oppradar_runs_total",
			Help: "Engine runs by mode and result.",
		}, []string{"mode", "result"})
		i.postOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oppradar_post_outcomes_total",
			Help: "Terminal state reached by each fetched or replayed post.",
		}, []string{"mode", "outcome"})
		i.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oppradar_notifications_total",
			Help: "Webhook notification attempts by result.",
		}, []string{"result"})
		i.reused = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oppradar_reused_analysis_total",
			Help: "Posts replayed from stored analysis without a classifier call.",
		})
		i.pruned = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oppradar_pruned_clusters_total",
			Help: "Orphan clusters removed.",
		})
		i.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oppradar_run_seconds",
			Help:    "Duration of engine runs.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"})

		prometheus.MustRegister(i.runs, i.postOutcomes, i.notifications, i.reused, i.pruned, i.runDuration)

		// Vectors export nothing until a label pair is used.
		for _, mode := range []string{ModeIngest, ModeReanalyze, ModeRecluster} {
			i.runs.WithLabelValues(mode, "ok")
			i.runs.WithLabelValues(mode, "error")
			i.runDuration.WithLabelValues(mode)
		}
		i.notifications.WithLabelValues("sent")
		i.notifications.WithLabelValues("error")
	})
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(mode string, err error, d time.Duration) {
	m.init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(mode, result).Inc()
	m.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordOutcome counts one post reaching a terminal state.
func RecordOutcome(mode, outcome string) {
	m.init()
	m.postOutcomes.WithLabelValues(mode, outcome).Inc()
}

// RecordNotification counts a webhook attempt.
func RecordNotification(err error) {
	m.init()
	if err != nil {
		m.notifications.WithLabelValues("error").Inc()
		return
	}
	m.notifications.WithLabelValues("sent").Inc()
}

// RecordReused counts a replayed post that skipped classification.
func RecordReused() { m.init(); m.reused.Inc() }

// RecordPruned adds n removed orphan clusters.
func RecordPruned(n int) {
	m.init()
	if n > 0 {
		m.pruned.Add(float64(n))
	}
}

// Handler serves the default registry. Every run and notification series is
// created at zero so a scrape before the first run still lists them.
func Handler() http.Handler {
	m.init()
	return promhttp.Handler()
}
