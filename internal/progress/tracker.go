// Package progress tracks the single long-running reprocessing job.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/jacklau/oppradar/internal/pubsub"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// State is a snapshot of the tracker. Stats holds the final run counters
// once the job completes.
type State struct {
	Status     Status     `json:"status"`
	Active     bool       `json:"active"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Percent    int        `json:"percent"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Stats      any        `json:"stats,omitempty"`
}

// Tracker owns the process-wide job state. All methods are safe for
// concurrent use. Starting a job overwrites any previous state.
type Tracker struct {
	mu     sync.Mutex
	state  State
	broker *pubsub.Broker[State]
	now    func() time.Time
}

// NewTracker creates an idle tracker. broker may be nil.
func NewTracker(broker *pubsub.Broker[State]) *Tracker {
	return &Tracker{
		state:  State{Status: StatusIdle},
		broker: broker,
		now:    time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins a new job of total items.
func (t *Tracker) Start(total int, message string) {
	t.mu.Lock()
	now := t.now()
	t.state = State{
		Status:    StatusRunning,
		Active:    true,
		Total:     max(total, 0),
		Message:   message,
		StartedAt: &now,
	}
	t.publishLocked(pubsub.Started)
}

// Update records progress. processed is clamped into [0, total].
func (t *Tracker) Update(processed int, message string) {
	t.mu.Lock()
	t.state.Processed = clamp(processed, 0, t.state.Total)
	t.state.Percent = percent(t.state.Processed, t.state.Total)
	t.state.Message = message
	t.publishLocked(pubsub.Progress)
}

// Complete marks the job done with its final counters.
func (t *Tracker) Complete(stats any, message string) {
	t.mu.Lock()
	now := t.now()
	t.state.Status = StatusDone
	t.state.Active = false
	t.state.Processed = t.state.Total
	t.state.Percent = 100
	t.state.Message = message
	t.state.Stats = stats
	t.state.FinishedAt = &now
	t.publishLocked(pubsub.Completed)
}

// Fail marks the job failed, keeping the progress reached so far.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	now := t.now()
	t.state.Status = StatusFailed
	t.state.Active = false
	if err != nil {
		t.state.Error = err.Error()
	}
	t.state.Percent = percent(t.state.Processed, t.state.Total)
	t.state.FinishedAt = &now
	t.publishLocked(pubsub.Failed)
}

// publishLocked copies the state, releases the lock and broadcasts the copy.
func (t *Tracker) publishLocked(evt pubsub.EventType) {
	snap := t.state
	t.mu.Unlock()
	if t.broker != nil {
		t.broker.Publish(evt, snap)
	}
}

func percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(processed) / float64(total) * 100))
	return clamp(p, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
