package server

import (
	"context"
	"testing"
	"time"

	"github.com/jacklau/oppradar/internal/store"
)

func TestSchedulerTickRespectsCronFlag(t *testing.T) {
	_, db, engine, _ := setupTestServer(t)
	runner := NewRunner(engine, db, testDefaults, nil)
	sched := NewScheduler(runner, time.Hour, nil)
	ctx := context.Background()

	sched.Tick(ctx)
	if engine.runs() != 0 {
		t.Fatalf("expected no run while cron is disabled, got %d", engine.runs())
	}

	enabled := testDefaults
	enabled.CronIngestEnabled = true
	if _, err := db.SaveIngestSettings(ctx, enabled, 0.15); err != nil {
		t.Fatalf("saving settings: %v", err)
	}

	sched.Tick(ctx)
	if engine.runs() != 1 {
		t.Errorf("expected one scheduled run, got %d", engine.runs())
	}
}

func TestSchedulerSkipsWhenRunActive(t *testing.T) {
	_, db, engine, _ := setupTestServer(t)
	runner := NewRunner(engine, db, testDefaults, nil)
	enabled := testDefaults
	enabled.CronIngestEnabled = true
	if _, err := db.SaveIngestSettings(context.Background(), enabled, 0.15); err != nil {
		t.Fatalf("saving settings: %v", err)
	}

	runner.mu.Lock()
	NewScheduler(runner, time.Hour, nil).Tick(context.Background())
	runner.mu.Unlock()

	if engine.runs() != 0 {
		t.Errorf("expected tick to be skipped, got %d runs", engine.runs())
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	_, db, engine, _ := setupTestServer(t)
	sched := NewScheduler(NewRunner(engine, db, store.IngestSettings{}, nil), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunnerRejectsInvalidSettings(t *testing.T) {
	_, db, engine, _ := setupTestServer(t)
	runner := NewRunner(engine, db, store.IngestSettings{}, nil)

	if _, err := runner.Ingest(context.Background()); err == nil {
		t.Fatal("expected validation error for empty sources")
	}
	if engine.runs() != 0 {
		t.Errorf("engine must not run with invalid settings")
	}
}
