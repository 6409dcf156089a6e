package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoWithPolicySucceedsFirstAttempt(t *testing.T) {
	var calls int
	err := DoWithPolicy(context.Background(), fastPolicy(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoWithPolicySucceedsOnNthAttempt(t *testing.T) {
	var calls int
	targetErr := errors.New("transient error")

	err := DoWithPolicy(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return targetErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithPolicyExceedsMaxRetries(t *testing.T) {
	targetErr := errors.New("persistent error")
	var calls int

	err := DoWithPolicy(context.Background(), fastPolicy(3), func() error {
		calls++
		return targetErr
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, targetErr) {
		t.Errorf("expected target error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithPolicyRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	// Cancel after the first attempt.
	go func() {
		// Wait for the first attempt to complete.
		for calls.Load() == 0 {
			time.Sleep(1 * time.Millisecond)
		}
		cancel()
	}()

	err := DoWithPolicy(ctx, fastPolicy(5), func() error {
		calls.Add(1)
		return errors.New("keep trying")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	// Should have been called at most twice (first attempt + possibly one
	// more before context check kicks in).
	if calls.Load() > 2 {
		t.Errorf("expected at most 2 calls, got %d", calls.Load())
	}
}

func TestDoWithPolicyContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately.

	var calls int
	err := DoWithPolicy(ctx, fastPolicy(3), func() error {
		calls++
		return nil
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected 0 calls with cancelled context, got %d", calls)
	}
}

func TestDoWithPolicyDefaultMaxAttempts(t *testing.T) {
	var calls int
	err := DoWithPolicy(context.Background(), fastPolicy(0), func() error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("expected %d calls (default), got %d", DefaultMaxAttempts, calls)
	}
}

func TestDoWithPolicySingleAttempt(t *testing.T) {
	var calls int
	err := DoWithPolicy(context.Background(), fastPolicy(1), func() error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

const (
	cappedMaxDelay = 10 * time.Second
	cappedJitter   = 0.25
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond}
}

func cappedPolicy() Policy {
	return Policy{BaseDelay: time.Second, MaxDelay: cappedMaxDelay, Jitter: cappedJitter}
}

func TestBackoffProgression(t *testing.T) {
	p := Policy{BaseDelay: 500 * time.Millisecond}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, w := range want {
		if d := p.backoff(attempt); d != w {
			t.Errorf("attempt %d: expected %v, got %v", attempt, w, d)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	p := cappedPolicy()
	d := p.backoff(100) // Very high attempt number.
	maxWithJitter := cappedMaxDelay + time.Duration(float64(cappedMaxDelay)*cappedJitter)
	if d > maxWithJitter {
		t.Errorf("backoff %v exceeds max with jitter %v", d, maxWithJitter)
	}
}

func TestBackoffIncludesJitter(t *testing.T) {
	p := cappedPolicy()
	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		seen[p.backoff(1)] = true
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying backoff durations")
	}
}

func TestDoWithPolicyCallsOnRetry(t *testing.T) {
	var retries []int
	var delays []time.Duration
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
			delays = append(delays, delay)
		},
	}

	err := DoWithPolicy(context.Background(), p, func() error {
		return errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected OnRetry for attempts 1 and 2, got %v", retries)
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("expected doubling delays, got %v", delays)
	}
}
