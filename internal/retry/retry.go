package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of attempts before giving up.
	DefaultMaxAttempts = 3

	// defaultBaseDelay is the initial backoff delay when a Policy leaves it unset.
	defaultBaseDelay = 1 * time.Second
)

// Policy describes how many times to attempt an operation and how long to
// wait between attempts. The delay before retry n (0-indexed) is
// BaseDelay * 2^n, capped at MaxDelay, plus up to Jitter * delay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64

	// OnRetry, if set, is called before sleeping with the attempt number
	// (1-indexed) that just failed, its error, and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DoWithPolicy retries fn according to p. Zero values fall back to the
// package defaults for attempts and base delay; a zero MaxDelay means uncapped.
func DoWithPolicy(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Don't sleep after the last attempt.
		if attempt < p.MaxAttempts-1 {
			delay := p.backoff(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt+1, lastErr, delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}

// backoff calculates the delay for the given attempt (0-indexed) with jitter.
func (p Policy) backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		delay += time.Duration(float64(delay) * p.Jitter * rand.Float64())
	}
	return delay
}
