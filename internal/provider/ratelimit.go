package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound provider requests. A nil Limiter never waits.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter returns a limiter allowing perMinute requests per minute with a
// burst of one. perMinute <= 0 disables limiting.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	every := time.Minute / time.Duration(perMinute)
	return &Limiter{rl: rate.NewLimiter(rate.Every(every), 1)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.rl.Wait(ctx); err != nil {
		return fmt.Errorf("%w: waiting for request slot: %v", ErrRateLimit, err)
	}
	return nil
}

type limitedCompleter struct {
	next    Completer
	limiter *Limiter
}

func (c *limitedCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, p)
}

type limitedEmbedder struct {
	next    Embedder
	limiter *Limiter
}

func (e *limitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.Embed(ctx, text)
}

// LimitCompleter wraps c so every call first waits on l. A nil l returns c unchanged.
func LimitCompleter(c Completer, l *Limiter) Completer {
	if l == nil {
		return c
	}
	return &limitedCompleter{next: c, limiter: l}
}

// LimitEmbedder wraps e so every call first waits on l. A nil l returns e unchanged.
func LimitEmbedder(e Embedder, l *Limiter) Embedder {
	if l == nil {
		return e
	}
	return &limitedEmbedder{next: e, limiter: l}
}
