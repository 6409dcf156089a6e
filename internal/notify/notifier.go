// Package notify sends best-effort alerts about newly clustered posts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Mode says whether the post founded a cluster or joined one.
type Mode string

const (
	ModeNew      Mode = "new"
	ModeExisting Mode = "existing"
)

// Event describes one clustered post.
type Event struct {
	Mode      Mode
	ClusterID string
	Subreddit string
	Title     string
	Link      string
	PainPoint string
	Solution  string
}

// Notifier delivers an Event to an external channel.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// WebhookError reports a non-2xx webhook response.
type WebhookError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("%s webhook returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// MultiNotifier sends notifications to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMultiNotifier creates a MultiNotifier from the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers, logger: slog.Default()}
}

// Notify sends evt to every notifier, continuing past failures. The returned
// error joins every failure.
func (m *MultiNotifier) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			m.logger.Warn("notifier error", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNotifier builds a notifier for the configured webhooks. It returns nil
// when neither is configured, meaning notifications are disabled.
func NewNotifier(discordURL, slackURL string) Notifier {
	var ns []Notifier
	if discordURL != "" {
		ns = append(ns, NewDiscordNotifier(discordURL))
	}
	if slackURL != "" {
		ns = append(ns, NewSlackNotifier(slackURL))
	}
	switch len(ns) {
	case 0:
		return nil
	case 1:
		return ns[0]
	default:
		return NewMultiNotifier(ns...)
	}
}
