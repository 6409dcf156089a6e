package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SlackNotifier posts plain-text messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier creates a SlackNotifier with the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// BuildSlackPayload renders the webhook body for evt using mrkdwn bold.
func BuildSlackPayload(evt Event) slackPayload {
	return slackPayload{Text: FormatMessage(evt, "*")}
}

// Notify sends a Slack notification, retrying once on failure.
func (s *SlackNotifier) Notify(ctx context.Context, evt Event) error {
	body, err := json.Marshal(BuildSlackPayload(evt))
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	err = postJSON(ctx, s.client, "slack", s.webhookURL, body)
	if err != nil {
		s.logger.Warn("slack notify failed, retrying", "error", err)
		if err = postJSON(ctx, s.client, "slack", s.webhookURL, body); err != nil {
			return fmt.Errorf("slack notify failed after retry: %w", err)
		}
	}
	return nil
}
