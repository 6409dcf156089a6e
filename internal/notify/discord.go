package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// discordContentLimit is the maximum message length Discord accepts.
const discordContentLimit = 2000

// DiscordNotifier posts plain-text messages to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a DiscordNotifier with the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

// BuildDiscordPayload renders the webhook body for evt.
func BuildDiscordPayload(evt Event) discordPayload {
	return discordPayload{Content: truncate(FormatMessage(evt, "**"), discordContentLimit)}
}

// Notify sends a Discord notification. It is not retried.
func (d *DiscordNotifier) Notify(ctx context.Context, evt Event) error {
	body, err := json.Marshal(BuildDiscordPayload(evt))
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}
	return postJSON(ctx, d.client, "discord", d.webhookURL, body)
}

// postJSON posts body and maps non-2xx responses to *WebhookError.
func postJSON(ctx context.Context, client *http.Client, service, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", service, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WebhookError{Service: service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}
