package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func newTestAnthropic(t *testing.T, h http.HandlerFunc) *AnthropicCompleter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAnthropicCompleter("test-key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
}

const anthropicReply = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",
"content":[{"type":"text","text":"{\"is_opportunity\":"},{"type":"text","text":"true}"}],
"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`

func TestAnthropicComplete(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			System      []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Model != defaultAnthropicModel {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.System) != 1 || body.System[0].Text != "classify posts" {
			t.Errorf("system = %+v", body.System)
		}
		if len(body.Messages) != 1 || !strings.HasSuffix(body.Messages[0].Content[0].Text, jsonOnlySuffix) {
			t.Errorf("user turn should end with the JSON instruction: %+v", body.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(anthropicReply))
	})

	got, err := c.Complete(context.Background(), Prompt{System: "classify posts", User: "Title: x", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"is_opportunity":true}` {
		t.Errorf("expected text blocks joined, got %q", got)
	}
}

func TestAnthropicCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, ErrRateLimit},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`, ErrRateLimit},
		{"gateway timeout", http.StatusGatewayTimeout, `{"type":"error","error":{"type":"api_error","message":"timeout"}}`, ErrTimeout},
		{"no text", http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`, ErrInvalidResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := c.Complete(context.Background(), Prompt{User: "hi"})
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewAnthropicCompleterModel(t *testing.T) {
	if c := NewAnthropicCompleter("k", ""); c.model != defaultAnthropicModel {
		t.Errorf("expected default model, got %q", c.model)
	}
	if c := NewAnthropicCompleter("k", "claude-3-5-haiku-latest"); c.model != "claude-3-5-haiku-latest" {
		t.Errorf("expected custom model, got %q", c.model)
	}
}
