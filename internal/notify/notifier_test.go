package notify

import (
	"context"
	"errors"
	"testing"
)

// mockNotifier is a test implementation of Notifier.
type mockNotifier struct {
	called bool
	err    error
}

func (m *mockNotifier) Notify(_ context.Context, _ Event) error {
	m.called = true
	return m.err
}

func TestMultiNotifier_NotifyAll(t *testing.T) {
	n1 := &mockNotifier{}
	n2 := &mockNotifier{}

	if err := NewMultiNotifier(n1, n2).Notify(context.Background(), testEvent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n1.called || !n2.called {
		t.Error("expected both notifiers to be called")
	}
}

func TestMultiNotifier_ContinuesOnError(t *testing.T) {
	e1 := errors.New("n1 failed")
	n1 := &mockNotifier{err: e1}
	n2 := &mockNotifier{}

	err := NewMultiNotifier(n1, n2).Notify(context.Background(), testEvent)
	if !errors.Is(err, e1) {
		t.Errorf("expected n1 error, got %v", err)
	}
	if !n2.called {
		t.Error("expected second notifier to be called despite first error")
	}
}

func TestNewNotifier(t *testing.T) {
	if NewNotifier("", "") != nil {
		t.Error("expected nil notifier when no webhook is configured")
	}
	if _, ok := NewNotifier("https://discord.example", "").(*DiscordNotifier); !ok {
		t.Error("expected DiscordNotifier")
	}
	if _, ok := NewNotifier("", "https://slack.example").(*SlackNotifier); !ok {
		t.Error("expected SlackNotifier")
	}
	if _, ok := NewNotifier("https://discord.example", "https://slack.example").(*MultiNotifier); !ok {
		t.Error("expected MultiNotifier")
	}
}
