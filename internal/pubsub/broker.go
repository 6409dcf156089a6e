// Package pubsub fans job lifecycle events out to any number of watchers.
package pubsub

import (
	"context"
	"sync"
)

// EventType describes the lifecycle step that produced an event.
type EventType string

const (
	Started   EventType = "started"
	Progress  EventType = "progress"
	Completed EventType = "completed"
	Failed    EventType = "failed"
)

// Terminal reports whether no further events follow for the same job.
func (t EventType) Terminal() bool {
	return t == Completed || t == Failed
}

// Event wraps a typed payload with an event type.
type Event[T any] struct {
	Type    EventType
	Payload T
}

// subscriberBufferSize is the channel buffer size for each subscriber.
const subscriberBufferSize = 64

// Broker is a generic, thread-safe publish/subscribe broker that retains the
// most recent event so late subscribers start from the current state.
type Broker[T any] struct {
	mu     sync.Mutex
	subs   map[chan Event[T]]struct{}
	latest *Event[T]
}

// NewBroker creates a new Broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]struct{}),
	}
}

// Subscribe creates a new subscription. If an event has been published, the
// channel first receives the latest one. The channel receives events until
// ctx is cancelled, at which point it is closed and the subscription removed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	ch := make(chan Event[T], subscriberBufferSize)

	b.mu.Lock()
	if b.latest != nil {
		ch <- *b.latest
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish broadcasts an event to all active subscribers and returns how many
// received it. A subscriber whose buffer is full misses the event.
func (b *Broker[T]) Publish(eventType EventType, payload T) int {
	evt := Event[T]{Type: eventType, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = &evt
	delivered := 0
	for ch := range b.subs {
		select {
		case ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}
