// Package events provides the in-process change notifications that drive
// the storage read streams.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event represents a message passed through the broker.
type Event struct {
	Topic string
	Data  any
}

// Broker implements a simple in-memory pub/sub system.
// Each subscriber holds at most one pending event; consumers are expected
// to re-read current state on wake-up rather than replay every event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[uuid.UUID]chan Event
	closed      bool
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[uuid.UUID]chan Event),
	}
}

// Subscribe creates a new subscription to a topic.
// It returns a read-only channel where events for that topic will be sent,
// and a function that cancels the subscription and closes the channel.
// Subscribing to a closed broker returns an already closed channel.
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[uuid.UUID]chan Event)
	}
	b.subscribers[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Broker) unsubscribe(topic string, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
}

// Publish sends an event to all subscribers of a topic.
func (b *Broker) Publish(topic string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Topic: topic, Data: data}
	for _, ch := range b.subscribers[topic] {
		// Non-blocking send
		select {
		case ch <- event:
		default:
			// Subscriber already has a pending wake-up.
		}
	}
}

// SubscriberCount returns the number of live subscriptions for topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel and later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
}
