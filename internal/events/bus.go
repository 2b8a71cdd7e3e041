// Package events provides a publish-subscribe bus for parameter updates.
package events

import (
	"sync"

	"github.com/micro-nova/audioconfig-go/internal/params"
)

const subBufferSize = 32

// Kind says what happened to a registry entry.
type Kind string

const (
	// KindPut means a record was stored or replaced wholesale.
	KindPut Kind = "put"
	// KindSent means a Set command for the record was handed to the transport.
	KindSent Kind = "sent"
	// KindCleared means the registry was emptied (device disconnected).
	KindCleared Kind = "cleared"
)

// Update describes one registry change. Key is zero for KindCleared.
type Update struct {
	Kind Kind
	Key  params.Key
}

// Bus is a non-blocking publish-subscribe event bus.
// Subscribers that are slow to consume events have events dropped rather
// than blocking publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan Update
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan Update),
	}
}

// Subscribe creates a subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Update, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends u to all subscribers.
// If a subscriber's channel is full, the event is dropped.
func (b *Bus) Publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
			// slow subscriber
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
