// Package registry provides the watcher registry for fanning out playback events.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/osa030/storybox/internal/app/playback"
)

// Watchers manages event subscriptions with thread-safe access. Delivery is
// non-blocking: a watcher that falls behind misses events rather than
// stalling the pump.
type Watchers struct {
	mu       sync.RWMutex
	watchers map[string]chan<- playback.Event
}

// NewWatchers creates an empty watcher registry.
func NewWatchers() *Watchers {
	return &Watchers{
		watchers: make(map[string]chan<- playback.Event),
	}
}

// Subscribe registers a channel and returns its subscription ID.
func (w *Watchers) Subscribe(ch chan<- playback.Event) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := uuid.New().String()
	w.watchers[id] = ch
	return id
}

// Unsubscribe removes a subscription.
func (w *Watchers) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watchers, id)
}

// Broadcast sends an event to all watchers without blocking.
func (w *Watchers) Broadcast(e playback.Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.watchers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Count returns the number of active watchers.
func (w *Watchers) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watchers)
}

// Close removes all subscriptions.
func (w *Watchers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = make(map[string]chan<- playback.Event)
}
