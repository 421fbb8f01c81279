package session

import (
	"sync"
	"time"
)

// Event types published on the bus.
const (
	EventLoggedIn         = "session.logged_in"
	EventLoggedOut        = "session.logged_out"
	EventProfileRefreshed = "session.profile_refreshed"
	EventTokenRefreshed   = "session.token_refreshed"
)

// Event is a lightweight session event.
type Event struct {
	Type      string
	Payload   string
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event)

// Bus provides in-process pub/sub for session events. Consumers subscribe
// and unsubscribe explicitly; there is no ambient global dispatch.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]EventHandler
	nextID      int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]map[int]EventHandler)}
}

// Subscribe registers a handler for a given event type and returns the
// function that removes it again. Release is idempotent.
func (b *Bus) Subscribe(eventType string, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[int]EventHandler)
	}
	id := b.nextID
	b.nextID++
	b.subscribers[eventType][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers[eventType], id)
	}
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type]))
	for _, h := range b.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
