package events

import (
	"fmt"
	"log/slog"
	"sync"
)

const bufferSize = 16

// Event is an output of the auth state machine or a list reconciler.
// Redirect is set when the UI should navigate.
type Event struct {
	Type     string         `json:"type"`
	Entity   string         `json:"entity"`
	Action   string         `json:"action"`
	ID       int64          `json:"id,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// New creates an Event with the Type field derived from entity and action.
func New(entity, action string, id int64) Event {
	return Event{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// WithRedirect returns a copy of e that asks the UI to navigate to path.
func (e Event) WithRedirect(path string) Event {
	e.Redirect = path
	return e
}

// Subscription receives events published after it was created.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	once sync.Once
}

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, bufferSize)
	s := &Subscription{C: ch, ch: ch}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is safe.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		s.once.Do(func() { close(s.ch) })
	}
	b.mu.Unlock()
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.logger.Debug("subscriber buffer full, dropping event", "type", e.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
