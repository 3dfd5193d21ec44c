package eventbus

import (
	"log"
	"sync"

	"github.com/stemworks/api/internal/model"
)

// Handler processes one published event. A non-nil error is logged and never
// propagated to the publisher.
type Handler func(evt model.DomainEvent) error

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	name string
	id   uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus is an in-process publish/subscribe dispatcher. Dispatch is synchronous:
// Publish invokes every handler registered for the event name in subscription
// order before returning. There is no persistence and no replay; handlers
// registered after a publish never see past events.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]entry
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

// Subscribe registers fn for events with exactly the given name.
func (b *Bus) Subscribe(name string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[name] = append(b.handlers[name], entry{id: b.nextID, fn: fn})
	return Subscription{name: name, id: b.nextID}
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.name]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.name] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish dispatches evt to every handler subscribed to evt.Name. Handler
// errors and panics are isolated per handler: they are logged and do not stop
// the remaining handlers or reach the publisher.
func (b *Bus) Publish(evt model.DomainEvent) {
	b.mu.RLock()
	entries := make([]entry, len(b.handlers[evt.Name]))
	copy(entries, b.handlers[evt.Name])
	b.mu.RUnlock()

	for _, e := range entries {
		dispatch(evt, e.fn)
	}
}

func dispatch(evt model.DomainEvent, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Event handler panicked for %s: %v", evt.Name, r)
		}
	}()

	if err := fn(evt); err != nil {
		log.Printf("Event handler failed for %s: %v", evt.Name, err)
	}
}
