package eventlog

import (
	"sort"
	"sync"
	"time"

	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/model"
)

// Log is an append-only record of published events. It is fed through bus
// subscriptions and read by the aggregator; nothing else mutates it.
type Log struct {
	mu      sync.RWMutex
	entries []model.DomainEvent
}

func New() *Log {
	return &Log{}
}

// Append records one event. Used directly as a bus handler.
func (l *Log) Append(evt model.DomainEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, evt)
	return nil
}

// Attach subscribes the log to every given event name on the bus.
func (l *Log) Attach(bus *eventbus.Bus, names ...string) []eventbus.Subscription {
	subs := make([]eventbus.Subscription, 0, len(names))
	for _, name := range names {
		subs = append(subs, bus.Subscribe(name, l.Append))
	}
	return subs
}

// Query returns a snapshot of matching events ordered by OccurredAt ascending,
// ties broken by insertion order. An empty name matches every event; the since
// bound is inclusive (an event stamped exactly at since is included). Events
// appended after Query returns are not visible in the returned slice.
func (l *Log) Query(name string, since time.Time) []model.DomainEvent {
	l.mu.RLock()
	matched := make([]model.DomainEvent, 0, len(l.entries))
	for _, evt := range l.entries {
		if name != "" && evt.Name != name {
			continue
		}
		if !since.IsZero() && evt.OccurredAt.Before(since) {
			continue
		}
		matched = append(matched, evt)
	}
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.Before(matched[j].OccurredAt)
	})
	return matched
}

// Len returns the number of appended events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
