package dispatch

import (
	"sort"
	"sync"
	"time"
)

// EventType identifies a dispatch lifecycle event.
type EventType string

const (
	EventSearchStarted   EventType = "search_started"
	EventDriverNotified  EventType = "driver_notified"
	EventDriverResponded EventType = "driver_responded"
	EventDriverAssigned  EventType = "driver_assigned"
	EventSearchExpanded  EventType = "search_expanded"
	EventSearchCompleted EventType = "search_completed"
	EventSearchFailed    EventType = "search_failed"
)

// Event is an append-only record of one dispatch lifecycle transition.
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id"`
	DriverID  string         `json:"driver_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// subscribers is a synchronous observer registry. Callbacks run on the
// triggering goroutine in registration order; a panicking callback is
// isolated and never aborts the operation that emitted the event.
type subscribers struct {
	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]func(Event))}
}

// add registers the callback and returns its unsubscribe handle.
func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// emit invokes every registered callback in registration order.
func (s *subscribers) emit(ev Event) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		invokeSubscriber(fn, ev)
	}
}

func invokeSubscriber(fn func(Event), ev Event) {
	defer func() { _ = recover() }()
	fn(ev)
}
