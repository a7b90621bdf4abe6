package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is a consumer-driven stream of events for one scope.
type Subscription struct {
	id      uuid.UUID
	scope   Scope
	seqKey  string
	ch      chan Event
	d       *Dispatcher
	once    sync.Once
	dropped atomic.Uint64
}

// ID identifies the subscription.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Scope returns the filter the subscription was created with.
func (s *Subscription) Scope() Scope {
	return s.scope
}

// Events returns the receive side of the stream. It is closed once the
// subscription ends. Event IDs increase by one; a gap means the buffer was
// full and events were dropped.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were dropped for this subscriber.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe ends the subscription. It is safe to call more than once and
// after the dispatcher has shut down.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		select {
		case s.d.unregister <- s:
		case <-s.d.done:
		}
	})
}
