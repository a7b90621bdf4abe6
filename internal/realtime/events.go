package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventKind is the change type carried by an Event.
type EventKind string

// Event kinds.
const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
)

// Event is one change delivered to subscribers. ID is assigned per
// subscription scope at dispatch time.
type Event struct {
	ID        uint64          `json:"id"`
	Kind      EventKind       `json:"event_kind"`
	Table     string          `json:"table"`
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	Time      time.Time       `json:"time"`
}

// Scope bounds a subscription. ProjectID matches the record's project and
// AccountID matches the acting account. Unset fields match anything, but at
// least one must be set.
type Scope struct {
	ProjectID *uuid.UUID
	AccountID *uuid.UUID
}

// Empty reports whether neither field is set.
func (s Scope) Empty() bool {
	return s.ProjectID == nil && s.AccountID == nil
}

// Matches reports whether ev falls inside the scope.
func (s Scope) Matches(ev *Event) bool {
	if s.ProjectID != nil && (ev.ProjectID == nil || *ev.ProjectID != *s.ProjectID) {
		return false
	}

	if s.AccountID != nil && (ev.ActorID == nil || *ev.ActorID != *s.AccountID) {
		return false
	}

	return true
}

// key identifies the scope for sequence numbering.
func (s Scope) key() string {
	k := "p:"
	if s.ProjectID != nil {
		k += s.ProjectID.String()
	}

	k += "|a:"
	if s.AccountID != nil {
		k += s.AccountID.String()
	}

	return k
}

// ClientMessage is a request sent by a WebSocket client.
type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage frames everything written to a WebSocket client.
type ServerMessage struct {
	Type   string  `json:"type"`
	Event  *Event  `json:"event,omitempty"`
	Events []Event `json:"events,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// EventSequence tracks monotonic event IDs per scope.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a scope key.
func (es *EventSequence) Next(key string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[key]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[key] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}

// Forget drops the counter for a scope key.
func (es *EventSequence) Forget(key string) {
	es.mu.Lock()
	delete(es.counters, key)
	es.mu.Unlock()
}
