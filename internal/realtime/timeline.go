package realtime

import "sync"

// DefaultTimelineLen is the number of events a session keeps for display.
const DefaultTimelineLen = 200

// TimelineBuffer is a bounded ring of the most recent events seen by one
// session. Once full, each push overwrites the oldest event.
type TimelineBuffer struct {
	mu    sync.RWMutex
	buf   []Event
	start int
	n     int
}

// NewTimelineBuffer creates a buffer holding up to size events.
func NewTimelineBuffer(size int) *TimelineBuffer {
	if size < 1 {
		size = DefaultTimelineLen
	}

	return &TimelineBuffer{buf: make([]Event, size)}
}

// Push records an event.
func (t *TimelineBuffer) Push(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = ev
		t.n++

		return
	}

	t.buf[t.start] = ev
	t.start = (t.start + 1) % len(t.buf)
}

// Snapshot returns a copy of the buffered events, most recent first.
func (t *TimelineBuffer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, t.n)
	for i := range t.n {
		out[i] = t.buf[(t.start+t.n-1-i)%len(t.buf)]
	}

	return out
}

// Len returns the number of buffered events.
func (t *TimelineBuffer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.n
}

// Cap returns the maximum number of events kept.
func (t *TimelineBuffer) Cap() int {
	return len(t.buf)
}
