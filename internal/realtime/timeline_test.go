package realtime_test

import (
	"testing"

	"github.com/worktrail/worktrail/internal/realtime"
)

func ids(events []realtime.Event) []uint64 {
	out := make([]uint64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}

	return out
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestTimelineBuffer_MostRecentFirst(t *testing.T) {
	tb := realtime.NewTimelineBuffer(3)

	if got := tb.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", ids(got))
	}

	tb.Push(realtime.Event{ID: 1})
	tb.Push(realtime.Event{ID: 2})

	if got := ids(tb.Snapshot()); !equalIDs(got, []uint64{2, 1}) {
		t.Errorf("got %v, want [2 1]", got)
	}
}

func TestTimelineBuffer_OverwritesOldest(t *testing.T) {
	tb := realtime.NewTimelineBuffer(3)

	for i := uint64(1); i <= 5; i++ {
		tb.Push(realtime.Event{ID: i})
	}

	if tb.Len() != 3 || tb.Cap() != 3 {
		t.Fatalf("len=%d cap=%d, want 3/3", tb.Len(), tb.Cap())
	}

	if got := ids(tb.Snapshot()); !equalIDs(got, []uint64{5, 4, 3}) {
		t.Errorf("got %v, want [5 4 3]", got)
	}
}

func TestTimelineBuffer_SnapshotIsCopy(t *testing.T) {
	tb := realtime.NewTimelineBuffer(2)
	tb.Push(realtime.Event{ID: 1})

	snap := tb.Snapshot()
	snap[0].ID = 99

	if got := tb.Snapshot()[0].ID; got != 1 {
		t.Errorf("buffer mutated through snapshot: %d", got)
	}
}

func TestTimelineBuffer_DefaultSize(t *testing.T) {
	if got := realtime.NewTimelineBuffer(0).Cap(); got != realtime.DefaultTimelineLen {
		t.Errorf("cap = %d, want %d", got, realtime.DefaultTimelineLen)
	}
}
