package stateit

import (
	"encoding/json"
	"testing"

	"github.com/helmuthdu/stateit/pkg/scheduler"
)

func TestSelectorSuppressesUnrelatedChanges(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"count": 0, "name": "a"},
		WithScheduler[map[string]any](sched),
	)

	var counts []int
	SubscribeTo(st,
		func(s map[string]any) any { return s["count"] },
		func(next, prev any) { counts = append(counts, next.(int)) },
	)
	counts = nil

	// Unrelated field: selector value unchanged, listener silent.
	st.Set(Patch(map[string]any{"name": "b"}))
	sched.Drain()
	if len(counts) != 0 {
		t.Errorf("selector subscription must not fire on unrelated changes, got %v", counts)
	}

	// Selected field: listener fires.
	st.Set(Patch(map[string]any{"count": 1}))
	sched.Drain()
	if len(counts) != 1 || counts[0] != 1 {
		t.Errorf("selector subscription should fire on selected change, got %v", counts)
	}
}

func TestSelectorImmediateCallSeedsCache(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"count": 5},
		WithScheduler[map[string]any](sched),
	)

	type pair struct{ next, prev any }
	var calls []pair
	SubscribeTo(st,
		func(s map[string]any) any { return s["count"] },
		func(next, prev any) { calls = append(calls, pair{next, prev}) },
	)

	if len(calls) != 1 || calls[0].next != 5 || calls[0].prev != 5 {
		t.Fatalf("expected immediate call with (derived, derived), got %+v", calls)
	}

	// A flush that leaves the selected value at its seeded state stays
	// silent.
	st.Set(Patch(map[string]any{"other": 1}))
	sched.Drain()
	if len(calls) != 1 {
		t.Errorf("seeded cache should suppress unchanged derived values, got %d calls", len(calls))
	}
}

func TestSelectorReceivesPreviousDeliveredValue(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"count": 0},
		WithScheduler[map[string]any](sched),
	)

	type pair struct{ next, prev any }
	var calls []pair
	SubscribeTo(st,
		func(s map[string]any) any { return s["count"] },
		func(next, prev any) { calls = append(calls, pair{next, prev}) },
	)
	calls = nil

	st.Set(Patch(map[string]any{"count": 1}))
	sched.Drain()
	st.Set(Patch(map[string]any{"count": 2}))
	sched.Drain()

	if len(calls) != 2 {
		t.Fatalf("expected two deliveries, got %d", len(calls))
	}
	if calls[0].prev != 0 || calls[0].next != 1 {
		t.Errorf("first delivery should be (1, 0), got %+v", calls[0])
	}
	if calls[1].prev != 1 || calls[1].next != 2 {
		t.Errorf("second delivery should be (2, 1), got %+v", calls[1])
	}
}

func TestSelectorCustomEquality(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"items": []string{"a"}},
		WithScheduler[map[string]any](sched),
	)

	jsonEqual := func(a, b any) bool {
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return string(ja) == string(jb)
	}

	count := 0
	SubscribeTo(st,
		func(s map[string]any) any { return s["items"] },
		func(next, prev any) { count++ },
		WithEquality(jsonEqual),
	)
	count = 0

	// New reference, identical content: the JSON comparator suppresses.
	st.Set(Patch(map[string]any{"items": []string{"a"}}))
	sched.Drain()
	if count != 0 {
		t.Errorf("JSON-identical derived value must be suppressed, got %d calls", count)
	}

	st.Set(Patch(map[string]any{"items": []string{"a", "b"}}))
	sched.Drain()
	if count != 1 {
		t.Errorf("content change should fire, got %d calls", count)
	}
}

func TestSelectorUnsubscribe(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"count": 0},
		WithScheduler[map[string]any](sched),
	)

	count := 0
	unsubscribe := SubscribeTo(st,
		func(s map[string]any) any { return s["count"] },
		func(next, prev any) { count++ },
	)
	count = 0

	unsubscribe()
	unsubscribe()

	st.Set(Patch(map[string]any{"count": 1}))
	sched.Drain()
	if count != 0 {
		t.Errorf("unsubscribed selector listener must not fire, got %d calls", count)
	}
}

func TestSelectorBatchedWindowComparesAgainstLastDelivered(t *testing.T) {
	sched := scheduler.NewManual()
	st := New(map[string]any{"count": 0},
		WithScheduler[map[string]any](sched),
	)

	count := 0
	SubscribeTo(st,
		func(s map[string]any) any { return s["count"] },
		func(next, prev any) { count++ },
	)
	count = 0

	// The window mutates count away and back; the derived value at
	// flush time equals the last delivered one, so the listener is
	// skipped.
	st.Set(Patch(map[string]any{"count": 9}))
	st.Set(Patch(map[string]any{"count": 0}))
	sched.Drain()

	if count != 0 {
		t.Errorf("reverted derived value within one window must not fire, got %d calls", count)
	}
}
