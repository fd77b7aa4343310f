package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/helmuthdu/stateit/pkg/scheduler"
	"github.com/helmuthdu/stateit/pkg/shallow"
	"github.com/helmuthdu/stateit/pkg/stateit"
)

func newInstrumented(t *testing.T) (*Store[map[string]int], *scheduler.Manual) {
	t.Helper()
	sched := scheduler.NewManual()
	inner := stateit.New(map[string]int{"count": 0},
		stateit.WithName[map[string]int]("metrics-test"),
		stateit.WithScheduler[map[string]int](sched),
	)
	st := Instrument(inner, WithRegistry(prometheus.NewRegistry()))
	return st, sched
}

func TestInstrumentCountsMutations(t *testing.T) {
	st, sched := newInstrumented(t)

	if err := st.Set(stateit.Patch(map[string]int{"count": 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched.Drain()

	got := testutil.ToFloat64(st.prov.mutations.WithLabelValues("metrics-test", "set", "ok"))
	if got != 1 {
		t.Errorf("expected 1 ok set recorded, got %v", got)
	}

	if got := st.Get()["count"]; got != 1 {
		t.Errorf("instrumentation must not change store semantics, got %d", got)
	}
}

func TestInstrumentCountsErrors(t *testing.T) {
	st, _ := newInstrumented(t)

	err := st.Set(stateit.TryUpdate(func(map[string]int) (map[string]int, error) {
		return nil, errors.New("bad")
	}))
	if err == nil {
		t.Fatal("expected the mutation error to pass through")
	}

	got := testutil.ToFloat64(st.prov.mutations.WithLabelValues("metrics-test", "set", "error"))
	if got != 1 {
		t.Errorf("expected 1 error set recorded, got %v", got)
	}
}

func TestInstrumentCountsNotifications(t *testing.T) {
	st, sched := newInstrumented(t)

	// The observer's subscribe-time delivery counts as one.
	base := testutil.ToFloat64(st.prov.notifications.WithLabelValues("metrics-test"))
	if base != 1 {
		t.Fatalf("expected 1 subscribe-time delivery, got %v", base)
	}

	st.Set(stateit.Patch(map[string]int{"count": 1}))
	st.Set(stateit.Patch(map[string]int{"count": 2}))
	sched.Drain()

	got := testutil.ToFloat64(st.prov.notifications.WithLabelValues("metrics-test"))
	if got != 2 {
		t.Errorf("two sets in one window should flush once, got %v deliveries", got)
	}
}

func TestInstrumentSetAsync(t *testing.T) {
	st, sched := newInstrumented(t)

	err := st.SetAsync(context.Background(), func(_ context.Context, s map[string]int) (map[string]int, error) {
		return shallow.MergeRecord(s, map[string]int{"count": 5}), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched.Drain()

	got := testutil.ToFloat64(st.prov.mutations.WithLabelValues("metrics-test", "set_async", "ok"))
	if got != 1 {
		t.Errorf("expected 1 ok set_async recorded, got %v", got)
	}
	if got := st.Get()["count"]; got != 5 {
		t.Errorf("expected async result committed, got %d", got)
	}
}

func TestInstrumentReset(t *testing.T) {
	st, sched := newInstrumented(t)

	st.Set(stateit.Patch(map[string]int{"count": 3}))
	sched.Drain()
	st.Reset()
	sched.Drain()

	got := testutil.ToFloat64(st.prov.mutations.WithLabelValues("metrics-test", "reset", "ok"))
	if got != 1 {
		t.Errorf("expected 1 reset recorded, got %v", got)
	}
	if got := st.Get()["count"]; got != 0 {
		t.Errorf("expected reset state, got %d", got)
	}
}

func TestInstrumentWithSharedProvider(t *testing.T) {
	prov := NewProvider(WithRegistry(prometheus.NewRegistry()))

	sched := scheduler.NewManual()
	a := InstrumentWith(prov, stateit.New(map[string]int{"x": 0},
		stateit.WithName[map[string]int]("a"),
		stateit.WithScheduler[map[string]int](sched)))
	b := InstrumentWith(prov, stateit.New(map[string]int{"x": 0},
		stateit.WithName[map[string]int]("b"),
		stateit.WithScheduler[map[string]int](sched)))

	a.Set(stateit.Patch(map[string]int{"x": 1}))
	b.Set(stateit.Patch(map[string]int{"x": 1}))
	b.Set(stateit.Patch(map[string]int{"x": 2}))
	sched.Drain()

	if got := testutil.ToFloat64(prov.mutations.WithLabelValues("a", "set", "ok")); got != 1 {
		t.Errorf("expected 1 set for store a, got %v", got)
	}
	if got := testutil.ToFloat64(prov.mutations.WithLabelValues("b", "set", "ok")); got != 2 {
		t.Errorf("expected 2 sets for store b, got %v", got)
	}
}

func TestClose(t *testing.T) {
	st, sched := newInstrumented(t)
	st.Close()

	st.Set(stateit.Patch(map[string]int{"count": 1}))
	sched.Drain()

	got := testutil.ToFloat64(st.prov.notifications.WithLabelValues("metrics-test"))
	if got != 1 {
		t.Errorf("closed observer must not record further deliveries, got %v", got)
	}
}
