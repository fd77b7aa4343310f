package stateit

import (
	"errors"
	"testing"

	"github.com/helmuthdu/stateit/pkg/scheduler"
)

func TestChildIsSeededFromParentPlusPatch(t *testing.T) {
	parent, _ := newTestStore(t, map[string]int{"count": 1, "kept": 2})

	child, err := parent.Child(Patch(map[string]int{"count": 9}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := child.Get()
	if got["count"] != 9 || got["kept"] != 2 {
		t.Errorf("child should see merged parent state, got %v", got)
	}
}

func TestChildIsolationBothDirections(t *testing.T) {
	sched := scheduler.NewManual()
	parent := New(map[string]int{"x": 0},
		WithScheduler[map[string]int](sched),
	)

	child, err := parent.Child(Patch(map[string]int{"x": 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child.Set(Patch(map[string]int{"x": 100}))
	sched.Drain()
	if got := parent.Get()["x"]; got != 0 {
		t.Errorf("child mutation must not reach the parent, parent x = %d", got)
	}

	parent.Set(Patch(map[string]int{"x": 50}))
	sched.Drain()
	if got := child.Get()["x"]; got != 100 {
		t.Errorf("parent mutation must not reach the child, child x = %d", got)
	}
}

func TestChildResetRestoresSeed(t *testing.T) {
	parent, sched := newTestStore(t, map[string]int{"x": 1})

	child, err := parent.Child(Patch(map[string]int{"x": 5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child.Set(Patch(map[string]int{"x": 99}))
	sched.Drain()
	child.Reset()
	sched.Drain()

	if got := child.Get()["x"]; got != 5 {
		t.Errorf("child reset should restore the fork seed, got %d", got)
	}
}

func TestChildWithNilPatch(t *testing.T) {
	parent, _ := newTestStore(t, map[string]int{"x": 3})
	child, err := parent.Child(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := child.Get()["x"]; got != 3 {
		t.Errorf("nil patch should fork a plain snapshot, got %d", got)
	}
}

func TestChildPatchError(t *testing.T) {
	parent, _ := newTestStore(t, map[string]int{"x": 3})
	wantErr := errors.New("seed failure")
	_, err := parent.Child(TryUpdate(func(map[string]int) (map[string]int, error) {
		return nil, wantErr
	}))
	if !errors.Is(err, wantErr) {
		t.Errorf("expected seed error to propagate, got %v", err)
	}
}

func TestRunInScope(t *testing.T) {
	parent, sched := newTestStore(t, map[string]int{"count": 1})

	result, err := RunInScope(parent, Patch(map[string]int{"count": 10}),
		func(child *Store[map[string]int]) (int, error) {
			child.Set(Patch(map[string]int{"count": 20}))
			sched.Drain()
			return child.Get()["count"], nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 20 {
		t.Errorf("expected fn result 20, got %d", result)
	}

	if got := parent.Get()["count"]; got != 1 {
		t.Errorf("RunInScope must never write to the parent, got %d", got)
	}
}

func TestRunInScopeFnError(t *testing.T) {
	parent, _ := newTestStore(t, map[string]int{"count": 1})

	wantErr := errors.New("scoped failure")
	_, err := RunInScope(parent, nil, func(*Store[map[string]int]) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected fn error to propagate, got %v", err)
	}
}
