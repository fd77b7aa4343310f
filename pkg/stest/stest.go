// Package stest provides helpers for testing code built on stateit
// stores: disposable pre-seeded stores, mocked-state scopes, a
// subscription recorder, and assertion helpers.
package stest

import (
	"sync"
	"testing"

	"github.com/helmuthdu/stateit/pkg/shallow"
	"github.com/helmuthdu/stateit/pkg/stateit"
)

// NewStore builds a disposable test store.
//
// With a base, it forks a child seeded from the base's current state
// plus the patch; the base is never touched. Without one, it builds a
// standalone store from the patch applied to the zero value of T.
//
// dispose returns the store to the state captured at its construction
// (it is Reset, not teardown — abandoned stores are simply collected).
//
// Example:
//
//	store, dispose, err := stest.NewStore[map[string]int](nil,
//	    stateit.Patch(map[string]int{"count": 1}))
//	defer dispose()
func NewStore[T any](base *stateit.Store[T], patch stateit.Mutation[T]) (store *stateit.Store[T], dispose func(), err error) {
	if base != nil {
		child, err := base.Child(patch)
		if err != nil {
			return nil, nil, err
		}
		return child, child.Reset, nil
	}

	var zero T
	seed, err := stateit.Apply(patch, zero)
	if err != nil {
		return nil, nil, err
	}
	st := stateit.New(seed, stateit.WithName[T]("test"))
	return st, st.Reset, nil
}

// WithMock forks a child of base with the given state patch, runs fn
// against it, and returns fn's result. It is sugar over RunInScope that
// documents intent: exercise logic against mocked state without
// touching the real store.
//
// Example:
//
//	got, err := stest.WithMock(appStore,
//	    stateit.Patch(map[string]any{"user": "admin"}),
//	    func(st *stateit.Store[map[string]any]) (bool, error) {
//	        return CanDelete(st), nil
//	    })
func WithMock[T, R any](base *stateit.Store[T], patch stateit.Mutation[T], fn func(*stateit.Store[T]) (R, error)) (R, error) {
	return stateit.RunInScope(base, patch, fn)
}

// Call is one recorded listener invocation.
type Call[T any] struct {
	Next T
	Prev T
}

// Recorder is a subscription spy. Pass Observe as a listener and assert
// on the recorded calls.
//
//	rec := stest.NewRecorder[map[string]int]()
//	unsubscribe := store.Subscribe(rec.Observe)
type Recorder[T any] struct {
	mu    sync.Mutex
	calls []Call[T]
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Observe records a delivery. It has the listener signature expected by
// Store.Subscribe.
func (r *Recorder[T]) Observe(next, prev T) {
	r.mu.Lock()
	r.calls = append(r.calls, Call[T]{Next: next, Prev: prev})
	r.mu.Unlock()
}

// Calls returns a copy of the recorded calls in delivery order.
func (r *Recorder[T]) Calls() []Call[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call[T], len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns the number of recorded calls.
func (r *Recorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Last returns the most recent call, if any.
func (r *Recorder[T]) Last() (Call[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call[T]{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// Reset discards recorded calls. Typically called right after
// subscribing to drop the immediate subscribe-time delivery.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// ExpectState asserts that the store's current state is shallow-equal
// to want.
func ExpectState[T any](t *testing.T, st *stateit.Store[T], want T) {
	t.Helper()
	got := st.Get()
	if !shallow.Equal(got, want) {
		t.Errorf("expected state %v, got %v", want, got)
	}
}

// ExpectCalls asserts the recorder saw exactly want deliveries.
func ExpectCalls[T any](t *testing.T, rec *Recorder[T], want int) {
	t.Helper()
	if got := rec.Count(); got != want {
		t.Errorf("expected %d listener calls, got %d", want, got)
	}
}
