package stateit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/helmuthdu/stateit/pkg/scheduler"
)

// Store is a reactive state container. It owns one current state value,
// the initial snapshot captured at construction, and an ordered
// subscription list. See the package documentation for the notification
// and batching model.
//
// The state value is conceptually owned by the store: callers must not
// mutate the value returned by Get in place. Mutation always goes
// through Set. The store does not enforce this; it is a caller
// discipline contract.
type Store[T any] struct {
	name   string
	equals func(T, T) bool
	sched  scheduler.Scheduler
	log    *slog.Logger

	mu          sync.Mutex
	state       T
	initial     T
	lastFlushed T
	pending     bool
	subs        []*subscription[T]
}

// New creates a store holding initial as both its current state and the
// snapshot that Reset restores.
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	cfg := defaultOptions[T]()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store[T]{
		name:        cfg.name,
		equals:      cfg.equals,
		sched:       cfg.sched,
		log:         cfg.log,
		state:       initial,
		initial:     initial,
		lastFlushed: initial,
	}
}

// Name returns the store's diagnostic label.
func (s *Store[T]) Name() string {
	return s.name
}

// Get returns the current state synchronously.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select returns sel applied to the store's current state.
func Select[T, S any](s *Store[T], sel func(T) S) S {
	return sel(s.Get())
}

// Set applies a mutation. If the result compares equal to the current
// state under the store's comparator, nothing happens: no mutation, no
// scheduling, nil error. Otherwise the state is replaced and one flush
// is scheduled for the current batching window.
//
// A mutation error (or panic) leaves the state untouched and propagates
// to the caller; listeners are never notified of a failed mutation.
func (s *Store[T]) Set(m Mutation[T]) error {
	if m == nil {
		return nil
	}

	s.mu.Lock()
	applied := false
	defer func() {
		// Release the lock on the error and panic paths. commit
		// releases it itself on the applied path.
		if !applied {
			s.mu.Unlock()
		}
	}()

	next, err := m.apply(s.state)
	if err != nil {
		return err
	}

	applied = true
	s.commit(next)
	return nil
}

// SetAsync runs an updater that may block or yield, then commits its
// result. The updater receives the state as of the call, read before it
// runs; the result replaces whatever state is live once it returns.
// Concurrent SetAsync calls against the same store therefore race as
// last-resolved-wins rather than as serialized transactions.
//
// An updater error propagates to the caller with no state change and no
// notification.
func (s *Store[T]) SetAsync(ctx context.Context, fn func(context.Context, T) (T, error)) error {
	snapshot := s.Get()

	next, err := fn(ctx, snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.commit(next)
	return nil
}

// Reset restores the snapshot captured at construction, following the
// same equality-gated commit path as Set.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.commit(s.initial)
}

// commit replaces the state with next if they differ under the store
// comparator and schedules a flush. Called with s.mu held; releases it
// before invoking the scheduler so an immediate scheduler can re-enter
// the store.
func (s *Store[T]) commit(next T) {
	if s.equals(s.state, next) {
		s.mu.Unlock()
		return
	}

	s.state = next
	schedule := !s.pending
	s.pending = true
	s.mu.Unlock()

	if schedule {
		s.sched.Schedule(s.flush)
	}
}

// flush delivers the change accumulated since the last flush to every
// subscription in registration order. Each delivery is isolated: a
// panicking listener is logged and skipped, never allowed to block the
// rest of the list or surface to the mutating caller.
func (s *Store[T]) flush() {
	s.mu.Lock()
	s.pending = false
	next := s.state
	prev := s.lastFlushed
	s.lastFlushed = next
	subs := make([]*subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		s.invoke(sub, next, prev)
	}
}

func (s *Store[T]) invoke(sub *subscription[T], next, prev T) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("stateit: listener panic",
				"store", s.name,
				"panic", r,
			)
		}
	}()
	sub.deliver(next, prev)
}

// subscription pairs a delivery callback with its liveness flag.
// Selector handling lives inside the deliver closure, so the flush loop
// treats every subscription uniformly.
type subscription[T any] struct {
	deliver func(next, prev T)
	active  atomic.Bool
}

// Subscribe registers a full-state listener. It is invoked synchronously
// once before Subscribe returns, with (current, current), and then once
// per flush with (latest, previously flushed).
//
// The returned function removes the subscription. It is idempotent:
// calling it more than once is a no-op.
func (s *Store[T]) Subscribe(fn func(next, prev T)) (unsubscribe func()) {
	sub := &subscription[T]{deliver: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	current := s.state
	s.mu.Unlock()

	s.invoke(sub, current, current)

	return func() {
		s.remove(sub)
	}
}

func (s *Store[T]) remove(sub *subscription[T]) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	// Splice rather than swap-remove: deliveries are ordered by
	// registration.
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}
