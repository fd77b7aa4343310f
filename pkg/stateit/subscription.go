package stateit

import (
	"sync"

	"github.com/helmuthdu/stateit/pkg/shallow"
)

// SubOption is a functional option for a selector subscription.
type SubOption[S any] func(*subOptions[S])

type subOptions[S any] struct {
	equals func(S, S) bool
}

// WithEquality overrides the comparator for one selector subscription.
// The default is shallow equality on the derived value.
func WithEquality[S any](fn func(a, b S) bool) SubOption[S] {
	return func(o *subOptions[S]) {
		if fn != nil {
			o.equals = fn
		}
	}
}

// SubscribeTo registers a listener on a derived value. On every flush
// the selector is applied to the latest state and the result compared
// against the last value this subscription delivered; the listener runs
// only when they differ. Mutations that leave the derived value
// untouched never reach the listener.
//
// Like Subscribe, the listener is invoked synchronously once at
// registration with (derived, derived), which also seeds the
// last-delivered cache. The returned unsubscribe function is
// idempotent.
func SubscribeTo[T, S any](st *Store[T], sel func(T) S, fn func(next, prev S), opts ...SubOption[S]) (unsubscribe func()) {
	cfg := subOptions[S]{equals: shallow.EqualOf[S]()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		mu     sync.Mutex
		last   S
		seeded bool
	)

	return st.Subscribe(func(next, _ T) {
		derived := sel(next)

		mu.Lock()
		if !seeded {
			seeded = true
			last = derived
			mu.Unlock()
			fn(derived, derived)
			return
		}
		if cfg.equals(derived, last) {
			mu.Unlock()
			return
		}
		prev := last
		last = derived
		mu.Unlock()

		fn(derived, prev)
	})
}
