package stateit

import (
	"log/slog"

	"github.com/helmuthdu/stateit/pkg/scheduler"
	"github.com/helmuthdu/stateit/pkg/shallow"
)

// Option is a functional option for configuring a store.
type Option[T any] func(*options[T])

type options[T any] struct {
	name   string
	equals func(T, T) bool
	sched  scheduler.Scheduler
	log    *slog.Logger
}

func defaultOptions[T any]() options[T] {
	return options[T]{
		name:   "store",
		equals: shallow.EqualOf[T](),
		sched:  scheduler.Queue(),
		log:    slog.Default(),
	}
}

// WithName sets a diagnostic label for the store. It appears in listener
// panic logs and identifies the store to the devtools inspector; it has
// no functional effect on store behavior.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithEquals overrides the comparator used to decide whether a mutation
// changed the state. The default is shallow equality. A value-semantics
// comparator suppresses notifications when the reference changes but the
// meaningful content does not.
func WithEquals[T any](fn func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		if fn != nil {
			o.equals = fn
		}
	}
}

// WithScheduler sets the scheduler that defers flushes. The default is
// the process-wide serialized queue; tests typically inject a
// scheduler.Manual to control flush timing.
func WithScheduler[T any](s scheduler.Scheduler) Option[T] {
	return func(o *options[T]) {
		if s != nil {
			o.sched = s
		}
	}
}

// WithLogger sets the logger that receives listener panic reports.
// Defaults to slog.Default().
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(o *options[T]) {
		if l != nil {
			o.log = l
		}
	}
}
