package stateit

// Child forks a fully independent store seeded with patch applied to
// the parent's current state. The seed becomes both the child's current
// state and the snapshot its Reset restores. A nil patch forks a plain
// snapshot.
//
// The child inherits the parent's comparator, scheduler, and logger,
// but keeps no reference to the parent: mutations never propagate in
// either direction. This is a one-shot fork, not a derived store.
func (s *Store[T]) Child(patch Mutation[T]) (*Store[T], error) {
	seed, err := Apply(patch, s.Get())
	if err != nil {
		return nil, err
	}

	return &Store[T]{
		name:        s.name + "/child",
		equals:      s.equals,
		sched:       s.sched,
		log:         s.log,
		state:       seed,
		initial:     seed,
		lastFlushed: seed,
	}, nil
}

// RunInScope forks a child store, runs fn against it, and returns fn's
// result. The parent is never written to; the child is simply abandoned
// to the garbage collector once fn returns, unless fn lets it escape.
func RunInScope[T, R any](s *Store[T], patch Mutation[T], fn func(*Store[T]) (R, error)) (R, error) {
	child, err := s.Child(patch)
	if err != nil {
		var zero R
		return zero, err
	}
	return fn(child)
}
