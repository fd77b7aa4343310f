package stateit

import "github.com/helmuthdu/stateit/pkg/shallow"

// Mutation describes one state transition. The concrete variants are
// Replace, Update, TryUpdate, Patch, and PatchSlice; each computes the
// next state from the current one.
type Mutation[T any] interface {
	apply(current T) (T, error)
}

// Apply runs a mutation against a state value outside any store.
// It is used to seed child and test stores.
func Apply[T any](m Mutation[T], current T) (T, error) {
	if m == nil {
		return current, nil
	}
	return m.apply(current)
}

type replace[T any] struct {
	value T
}

func (m replace[T]) apply(T) (T, error) {
	return m.value, nil
}

// Replace returns a mutation that swaps in the given value wholesale.
func Replace[T any](v T) Mutation[T] {
	return replace[T]{value: v}
}

type update[T any] struct {
	fn func(T) T
}

func (m update[T]) apply(current T) (T, error) {
	return m.fn(current), nil
}

// Update returns a mutation computed by fn from the current state.
// fn runs while the store lock is held and must not call back into the
// store; use the value it is handed.
func Update[T any](fn func(T) T) Mutation[T] {
	return update[T]{fn: fn}
}

type tryUpdate[T any] struct {
	fn func(T) (T, error)
}

func (m tryUpdate[T]) apply(current T) (T, error) {
	return m.fn(current)
}

// TryUpdate is Update for fallible transitions. An error returned by fn
// propagates to the Set caller; the state is untouched and no
// notification is scheduled.
func TryUpdate[T any](fn func(T) (T, error)) Mutation[T] {
	return tryUpdate[T]{fn: fn}
}

type patch[K comparable, V any] struct {
	fields map[K]V
}

func (m patch[K, V]) apply(current map[K]V) (map[K]V, error) {
	return shallow.MergeRecord(current, m.fields), nil
}

// Patch returns a mutation that shallow-merges the given entries over
// the current map state. The merge always produces a fresh top-level
// container; unchanged values keep their references.
func Patch[K comparable, V any](p map[K]V) Mutation[map[K]V] {
	return patch[K, V]{fields: p}
}

type patchSlice[E any] struct {
	elems []E
}

func (m patchSlice[E]) apply(current []E) ([]E, error) {
	return shallow.MergeSequence(current, m.elems), nil
}

// PatchSlice returns a mutation that overrides the current slice state
// positionally with the given elements.
func PatchSlice[E any](p []E) Mutation[[]E] {
	return patchSlice[E]{elems: p}
}
