package shallow

import "reflect"

// Equal reports whether a and b are equal one level deep.
//
// Two values are equal when they are the same reference (or equal
// comparables), or when both are maps or slices with the same key/index
// set whose values are pairwise identical. Nested maps, slices, and
// pointers are compared by identity, never by content: a nested map that
// is a different reference with identical entries compares unequal.
//
// nil is equal only to nil; a nil interface never equals an empty
// container.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		if va.Pointer() == vb.Pointer() {
			return true
		}
		if va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !identical(iter.Value(), other) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !identical(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !identical(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true

	default:
		return identical(va, vb)
	}
}

// identical compares two values by identity: == for comparables,
// pointer equality for references. Interface wrappers are unwrapped
// first so map[string]any values compare by their dynamic type.
func identical(x, y reflect.Value) bool {
	for x.Kind() == reflect.Interface {
		x = x.Elem()
	}
	for y.Kind() == reflect.Interface {
		y = y.Elem()
	}
	if !x.IsValid() || !y.IsValid() {
		return x.IsValid() == y.IsValid()
	}
	if x.Type() != y.Type() {
		return false
	}

	switch x.Kind() {
	case reflect.Map, reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if x.IsNil() || y.IsNil() {
			return x.IsNil() == y.IsNil()
		}
		return x.Pointer() == y.Pointer()
	case reflect.Slice:
		if x.IsNil() || y.IsNil() {
			return x.IsNil() == y.IsNil()
		}
		return x.Len() == y.Len() && (x.Len() == 0 || x.Pointer() == y.Pointer())
	default:
		if x.Comparable() {
			return x.Equal(y)
		}
		return false
	}
}

// EqualOf returns a typed comparator over Equal.
// It is the default equality function for stores and subscriptions.
func EqualOf[T any]() func(a, b T) bool {
	return func(a, b T) bool {
		return Equal(a, b)
	}
}

// MergeRecord returns a new map holding every entry of base overridden
// by every entry of patch. The result is always a fresh container, even
// when patch is empty; neither input is mutated. nil inputs are treated
// as empty.
func MergeRecord[K comparable, V any](base, patch map[K]V) map[K]V {
	merged := make(map[K]V, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// MergeSequence returns a new slice where patch elements override base
// elements positionally. The result length is the larger of the two
// inputs; neither input is mutated.
func MergeSequence[E any](base, patch []E) []E {
	n := len(base)
	if len(patch) > n {
		n = len(patch)
	}
	merged := make([]E, n)
	copy(merged, base)
	copy(merged, patch)
	return merged
}
