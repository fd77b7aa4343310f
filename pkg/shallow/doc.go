// Package shallow provides one-level equality and merge helpers for
// store state values.
//
// Equality compares only first-level keys and values; nested containers
// compare by reference identity. This pairs with the store's structural
// sharing contract: an accepted mutation replaces the top-level
// container while unchanged nested references are carried over, so a
// shallow comparison is enough to detect a change.
package shallow
