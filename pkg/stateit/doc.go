// Package stateit provides a small reactive state container.
//
// A Store holds one state value, an initial snapshot, and a listener
// set. Mutations are equality-gated: a Set whose result compares equal
// to the current state (shallow by default) is a no-op with no
// notification. Accepted mutations replace the top-level value and
// schedule exactly one flush per batching window, so several
// synchronous Sets coalesce into a single delivery carrying only the
// final state.
//
// # Core usage
//
//	store := stateit.New(map[string]int{"count": 0})
//
//	unsubscribe := store.Subscribe(func(next, prev map[string]int) {
//	    fmt.Println("count:", next["count"])
//	})
//
//	store.Set(stateit.Patch(map[string]int{"count": 1}))
//	store.Reset()
//	unsubscribe()
//
// Full-state listeners are invoked once synchronously at subscribe time
// with (current, current), then once per flush.
//
// # Selector subscriptions
//
// SubscribeTo scopes a subscription to a derived value. The listener
// fires only when the derived value changes under the subscription's
// equality function, so selecting one field never re-fires on unrelated
// mutations:
//
//	stateit.SubscribeTo(store,
//	    func(s map[string]int) int { return s["count"] },
//	    func(next, prev int) { fmt.Println(prev, "->", next) },
//	)
//
// # Child stores
//
// Child forks a fully independent store seeded from the parent's
// current state plus an optional patch. No link to the parent is
// retained; mutations never propagate in either direction. RunInScope
// wraps fork-run-discard for isolated or test execution.
//
// # Concurrency
//
// Stores are safe for concurrent use. Mutation commit is serialized per
// store; deliveries run on the configured scheduler's goroutine outside
// the store lock. Async updates via SetAsync are deliberately
// non-atomic: the updater reads state at call time and the result
// commits against whatever state is live when it returns
// (last-resolved-wins). There is no per-store mutation queue
// serializing concurrent async updaters.
package stateit
