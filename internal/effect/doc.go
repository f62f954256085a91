// Package effect implements the event graph and the effect algebra that
// gives it meaning.
//
// An EventGraph is an immutable series-parallel tree of atomic events
// describing what happened during one simulated instant. Graphs are never
// inspected structurally from outside this package: callers interpret them
// by folding with a Trait (identity, sequential composition, concurrent
// composition) and a substitution from events to effects. The same graph can
// therefore be evaluated as a cell update, as a human-readable trace, or as a
// conflict check.
//
// INVARIANTS:
//   - The zero EventGraph is Empty
//   - Sequential and Concurrent nodes never have an Empty child
//   - Nodes are read-only after construction and may be shared freely
//   - Evaluation is a pure fold; concurrent callers need no locking
package effect
