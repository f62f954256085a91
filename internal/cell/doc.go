// Package cell implements the versioned state variables of a simulation.
//
// A cell owns one typed piece of state S and is changed only by effects F
// emitted into the current instant. Its value at any point is the fold of
// every committed event graph (through the cell kind's effect trait) over
// its initial state, interleaved with the passage of time.
//
// Cells are declared up front in a Layout and addressed by typed Refs. A
// Live set binds a layout to one simulation run's timeline and caches each
// cell's latest state so that forward reads only process new entries.
//
// Cell kinds form a closed set:
//   - LinearIntegration: real volume integrating a rate (Linear state)
//   - Register[T]: a discrete value replaced by Set effects
//   - Counter: an integer changed by commutative increments
//
// INVARIANTS:
//   - Cells never read each other; cross-cell dependencies go through tasks
//   - Cell state changes only when a commit is appended to the timeline
//   - Conflicting concurrent effects are errors, never silently ordered
package cell
