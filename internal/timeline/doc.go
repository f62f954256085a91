// Package timeline implements the append-only log of a simulation run.
//
// A Timeline is a strictly time-ordered sequence of entries. Each entry is
// either a Delta (simulated time advanced by a positive duration) or a
// Commit (the event graph of one instant, applied atomically). Replaying
// the entries from the start reconstructs every cell's state at any
// position.
//
// A History is a read-only cursor bound to a position on a timeline. Cells
// answer "value as of here" queries against a History; nothing can be
// mutated through it.
//
// INVARIANTS:
//   - Entries are never modified or removed once appended
//   - Delta entries are strictly positive; zero advances are not recorded
//   - Empty commits are not recorded
//   - A Timeline lives exactly as long as one simulation run
package timeline
