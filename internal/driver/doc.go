// Package driver runs mission models on the simulation engine.
//
// A MissionModel bundles everything a run needs: the cell layout, the
// resources to record, the activity types a plan may instantiate, and an
// optional daemon that starts before anything else.
//
// Two drivers are provided:
//
//   - Simulate runs a complete schedule to a fixed horizon in one pass.
//   - IncrementalDriver inserts activities one at a time, for planners that
//     place activities greedily and inspect results between insertions.
//
// # Incremental Insertion
//
// The engine cannot rewind. An activity that starts after the driver's
// current time is scheduled against the live engine and simulated forward.
// An activity that starts at or before the current time forces a reset:
// a fresh engine is built and every previously inserted activity is
// replayed alongside the new one. Engine determinism guarantees that the
// replay reproduces the unaffected activities exactly, so both paths give
// the same results as inserting everything at once.
//
// INVARIANTS:
//   - Activities with invalid arguments are rejected before any task starts
//     and leave the driver unchanged
//   - Cached results are reused only while they cover the requested time
//     and no activity was inserted since they were computed
package driver
