// Package engine implements the discrete-event task scheduler.
//
// # Replay and Determinism
//
// This file documents why simulating the same schedule twice produces
// byte-identical results, which is what the incremental driver relies on
// when it resets and replays a plan.
//
// ## Structural Determinism
//
// Determinism in missionsim is STRUCTURAL, not a special "replay mode".
// The same code path handles the first run and every replay.
//
// Four mechanisms enforce it:
//
// 1. Logical sequence numbers
//
//	task id  = "task-" + Clock.Next()
//	job seq  = Clock.Next()
//
// Tasks and jobs are numbered in the order the run creates them, which
// depends only on the schedule and the model.
//
// 2. Ordered batches
//
// Jobs at the same instant run in (re)scheduling order. Children spawned
// within an instant run in spawn order, after their parent yields.
//
// 3. Order-independent merging
//
// Concurrent effects are merged by the cell kind's trait, which is
// commutative or fails. No merge ever depends on which task ran first.
//
// 4. Canonical serialization
//
//	SimulationResults.Canonical()
//
// Results serialize through RFC 8785 canonical JSON (sorted keys, shortest
// reals), so equal results are equal bytes.
//
// ## Reset and Replay
//
// The engine cannot rewind. When an activity is inserted at or before the
// current time, the driver discards the engine and builds a new one:
//
//	[new Engine] → [daemon at 0] → [every inserted activity at its start]
//	                                          ↓
//	                               [run until all complete]
//
// Because of the mechanisms above, activities unaffected by the insertion
// simulate exactly as before.
//
// ## Key Functions
//
//   - Engine.Step: one instant, single writer
//   - jobSchedule.ExtractNext: deterministic batch selection
//   - cell.Layout.Validate: conflict check before commit
//   - SimulationResults.Digest: content hash for replay comparison
package engine
