// Package engine implements the discrete-event task scheduler.
//
// The engine is the heart of missionsim: it runs resumable tasks against
// the cells of a mission model, advances simulated time only to instants
// where work is scheduled, and records everything that happens on an
// append-only timeline.
//
// ARCHITECTURE:
//
// Single-Writer Batch Loop:
// One Engine is one simulation run. All scheduling, task execution and
// commits happen in the caller's goroutine, one instant at a time. This
// ensures:
//   - Identical runs for identical schedules
//   - No locks around cell state
//   - Simple reasoning about causality
//
// Instant Processing Flow:
//  1. ExtractNext picks every job at the earliest pending time (one batch)
//  2. Time advances; the delta is appended to the timeline
//  3. Each job resumes its task until it yields; spawned children run in
//     the same instant, concurrently with the rest of their parent
//  4. The batch's event graph is checked for conflicts and committed
//  5. Resources and conditions that read a touched cell are re-evaluated
//
// Tasks are explicit step functions (Task.Step) returning a Status. A
// task never blocks: delay, call, await-task and await-condition are all
// statuses carrying the continuation to resume. Lifecycle transitions are
// enforced by a state machine per task.
//
// CRITICAL PATTERNS:
//
// Logical Time:
// Simulated time is an ir.Duration on the timeline. Ordering within an
// instant comes from the Clock's sequence numbers. NEVER read wall-clock
// time inside the engine.
//
// Commit-Only Visibility:
// Cells change only at commit. A task sees its own uncommitted events (and
// those of its ancestors up to its spawn point); nothing else does.
//
// Fail-Stop:
// A failing task or a non-commutative commit aborts the whole run. There
// are no retries; the caller decides what to do with the error.
package engine
