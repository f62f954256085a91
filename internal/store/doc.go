// Package store provides SQLite-backed durable storage for plans and
// simulation results datasets.
//
// The store holds:
//   - Plans: the latest revision of each plan, keyed by plan name
//   - Plan activities: the directives of each stored plan
//   - Simulation datasets: one results dataset per (plan, revision)
//   - Resource samples and profiles: the time series of a dataset
//   - Simulated activities: finished and unfinished activity records
//
// # Critical Patterns
//
// Content identity:
//   - Plans are identified by a revision hash over canonical JSON
//   - Datasets carry the results digest; ReadDataset recomputes it and
//     refuses rows that no longer reproduce the recorded digest
//
// Deterministic query results:
//   - Every multi-row query has an explicit ORDER BY
//   - Samples and pieces keep their insertion order via a seq column
//
// Live simulation state is never persisted. Only final results are.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Writes that still hit SQLITE_BUSY or SQLITE_LOCKED are retried with
// jittered exponential backoff.
package store
