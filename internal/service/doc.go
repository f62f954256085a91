// Package service runs plans through the simulation driver and keeps one
// results dataset per plan revision.
//
// # Caching
//
// Results are keyed by (plan id, revision). A lookup checks the in-memory
// cache first, then the store, and only then simulates. Concurrent requests
// for the same key share a single simulation. Failed simulations are not
// cached.
//
// INVARIANTS:
//   - A revision is simulated at most once per Service while it succeeds
//   - A stored dataset always hashes to its recorded digest
//   - Editing a plan changes its revision, so stale results are never served
package service
