// Package ir provides the shared records exchanged between the simulation
// core and its collaborators.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - IRValue is a sealed union: null, bool, int, real, string, array, object
//   - Duration is a logical offset in microseconds, never wall-clock time
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing and
//     byte-level comparison of results
//   - All JSON tags use snake_case
package ir
