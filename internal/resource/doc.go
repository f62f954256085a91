// Package resource turns cell state into caller-facing time series.
//
// A resource is a read-only function of cells that yields Dynamics: either
// Linear (a value changing at a constant rate per second) or Constant (a
// discrete value that holds until the next change). Recording a resource's
// dynamics every time its cells change produces a Profile, a sequence of
// segments closed on the left whose last segment extends indefinitely.
//
// From a profile the package derives:
//   - Sample: one serialized value per requested timestamp, in caller order
//   - Approximate: validity windows paired with values or linear coefficients
//   - FirstSatisfied: the static membership test used by discrete conditions
//
// Conditions (ValueIn, RealAbove, RealBelow, Predicate) compute the earliest
// offset within a window at which a resource satisfies a predicate, given
// the current dynamics. The engine re-evaluates them whenever a cell they
// read changes.
package resource
