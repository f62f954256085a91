// Package harness runs simulation scenarios as executable tests of a
// mission model.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: peel_then_bite
//	description: "What this scenario validates"
//	model: banananation          # default
//	start_time: "2030-01-01T00:00:00Z"
//	duration: 3s
//	mode: both                   # batch | incremental | both
//	activities:
//	  - id: peel
//	    type: PeelBanana
//	    start: 1s
//	    args: { peelDirection: fromTip }
//	assertions:
//	  - type: resource_at
//	    resource: fruit
//	    at: 1s
//	    equals: 3.5
//	  - type: activity
//	    activity: peel
//	    duration: 0s
//
// A scenario may reference a CUE plan file instead of listing activities:
//
//	plan: ../plans/breakfast.cue
//
// Paths are relative to the scenario file. When a plan is referenced its
// start time and duration apply unless the scenario overrides them.
//
// # Modes
//
// batch simulates the whole schedule at once. incremental inserts the
// activities one at a time, in the listed order, through the incremental
// driver. both does the two and fails unless their canonical results are
// byte-identical.
//
// # Expected Failures
//
// expect_error names a substring of the error a scenario must fail with,
// e.g. a conflict between concurrent effects. Such scenarios need no
// assertions.
//
// # Traces
//
// Each run produces a trace: activity starts and ends plus every change of
// a resource value, ordered by time. RunWithGolden compares the canonical
// JSON of the trace against testdata/golden/<name>.golden.
package harness
