package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

// realTolerance absorbs floating point drift in linear evaluation.
const realTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Activity events are listed for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	var lines []string
	for _, event := range e.Trace {
		switch event.Kind {
		case KindActivityStart:
			lines = append(lines, fmt.Sprintf("  %s start %s (%s)", event.At, event.Name, event.Type))
		case KindActivityEnd:
			lines = append(lines, fmt.Sprintf("  %s end   %s", event.At, event.Name))
		}
	}
	if len(lines) > 0 {
		fmt.Fprintf(&buf, "\nActivities:\n%s\n", strings.Join(lines, "\n"))
	}
	return buf.String()
}

// assertResourceAt checks the value of a resource at one instant, read
// from its profile. Linear pieces are evaluated at the requested offset.
func assertResourceAt(r engine.SimulationResults, a Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertResourceAt,
			Expected: fmt.Sprintf("%s = %v at %s", a.Resource, a.Equals, *a.At),
			Actual:   actual,
		}
	}

	pieces, ok := r.ResourceProfiles[a.Resource]
	if !ok {
		return fail(fmt.Sprintf("no resource named %q", a.Resource))
	}
	if *a.At < 0 || *a.At > r.Duration {
		return fail(fmt.Sprintf("%s is outside the simulated window [0, %s]", *a.At, r.Duration))
	}

	actual, ok := valueAt(pieces, *a.At)
	if !ok {
		return fail("no profile piece covers that time")
	}
	if !valuesEqual(a.Equals, actual) {
		return fail(fmt.Sprintf("%s = %s", a.Resource, render(actual)))
	}
	return nil
}

// valueAt returns the value of the last piece starting at or before t.
// The last piece of a results window ends at the window end, so t equal to
// the window end is still covered.
func valueAt(pieces []resource.Piece, t ir.Duration) (ir.IRValue, bool) {
	i := -1
	for j, p := range pieces {
		if p.Window.Start > t {
			break
		}
		i = j
	}
	if i < 0 {
		return nil, false
	}
	piece := pieces[i]
	if !piece.Linear {
		return piece.Value, true
	}

	coeffs, ok := piece.Value.(ir.IRObject)
	if !ok {
		return nil, false
	}
	initial, ok1 := ir.AsReal(coeffs["initial"])
	rate, ok2 := ir.AsReal(coeffs["rate"])
	if !ok1 || !ok2 {
		return nil, false
	}
	return ir.IRReal(resource.Linear{Initial: initial, Rate: rate}.At(t - piece.Window.Start)), true
}

// assertResourceSamples checks a resource's full sample series.
func assertResourceSamples(r engine.SimulationResults, a Assertion) error {
	samples, ok := r.ResourceSamples[a.Resource]
	if !ok {
		return &AssertionError{
			Type:     AssertResourceSamples,
			Expected: fmt.Sprintf("%d samples of %s", len(a.Samples), a.Resource),
			Actual:   fmt.Sprintf("no resource named %q", a.Resource),
		}
	}

	mismatch := len(samples) != len(a.Samples)
	for i := 0; !mismatch && i < len(samples); i++ {
		mismatch = samples[i].Elapsed != a.Samples[i].At || !valuesEqual(a.Samples[i].Value, samples[i].Value)
	}
	if !mismatch {
		return nil
	}

	want := make([]string, len(a.Samples))
	for i, s := range a.Samples {
		want[i] = fmt.Sprintf("%s=%v", s.At, s.Value)
	}
	got := make([]string, len(samples))
	for i, s := range samples {
		got[i] = fmt.Sprintf("%s=%s", s.Elapsed, render(s.Value))
	}
	return &AssertionError{
		Type:     AssertResourceSamples,
		Expected: fmt.Sprintf("%s samples [%s]", a.Resource, strings.Join(want, " ")),
		Actual:   fmt.Sprintf("[%s]", strings.Join(got, " ")),
	}
}

// assertActivity checks one activity's record.
func assertActivity(r engine.SimulationResults, trace []TraceEvent, a Assertion) error {
	id := ir.ActivityInstanceID(a.Activity)
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertActivity, Expected: expected, Actual: actual, Trace: trace}
	}

	var (
		parent   ir.ActivityInstanceID
		children []ir.ActivityInstanceID
	)
	if done, ok := r.SimulatedActivities[id]; ok {
		if a.Unfinished {
			return fail(fmt.Sprintf("%s unfinished", id), fmt.Sprintf("finished after %s", done.Duration))
		}
		if a.Duration != nil && done.Duration != *a.Duration {
			return fail(fmt.Sprintf("%s duration %s", id, *a.Duration), fmt.Sprintf("duration %s", done.Duration))
		}
		parent, children = done.Parent, done.Children
	} else if open, ok := r.UnfinishedActivities[id]; ok {
		if !a.Unfinished {
			return fail(fmt.Sprintf("%s finished", id), "still running at end of window")
		}
		parent, children = open.Parent, open.Children
	} else {
		return fail(fmt.Sprintf("activity %s", id), "not simulated")
	}

	if a.Parent != nil && string(parent) != *a.Parent {
		return fail(fmt.Sprintf("%s parent %q", id, *a.Parent), fmt.Sprintf("parent %q", parent))
	}
	if a.Children != nil {
		got := make([]string, len(children))
		for i, c := range children {
			got[i] = string(c)
		}
		if !slices.Equal(got, a.Children) {
			return fail(fmt.Sprintf("%s children %v", id, a.Children), fmt.Sprintf("children %v", got))
		}
	}
	return nil
}

// assertActivityCount checks how many activities finished.
func assertActivityCount(r engine.SimulationResults, trace []TraceEvent, a Assertion) error {
	if n := len(r.SimulatedActivities); n != *a.Count {
		return &AssertionError{
			Type:     AssertActivityCount,
			Expected: fmt.Sprintf("%d finished activities", *a.Count),
			Actual:   fmt.Sprintf("%d finished activities", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks if activities start in the specified order.
// Activities don't need to be consecutive (intervening starts are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, id := range activityStarts(trace) {
		if _, seen := positions[id]; !seen {
			positions[id] = i + 1 // 1-indexed for readability
		}
	}

	for _, id := range a.Activities {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all activities present: %v", a.Activities),
				Actual:   fmt.Sprintf("missing activity: %s", id),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Activities); i++ {
		prev, curr := a.Activities[i-1], a.Activities[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("activities in order: %v", a.Activities),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// valuesEqual compares a YAML-decoded expectation with a result value.
// Numbers compare within realTolerance regardless of int or real tagging.
func valuesEqual(expected any, actual ir.IRValue) bool {
	want, err := ir.FromGo(expected)
	if err != nil {
		return false
	}
	if w, ok := ir.AsReal(want); ok {
		a, ok := ir.AsReal(actual)
		return ok && math.Abs(w-a) <= realTolerance*math.Max(1, math.Abs(w))
	}
	return ir.Equal(want, actual)
}

func render(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResourceAt:
			err = assertResourceAt(result.Results, assertion)
		case AssertResourceSamples:
			err = assertResourceSamples(result.Results, assertion)
		case AssertActivity:
			err = assertActivity(result.Results, result.Trace, assertion)
		case AssertActivityCount:
			err = assertActivityCount(result.Results, result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d (%s): %v", i, assertion.Type, err))
		}
	}
	return errors
}
