package harness

import (
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
)

// Trace event kinds.
const (
	KindResource      = "resource"
	KindActivityStart = "activity_start"
	KindActivityEnd   = "activity_end"
)

// TraceEvent is one observable change in a simulation run.
type TraceEvent struct {
	At   ir.Duration `json:"at"`
	Kind string      `json:"kind"`

	// Name is the resource name or the activity instance id.
	Name string `json:"name"`

	// Type is the activity type (activity_start only).
	Type string `json:"type,omitempty"`

	// Value is the new resource value (resource only).
	Value ir.IRValue `json:"value,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the run behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists resource changes and activity boundaries in time order.
	// Empty when the simulation failed.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// DatasetID identifies the results in the scenario's scratch store.
	DatasetID string `json:"dataset_id,omitempty"`

	// Results are the simulation results as read back from the store.
	Results engine.SimulationResults `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
