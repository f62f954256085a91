package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/missionmodel"
	"github.com/roach88/missionsim/internal/plan"
	"github.com/roach88/missionsim/internal/store"
	"github.com/roach88/missionsim/internal/testutil"
)

// DefaultStartTime anchors scenarios that give no start_time.
var DefaultStartTime = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the scenario execution engine.
//
// Each scenario runs against a fresh model instance and a fresh in-memory
// store. Results are written to the store and read back before assertions
// run, so every scenario also checks that its results persist losslessly.
type Harness struct {
	models     func(name string) (*driver.MissionModel, error)
	engineOpts []engine.EngineOption
	ids        *testutil.SequentialIDGenerator
}

// Option configures a Harness.
type Option func(*Harness)

// WithModels replaces the mission model registry.
func WithModels(load func(name string) (*driver.MissionModel, error)) Option {
	return func(h *Harness) { h.models = load }
}

// WithEngineOptions passes options to every engine the harness starts.
func WithEngineOptions(opts ...engine.EngineOption) Option {
	return func(h *Harness) { h.engineOpts = append(h.engineOpts, opts...) }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		models: missionmodel.Load,
		ids:    testutil.NewSequentialIDGenerator("dataset"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Resolve the plan (referenced CUE file or inline activities)
//  2. Simulate in the scenario's mode
//  3. Check the outcome against expect_error
//  4. Persist and read back the results
//  5. Build the trace and evaluate assertions
//
// A simulation failure is a scenario failure, reported in Result.Errors.
// The returned error is reserved for scenarios that cannot be run at all.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := scenarioPlan(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	results, simErr := h.simulate(ctx, scenario, p)

	switch {
	case scenario.ExpectError != "" && simErr == nil:
		result.AddError(fmt.Sprintf("expected simulation to fail with %q, but it succeeded", scenario.ExpectError))
		return result, nil
	case scenario.ExpectError != "" && !strings.Contains(simErr.Error(), scenario.ExpectError):
		result.AddError(fmt.Sprintf("expected error containing %q, got: %v", scenario.ExpectError, simErr))
		return result, nil
	case scenario.ExpectError != "":
		return result, nil
	case simErr != nil:
		result.AddError(fmt.Sprintf("simulation failed: %v", simErr))
		return result, nil
	}

	stored, err := h.roundTrip(ctx, p, results)
	if err != nil {
		return nil, err
	}
	result.DatasetID = stored.ID
	result.Results = stored.Results
	result.Trace = BuildTrace(stored.Results)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// simulate runs the plan in the scenario's mode. In both mode the batch
// and incremental results must be byte-identical.
func (h *Harness) simulate(ctx context.Context, scenario *Scenario, p *plan.Plan) (engine.SimulationResults, error) {
	switch scenario.Mode {
	case ModeIncremental:
		return h.simulateIncremental(ctx, p)
	case ModeBoth:
		batch, batchErr := h.simulateBatch(ctx, p)
		incr, incrErr := h.simulateIncremental(ctx, p)
		if batchErr != nil || incrErr != nil {
			if (batchErr == nil) != (incrErr == nil) {
				return engine.SimulationResults{}, fmt.Errorf("batch and incremental disagree: batch error %v, incremental error %v", batchErr, incrErr)
			}
			return engine.SimulationResults{}, batchErr
		}
		if err := sameResults(batch, incr); err != nil {
			return engine.SimulationResults{}, err
		}
		return batch, nil
	default:
		return h.simulateBatch(ctx, p)
	}
}

func (h *Harness) model(p *plan.Plan) (*driver.MissionModel, error) {
	model, err := h.models(p.Model)
	if err != nil {
		return nil, err
	}
	if err := plan.Check(p, model); err != nil {
		return nil, err
	}
	return model, nil
}

func (h *Harness) simulateBatch(ctx context.Context, p *plan.Plan) (engine.SimulationResults, error) {
	model, err := h.model(p)
	if err != nil {
		return engine.SimulationResults{}, err
	}
	return driver.Simulate(ctx, model, p.Activities, p.StartTime, p.Duration,
		driver.WithEngineOptions(h.engineOpts...))
}

// simulateIncremental inserts the activities one at a time in plan order.
func (h *Harness) simulateIncremental(ctx context.Context, p *plan.Plan) (engine.SimulationResults, error) {
	model, err := h.model(p)
	if err != nil {
		return engine.SimulationResults{}, err
	}
	d, err := driver.NewIncrementalDriver(ctx, model, p.StartTime,
		driver.WithEngineOptions(h.engineOpts...),
		driver.WithHorizon(p.Duration),
	)
	if err != nil {
		return engine.SimulationResults{}, err
	}
	for _, dir := range p.Activities {
		if err := d.SimulateActivity(ctx, dir.Activity, dir.Start, dir.ID); err != nil {
			return engine.SimulationResults{}, fmt.Errorf("insert %q: %w", dir.ID, err)
		}
	}
	return d.SimulationResultsUntil(p.Duration), nil
}

func sameResults(batch, incremental engine.SimulationResults) error {
	b, err := batch.Canonical()
	if err != nil {
		return err
	}
	i, err := incremental.Canonical()
	if err != nil {
		return err
	}
	if !bytes.Equal(b, i) {
		return fmt.Errorf("incremental results differ from batch results (digests %s vs %s)",
			ir.ResultsHash(b), ir.ResultsHash(i))
	}
	return nil
}

// roundTrip writes results to a scratch store and reads them back.
func (h *Harness) roundTrip(ctx context.Context, p *plan.Plan, results engine.SimulationResults) (store.Dataset, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return store.Dataset{}, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	revision, err := st.WritePlan(ctx, p)
	if err != nil {
		return store.Dataset{}, err
	}
	id, _, err := st.WriteDataset(ctx, store.Dataset{
		ID:           h.ids.Generate(),
		PlanID:       p.Name,
		PlanRevision: revision,
		Results:      results,
	})
	if err != nil {
		return store.Dataset{}, err
	}
	return st.ReadDataset(ctx, id)
}

// scenarioPlan builds the plan a scenario simulates.
func scenarioPlan(s *Scenario) (*plan.Plan, error) {
	var p *plan.Plan
	if s.Plan != "" {
		loaded, err := plan.LoadFile(s.Plan)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		p = loaded
	} else {
		p = &plan.Plan{StartTime: DefaultStartTime}
		for i, a := range s.Activities {
			args, err := ir.FromGo(a.Args)
			if err != nil {
				return nil, fmt.Errorf("activities[%d]: args: %w", i, err)
			}
			obj, _ := args.(ir.IRObject)
			if obj == nil {
				obj = ir.IRObject{}
			}
			p.Activities = append(p.Activities, ir.Directive{
				ID:       ir.ActivityInstanceID(a.ID),
				Start:    a.Start,
				Activity: ir.SerializedActivity{Type: a.Type, Arguments: obj},
			})
		}
	}

	p.Name = s.Name
	p.Model = s.Model
	if s.StartTime != nil {
		p.StartTime = s.StartTime.UTC()
	}
	if s.Duration != nil {
		p.Duration = *s.Duration
	}
	return p, nil
}
