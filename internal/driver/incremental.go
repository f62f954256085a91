package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
)

// Option configures a driver.
type Option func(*options)

type options struct {
	engineOpts []engine.EngineOption
	horizon    ir.Duration
}

func defaultOptions() options {
	return options{horizon: ir.MaxDuration}
}

// WithEngineOptions passes options to every engine the driver builds.
func WithEngineOptions(opts ...engine.EngineOption) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithHorizon bounds how far the incremental driver simulates while
// waiting for inserted activities to complete. Activities still running at
// the horizon are reported as unfinished.
//
// Default: unbounded.
func WithHorizon(d ir.Duration) Option {
	return func(o *options) {
		o.horizon = d
	}
}

// IncrementalDriver simulates a plan that grows one activity at a time.
//
// After each insertion the driver runs the engine until every inserted
// activity has completed (or nothing is left to run). See the package
// documentation for the forward and reset paths.
//
// Thread-safety: not safe for concurrent use.
type IncrementalDriver struct {
	model     *MissionModel
	startTime time.Time
	opts      options

	engine   *engine.Engine
	inserted []ir.Directive
	planned  []engine.TaskID

	// stale is set when a run stopped part way; the engine may hold
	// activities that were never recorded as inserted.
	stale bool

	results   *engine.SimulationResults
	watermark ir.Duration
	resets    int
}

// NewIncrementalDriver creates a driver with an empty plan. The model's
// daemon runs immediately.
func NewIncrementalDriver(ctx context.Context, model *MissionModel, startTime time.Time, opts ...Option) (*IncrementalDriver, error) {
	d := &IncrementalDriver{
		model:     model,
		startTime: startTime,
		opts:      defaultOptions(),
	}
	for _, opt := range opts {
		opt(&d.opts)
	}
	if err := d.reset(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Now returns the driver's current simulated time.
func (d *IncrementalDriver) Now() ir.Duration {
	return d.engine.Now()
}

// Inserted returns the activities simulated so far, in insertion order.
func (d *IncrementalDriver) Inserted() []ir.Directive {
	return d.inserted
}

// Resets returns how many times the driver rebuilt its engine to insert an
// activity in the past.
func (d *IncrementalDriver) Resets() int {
	return d.resets
}

// SimulateActivity inserts one activity and simulates it to completion.
func (d *IncrementalDriver) SimulateActivity(ctx context.Context, activity ir.SerializedActivity, start ir.Duration, id ir.ActivityInstanceID) error {
	return d.SimulateActivities(ctx, ir.Directive{ID: id, Start: start, Activity: activity})
}

// SimulateActivities inserts several activities at once.
//
// If every new activity starts after the current time they are scheduled
// on the live engine. Otherwise the engine is rebuilt and the whole plan,
// old and new, is simulated again from time zero.
//
// On error the new activities are not recorded as inserted. A run that
// failed (e.g. on conflicting effects) or was cancelled is rebuilt on the
// next insertion.
func (d *IncrementalDriver) SimulateActivities(ctx context.Context, directives ...ir.Directive) error {
	if len(directives) == 0 {
		return nil
	}

	plan := append(append([]ir.Directive(nil), d.inserted...), directives...)
	if _, err := instantiateAll(d.model, plan); err != nil {
		return err
	}

	forward := d.engine.Err() == nil && !d.stale
	for _, dir := range directives {
		if dir.Start <= d.engine.Now() {
			forward = false
		}
	}

	d.results = nil
	if forward {
		if err := d.simulate(ctx, directives); err != nil {
			d.stale = true
			return err
		}
		d.inserted = plan
		return nil
	}

	slog.Debug("incremental driver reset",
		"model", d.model.Name,
		"at", d.engine.Now(),
		"replaying", len(plan),
	)
	d.resets++
	if err := d.reset(ctx); err != nil {
		return err
	}
	if err := d.simulate(ctx, plan); err != nil {
		d.stale = true
		return err
	}
	d.inserted = plan
	return nil
}

func (d *IncrementalDriver) reset(ctx context.Context) error {
	e, err := startRun(ctx, d.model, d.opts.engineOpts)
	if err != nil {
		return err
	}
	d.engine = e
	d.stale = false
	d.planned = nil
	d.results = nil
	d.watermark = 0
	return nil
}

// simulate schedules directives on the live engine and runs until all of
// them complete, nothing is left to run, or the horizon is reached.
func (d *IncrementalDriver) simulate(ctx context.Context, directives []ir.Directive) error {
	tasks, err := instantiateAll(d.model, directives)
	if err != nil {
		return err
	}

	for i, dir := range directives {
		id, err := d.engine.ScheduleActivity(dir.Start, dir.ID, dir.Activity, tasks[i])
		if err != nil {
			return fmt.Errorf("schedule %q: %w", dir.ID, err)
		}
		d.planned = append(d.planned, id)
	}

	for !d.allComplete() {
		ran, err := d.engine.Step(ctx, d.opts.horizon)
		if err != nil {
			return err
		}
		if !ran {
			break
		}
	}
	return nil
}

// allComplete reports whether every planned activity's task completed.
func (d *IncrementalDriver) allComplete() bool {
	for _, id := range d.planned {
		if !d.engine.IsTaskComplete(id) {
			return false
		}
	}
	return true
}

// SimulationResults returns results from time zero to the current time.
func (d *IncrementalDriver) SimulationResults() engine.SimulationResults {
	return d.SimulationResultsUntil(d.engine.Now())
}

// SimulationResultsUntil returns results covering at least [0, end].
// Results computed earlier are returned unchanged when they already cover
// end and no activity was inserted since.
func (d *IncrementalDriver) SimulationResultsUntil(end ir.Duration) engine.SimulationResults {
	if d.results != nil && end <= d.watermark {
		return *d.results
	}
	r := d.engine.ComputeResults(d.startTime, end)
	d.results = &r
	d.watermark = end
	return r
}

// ActivityDuration returns the duration of a completed activity.
// Asking for an activity that is still running is a usage error
// (engine.IsTaskIncomplete).
func (d *IncrementalDriver) ActivityDuration(id ir.ActivityInstanceID) (ir.Duration, error) {
	task, ok := d.engine.ActivityTask(id)
	if !ok {
		return 0, fmt.Errorf("activity %q has not been simulated", id)
	}
	return d.engine.TaskDuration(task)
}
