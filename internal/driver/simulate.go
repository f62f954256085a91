package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
)

// Simulate runs a complete schedule from time zero to duration and returns
// the results for that window.
//
// Every directive is instantiated before the run starts, so a plan with an
// invalid activity fails without simulating anything.
func Simulate(ctx context.Context, model *MissionModel, schedule []ir.Directive, startTime time.Time, duration ir.Duration, opts ...Option) (engine.SimulationResults, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tasks, err := instantiateAll(model, schedule)
	if err != nil {
		return engine.SimulationResults{}, err
	}

	e, err := startRun(ctx, model, o.engineOpts)
	if err != nil {
		return engine.SimulationResults{}, err
	}
	for i, d := range schedule {
		if _, err := e.ScheduleActivity(d.Start, d.ID, d.Activity, tasks[i]); err != nil {
			return engine.SimulationResults{}, fmt.Errorf("schedule %q: %w", d.ID, err)
		}
	}

	started := time.Now()
	if err := e.RunUntil(ctx, duration); err != nil {
		return engine.SimulationResults{}, err
	}

	slog.Info("simulation complete",
		"model", model.Name,
		"activities", len(schedule),
		"duration", duration,
		"elapsed", time.Since(started),
	)

	return e.ComputeResults(startTime, duration), nil
}
