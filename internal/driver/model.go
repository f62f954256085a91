package driver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

var (
	// ErrUnknownActivityType is returned when a plan names an activity type
	// the mission model does not define.
	ErrUnknownActivityType = errors.New("unknown activity type")

	// ErrInvalidArguments is returned when activity arguments cannot be
	// decoded into the parameters the activity type expects.
	ErrInvalidArguments = errors.New("invalid activity arguments")
)

// ActivityType builds tasks for one kind of activity.
//
// Instantiate must validate args completely. A task it returns is assumed
// to be runnable; argument problems must never surface mid-simulation.
type ActivityType interface {
	Instantiate(args ir.IRObject) (engine.Task, error)
}

// ActivityTypeFunc adapts a function to ActivityType.
type ActivityTypeFunc func(args ir.IRObject) (engine.Task, error)

// Instantiate implements ActivityType.
func (f ActivityTypeFunc) Instantiate(args ir.IRObject) (engine.Task, error) {
	return f(args)
}

// NamedResource is a resource recorded under a stable name.
type NamedResource struct {
	Name     string
	Resource resource.Resource
}

// MissionModel is the contract between a model and the drivers.
//
// The Layout is shared by every run of the model and must not be modified
// after construction. Daemon, when set, is called once per run to build
// that run's daemon task.
type MissionModel struct {
	Name       string
	Layout     *cell.Layout
	Resources  []NamedResource
	Activities map[string]ActivityType
	Daemon     func() engine.Task
}

// Validate checks the model for configuration errors.
func (m *MissionModel) Validate() error {
	if m.Layout == nil {
		return fmt.Errorf("mission model %q: no cell layout", m.Name)
	}
	seen := make(map[string]bool, len(m.Resources))
	for _, r := range m.Resources {
		if r.Name == "" {
			return fmt.Errorf("mission model %q: resource with empty name", m.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("mission model %q: duplicate resource %q", m.Name, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// ActivityTypes returns the names of the model's activity types, sorted.
func (m *MissionModel) ActivityTypes() []string {
	return slices.Sorted(maps.Keys(m.Activities))
}

// Instantiate builds the task for a serialized activity.
// Errors wrap ErrUnknownActivityType or ErrInvalidArguments.
func (m *MissionModel) Instantiate(activity ir.SerializedActivity) (engine.Task, error) {
	typ, ok := m.Activities[activity.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivityType, activity.Type)
	}
	args := activity.Arguments
	if args == nil {
		args = ir.IRObject{}
	}
	task, err := typ.Instantiate(args)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return nil, fmt.Errorf("activity %q: %w", activity.Type, err)
		}
		return nil, fmt.Errorf("activity %q: %w: %w", activity.Type, ErrInvalidArguments, err)
	}
	return task, nil
}

// startRun builds an engine for the model: resources are tracked from time
// zero and the daemon's first step is committed before anything else.
func startRun(ctx context.Context, m *MissionModel, opts []engine.EngineOption) (*engine.Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	e := engine.New(m.Layout, opts...)
	for _, r := range m.Resources {
		if err := e.TrackResource(r.Name, r.Resource); err != nil {
			return nil, err
		}
	}

	if m.Daemon != nil {
		if _, err := e.ScheduleTask(0, m.Daemon()); err != nil {
			return nil, err
		}
		if _, err := e.Step(ctx, 0); err != nil {
			return nil, fmt.Errorf("daemon: %w", err)
		}
	}
	return e, nil
}

// instantiateAll builds a task for every directive, failing on the first
// invalid one. Nothing is scheduled.
func instantiateAll(m *MissionModel, directives []ir.Directive) ([]engine.Task, error) {
	tasks := make([]engine.Task, len(directives))
	seen := make(map[ir.ActivityInstanceID]bool, len(directives))
	for i, d := range directives {
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate activity id %q", d.ID)
		}
		seen[d.ID] = true
		if d.Start < 0 {
			return nil, fmt.Errorf("activity %q: negative start offset %s", d.ID, d.Start)
		}
		task, err := m.Instantiate(d.Activity)
		if err != nil {
			return nil, fmt.Errorf("activity %q: %w", d.ID, err)
		}
		tasks[i] = task
	}
	return tasks, nil
}
