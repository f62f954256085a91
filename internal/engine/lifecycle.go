package engine

import (
	"fmt"

	"github.com/qmuntal/stateless"
)

// TaskState is a task's lifecycle state.
//
//	Spawned ──start──▶ Running ──┬─delay────▶ AwaitingDelay ─────┐
//	                     ▲       ├─condition▶ AwaitingCondition ─┤
//	                     │       ├─child────▶ AwaitingChild ─────┤
//	                     │       ├─complete─▶ Complete           │
//	                     │       └─fail─────▶ Failed             │
//	                     └────────────────resume─────────────────┘
type TaskState string

const (
	StateSpawned           TaskState = "Spawned"
	StateRunning           TaskState = "Running"
	StateAwaitingDelay     TaskState = "AwaitingDelay"
	StateAwaitingCondition TaskState = "AwaitingCondition"
	StateAwaitingChild     TaskState = "AwaitingChild"
	StateComplete          TaskState = "Complete"
	StateFailed            TaskState = "Failed"
)

type taskTrigger string

const (
	triggerStart     taskTrigger = "start"
	triggerDelay     taskTrigger = "delay"
	triggerCondition taskTrigger = "condition"
	triggerChild     taskTrigger = "child"
	triggerResume    taskTrigger = "resume"
	triggerComplete  taskTrigger = "complete"
	triggerFail      taskTrigger = "fail"
)

// lifecycle enforces legal task state transitions.
// Transitions only ever happen from the engine's run loop, at batch
// boundaries.
type lifecycle struct {
	fsm *stateless.StateMachine
}

func newLifecycle() *lifecycle {
	fsm := stateless.NewStateMachine(StateSpawned)

	fsm.Configure(StateSpawned).
		Permit(triggerStart, StateRunning)

	fsm.Configure(StateRunning).
		Permit(triggerDelay, StateAwaitingDelay).
		Permit(triggerCondition, StateAwaitingCondition).
		Permit(triggerChild, StateAwaitingChild).
		Permit(triggerComplete, StateComplete).
		Permit(triggerFail, StateFailed)

	for _, waiting := range []TaskState{StateAwaitingDelay, StateAwaitingCondition, StateAwaitingChild} {
		fsm.Configure(waiting).
			Permit(triggerResume, StateRunning)
	}

	return &lifecycle{fsm: fsm}
}

// State returns the current lifecycle state.
func (l *lifecycle) State() TaskState {
	return l.fsm.MustState().(TaskState)
}

// Fire applies a transition. An illegal transition is an engine bug and is
// reported with the state it was attempted from.
func (l *lifecycle) Fire(trigger taskTrigger) error {
	from := l.State()
	if err := l.fsm.Fire(trigger); err != nil {
		return fmt.Errorf("task lifecycle: %s from %s: %w", trigger, from, err)
	}
	return nil
}

// Run moves a spawned or waiting task into Running.
func (l *lifecycle) Run() error {
	if l.State() == StateSpawned {
		return l.Fire(triggerStart)
	}
	return l.Fire(triggerResume)
}

// Terminal reports whether the task has completed or failed.
func (l *lifecycle) Terminal() bool {
	s := l.State()
	return s == StateComplete || s == StateFailed
}
