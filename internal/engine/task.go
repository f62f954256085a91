package engine

import (
	"fmt"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

// TaskID identifies a task within one simulation run.
// Ids are assigned from the run's Clock, so replays assign the same ids.
type TaskID string

// Task is a resumable unit of simulated behavior.
//
// Step runs the task from its current resumption point until it yields,
// and returns a Status describing why it yielded. Every non-terminal status
// carries the continuation to run when the task is resumed. A task never
// blocks inside Step: waiting is expressed by returning a status.
type Task interface {
	Step(ctx Context) (Status, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx Context) (Status, error)

// Step implements Task.
func (f TaskFunc) Step(ctx Context) (Status, error) {
	return f(ctx)
}

// Context is the capability set of a running task.
//
// Reads see committed state plus every event the task (and, for spawned
// children, its ancestors up to the spawn point) emitted earlier in the
// current instant. Emitted events become visible to other tasks only when
// the instant commits.
//
// A Context is valid only during the Step call it was passed to.
type Context interface {
	cell.Querier
	cell.Emitter

	// Now returns the elapsed simulated time since the run started.
	Now() ir.Duration

	// Task returns the id of the running task.
	Task() TaskID

	// Spawn starts an anonymous child that runs concurrently with the rest
	// of this task's instant.
	Spawn(child Task) TaskID

	// SpawnActivity starts a child task reported as its own activity.
	SpawnActivity(activity ir.SerializedActivity, child Task) TaskID

	// Defer starts an anonymous child after a delay.
	Defer(delay ir.Duration, child Task) TaskID
}

// Status is the reason a task yielded. The set of statuses is closed.
type Status interface {
	isStatus()
}

// Completed means the task has finished.
type Completed struct{}

// Delayed means the task resumes after Duration.
type Delayed struct {
	Duration ir.Duration
	Next     Task
}

// Calling means the task spawned Child and resumes once it completes.
type Calling struct {
	Child Task
	Next  Task
}

// AwaitingTask means the task resumes once the task ID completes.
type AwaitingTask struct {
	ID   TaskID
	Next Task
}

// AwaitingCondition means the task resumes at the first instant the
// condition holds.
type AwaitingCondition struct {
	Condition resource.Condition
	Next      Task
}

func (Completed) isStatus()         {}
func (Delayed) isStatus()           {}
func (Calling) isStatus()           {}
func (AwaitingTask) isStatus()      {}
func (AwaitingCondition) isStatus() {}

// Complete returns the Completed status.
func Complete() (Status, error) {
	return Completed{}, nil
}

// Delay returns a Delayed status resuming next after d.
func Delay(d ir.Duration, next Task) (Status, error) {
	if d < 0 {
		return nil, fmt.Errorf("negative delay %s", d)
	}
	return Delayed{Duration: d, Next: next}, nil
}

// Call returns a Calling status that runs child and resumes next afterwards.
func Call(child, next Task) (Status, error) {
	return Calling{Child: child, Next: next}, nil
}

// Await returns an AwaitingTask status resuming next once id completes.
func Await(id TaskID, next Task) (Status, error) {
	return AwaitingTask{ID: id, Next: next}, nil
}

// WaitUntil returns an AwaitingCondition status resuming next once cond holds.
func WaitUntil(cond resource.Condition, next Task) (Status, error) {
	return AwaitingCondition{Condition: cond, Next: next}, nil
}

// Done is a task that completes immediately. Useful as the last
// continuation of a chain.
var Done = TaskFunc(func(Context) (Status, error) { return Complete() })
