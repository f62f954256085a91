package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/timeline"
)

var errFrameClosed = errors.New("task context used after its step returned")

// frame is the Context of one task step.
//
// The task's events are split at every spawn: bases[i] holds the events
// emitted before children[i] was spawned, and the last base holds the
// events after the final spawn.
type frame struct {
	engine    *Engine
	task      *taskRecord
	inherited timeline.Graph
	bases     []timeline.Graph
	children  []TaskID
	err       error
	closed    bool
}

var _ Context = (*frame)(nil)

func newFrame(e *Engine, rec *taskRecord, inherited timeline.Graph) *frame {
	return &frame{
		engine:    e,
		task:      rec,
		inherited: inherited,
		bases:     []timeline.Graph{effect.Empty[timeline.Event]()},
	}
}

// fail records the first error; it is reported once the step returns.
func (f *frame) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

// local returns every event visible to this task that is not yet committed.
func (f *frame) local() timeline.Graph {
	return effect.Sequentially(f.inherited, effect.SequentiallyAll(f.bases...))
}

func (f *frame) Query(topic timeline.Topic) any {
	layout := f.engine.layout
	state, err := f.engine.readCommitted(topic)
	if err == nil {
		state, err = layout.Apply(topic, state, f.local())
	}
	if err != nil {
		f.fail(err)
		state, _ = layout.Initial(topic)
	}
	return state
}

func (f *frame) Emit(ev timeline.Event) {
	if f.closed {
		f.fail(errFrameClosed)
		return
	}
	last := len(f.bases) - 1
	f.bases[last] = effect.Sequentially(f.bases[last], effect.Atom(ev))
}

func (f *frame) Now() ir.Duration {
	return f.engine.Now()
}

func (f *frame) Task() TaskID {
	return f.task.id
}

func (f *frame) Spawn(child Task) TaskID {
	return f.spawn(child, nil)
}

func (f *frame) SpawnActivity(activity ir.SerializedActivity, child Task) TaskID {
	return f.spawn(child, &activity)
}

func (f *frame) spawn(child Task, activity *ir.SerializedActivity) TaskID {
	e := f.engine
	rec := e.newTask(child, f.task.id, nil, e.Now())
	if activity != nil {
		id := e.childActivityID(f.task.id, rec.id)
		rec.activity = &activityInfo{id: id, activity: *activity}
		e.activities[id] = rec.id
	}
	if f.closed {
		// Spawning from a stale context cannot join the instant's graph.
		f.fail(errFrameClosed)
		return rec.id
	}
	f.children = append(f.children, rec.id)
	f.bases = append(f.bases, effect.Empty[timeline.Event]())
	return rec.id
}

func (f *frame) Defer(delay ir.Duration, child Task) TaskID {
	e := f.engine
	now := e.Now()
	if delay < 0 || delay > ir.MaxDuration-now {
		rec := e.newTask(child, f.task.id, nil, now)
		f.fail(fmt.Errorf("defer delay %s out of range", delay))
		return rec.id
	}
	rec := e.newTask(child, f.task.id, nil, now+delay)
	if f.closed {
		f.fail(errFrameClosed)
		return rec.id
	}
	e.schedule.Schedule(JobID{Kind: TaskJob, Task: rec.id}, rec.start)
	return rec.id
}
