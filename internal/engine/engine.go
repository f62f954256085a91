package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/timeline"
)

// Engine is the single-writer scheduler of one simulation run.
//
// The engine owns every piece of run state: tasks, the job schedule, the
// timeline and the live cells. Each Step executes one batch (all jobs
// pending at the earliest time), commits the batch's event graph, and
// re-evaluates resources and conditions that the commit affected.
//
// CRITICAL: All mutations happen in the caller's goroutine. An Engine must
// not be shared between goroutines; independent runs use independent
// engines over the same read-only Layout.
//
// INVARIANTS:
//   - Simulated time never decreases
//   - A batch's events become visible only when the batch commits
//   - Jobs at the same time run in the order they were scheduled
//   - The first error aborts the run; later calls return the same error
type Engine struct {
	layout   *cell.Layout
	timeline *timeline.Timeline
	cells    *cell.Live
	clock    *Clock
	schedule *jobSchedule
	quota    *QuotaEnforcer

	tasks      map[TaskID]*taskRecord
	taskOrder  []TaskID
	activities map[ir.ActivityInstanceID]TaskID

	waits     []*conditionWait
	resources []*trackedResource

	maxBatches    int
	parallelDepth int

	failure error
}

// taskRecord is the scheduler's bookkeeping for one task.
// Parent/child relationships live here, never in the Task values.
type taskRecord struct {
	id       TaskID
	parent   TaskID
	next     Task
	life     *lifecycle
	activity *activityInfo
	start    ir.Duration
	end      ir.Duration
	waiters  []TaskID

	// spawnedActivities numbers child activities for id assignment.
	spawnedActivities int
}

type activityInfo struct {
	id       ir.ActivityInstanceID
	activity ir.SerializedActivity
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxBatchesPerInstant sets how many batches may run at one simulated
// instant before the run is aborted.
//
// Default: DefaultMaxBatchesPerInstant.
// Use WithMaxBatchesPerInstant(10) for testing quota enforcement.
func WithMaxBatchesPerInstant(n int) EngineOption {
	return func(e *Engine) {
		e.maxBatches = n
	}
}

// WithParallelDepth folds large instants on parallel goroutines down to
// the given tree depth when checking them for conflicts. Zero (the
// default) folds sequentially. Results are identical either way.
func WithParallelDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.parallelDepth = depth
	}
}

// New creates an engine at time zero over a model's cell layout.
func New(layout *cell.Layout, opts ...EngineOption) *Engine {
	tl := timeline.New()
	e := &Engine{
		layout:     layout,
		timeline:   tl,
		cells:      cell.NewLive(layout, tl),
		clock:      NewClock(),
		tasks:      make(map[TaskID]*taskRecord),
		activities: make(map[ir.ActivityInstanceID]TaskID),
		maxBatches: DefaultMaxBatchesPerInstant,
	}
	e.schedule = newJobSchedule(e.clock)

	for _, opt := range opts {
		opt(e)
	}
	e.quota = NewQuotaEnforcer(e.maxBatches)

	return e
}

// Now returns the current simulated time.
func (e *Engine) Now() ir.Duration {
	return e.timeline.Now()
}

// Timeline returns the run's timeline. Callers must treat it as read-only.
func (e *Engine) Timeline() *timeline.Timeline {
	return e.timeline
}

// Layout returns the cell layout the engine simulates.
func (e *Engine) Layout() *cell.Layout {
	return e.layout
}

// Err returns the error that aborted the run, if any.
func (e *Engine) Err() error {
	return e.failure
}

// ScheduleTask schedules an anonymous root task (e.g. a daemon) to start at.
func (e *Engine) ScheduleTask(at ir.Duration, task Task) (TaskID, error) {
	if err := e.checkSchedulable(at); err != nil {
		return "", err
	}
	rec := e.newTask(task, "", nil, at)
	e.schedule.Schedule(JobID{Kind: TaskJob, Task: rec.id}, at)
	return rec.id, nil
}

// ScheduleActivity schedules a planned activity's task to start at.
// Activity ids must be unique within a run.
func (e *Engine) ScheduleActivity(at ir.Duration, id ir.ActivityInstanceID, activity ir.SerializedActivity, task Task) (TaskID, error) {
	if err := e.checkSchedulable(at); err != nil {
		return "", err
	}
	if _, dup := e.activities[id]; dup {
		return "", newScheduleError("", e.Now(), fmt.Sprintf("activity %q already scheduled", id))
	}
	rec := e.newTask(task, "", &activityInfo{id: id, activity: activity}, at)
	e.activities[id] = rec.id
	e.schedule.Schedule(JobID{Kind: TaskJob, Task: rec.id}, at)
	return rec.id, nil
}

func (e *Engine) checkSchedulable(at ir.Duration) error {
	if e.failure != nil {
		return e.failure
	}
	if at < e.Now() {
		return newScheduleError("", e.Now(), fmt.Sprintf("cannot schedule at %s before current time %s", at, e.Now()))
	}
	return nil
}

func (e *Engine) newTask(task Task, parent TaskID, activity *activityInfo, start ir.Duration) *taskRecord {
	rec := &taskRecord{
		id:       e.clock.NextTaskID(),
		parent:   parent,
		next:     task,
		life:     newLifecycle(),
		activity: activity,
		start:    start,
	}
	e.tasks[rec.id] = rec
	e.taskOrder = append(e.taskOrder, rec.id)
	return rec
}

// childActivityID names an activity spawned during simulation after its
// nearest activity ancestor: "<ancestor>.<n>". Without an ancestor the
// task id is used.
func (e *Engine) childActivityID(parent TaskID, child TaskID) ir.ActivityInstanceID {
	if anc := e.activityAncestor(parent); anc != nil {
		anc.spawnedActivities++
		return ir.ActivityInstanceID(fmt.Sprintf("%s.%d", anc.activity.id, anc.spawnedActivities))
	}
	return ir.ActivityInstanceID(child)
}

// activityAncestor returns the nearest record at or above id that
// represents an activity.
func (e *Engine) activityAncestor(id TaskID) *taskRecord {
	for id != "" {
		rec := e.tasks[id]
		if rec == nil {
			return nil
		}
		if rec.activity != nil {
			return rec
		}
		id = rec.parent
	}
	return nil
}

// HasPendingJobs reports whether any job is scheduled.
func (e *Engine) HasPendingJobs() bool {
	return e.schedule.Len() > 0
}

// NextJobTime returns the time of the earliest pending job.
func (e *Engine) NextJobTime() (ir.Duration, bool) {
	return e.schedule.Peek()
}

// Step runs the next batch: every job pending at the earliest scheduled
// time, provided that time does not exceed maxTime. Returns false when no
// job is due.
func (e *Engine) Step(ctx context.Context, maxTime ir.Duration) (bool, error) {
	if e.failure != nil {
		return false, e.failure
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	at, jobs := e.schedule.ExtractNext(maxTime)
	if len(jobs) == 0 {
		return false, nil
	}
	if err := e.quota.Check(at); err != nil {
		return false, e.abort(err)
	}
	if err := e.timeline.AppendDelta(at - e.Now()); err != nil {
		return false, e.abort(err)
	}

	graphs := make([]timeline.Graph, 0, len(jobs))
	for _, job := range jobs {
		g, err := e.runJob(job)
		if err != nil {
			return false, e.abort(err)
		}
		graphs = append(graphs, g)
	}
	batch := effect.ConcurrentlyAll(graphs...)

	if err := e.commit(ctx, batch, len(jobs)); err != nil {
		return false, e.abort(err)
	}
	return true, nil
}

// RunUntil runs batches until no job is due at or before maxTime, then
// advances time to maxTime. An unbounded maxTime (ir.MaxDuration) runs to
// quiescence without advancing further.
func (e *Engine) RunUntil(ctx context.Context, maxTime ir.Duration) error {
	for {
		ran, err := e.Step(ctx, maxTime)
		if err != nil {
			return err
		}
		if !ran {
			break
		}
	}
	return e.AdvanceTo(maxTime)
}

// AdvanceTo moves simulated time forward to t without running jobs.
// Jobs pending before t must have been run first.
func (e *Engine) AdvanceTo(t ir.Duration) error {
	if e.failure != nil {
		return e.failure
	}
	if t == ir.MaxDuration || t <= e.Now() {
		return nil
	}
	if next, ok := e.schedule.Peek(); ok && next < t {
		return newScheduleError("", e.Now(), fmt.Sprintf("cannot advance to %s past pending job at %s", t, next))
	}
	return e.timeline.AppendDelta(t - e.Now())
}

func (e *Engine) abort(err error) error {
	slog.Error("simulation aborted",
		"at", e.Now(),
		"error", err,
	)
	e.failure = err
	return err
}

// runJob resumes the task a job belongs to.
func (e *Engine) runJob(job JobID) (timeline.Graph, error) {
	rec, ok := e.tasks[job.Task]
	if !ok {
		return timeline.Graph{}, newScheduleError(job.Task, e.Now(), "job for unknown task")
	}
	if job.Kind == ConditionJob {
		e.dropWait(job.Task)
	}
	return e.runTask(rec, effect.Empty[timeline.Event]())
}

// runTask steps one task until it yields, then runs the children it
// spawned during the step. inherited holds the events of the spawning
// ancestors up to the spawn point; the task reads through them but does not
// re-emit them.
//
// The returned graph is the task's contribution to the instant:
//
//	base₀ ; (child₀ | base₁ ; (child₁ | … baseₙ))
//
// where baseᵢ are the task's own events between spawns.
func (e *Engine) runTask(rec *taskRecord, inherited timeline.Graph) (timeline.Graph, error) {
	if err := rec.life.Run(); err != nil {
		return timeline.Graph{}, err
	}

	f := newFrame(e, rec, inherited)
	task := rec.next
	rec.next = nil

	status, err := task.Step(f)
	if err == nil {
		err = f.err
	}
	if err != nil {
		f.closed = true
		_ = rec.life.Fire(triggerFail)
		return timeline.Graph{}, NewTaskFailedError(rec.id, e.Now(), err)
	}

	err = e.yield(rec, status, f)
	f.closed = true
	if err != nil {
		return timeline.Graph{}, err
	}

	childGraphs := make([]timeline.Graph, len(f.children))
	prefix := inherited
	for i, child := range f.children {
		prefix = effect.Sequentially(prefix, f.bases[i])
		g, err := e.runTask(e.tasks[child], prefix)
		if err != nil {
			return timeline.Graph{}, err
		}
		childGraphs[i] = g
	}

	g := f.bases[len(f.children)]
	for i := len(f.children) - 1; i >= 0; i-- {
		g = effect.Sequentially(f.bases[i], effect.Concurrently(childGraphs[i], g))
	}
	return g, nil
}

// yield records why a task stopped and schedules its resumption.
func (e *Engine) yield(rec *taskRecord, status Status, f *frame) error {
	now := e.Now()

	switch s := status.(type) {
	case Completed:
		if err := rec.life.Fire(triggerComplete); err != nil {
			return err
		}
		rec.end = now
		for _, waiter := range rec.waiters {
			e.schedule.Schedule(JobID{Kind: TaskJob, Task: waiter}, now)
		}
		rec.waiters = nil

	case Delayed:
		if s.Next == nil {
			return NewTaskFailedError(rec.id, now, errors.New("delayed without a continuation"))
		}
		if s.Duration < 0 || s.Duration > ir.MaxDuration-now {
			return NewTaskFailedError(rec.id, now, fmt.Errorf("delay %s out of range", s.Duration))
		}
		rec.next = s.Next
		if err := rec.life.Fire(triggerDelay); err != nil {
			return err
		}
		e.schedule.Schedule(JobID{Kind: TaskJob, Task: rec.id}, now+s.Duration)

	case Calling:
		if s.Child == nil || s.Next == nil {
			return NewTaskFailedError(rec.id, now, errors.New("call without a child or continuation"))
		}
		child := f.Spawn(s.Child)
		rec.next = s.Next
		if err := rec.life.Fire(triggerChild); err != nil {
			return err
		}
		e.tasks[child].waiters = append(e.tasks[child].waiters, rec.id)

	case AwaitingTask:
		if s.ID == rec.id {
			return NewTaskFailedError(rec.id, now, errors.New("task cannot await itself"))
		}
		target, ok := e.tasks[s.ID]
		if !ok {
			return NewTaskFailedError(rec.id, now, fmt.Errorf("await unknown task %q", s.ID))
		}
		if s.Next == nil {
			return NewTaskFailedError(rec.id, now, errors.New("await without a continuation"))
		}
		rec.next = s.Next
		if err := rec.life.Fire(triggerChild); err != nil {
			return err
		}
		if target.life.State() == StateComplete {
			e.schedule.Schedule(JobID{Kind: TaskJob, Task: rec.id}, now)
		} else {
			target.waiters = append(target.waiters, rec.id)
		}

	case AwaitingCondition:
		if s.Condition == nil || s.Next == nil {
			return NewTaskFailedError(rec.id, now, errors.New("condition wait without a condition or continuation"))
		}
		rec.next = s.Next
		if err := rec.life.Fire(triggerCondition); err != nil {
			return err
		}
		e.waits = append(e.waits, &conditionWait{task: rec.id, condition: s.Condition, fresh: true})

	default:
		return NewTaskFailedError(rec.id, now, fmt.Errorf("unknown status %T", status))
	}
	return nil
}

// commit validates and appends the batch graph, then refreshes everything
// that depends on the cells it touched.
func (e *Engine) commit(ctx context.Context, batch timeline.Graph, jobs int) error {
	if err := e.layout.Validate(ctx, batch, e.parallelDepth); err != nil {
		if effect.IsNonCommutative(err) {
			return NewNonCommutativeError(e.Now(), jobs, err)
		}
		return fmt.Errorf("commit at %s: %w", e.Now(), err)
	}

	touched := e.timeline.AppendCommit(batch)

	slog.Debug("instant committed",
		"at", e.Now(),
		"jobs", jobs,
		"events", batch.Len(),
		"cells", len(touched),
	)

	if err := e.refreshResources(touched); err != nil {
		return err
	}
	return e.refreshConditions(touched)
}

// IsTaskComplete reports whether a task has completed.
func (e *Engine) IsTaskComplete(id TaskID) bool {
	rec, ok := e.tasks[id]
	return ok && rec.life.State() == StateComplete
}

// TaskState returns a task's lifecycle state.
func (e *Engine) TaskState(id TaskID) (TaskState, bool) {
	rec, ok := e.tasks[id]
	if !ok {
		return "", false
	}
	return rec.life.State(), true
}

// TaskDuration returns how long a completed task ran.
// Asking before completion is a usage error (ErrCodeTaskIncomplete).
func (e *Engine) TaskDuration(id TaskID) (ir.Duration, error) {
	rec, ok := e.tasks[id]
	if !ok {
		return 0, fmt.Errorf("unknown task %q", id)
	}
	if state := rec.life.State(); state != StateComplete {
		return 0, NewTaskIncompleteError(id, e.Now(), state)
	}
	return rec.end - rec.start, nil
}

// ActivityTask returns the task simulating an activity.
func (e *Engine) ActivityTask(id ir.ActivityInstanceID) (TaskID, bool) {
	t, ok := e.activities[id]
	return t, ok
}

// readCommitted returns a cell's committed state at the current time.
func (e *Engine) readCommitted(topic timeline.Topic) (any, error) {
	return e.cells.State(topic, e.timeline.Point())
}

// recordingQuerier reads committed state and records which cells were
// read, so the reader can be refreshed when one of them changes.
type recordingQuerier struct {
	engine *Engine
	topics []timeline.Topic
	err    error
}

func (q *recordingQuerier) Query(topic timeline.Topic) any {
	q.topics = insertTopic(q.topics, topic)
	state, err := q.engine.readCommitted(topic)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		state, _ = q.engine.layout.Initial(topic)
	}
	return state
}
