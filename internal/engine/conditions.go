package engine

import (
	"slices"

	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
	"github.com/roach88/missionsim/internal/timeline"
)

// conditionWait is a task suspended on a condition.
//
// After every commit the engine re-evaluates waits that were registered
// during the batch (fresh) or that read a cell the commit touched. A wait
// whose condition is satisfiable has a ConditionJob scheduled at the
// earliest satisfying time; otherwise no job is pending for it.
type conditionWait struct {
	task      TaskID
	condition resource.Condition
	topics    []timeline.Topic
	fresh     bool
}

// refreshConditions re-evaluates affected waits in registration order.
func (e *Engine) refreshConditions(touched []timeline.Topic) error {
	now := e.Now()
	horizon := resource.Window{Start: 0, End: ir.MaxDuration - now}

	for _, w := range e.waits {
		if !w.fresh && !intersects(w.topics, touched) {
			continue
		}
		w.fresh = false

		q := &recordingQuerier{engine: e}
		offset, ok := w.condition.NextSatisfied(q, horizon)
		if q.err != nil {
			return NewTaskFailedError(w.task, now, q.err)
		}
		w.topics = q.topics

		job := JobID{Kind: ConditionJob, Task: w.task}
		if ok {
			e.schedule.Schedule(job, now+offset)
		} else {
			e.schedule.Unschedule(job)
		}
	}
	return nil
}

// dropWait removes the wait of a task whose condition job fired.
func (e *Engine) dropWait(task TaskID) {
	e.waits = slices.DeleteFunc(e.waits, func(w *conditionWait) bool {
		return w.task == task
	})
}

// insertTopic adds topic to an ascending set.
func insertTopic(set []timeline.Topic, topic timeline.Topic) []timeline.Topic {
	i, found := slices.BinarySearch(set, topic)
	if found {
		return set
	}
	return slices.Insert(set, i, topic)
}

// intersects reports whether two ascending topic sets share an element.
func intersects(a, b []timeline.Topic) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}
