package engine

import (
	"container/heap"
	"fmt"

	"github.com/roach88/missionsim/internal/ir"
)

// JobKind distinguishes scheduled work.
type JobKind int

const (
	// TaskJob resumes a task whose delay elapsed or whose awaited task completed.
	TaskJob JobKind = iota + 1
	// ConditionJob resumes a task whose awaited condition is satisfied.
	ConditionJob
)

func (k JobKind) String() string {
	switch k {
	case TaskJob:
		return "task"
	case ConditionJob:
		return "condition"
	default:
		return fmt.Sprintf("JobKind(%d)", int(k))
	}
}

// JobID keys a scheduled job. Scheduling a job that is already pending
// replaces its time instead of adding a duplicate.
type JobID struct {
	Kind JobKind
	Task TaskID
}

func (j JobID) String() string {
	return j.Kind.String() + ":" + string(j.Task)
}

type scheduledJob struct {
	id    JobID
	at    ir.Duration
	seq   int64 // tie-break within an instant
	index int   // heap position
}

// jobSchedule is a priority queue of pending jobs ordered by (time, seq).
//
// Jobs that share the minimum time form one batch. Within a batch, jobs
// are returned in the order they were (re)scheduled, which makes batches
// identical across replays of the same schedule.
//
// Thread-safety: not safe for concurrent use. Owned by the Engine.
type jobSchedule struct {
	clock *Clock
	byID  map[JobID]*scheduledJob
	heap  jobHeap
}

func newJobSchedule(clock *Clock) *jobSchedule {
	return &jobSchedule{
		clock: clock,
		byID:  make(map[JobID]*scheduledJob),
	}
}

// Schedule adds a job or moves an already pending one to a new time.
func (s *jobSchedule) Schedule(id JobID, at ir.Duration) {
	if job, ok := s.byID[id]; ok {
		job.at = at
		job.seq = s.clock.Next()
		heap.Fix(&s.heap, job.index)
		return
	}
	job := &scheduledJob{id: id, at: at, seq: s.clock.Next()}
	s.byID[id] = job
	heap.Push(&s.heap, job)
}

// Unschedule removes a pending job. Returns false if it was not pending.
func (s *jobSchedule) Unschedule(id JobID) bool {
	job, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, job.index)
	delete(s.byID, id)
	return true
}

// Scheduled returns the pending time of a job.
func (s *jobSchedule) Scheduled(id JobID) (ir.Duration, bool) {
	job, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	return job.at, true
}

// Peek returns the earliest pending time.
func (s *jobSchedule) Peek() (ir.Duration, bool) {
	if len(s.heap) == 0 {
		return 0, false
	}
	return s.heap[0].at, true
}

// ExtractNext removes and returns every job at the earliest pending time,
// provided that time does not exceed maxTime.
func (s *jobSchedule) ExtractNext(maxTime ir.Duration) (ir.Duration, []JobID) {
	at, ok := s.Peek()
	if !ok || at > maxTime {
		return 0, nil
	}

	var batch []JobID
	for len(s.heap) > 0 && s.heap[0].at == at {
		job := heap.Pop(&s.heap).(*scheduledJob)
		delete(s.byID, job.id)
		batch = append(batch, job.id)
	}
	return at, batch
}

// Len returns the number of pending jobs.
func (s *jobSchedule) Len() int {
	return len(s.heap)
}

type jobHeap []*scheduledJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	job := x.(*scheduledJob)
	job.index = len(*h)
	*h = append(*h, job)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	// Nil out the slot so the backing array does not retain the job.
	old[n-1] = nil
	job.index = -1
	*h = old[:n-1]
	return job
}
