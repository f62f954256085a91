package engine

import "fmt"

// Clock is the logical sequence of one simulation run.
//
// It stamps every scheduling decision with a strictly increasing number:
// task ids are drawn from it, and jobs due at the same instant run in the
// order they were stamped. The Clock counts decisions, not simulated time,
// so replaying a schedule draws the same numbers in the same order.
//
// Not safe for concurrent use; it belongs to the run loop.
type Clock struct {
	seq int64
}

// NewClock creates a clock whose first number is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// NextTaskID draws the id of a new task.
func (c *Clock) NextTaskID() TaskID {
	return TaskID(fmt.Sprintf("task-%d", c.Next()))
}
