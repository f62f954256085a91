package resource

import (
	"math"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/ir"
)

// Condition is a predicate over resources that a task can wait on.
//
// NextSatisfied returns the earliest offset in window (relative to the
// instant the condition is evaluated) at which the condition holds,
// assuming the current dynamics persist. The engine calls it again after
// any commit that touches a cell the condition read.
type Condition interface {
	NextSatisfied(q cell.Querier, window Window) (ir.Duration, bool)
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(q cell.Querier, window Window) (ir.Duration, bool)

func (f ConditionFunc) NextSatisfied(q cell.Querier, window Window) (ir.Duration, bool) {
	return f(q, window)
}

// ValueIn holds while a discrete resource's value is one of values.
func ValueIn[T any](r Discrete[T], values ...T) Condition {
	targets := make([]ir.IRValue, len(values))
	for i, v := range values {
		targets[i] = r.Serialize(v)
	}
	return ConditionFunc(func(q cell.Querier, window Window) (ir.Duration, bool) {
		return FirstSatisfied(r.Serialize(r.Get(q)), targets, window)
	})
}

// Predicate holds while fn is true of the current state. Only the window
// start is checked, so fn must depend on discrete state only.
func Predicate(fn func(q cell.Querier) bool) Condition {
	return ConditionFunc(func(q cell.Querier, window Window) (ir.Duration, bool) {
		if window.IsEmpty() || !fn(q) {
			return 0, false
		}
		return window.Start, true
	})
}

// RealAbove holds while a real resource is at or above threshold.
func RealAbove(r Real, threshold float64) Condition {
	return ConditionFunc(func(q cell.Querier, window Window) (ir.Duration, bool) {
		return crossing(r.Get(q), window, func(v float64) bool { return v >= threshold }, threshold)
	})
}

// RealBelow holds while a real resource is at or below threshold.
func RealBelow(r Real, threshold float64) Condition {
	return ConditionFunc(func(q cell.Querier, window Window) (ir.Duration, bool) {
		return crossing(r.Get(q), window, func(v float64) bool { return v <= threshold }, threshold)
	})
}

// crossing solves Initial + Rate·t = threshold for the first t in window at
// which holds becomes true. Times round up to the next microsecond.
func crossing(l Linear, window Window, holds func(float64) bool, threshold float64) (ir.Duration, bool) {
	if window.IsEmpty() {
		return 0, false
	}
	if holds(l.At(window.Start)) {
		return window.Start, true
	}
	if l.Rate == 0 {
		return 0, false
	}

	seconds := (threshold - l.Initial) / l.Rate
	if seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) || seconds >= ir.MaxDuration.Seconds() {
		return 0, false
	}
	t := ir.FromSeconds(seconds)
	// Floating point rounding can land a hair short of the threshold.
	for i := 0; i < 2 && !holds(l.At(t)); i++ {
		t++
	}
	if !holds(l.At(t)) || !window.Contains(max(t, window.Start)) {
		return 0, false
	}
	return max(t, window.Start), true
}
