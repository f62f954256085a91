package cell

import (
	"fmt"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
)

// Set is the effect of a register cell: either nothing, or "replace the
// value with v".
type Set[T comparable] struct {
	value T
	ok    bool
}

// SetTo returns an effect replacing a register's value.
func SetTo[T comparable](v T) Set[T] {
	return Set[T]{value: v, ok: true}
}

// Value returns the value set, if any.
func (s Set[T]) Value() (T, bool) {
	return s.value, s.ok
}

func (s Set[T]) String() string {
	if !s.ok {
		return "noop"
	}
	return fmt.Sprintf("set(%v)", s.value)
}

// Register is the cell kind of a discrete value.
//
// Sequential sets are last-wins. Concurrent sets of equal values merge;
// concurrent sets of different values are a conflict. No order is ever
// guessed for a write-write race.
type Register[T comparable] struct{}

func (Register[T]) Empty() Set[T] { return Set[T]{} }

func (Register[T]) Sequentially(prefix, suffix Set[T]) Set[T] {
	if suffix.ok {
		return suffix
	}
	return prefix
}

func (Register[T]) Concurrently(left, right Set[T]) (Set[T], error) {
	if left.ok && right.ok && left.value != right.value {
		return Set[T]{}, effect.NewConflict(left, right, "concurrent register writes")
	}
	if left.ok {
		return left, nil
	}
	return right, nil
}

func (Register[T]) Apply(state T, eff Set[T]) T {
	if eff.ok {
		return eff.value
	}
	return state
}

func (Register[T]) Step(state T, _ ir.Duration) T {
	return state
}
