package effect

import (
	"errors"
	"fmt"
)

// ErrNonCommutative is returned (wrapped) by a Trait when two concurrent
// effects cannot be merged independently of order.
var ErrNonCommutative = errors.New("effects are not commutative")

// Trait is the merge algebra that gives an event graph meaning for one
// effect type.
//
// Implementations must satisfy:
//   - Empty is the identity of both compositions
//   - Sequentially is associative
//   - Concurrently is associative and commutative, or returns an error
//     wrapping ErrNonCommutative when it cannot be
//
// Traits must be safe for concurrent use; in practice they are stateless.
type Trait[F any] interface {
	Empty() F
	Sequentially(prefix, suffix F) F
	Concurrently(left, right F) (F, error)
}

// TraitFuncs builds a Trait from plain functions.
// Useful for ad-hoc projections in tests and tooling.
type TraitFuncs[F any] struct {
	EmptyFunc        func() F
	SequentiallyFunc func(prefix, suffix F) F
	ConcurrentlyFunc func(left, right F) (F, error)
}

func (t TraitFuncs[F]) Empty() F { return t.EmptyFunc() }

func (t TraitFuncs[F]) Sequentially(prefix, suffix F) F {
	return t.SequentiallyFunc(prefix, suffix)
}

func (t TraitFuncs[F]) Concurrently(left, right F) (F, error) {
	return t.ConcurrentlyFunc(left, right)
}

// ConflictError describes two concurrent effects that could not be merged.
type ConflictError struct {
	Left   any
	Right  any
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s (%v | %v)", ErrNonCommutative, e.Reason, e.Left, e.Right)
	}
	return fmt.Sprintf("%v (%v | %v)", ErrNonCommutative, e.Left, e.Right)
}

func (e *ConflictError) Unwrap() error {
	return ErrNonCommutative
}

// NewConflict creates a ConflictError for two concurrent effects.
func NewConflict(left, right any, reason string) *ConflictError {
	return &ConflictError{Left: left, Right: right, Reason: reason}
}

// IsNonCommutative reports whether err signals a concurrent merge conflict.
func IsNonCommutative(err error) bool {
	return errors.Is(err, ErrNonCommutative)
}
