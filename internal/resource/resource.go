package resource

import (
	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/ir"
)

// Resource is a read-only view of cell state as Dynamics.
type Resource interface {
	Dynamics(q cell.Querier) Dynamics
}

// Real is a real-valued resource with linear dynamics.
type Real struct {
	get func(cell.Querier) Linear
}

var _ Resource = Real{}

// NewReal creates a real resource from a dynamics function.
func NewReal(get func(cell.Querier) Linear) Real {
	return Real{get: get}
}

// VolumeOf exposes a linear integration cell's volume.
func VolumeOf(ref cell.Ref[cell.Linear, cell.LinearEffect]) Real {
	return NewReal(func(q cell.Querier) Linear {
		s := ref.Get(q)
		return Linear{Initial: s.Volume, Rate: s.Rate}
	})
}

// RateOf exposes a linear integration cell's rate as a constant-rate real.
func RateOf(ref cell.Ref[cell.Linear, cell.LinearEffect]) Real {
	return NewReal(func(q cell.Querier) Linear {
		return Linear{Initial: ref.Get(q).Rate}
	})
}

// Get returns the current linear dynamics.
func (r Real) Get(q cell.Querier) Linear {
	return r.get(q)
}

// Dynamics implements Resource.
func (r Real) Dynamics(q cell.Querier) Dynamics {
	return r.get(q)
}

// Discrete is a resource whose value holds until its cells change.
type Discrete[T any] struct {
	get       func(cell.Querier) T
	serialize func(T) ir.IRValue
}

// NewDiscrete creates a discrete resource from a value function and a
// serializer.
func NewDiscrete[T any](get func(cell.Querier) T, serialize func(T) ir.IRValue) Discrete[T] {
	return Discrete[T]{get: get, serialize: serialize}
}

// RegisterOf exposes a register cell's value.
func RegisterOf[T comparable](ref cell.Ref[T, cell.Set[T]], serialize func(T) ir.IRValue) Discrete[T] {
	return NewDiscrete(ref.Get, serialize)
}

// CounterOf exposes a counter cell's value.
func CounterOf(ref cell.Ref[int64, cell.Add]) Discrete[int64] {
	return NewDiscrete(ref.Get, SerializeInt)
}

// Get returns the current value.
func (d Discrete[T]) Get(q cell.Querier) T {
	return d.get(q)
}

// Serialize renders a value with the resource's serializer.
func (d Discrete[T]) Serialize(v T) ir.IRValue {
	return d.serialize(v)
}

// Dynamics implements Resource.
func (d Discrete[T]) Dynamics(q cell.Querier) Dynamics {
	return Constant{Value: d.serialize(d.get(q))}
}

// Serializers for common value types.

func SerializeString(s string) ir.IRValue { return ir.IRString(s) }

func SerializeInt(n int64) ir.IRValue { return ir.IRInt(n) }

func SerializeReal(f float64) ir.IRValue { return ir.IRReal(f) }

func SerializeBool(b bool) ir.IRValue { return ir.IRBool(b) }
