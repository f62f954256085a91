package resource

import (
	"fmt"

	"github.com/roach88/missionsim/internal/ir"
)

// Dynamics describes how a resource's value evolves from the start of a
// segment. The set of implementations is closed: Linear and Constant.
type Dynamics interface {
	// ValueAt returns the serialized value after elapsed time within a segment.
	ValueAt(elapsed ir.Duration) ir.IRValue

	// Continues reports whether other, starting elapsed after d, describes
	// exactly the same behavior. Used to avoid recording redundant segments.
	Continues(other Dynamics, elapsed ir.Duration) bool

	isDynamics()
}

// Linear is value = Initial + Rate·t, with t in seconds.
type Linear struct {
	Initial float64
	Rate    float64
}

func (Linear) isDynamics() {}

// At returns the real value after elapsed time.
func (l Linear) At(elapsed ir.Duration) float64 {
	return l.Initial + l.Rate*elapsed.Seconds()
}

// ValueAt implements Dynamics.
func (l Linear) ValueAt(elapsed ir.Duration) ir.IRValue {
	return ir.IRReal(l.At(elapsed))
}

// Continues implements Dynamics.
func (l Linear) Continues(other Dynamics, elapsed ir.Duration) bool {
	o, ok := other.(Linear)
	return ok && o.Rate == l.Rate && o.Initial == l.At(elapsed)
}

// Serialize renders the coefficients as {"initial": i, "rate": r}.
func (l Linear) Serialize() ir.IRObject {
	return ir.NewIRObjectFromPairs(
		ir.O("initial", ir.IRReal(l.Initial)),
		ir.O("rate", ir.IRReal(l.Rate)),
	)
}

func (l Linear) String() string {
	return fmt.Sprintf("linear(%g, %g)", l.Initial, l.Rate)
}

// Constant is a discrete value that persists until the next change.
type Constant struct {
	Value ir.IRValue
}

func (Constant) isDynamics() {}

// ValueAt implements Dynamics.
func (c Constant) ValueAt(ir.Duration) ir.IRValue {
	if c.Value == nil {
		return ir.IRNull{}
	}
	return c.Value
}

// Continues implements Dynamics.
func (c Constant) Continues(other Dynamics, _ ir.Duration) bool {
	o, ok := other.(Constant)
	return ok && ir.Equal(c.ValueAt(0), o.ValueAt(0))
}

func (c Constant) String() string {
	b, err := ir.MarshalIRValue(c.ValueAt(0))
	if err != nil {
		return fmt.Sprintf("constant(%v)", c.Value)
	}
	return "constant(" + string(b) + ")"
}
