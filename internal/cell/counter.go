package cell

import (
	"strconv"

	"github.com/roach88/missionsim/internal/ir"
)

// Add is the effect of a counter cell.
type Add int64

func (a Add) String() string {
	return "add(" + strconv.FormatInt(int64(a), 10) + ")"
}

// Counter is the cell kind of an integer changed only by increments.
// Increments commute, so concurrent adds never conflict.
type Counter struct{}

var _ Kind[int64, Add] = Counter{}

func (Counter) Empty() Add { return 0 }

func (Counter) Sequentially(prefix, suffix Add) Add { return prefix + suffix }

func (Counter) Concurrently(left, right Add) (Add, error) { return left + right, nil }

func (Counter) Apply(state int64, eff Add) int64 { return state + int64(eff) }

func (Counter) Step(state int64, _ ir.Duration) int64 { return state }
