package effect

import (
	"fmt"
	"strings"
)

// Operator precedence for display. Sequential binds tighter than concurrent.
const (
	precEmpty = iota
	precConcurrent
	precSequential
	precAtom
)

type rendered struct {
	text string
	prec int
}

type displayTrait struct{}

func (displayTrait) Empty() rendered { return rendered{prec: precEmpty} }

func (displayTrait) Sequentially(prefix, suffix rendered) rendered {
	return rendered{
		text: wrap(prefix, precSequential) + "; " + wrap(suffix, precSequential),
		prec: precSequential,
	}
}

func (displayTrait) Concurrently(left, right rendered) (rendered, error) {
	return rendered{
		text: left.text + " | " + right.text,
		prec: precConcurrent,
	}, nil
}

func wrap(r rendered, outer int) string {
	if r.prec < outer {
		return "(" + r.text + ")"
	}
	return r.text
}

// Display renders a graph as text: "a; b" for sequential composition,
// "a | b" for concurrent composition, with parentheses where a concurrent
// group appears inside a sequence. A nil format uses fmt.Sprint.
func Display[E any](g EventGraph[E], format func(E) string) string {
	if format == nil {
		format = func(e E) string { return fmt.Sprint(e) }
	}
	out, _ := Evaluate(g, Trait[rendered](displayTrait{}), func(e E) rendered {
		return rendered{text: strings.TrimSpace(format(e)), prec: precAtom}
	})
	return out.text
}
