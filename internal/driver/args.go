package driver

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/missionsim/internal/ir"
)

// Args decodes activity arguments into typed parameters.
//
// Each accessor returns the named argument or its default when absent.
// Decoding problems accumulate; Err reports all of them at once, along with
// any argument no accessor asked for.
//
//	a := driver.NewArgs(args)
//	bite := a.Real("biteSize", 1.0)
//	if err := a.Err(); err != nil {
//		return nil, err
//	}
type Args struct {
	values ir.IRObject
	used   map[string]bool
	errs   []error
}

// NewArgs wraps serialized arguments for decoding.
func NewArgs(values ir.IRObject) *Args {
	return &Args{values: values, used: make(map[string]bool, len(values))}
}

func (a *Args) lookup(name string) (ir.IRValue, bool) {
	a.used[name] = true
	v, ok := a.values[name]
	if !ok {
		return nil, false
	}
	if _, null := v.(ir.IRNull); null {
		return nil, false
	}
	return v, true
}

func (a *Args) fail(name, want string, got ir.IRValue) {
	a.errs = append(a.errs, fmt.Errorf("%s: expected %s, got %T", name, want, got))
}

// Real returns a real argument. Integers are accepted.
func (a *Args) Real(name string, def float64) float64 {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	f, ok := ir.AsReal(v)
	if !ok {
		a.fail(name, "real", v)
		return def
	}
	return f
}

// Int returns an integer argument. Reals without a fraction are accepted.
func (a *Args) Int(name string, def int64) int64 {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	n, ok := ir.AsInt(v)
	if !ok {
		a.fail(name, "int", v)
		return def
	}
	return n
}

// String returns a string argument.
func (a *Args) String(name string, def string) string {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	s, ok := ir.AsString(v)
	if !ok {
		a.fail(name, "string", v)
		return def
	}
	return s
}

// Bool returns a boolean argument.
func (a *Args) Bool(name string, def bool) bool {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	b, ok := ir.AsBool(v)
	if !ok {
		a.fail(name, "bool", v)
		return def
	}
	return b
}

// Duration returns a duration argument, given either as an integer number
// of microseconds or as Go duration notation ("90s").
func (a *Args) Duration(name string, def ir.Duration) ir.Duration {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	if n, ok := ir.AsInt(v); ok {
		return ir.Duration(n)
	}
	s, ok := ir.AsString(v)
	if !ok {
		a.fail(name, "duration", v)
		return def
	}
	d, err := ir.ParseDuration(s)
	if err != nil {
		a.errs = append(a.errs, fmt.Errorf("%s: %w", name, err))
		return def
	}
	return d
}

// OneOf returns a string argument restricted to the allowed values.
func (a *Args) OneOf(name string, def string, allowed ...string) string {
	s := a.String(name, def)
	if !slices.Contains(allowed, s) {
		a.errs = append(a.errs, fmt.Errorf("%s: %q is not one of %q", name, s, allowed))
		return def
	}
	return s
}

// Check records a validation failure when ok is false.
func (a *Args) Check(ok bool, format string, args ...any) {
	if !ok {
		a.errs = append(a.errs, fmt.Errorf(format, args...))
	}
}

// Err returns every decoding problem, wrapped in ErrInvalidArguments.
func (a *Args) Err() error {
	errs := slices.Clone(a.errs)
	for _, name := range slices.Sorted(maps.Keys(a.values)) {
		if !a.used[name] {
			errs = append(errs, fmt.Errorf("%s: unknown argument", name))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidArguments, errors.Join(errs...))
}
