package plan

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/missionsim/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and compiles a plan file.
func LoadFile(path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return CompileBytes(path, src)
}

// CompileBytes compiles CUE source containing a top-level plan struct.
// filename is used for error positions only.
func CompileBytes(filename string, src []byte) (*Plan, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	planVal := v.LookupPath(cue.ParsePath("plan"))
	if !planVal.Exists() {
		return nil, &CompileError{Field: "plan", Message: "plan is required", Pos: v.Pos()}
	}
	return Compile(planVal)
}

// Compile decodes a plan struct after unifying it with the plan schema.
func Compile(v cue.Value) (*Plan, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// Positions are taken from the source value; the unified value may
	// report the schema's positions instead.
	raw := v
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("plan schema: %w", err)
	}
	v = schema.LookupPath(cue.ParsePath("#Plan")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Plan{}
	var err error
	if p.Name, err = v.LookupPath(cue.ParsePath("name")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if p.Model, err = v.LookupPath(cue.ParsePath("model")).String(); err != nil {
		return nil, formatCUEError(err)
	}

	startVal := v.LookupPath(cue.ParsePath("start_time"))
	startStr, err := startVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if p.StartTime, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
		return nil, &CompileError{
			Field:   "start_time",
			Message: fmt.Sprintf("must be an RFC 3339 timestamp: %v", err),
			Pos:     raw.LookupPath(cue.ParsePath("start_time")).Pos(),
		}
	}
	p.StartTime = p.StartTime.UTC()

	if p.Duration, err = parseOffset(v.LookupPath(cue.ParsePath("duration")), raw, "duration"); err != nil {
		return nil, err
	}

	p.Activities, err = parseActivities(v.LookupPath(cue.ParsePath("activities")), raw)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseActivities(v, raw cue.Value) ([]ir.Directive, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Directive
	for i := 0; iter.Next(); i++ {
		av := iter.Value()
		field := fmt.Sprintf("activities[%d]", i)

		id, err := av.LookupPath(cue.ParsePath("id")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		typ, err := av.LookupPath(cue.ParsePath("type")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		start, err := parseOffset(av.LookupPath(cue.ParsePath("start")), raw, field+".start")
		if err != nil {
			return nil, err
		}
		args, err := toIR(av.LookupPath(cue.ParsePath("arguments")))
		if err != nil {
			return nil, err
		}
		obj, ok := args.(ir.IRObject)
		if !ok {
			return nil, &CompileError{Field: field + ".arguments", Message: "must be a struct", Pos: sourcePos(raw, field+".arguments")}
		}

		out = append(out, ir.Directive{
			ID:       ir.ActivityInstanceID(id),
			Start:    start,
			Activity: ir.SerializedActivity{Type: typ, Arguments: obj},
		})
	}
	return out, nil
}

// sourcePos returns the position of field in the source value.
func sourcePos(raw cue.Value, field string) token.Pos {
	return raw.LookupPath(cue.ParsePath(field)).Pos()
}

// parseOffset accepts Go duration notation or an integer number of
// microseconds.
func parseOffset(v, raw cue.Value, field string) (ir.Duration, error) {
	if v.Kind() == cue.IntKind {
		n, err := v.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		if n < 0 {
			return 0, &CompileError{Field: field, Message: "must not be negative", Pos: sourcePos(raw, field)}
		}
		return ir.Duration(n), nil
	}
	s, err := v.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	d, err := ir.ParseDuration(s)
	if err != nil {
		return 0, &CompileError{Field: field, Message: err.Error(), Pos: sourcePos(raw, field)}
	}
	if d < 0 {
		return 0, &CompileError{Field: field, Message: "must not be negative", Pos: sourcePos(raw, field)}
	}
	return d, nil
}

// toIR converts a concrete CUE value into the serialized value union.
func toIR(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRReal(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "arguments",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
