package plan

import (
	"fmt"
	"time"

	"github.com/roach88/missionsim/internal/ir"
)

// Plan is a compiled activity plan.
type Plan struct {
	Name       string         `json:"name"`
	Model      string         `json:"model"`
	StartTime  time.Time      `json:"start_time"`
	Duration   ir.Duration    `json:"duration"`
	Activities []ir.Directive `json:"activities"`
}

// Canonical renders the plan as canonical JSON.
func (p *Plan) Canonical() ([]byte, error) {
	acts := make(ir.IRArray, len(p.Activities))
	for i, d := range p.Activities {
		args := d.Activity.Arguments
		if args == nil {
			args = ir.IRObject{}
		}
		acts[i] = ir.NewIRObjectFromPairs(
			ir.O("id", ir.IRString(d.ID)),
			ir.O("type", ir.IRString(d.Activity.Type)),
			ir.O("start", ir.IRInt(d.Start)),
			ir.O("arguments", args),
		)
	}
	doc := ir.NewIRObjectFromPairs(
		ir.O("name", ir.IRString(p.Name)),
		ir.O("model", ir.IRString(p.Model)),
		ir.O("start_time", ir.IRString(p.StartTime.UTC().Format(time.RFC3339Nano))),
		ir.O("duration", ir.IRInt(p.Duration)),
		ir.O("activities", acts),
	)
	out, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("canonical plan %q: %w", p.Name, err)
	}
	return out, nil
}

// Revision returns the content hash of the plan. Any edit to the plan,
// including reordering activities, produces a new revision.
func (p *Plan) Revision() (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", err
	}
	return ir.PlanRevisionHash(canonical), nil
}

// Directive returns the activity with the given id.
func (p *Plan) Directive(id ir.ActivityInstanceID) (ir.Directive, bool) {
	for _, d := range p.Activities {
		if d.ID == id {
			return d, true
		}
	}
	return ir.Directive{}, false
}
