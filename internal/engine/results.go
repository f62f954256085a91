package engine

import (
	"fmt"
	"time"

	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

// Sample is one point of a resource's time series.
type Sample struct {
	Elapsed ir.Duration `json:"elapsed"`
	Value   ir.IRValue  `json:"value"`
}

// SimulatedActivity is the record of an activity that finished.
type SimulatedActivity struct {
	Type      string                  `json:"type"`
	Arguments ir.IRObject             `json:"arguments"`
	Start     time.Time               `json:"start"`
	Offset    ir.Duration             `json:"offset"`
	Duration  ir.Duration             `json:"duration"`
	Parent    ir.ActivityInstanceID   `json:"parent,omitempty"`
	Children  []ir.ActivityInstanceID `json:"children"`
}

// UnfinishedActivity is the record of an activity still running at the
// end of the results window.
type UnfinishedActivity struct {
	Type      string                  `json:"type"`
	Arguments ir.IRObject             `json:"arguments"`
	Start     time.Time               `json:"start"`
	Offset    ir.Duration             `json:"offset"`
	Parent    ir.ActivityInstanceID   `json:"parent,omitempty"`
	Children  []ir.ActivityInstanceID `json:"children"`
}

// SimulationResults is the caller-facing outcome of a run up to a time.
//
// Resource samples are taken at every segment start; real resources are
// also sampled at each segment's end, so a discontinuity shows up as two
// samples at the same offset (the value before and the value after).
type SimulationResults struct {
	StartTime            time.Time                                    `json:"start_time"`
	Duration             ir.Duration                                  `json:"duration"`
	ResourceSamples      map[string][]Sample                          `json:"resource_samples"`
	ResourceProfiles     map[string][]resource.Piece                  `json:"resource_profiles"`
	SimulatedActivities  map[ir.ActivityInstanceID]SimulatedActivity  `json:"simulated_activities"`
	UnfinishedActivities map[ir.ActivityInstanceID]UnfinishedActivity `json:"unfinished_activities"`

	// ResourceOrder lists resource names in the order they were tracked.
	ResourceOrder []string `json:"resource_order"`
}

// ComputeResults derives results for [0, until] from the run so far.
//
// Anonymous tasks never appear: an activity's parent is its nearest
// ancestor that is itself an activity. Activities that had not completed
// by until are reported as unfinished; activities starting after until are
// omitted.
func (e *Engine) ComputeResults(startTime time.Time, until ir.Duration) SimulationResults {
	r := SimulationResults{
		StartTime:            startTime,
		Duration:             until,
		ResourceSamples:      make(map[string][]Sample, len(e.resources)),
		ResourceProfiles:     make(map[string][]resource.Piece, len(e.resources)),
		SimulatedActivities:  make(map[ir.ActivityInstanceID]SimulatedActivity),
		UnfinishedActivities: make(map[ir.ActivityInstanceID]UnfinishedActivity),
		ResourceOrder:        e.ResourceNames(),
	}

	for _, tr := range e.resources {
		r.ResourceSamples[tr.name] = samplesUntil(&tr.profile, until)
		r.ResourceProfiles[tr.name] = piecesUntil(&tr.profile, until)
	}

	parents := make(map[ir.ActivityInstanceID]ir.ActivityInstanceID)
	children := make(map[ir.ActivityInstanceID][]ir.ActivityInstanceID)
	for _, id := range e.taskOrder {
		rec := e.tasks[id]
		if rec.activity == nil || rec.start > until {
			continue
		}
		if anc := e.activityAncestor(rec.parent); anc != nil {
			parents[rec.activity.id] = anc.activity.id
			children[anc.activity.id] = append(children[anc.activity.id], rec.activity.id)
		}
	}

	for _, id := range e.taskOrder {
		rec := e.tasks[id]
		if rec.activity == nil || rec.start > until {
			continue
		}
		act := rec.activity
		kids := children[act.id]
		if kids == nil {
			kids = []ir.ActivityInstanceID{}
		}
		args := act.activity.Arguments
		if args == nil {
			args = ir.IRObject{}
		}

		if rec.life.State() == StateComplete && rec.end <= until {
			r.SimulatedActivities[act.id] = SimulatedActivity{
				Type:      act.activity.Type,
				Arguments: args,
				Start:     rec.start.AddTo(startTime),
				Offset:    rec.start,
				Duration:  rec.end - rec.start,
				Parent:    parents[act.id],
				Children:  kids,
			}
			continue
		}
		r.UnfinishedActivities[act.id] = UnfinishedActivity{
			Type:      act.activity.Type,
			Arguments: args,
			Start:     rec.start.AddTo(startTime),
			Offset:    rec.start,
			Parent:    parents[act.id],
			Children:  kids,
		}
	}

	return r
}

func samplesUntil(p *resource.Profile, until ir.Duration) []Sample {
	segments := p.Segments()
	samples := make([]Sample, 0, len(segments))
	for i, seg := range segments {
		last := i == len(segments)-1
		if seg.Start > until {
			break
		}
		if !last && seg.Extent == 0 {
			continue
		}
		samples = append(samples, Sample{Elapsed: seg.Start, Value: seg.Dynamics.ValueAt(0)})

		if _, ok := seg.Dynamics.(resource.Linear); !ok {
			continue
		}
		end := seg.End()
		if last || end > until {
			end = until
		}
		if end > seg.Start && end != ir.MaxDuration {
			samples = append(samples, Sample{Elapsed: end, Value: seg.Dynamics.ValueAt(end - seg.Start)})
		}
	}
	return samples
}

func piecesUntil(p *resource.Profile, until ir.Duration) []resource.Piece {
	pieces := resource.Approximate(p)
	out := pieces[:0]
	for _, piece := range pieces {
		if piece.Window.Start > until {
			break
		}
		if piece.Window.End > until && until != ir.MaxDuration {
			piece.Window.End = until
		}
		out = append(out, piece)
	}
	return out
}

// Canonical renders the results as RFC 8785 canonical JSON. Two runs of
// the same schedule produce byte-identical output.
func (r SimulationResults) Canonical() ([]byte, error) {
	resources := make(ir.IRObject, len(r.ResourceSamples))
	for name, samples := range r.ResourceSamples {
		arr := make(ir.IRArray, len(samples))
		for i, s := range samples {
			arr[i] = ir.IRArray{ir.IRInt(s.Elapsed), valueOrNull(s.Value)}
		}
		resources[name] = arr
	}

	profiles := make(ir.IRObject, len(r.ResourceProfiles))
	for name, pieces := range r.ResourceProfiles {
		arr := make(ir.IRArray, len(pieces))
		for i, p := range pieces {
			arr[i] = ir.NewIRObjectFromPairs(
				ir.O("start", ir.IRInt(p.Window.Start)),
				ir.O("end", ir.IRInt(p.Window.End)),
				ir.O("value", valueOrNull(p.Value)),
				ir.O("linear", ir.IRBool(p.Linear)),
			)
		}
		profiles[name] = arr
	}

	finished := make(ir.IRObject, len(r.SimulatedActivities))
	for id, a := range r.SimulatedActivities {
		finished[string(id)] = activityObject(a.Type, a.Arguments, a.Offset, a.Parent, a.Children,
			ir.O("duration", ir.IRInt(a.Duration)))
	}
	unfinished := make(ir.IRObject, len(r.UnfinishedActivities))
	for id, a := range r.UnfinishedActivities {
		unfinished[string(id)] = activityObject(a.Type, a.Arguments, a.Offset, a.Parent, a.Children)
	}

	order := make(ir.IRArray, len(r.ResourceOrder))
	for i, name := range r.ResourceOrder {
		order[i] = ir.IRString(name)
	}

	doc := ir.NewIRObjectFromPairs(
		ir.O("start_time", ir.IRString(r.StartTime.UTC().Format(time.RFC3339Nano))),
		ir.O("duration", ir.IRInt(r.Duration)),
		ir.O("resource_order", order),
		ir.O("resources", resources),
		ir.O("profiles", profiles),
		ir.O("activities", finished),
		ir.O("unfinished", unfinished),
	)
	out, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("canonical results: %w", err)
	}
	return out, nil
}

// Digest returns the content hash of the canonical results.
func (r SimulationResults) Digest() (string, error) {
	canonical, err := r.Canonical()
	if err != nil {
		return "", err
	}
	return ir.ResultsHash(canonical), nil
}

func activityObject(typ string, args ir.IRObject, offset ir.Duration, parent ir.ActivityInstanceID, children []ir.ActivityInstanceID, extra ...ir.IRPair) ir.IRObject {
	kids := make(ir.IRArray, len(children))
	for i, c := range children {
		kids[i] = ir.IRString(c)
	}
	var parentValue ir.IRValue = ir.IRNull{}
	if parent != "" {
		parentValue = ir.IRString(parent)
	}
	if args == nil {
		args = ir.IRObject{}
	}
	pairs := append([]ir.IRPair{
		ir.O("type", ir.IRString(typ)),
		ir.O("arguments", args),
		ir.O("offset", ir.IRInt(offset)),
		ir.O("parent", parentValue),
		ir.O("children", kids),
	}, extra...)
	return ir.NewIRObjectFromPairs(pairs...)
}

func valueOrNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
