package harness

import (
	"cmp"
	"slices"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
)

// kindRank orders events sharing an instant: resource values first, then
// activity starts, then activity ends.
var kindRank = map[string]int{
	KindResource:      0,
	KindActivityStart: 1,
	KindActivityEnd:   2,
}

// BuildTrace derives the trace of a run from its results.
//
// Each resource contributes one event per instant its value changes. Where
// a resource has several samples at one instant (a discontinuity) the last
// one wins. Unfinished activities contribute a start and no end.
func BuildTrace(r engine.SimulationResults) []TraceEvent {
	var trace []TraceEvent

	for _, name := range r.ResourceOrder {
		trace = append(trace, resourceEvents(name, r.ResourceSamples[name])...)
	}

	for id, act := range r.SimulatedActivities {
		trace = append(trace,
			TraceEvent{At: act.Offset, Kind: KindActivityStart, Name: string(id), Type: act.Type},
			TraceEvent{At: act.Offset + act.Duration, Kind: KindActivityEnd, Name: string(id)},
		)
	}
	for id, act := range r.UnfinishedActivities {
		trace = append(trace, TraceEvent{At: act.Offset, Kind: KindActivityStart, Name: string(id), Type: act.Type})
	}

	slices.SortFunc(trace, func(a, b TraceEvent) int {
		if c := cmp.Compare(a.At, b.At); c != 0 {
			return c
		}
		if c := cmp.Compare(kindRank[a.Kind], kindRank[b.Kind]); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if trace == nil {
		trace = []TraceEvent{}
	}
	return trace
}

func resourceEvents(name string, samples []engine.Sample) []TraceEvent {
	var (
		events []TraceEvent
		last   []byte
	)
	for i, s := range samples {
		if i+1 < len(samples) && samples[i+1].Elapsed == s.Elapsed {
			continue
		}
		// Values read back from storage may change numeric tag (4.0 becomes
		// 4), so changes are detected on canonical bytes.
		encoded, err := ir.MarshalCanonical(s.Value)
		if err != nil {
			continue
		}
		if last != nil && string(encoded) == string(last) {
			continue
		}
		last = encoded
		events = append(events, TraceEvent{At: s.Elapsed, Kind: KindResource, Name: name, Value: s.Value})
	}
	return events
}

// activityStarts returns activity ids in trace order of their starts.
func activityStarts(trace []TraceEvent) []string {
	var ids []string
	for _, e := range trace {
		if e.Kind == KindActivityStart {
			ids = append(ids, e.Name)
		}
	}
	return ids
}
