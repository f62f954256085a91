package resource

import (
	"errors"
	"fmt"

	"github.com/roach88/missionsim/internal/ir"
)

// ErrEmptyProfile is returned when sampling a profile with no segments.
var ErrEmptyProfile = errors.New("profile has no segments")

// Segment is a stretch of time during which one Dynamics holds.
// It covers [Start, Start+Extent); the last segment of a profile covers
// [Start, ∞) regardless of its extent.
type Segment struct {
	Start    ir.Duration
	Extent   ir.Duration
	Dynamics Dynamics
}

// End returns the exclusive end of the segment's nominal extent.
func (s Segment) End() ir.Duration {
	return s.Start + s.Extent
}

// Profile is the piecewise dynamics of one resource, ordered by start.
// The zero value is an empty profile starting at time zero.
type Profile struct {
	segments []Segment
}

// Append adds a segment of the given extent starting where the previous
// segment ends.
func (p *Profile) Append(extent ir.Duration, d Dynamics) {
	var start ir.Duration
	if n := len(p.segments); n > 0 {
		start = p.segments[n-1].End()
	}
	p.segments = append(p.segments, Segment{Start: start, Extent: extent, Dynamics: d})
}

// Set records that d holds from time at onwards. The open last segment is
// closed at `at`; a segment that would start at the same time as the last
// one replaces it, and dynamics that merely continue the last segment are
// not recorded.
func (p *Profile) Set(at ir.Duration, d Dynamics) error {
	n := len(p.segments)
	if n == 0 {
		p.segments = append(p.segments, Segment{Start: at, Dynamics: d})
		return nil
	}

	last := &p.segments[n-1]
	switch {
	case at < last.Start:
		return fmt.Errorf("profile: segment at %s precedes last segment at %s", at, last.Start)
	case at == last.Start:
		last.Dynamics = d
		if n > 1 && p.segments[n-2].Dynamics.Continues(d, p.segments[n-2].Extent) {
			p.segments = p.segments[:n-1]
			p.segments[n-2].Extent = 0
		}
		return nil
	case last.Dynamics.Continues(d, at-last.Start):
		return nil
	}

	last.Extent = at - last.Start
	p.segments = append(p.segments, Segment{Start: at, Dynamics: d})
	return nil
}

// Segments returns the recorded segments. The slice must not be modified.
func (p *Profile) Segments() []Segment {
	return p.segments
}

// Len returns the number of segments.
func (p *Profile) Len() int {
	return len(p.segments)
}

// Lookup returns the segment holding at time t: the last segment whose
// window [Start, End) contains t, or the final segment if t is past it.
func (p *Profile) Lookup(t ir.Duration) (Segment, error) {
	n := len(p.segments)
	if n == 0 {
		return Segment{}, ErrEmptyProfile
	}
	if t < p.segments[0].Start {
		return Segment{}, fmt.Errorf("profile: time %s precedes profile start %s", t, p.segments[0].Start)
	}
	for _, seg := range p.segments[:n-1] {
		if seg.Start <= t && t < seg.End() {
			return seg, nil
		}
	}
	return p.segments[n-1], nil
}

// Sample evaluates the profile at each timestamp, in the order given.
func Sample(p *Profile, timestamps []ir.Duration) ([]ir.IRValue, error) {
	out := make([]ir.IRValue, len(timestamps))
	for i, t := range timestamps {
		seg, err := p.Lookup(t)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = seg.Dynamics.ValueAt(t - seg.Start)
	}
	return out, nil
}
