package timeline

import "github.com/roach88/missionsim/internal/ir"

// History is a read-only view of a timeline up to a position.
// The zero value is a history of an empty timeline at time zero.
type History struct {
	timeline *Timeline
	position int
}

// Position returns the number of entries visible through this history.
func (h History) Position() int {
	return h.position
}

// Time returns the simulated time at this position.
func (h History) Time() ir.Duration {
	if h.timeline == nil || h.position == 0 {
		return 0
	}
	return h.timeline.entries[h.position-1].At
}

// Timeline returns the timeline this history reads from.
func (h History) Timeline() *Timeline {
	return h.timeline
}

// Since returns the entries appended after position from, up to this history.
// If from is past this history the result is empty.
func (h History) Since(from int) []Entry {
	if h.timeline == nil || from >= h.position {
		return nil
	}
	return h.timeline.Entries(max(from, 0), h.position)
}

// Before reports whether h is an earlier point than other on the same timeline.
func (h History) Before(other History) bool {
	return h.position < other.position
}
