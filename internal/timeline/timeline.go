package timeline

import (
	"fmt"
	"slices"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
)

// EntryKind distinguishes timeline entries.
type EntryKind uint8

const (
	// DeltaEntry records simulated time advancing.
	DeltaEntry EntryKind = iota + 1
	// CommitEntry records the event graph of one instant.
	CommitEntry
)

func (k EntryKind) String() string {
	switch k {
	case DeltaEntry:
		return "delta"
	case CommitEntry:
		return "commit"
	default:
		return fmt.Sprintf("EntryKind(%d)", uint8(k))
	}
}

// Entry is one element of the timeline.
type Entry struct {
	Kind EntryKind

	// At is the simulated time after this entry is applied.
	At ir.Duration

	// Delta is the time advanced (DeltaEntry only).
	Delta ir.Duration

	// Graph is the committed instant (CommitEntry only).
	Graph Graph

	// Topics lists the cells the commit touches, ascending (CommitEntry only).
	Topics []Topic
}

// Touches reports whether a commit entry contains events for topic.
func (e Entry) Touches(topic Topic) bool {
	_, found := slices.BinarySearch(e.Topics, topic)
	return found
}

// Timeline is the append-only log of one simulation run.
//
// Thread-safety: not safe for concurrent mutation. The engine appends from
// its single run loop; readers hold Histories captured between appends.
type Timeline struct {
	entries []Entry
	now     ir.Duration
}

// New creates an empty timeline at time zero.
func New() *Timeline {
	return &Timeline{entries: make([]Entry, 0, 64)}
}

// Now returns the simulated time at the end of the timeline.
func (t *Timeline) Now() ir.Duration {
	return t.now
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Entry returns the i-th entry.
func (t *Timeline) Entry(i int) Entry {
	return t.entries[i]
}

// Entries returns entries in [from, to). The returned slice must not be
// modified.
func (t *Timeline) Entries(from, to int) []Entry {
	return t.entries[from:to:to]
}

// AppendDelta records simulated time advancing by d.
// Zero advances are dropped; negative advances are rejected because
// entries must stay strictly time ordered.
func (t *Timeline) AppendDelta(d ir.Duration) error {
	if d < 0 {
		return fmt.Errorf("timeline: negative delta %s at %s", d, t.now)
	}
	if d == 0 {
		return nil
	}
	t.now += d
	t.entries = append(t.entries, Entry{Kind: DeltaEntry, At: t.now, Delta: d})
	return nil
}

// AppendCommit records the event graph of the current instant.
// Empty graphs are dropped. Returns the sorted set of touched topics.
func (t *Timeline) AppendCommit(g Graph) []Topic {
	if g.IsEmpty() {
		return nil
	}
	topics := TopicsOf(g)
	t.entries = append(t.entries, Entry{Kind: CommitEntry, At: t.now, Graph: g, Topics: topics})
	return topics
}

// Point returns a History bound to the current end of the timeline.
func (t *Timeline) Point() History {
	return History{timeline: t, position: len(t.entries)}
}

// At returns a History bound to position (the number of visible entries).
func (t *Timeline) At(position int) (History, error) {
	if position < 0 || position > len(t.entries) {
		return History{}, fmt.Errorf("timeline: position %d out of range [0, %d]", position, len(t.entries))
	}
	return History{timeline: t, position: position}, nil
}

// TopicsOf returns the ascending set of topics named by events in g.
func TopicsOf(g Graph) []Topic {
	collected, _ := effect.Evaluate(g, effect.Trait[[]Topic](topicUnion{}), func(e Event) []Topic {
		return []Topic{e.Topic}
	})
	slices.Sort(collected)
	return slices.Compact(collected)
}

type topicUnion struct{}

func (topicUnion) Empty() []Topic { return nil }

func (topicUnion) Sequentially(prefix, suffix []Topic) []Topic {
	return append(slices.Clip(prefix), suffix...)
}

func (topicUnion) Concurrently(left, right []Topic) ([]Topic, error) {
	return append(slices.Clip(left), right...), nil
}
