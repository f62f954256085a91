package timeline

import (
	"fmt"

	"github.com/roach88/missionsim/internal/effect"
)

// Topic identifies the cell an event targets.
type Topic uint32

func (t Topic) String() string {
	return fmt.Sprintf("cell#%d", uint32(t))
}

// Event is one atomic effect emitted against a cell.
// Value is opaque to the timeline; the owning cell's kind interprets it.
type Event struct {
	Topic Topic
	Value any
}

func (e Event) String() string {
	return fmt.Sprintf("%s:%v", e.Topic, e.Value)
}

// Graph is the event graph type committed once per instant.
type Graph = effect.EventGraph[Event]
