package cell

import (
	"fmt"

	"github.com/roach88/missionsim/internal/timeline"
)

// Live holds the cells of one simulation run bound to its timeline.
//
// Each cell caches its state at the last position it was read at. Reading
// at a later history steps the cached state forward through the new
// entries only; reading at an earlier history replays from the initial
// state without disturbing the cache.
//
// Thread-safety: not safe for concurrent use. It belongs to the run loop.
type Live struct {
	layout   *Layout
	timeline *timeline.Timeline
	cache    map[timeline.Topic]*cached
}

type cached struct {
	state    any
	position int
}

// NewLive binds a layout to a timeline.
func NewLive(layout *Layout, tl *timeline.Timeline) *Live {
	return &Live{
		layout:   layout,
		timeline: tl,
		cache:    make(map[timeline.Topic]*cached, layout.Len()),
	}
}

// Layout returns the layout the cells were allocated in.
func (l *Live) Layout() *Layout {
	return l.layout
}

// Timeline returns the timeline the cells are bound to.
func (l *Live) Timeline() *timeline.Timeline {
	return l.timeline
}

// State returns the value of a cell as of h.
func (l *Live) State(topic timeline.Topic, h timeline.History) (any, error) {
	if h.Timeline() != nil && h.Timeline() != l.timeline {
		return nil, fmt.Errorf("cell %s: history belongs to another timeline", topic)
	}

	c, ok := l.cache[topic]
	if !ok || c.position > h.Position() {
		initial, err := l.layout.Initial(topic)
		if err != nil {
			return nil, err
		}
		fresh := &cached{state: initial}
		if err := l.advance(topic, fresh, h); err != nil {
			return nil, err
		}
		if !ok {
			l.cache[topic] = fresh
		}
		return fresh.state, nil
	}

	if err := l.advance(topic, c, h); err != nil {
		return nil, err
	}
	return c.state, nil
}

func (l *Live) advance(topic timeline.Topic, c *cached, h timeline.History) error {
	var err error
	for _, entry := range h.Since(c.position) {
		switch entry.Kind {
		case timeline.DeltaEntry:
			c.state, err = l.layout.Step(topic, c.state, entry.Delta)
		case timeline.CommitEntry:
			if entry.Touches(topic) {
				c.state, err = l.layout.Apply(topic, c.state, entry.Graph)
			}
		}
		if err != nil {
			return fmt.Errorf("replay %s at %s: %w", l.layout.Name(topic), entry.At, err)
		}
	}
	c.position = h.Position()
	return nil
}
