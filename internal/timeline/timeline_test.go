package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
)

func ev(topic Topic, v any) Graph {
	return effect.Atom(Event{Topic: topic, Value: v})
}

func TestTimeline_AppendDelta(t *testing.T) {
	tl := New()

	require.NoError(t, tl.AppendDelta(0))
	assert.Equal(t, 0, tl.Len(), "zero delta must not be recorded")

	require.NoError(t, tl.AppendDelta(ir.Second))
	require.NoError(t, tl.AppendDelta(250*ir.Millisecond))
	assert.Equal(t, 2, tl.Len())
	assert.Equal(t, 1250*ir.Millisecond, tl.Now())
	assert.Equal(t, ir.Second, tl.Entry(0).At)
	assert.Equal(t, DeltaEntry, tl.Entry(1).Kind)

	err := tl.AppendDelta(-ir.Second)
	require.Error(t, err)
	assert.Equal(t, 2, tl.Len())
}

func TestTimeline_AppendCommit(t *testing.T) {
	tl := New()

	assert.Nil(t, tl.AppendCommit(effect.Empty[Event]()))
	assert.Equal(t, 0, tl.Len(), "empty commit must not be recorded")

	g := effect.Sequentially(ev(3, "a"), effect.Concurrently(ev(1, "b"), ev(3, "c")))
	topics := tl.AppendCommit(g)
	assert.Equal(t, []Topic{1, 3}, topics)

	entry := tl.Entry(0)
	assert.Equal(t, CommitEntry, entry.Kind)
	assert.True(t, entry.Touches(1))
	assert.True(t, entry.Touches(3))
	assert.False(t, entry.Touches(2))
}

func TestHistory_Views(t *testing.T) {
	tl := New()
	start := tl.Point()

	tl.AppendCommit(ev(1, "x"))
	require.NoError(t, tl.AppendDelta(ir.Minute))
	mid := tl.Point()
	tl.AppendCommit(ev(1, "y"))
	end := tl.Point()

	assert.Equal(t, ir.Zero, start.Time())
	assert.Equal(t, ir.Minute, mid.Time())
	assert.Equal(t, ir.Minute, end.Time())

	assert.True(t, start.Before(mid))
	assert.False(t, end.Before(mid))

	assert.Len(t, end.Since(0), 3)
	assert.Len(t, end.Since(mid.Position()), 1)
	assert.Empty(t, mid.Since(end.Position()))

	// Histories captured earlier keep their view as the timeline grows.
	require.NoError(t, tl.AppendDelta(ir.Second))
	assert.Equal(t, 2, mid.Position())
	assert.Len(t, mid.Since(0), 2)
}

func TestTimeline_At(t *testing.T) {
	tl := New()
	tl.AppendCommit(ev(1, "x"))

	h, err := tl.At(1)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Position())

	_, err = tl.At(2)
	assert.Error(t, err)
	_, err = tl.At(-1)
	assert.Error(t, err)
}

func TestHistory_ZeroValue(t *testing.T) {
	var h History
	assert.Equal(t, ir.Zero, h.Time())
	assert.Nil(t, h.Since(0))
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "cell#2:open", Event{Topic: 2, Value: "open"}.String())
}
