package cell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/timeline"
)

// mapQuerier serves fixed states and records emitted events.
type mapQuerier struct {
	states  map[timeline.Topic]any
	emitted []timeline.Event
}

func (m *mapQuerier) Query(topic timeline.Topic) any { return m.states[topic] }

func (m *mapQuerier) Emit(ev timeline.Event) { m.emitted = append(m.emitted, ev) }

func atom(topic timeline.Topic, v any) timeline.Graph {
	return effect.Atom(timeline.Event{Topic: topic, Value: v})
}

func TestAllocate_AssignsTopicsInOrder(t *testing.T) {
	layout := NewLayout()
	fruit := Allocate(layout, "fruit", Linear{Volume: 4}, LinearIntegration{})
	flag := Allocate(layout, "flag", "A", Register[string]{})

	assert.Equal(t, timeline.Topic(0), fruit.Topic())
	assert.Equal(t, timeline.Topic(1), flag.Topic())
	assert.Equal(t, 2, layout.Len())
	assert.Equal(t, "flag", layout.Name(flag.Topic()))
	assert.Equal(t, "cell#9", layout.Name(9))

	initial, err := layout.Initial(fruit.Topic())
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 4}, initial)

	_, err = layout.Initial(9)
	assert.Error(t, err)
}

func TestRef_GetAndEmit(t *testing.T) {
	layout := NewLayout()
	flag := Allocate(layout, "flag", "A", Register[string]{})

	q := &mapQuerier{states: map[timeline.Topic]any{flag.Topic(): "B"}}
	assert.Equal(t, "B", flag.Get(q))

	flag.Emit(q, SetTo("C"))
	require.Len(t, q.emitted, 1)
	assert.Equal(t, timeline.Event{Topic: flag.Topic(), Value: SetTo("C")}, q.emitted[0])
}

func TestLayout_ApplyIgnoresOtherCells(t *testing.T) {
	layout := NewLayout()
	a := Allocate(layout, "a", int64(0), Counter{})
	b := Allocate(layout, "b", int64(0), Counter{})

	g := effect.Concurrently(atom(a.Topic(), Add(2)), atom(b.Topic(), Add(5)))
	got, err := layout.Apply(a.Topic(), int64(1), g)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestLayout_ApplyRejectsForeignEffectType(t *testing.T) {
	layout := NewLayout()
	a := Allocate(layout, "a", int64(0), Counter{})

	_, err := layout.Apply(a.Topic(), int64(0), atom(a.Topic(), "not an Add"))
	assert.Error(t, err)
}

func TestRegister_Semantics(t *testing.T) {
	layout := NewLayout()
	flag := Allocate(layout, "flag", "A", Register[string]{})
	topic := flag.Topic()

	t.Run("sequential last wins", func(t *testing.T) {
		got, err := layout.Apply(topic, "A", effect.Sequentially(atom(topic, SetTo("B")), atom(topic, SetTo("C"))))
		require.NoError(t, err)
		assert.Equal(t, "C", got)
	})

	t.Run("concurrent equal sets merge", func(t *testing.T) {
		got, err := layout.Apply(topic, "A", effect.Concurrently(atom(topic, SetTo("B")), atom(topic, SetTo("B"))))
		require.NoError(t, err)
		assert.Equal(t, "B", got)
	})

	t.Run("concurrent different sets conflict", func(t *testing.T) {
		g := effect.Concurrently(atom(topic, SetTo("B")), atom(topic, SetTo("C")))
		_, err := layout.Apply(topic, "A", g)
		require.Error(t, err)
		assert.True(t, effect.IsNonCommutative(err))
		assert.Contains(t, err.Error(), `cell "flag"`)

		assert.True(t, effect.IsNonCommutative(layout.Validate(context.Background(), g, 0)))
	})

	t.Run("set concurrent with nothing", func(t *testing.T) {
		got, err := layout.Apply(topic, "A", effect.Concurrently(atom(topic, Set[string]{}), atom(topic, SetTo("D"))))
		require.NoError(t, err)
		assert.Equal(t, "D", got)
	})
}

func TestLinearIntegration_Semantics(t *testing.T) {
	k := LinearIntegration{}

	seq := k.Sequentially(SetVolume(3), AddRate(2))
	v, ok := seq.Volume()
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, 2.0, seq.RateDelta)

	conc, err := k.Concurrently(AddRate(1), AddRate(-4))
	require.NoError(t, err)
	assert.Equal(t, -3.0, conc.RateDelta)

	_, err = k.Concurrently(SetVolume(1), SetVolume(2))
	assert.True(t, effect.IsNonCommutative(err))

	same, err := k.Concurrently(SetVolume(1), SetVolume(1))
	require.NoError(t, err)
	v, _ = same.Volume()
	assert.Equal(t, 1.0, v)

	state := k.Apply(Linear{Volume: 10, Rate: 1}, k.Sequentially(AddRate(1), SetVolume(0)))
	assert.Equal(t, Linear{Volume: 0, Rate: 2}, state)

	assert.Equal(t, Linear{Volume: 5, Rate: 2}, k.Step(Linear{Volume: 2, Rate: 2}, 1500*ir.Millisecond))
}

func TestLinearIntegration_VolumeShifts(t *testing.T) {
	k := LinearIntegration{}

	bites, err := k.Concurrently(AddVolume(-1), AddVolume(-0.5))
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 2.5}, k.Apply(Linear{Volume: 4}, bites))

	// A shift after a set lands on the set value; a set after a shift wins.
	assert.Equal(t, Linear{Volume: 1}, k.Apply(Linear{Volume: 4}, k.Sequentially(SetVolume(2), AddVolume(-1))))
	assert.Equal(t, Linear{Volume: 2}, k.Apply(Linear{Volume: 4}, k.Sequentially(AddVolume(-1), SetVolume(2))))

	_, err = k.Concurrently(SetVolume(2), AddVolume(-1))
	assert.True(t, effect.IsNonCommutative(err), "a set racing a shift has no order")

	withRate, err := k.Concurrently(SetVolume(2), AddRate(3))
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 2, Rate: 3}, k.Apply(Linear{}, withRate))

	assert.Equal(t, "addVolume(-1)", AddVolume(-1).String())
	assert.Equal(t, "addRate(2)+addVolume(1)", k.Sequentially(AddRate(2), AddVolume(1)).String())
}

func TestLinearEffect_String(t *testing.T) {
	assert.Equal(t, "addRate(2)", AddRate(2).String())
	assert.Equal(t, "setVolume(1.5)", SetVolume(1.5).String())
	assert.Equal(t, "addRate(1)+setVolume(0)", LinearIntegration{}.Sequentially(AddRate(1), SetVolume(0)).String())
	assert.Equal(t, "set(B)", SetTo("B").String())
	assert.Equal(t, "add(-1)", Add(-1).String())
}

func TestLive_CatchUpAndReplay(t *testing.T) {
	layout := NewLayout()
	fruit := Allocate(layout, "fruit", Linear{Volume: 4}, LinearIntegration{})
	peel := Allocate(layout, "peel", int64(4), Counter{})

	tl := timeline.New()
	live := NewLive(layout, tl)

	tl.AppendCommit(atom(fruit.Topic(), AddRate(2)))
	require.NoError(t, tl.AppendDelta(ir.Second))
	early := tl.Point()

	got, err := live.State(fruit.Topic(), early)
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 6, Rate: 2}, got)

	tl.AppendCommit(effect.Concurrently(atom(fruit.Topic(), SetVolume(10)), atom(peel.Topic(), Add(-1))))
	require.NoError(t, tl.AppendDelta(500*ir.Millisecond))
	late := tl.Point()

	got, err = live.State(fruit.Topic(), late)
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 11, Rate: 2}, got)

	got, err = live.State(peel.Topic(), late)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	// Older history replays without disturbing the cache.
	got, err = live.State(fruit.Topic(), early)
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 6, Rate: 2}, got)

	got, err = live.State(fruit.Topic(), late)
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 11, Rate: 2}, got)

	got, err = live.State(fruit.Topic(), timeline.History{})
	require.NoError(t, err)
	assert.Equal(t, Linear{Volume: 4}, got)
}

func TestLive_RejectsForeignHistory(t *testing.T) {
	layout := NewLayout()
	c := Allocate(layout, "c", int64(0), Counter{})

	live := NewLive(layout, timeline.New())
	_, err := live.State(c.Topic(), timeline.New().Point())
	assert.Error(t, err)

	_, err = live.State(42, timeline.History{})
	assert.Error(t, err)
}

func TestLayout_ValidateParallel(t *testing.T) {
	layout := NewLayout()
	counter := Allocate(layout, "counter", int64(0), Counter{})
	flag := Allocate(layout, "flag", "A", Register[string]{})

	g := effect.Empty[timeline.Event]()
	for i := 0; i < 200; i++ {
		g = effect.Concurrently(g, atom(counter.Topic(), Add(1)))
	}
	require.NoError(t, layout.Validate(context.Background(), g, 4))

	clash := effect.Concurrently(g, effect.Concurrently(atom(flag.Topic(), SetTo("B")), atom(flag.Topic(), SetTo("C"))))
	err := layout.Validate(context.Background(), clash, 4)
	assert.True(t, effect.IsNonCommutative(err))
}
