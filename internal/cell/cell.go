package cell

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/timeline"
)

// Kind is the behavior of one family of cells: the effect algebra plus
// how an accumulated effect and elapsed time change the state.
// Implementations must be stateless.
type Kind[S, F any] interface {
	effect.Trait[F]

	// Apply returns the state after the effect takes hold.
	Apply(state S, eff F) S

	// Step returns the state after elapsed simulated time with no effects.
	Step(state S, elapsed ir.Duration) S
}

// Querier reads the current value of a cell as seen by the caller.
type Querier interface {
	Query(topic timeline.Topic) any
}

// Emitter accepts events into the caller's open batch.
type Emitter interface {
	Emit(ev timeline.Event)
}

// Ref is a typed handle to an allocated cell.
type Ref[S, F any] struct {
	topic timeline.Topic
}

// Topic returns the id that events for this cell carry.
func (r Ref[S, F]) Topic() timeline.Topic {
	return r.topic
}

// Get returns the cell's state as visible to q.
func (r Ref[S, F]) Get(q Querier) S {
	s, _ := q.Query(r.topic).(S)
	return s
}

// Emit appends eff to the caller's open batch.
// The effect is not visible to other tasks until the instant commits.
func (r Ref[S, F]) Emit(e Emitter, eff F) {
	e.Emit(timeline.Event{Topic: r.topic, Value: eff})
}

// slot is the type-erased storage of one allocated cell.
type slot interface {
	name() string
	initial() any
	apply(state any, g timeline.Graph) (any, error)
	validate(ctx context.Context, g timeline.Graph, depth int) error
	step(state any, elapsed ir.Duration) any
}

type typedSlot[S, F any] struct {
	topic timeline.Topic
	label string
	init  S
	kind  Kind[S, F]
}

func (s *typedSlot[S, F]) name() string { return s.label }

func (s *typedSlot[S, F]) initial() any { return s.init }

func (s *typedSlot[S, F]) step(state any, elapsed ir.Duration) any {
	return s.kind.Step(state.(S), elapsed)
}

func (s *typedSlot[S, F]) apply(state any, g timeline.Graph) (any, error) {
	eff, err := s.fold(context.Background(), g, 0)
	if err != nil {
		return state, err
	}
	return s.kind.Apply(state.(S), eff), nil
}

func (s *typedSlot[S, F]) validate(ctx context.Context, g timeline.Graph, depth int) error {
	_, err := s.fold(ctx, g, depth)
	return err
}

// fold evaluates the events of this cell in g into one effect.
// Events for other cells evaluate to the identity.
func (s *typedSlot[S, F]) fold(ctx context.Context, g timeline.Graph, depth int) (F, error) {
	var (
		mu       sync.Mutex
		badEvent any
	)
	substitute := func(e timeline.Event) F {
		if e.Topic != s.topic {
			return s.kind.Empty()
		}
		f, ok := e.Value.(F)
		if !ok {
			mu.Lock()
			badEvent = e.Value
			mu.Unlock()
			return s.kind.Empty()
		}
		return f
	}

	var (
		eff F
		err error
	)
	if depth > 0 {
		eff, err = effect.EvaluateParallel(ctx, g, effect.Trait[F](s.kind), substitute, depth)
	} else {
		eff, err = effect.Evaluate(g, effect.Trait[F](s.kind), substitute)
	}
	if err != nil {
		return eff, fmt.Errorf("cell %q: %w", s.label, err)
	}
	if badEvent != nil {
		return eff, fmt.Errorf("cell %q: event %v has type %T", s.label, badEvent, badEvent)
	}
	return eff, nil
}

// Layout declares the cells of a mission model.
// Allocation happens once while building the model; a Layout is read-only
// once simulation starts and may then be shared by any number of runs.
type Layout struct {
	slots []slot
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{}
}

// Allocate declares a new cell with an initial state and a kind.
func Allocate[S, F any](l *Layout, name string, initial S, kind Kind[S, F]) Ref[S, F] {
	topic := timeline.Topic(len(l.slots))
	l.slots = append(l.slots, &typedSlot[S, F]{topic: topic, label: name, init: initial, kind: kind})
	return Ref[S, F]{topic: topic}
}

// Len returns the number of allocated cells.
func (l *Layout) Len() int {
	return len(l.slots)
}

func (l *Layout) slot(topic timeline.Topic) (slot, error) {
	if int(topic) >= len(l.slots) {
		return nil, fmt.Errorf("unknown cell %s", topic)
	}
	return l.slots[topic], nil
}

// Name returns the declared name of a cell.
func (l *Layout) Name(topic timeline.Topic) string {
	s, err := l.slot(topic)
	if err != nil {
		return topic.String()
	}
	return s.name()
}

// Initial returns the initial state of a cell.
func (l *Layout) Initial(topic timeline.Topic) (any, error) {
	s, err := l.slot(topic)
	if err != nil {
		return nil, err
	}
	return s.initial(), nil
}

// Apply folds the events for topic in g and applies them to state.
// Events for other cells are ignored.
func (l *Layout) Apply(topic timeline.Topic, state any, g timeline.Graph) (any, error) {
	s, err := l.slot(topic)
	if err != nil {
		return state, err
	}
	if g.IsEmpty() {
		return state, nil
	}
	return s.apply(state, g)
}

// Step advances state by elapsed simulated time.
func (l *Layout) Step(topic timeline.Topic, state any, elapsed ir.Duration) (any, error) {
	s, err := l.slot(topic)
	if err != nil {
		return state, err
	}
	return s.step(state, elapsed), nil
}

// Validate folds g for every cell it touches and reports the first merge
// conflict, so an instant can be rejected before it is committed. With
// depth > 0 large graphs are folded on parallel goroutines; the outcome is
// the same as the sequential fold.
func (l *Layout) Validate(ctx context.Context, g timeline.Graph, depth int) error {
	for _, topic := range timeline.TopicsOf(g) {
		s, err := l.slot(topic)
		if err != nil {
			return err
		}
		if err := s.validate(ctx, g, depth); err != nil {
			return err
		}
	}
	return nil
}
