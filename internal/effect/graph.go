package effect

type nodeKind uint8

const (
	kindAtom nodeKind = iota + 1
	kindSequential
	kindConcurrent
)

// node is one immutable vertex of an event graph.
// Atom nodes carry an event; composite nodes carry two non-nil children.
type node[E any] struct {
	kind  nodeKind
	event E
	left  *node[E]
	right *node[E]
	size  int // number of atoms below (and including) this node
}

// EventGraph is an immutable series-parallel composition of events.
// The zero value is the empty graph.
type EventGraph[E any] struct {
	root *node[E]
}

// Empty returns the empty graph.
func Empty[E any]() EventGraph[E] {
	return EventGraph[E]{}
}

// Atom returns a graph holding a single event.
func Atom[E any](event E) EventGraph[E] {
	return EventGraph[E]{root: &node[E]{kind: kindAtom, event: event, size: 1}}
}

// Sequentially composes prefix then suffix.
// Composing with the empty graph is the identity.
func Sequentially[E any](prefix, suffix EventGraph[E]) EventGraph[E] {
	return compose(kindSequential, prefix, suffix)
}

// Concurrently composes two logically simultaneous graphs.
// Composing with the empty graph is the identity.
func Concurrently[E any](left, right EventGraph[E]) EventGraph[E] {
	return compose(kindConcurrent, left, right)
}

func compose[E any](kind nodeKind, a, b EventGraph[E]) EventGraph[E] {
	if a.root == nil {
		return b
	}
	if b.root == nil {
		return a
	}
	return EventGraph[E]{root: &node[E]{
		kind:  kind,
		left:  a.root,
		right: b.root,
		size:  a.root.size + b.root.size,
	}}
}

// SequentiallyAll folds segments left to right with Sequentially.
func SequentiallyAll[E any](segments ...EventGraph[E]) EventGraph[E] {
	acc := Empty[E]()
	for _, s := range segments {
		acc = Sequentially(acc, s)
	}
	return acc
}

// ConcurrentlyAll folds branches left to right with Concurrently.
func ConcurrentlyAll[E any](branches ...EventGraph[E]) EventGraph[E] {
	acc := Empty[E]()
	for _, b := range branches {
		acc = Concurrently(acc, b)
	}
	return acc
}

// IsEmpty reports whether the graph contains no events.
func (g EventGraph[E]) IsEmpty() bool {
	return g.root == nil
}

// Len returns the number of atoms in the graph.
func (g EventGraph[E]) Len() int {
	if g.root == nil {
		return 0
	}
	return g.root.size
}

// String renders the graph with the default %v formatting of events.
func (g EventGraph[E]) String() string {
	return Display(g, nil)
}
