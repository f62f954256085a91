package effect

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the minimum subtree size worth forking a goroutine for.
const parallelThreshold = 64

// Evaluate folds the graph bottom-up:
//
//	Empty         ↦ trait.Empty()
//	Atom(e)       ↦ substitution(e)
//	Sequential    ↦ trait.Sequentially(eval(prefix), eval(suffix))
//	Concurrent    ↦ trait.Concurrently(eval(left), eval(right))
//
// The first concurrent merge conflict aborts the fold and is returned.
func Evaluate[E, F any](g EventGraph[E], trait Trait[F], substitution func(E) F) (F, error) {
	if g.root == nil {
		return trait.Empty(), nil
	}
	return evaluate(g.root, trait, substitution)
}

func evaluate[E, F any](n *node[E], trait Trait[F], substitution func(E) F) (F, error) {
	if n.kind == kindAtom {
		return substitution(n.event), nil
	}

	left, err := evaluate(n.left, trait, substitution)
	if err != nil {
		return left, err
	}
	right, err := evaluate(n.right, trait, substitution)
	if err != nil {
		return right, err
	}
	return combine(n.kind, trait, left, right)
}

func combine[F any](kind nodeKind, trait Trait[F], left, right F) (F, error) {
	if kind == kindSequential {
		return trait.Sequentially(left, right), nil
	}
	return trait.Concurrently(left, right)
}

// EvaluateParallel computes the same fold as Evaluate, evaluating the two
// children of large composite nodes on separate goroutines down to the
// given depth. The result is identical to Evaluate because the trait's
// compositions are associative and the tree shape is preserved.
//
// The trait and substitution must be safe for concurrent use.
func EvaluateParallel[E, F any](ctx context.Context, g EventGraph[E], trait Trait[F], substitution func(E) F, depth int) (F, error) {
	if g.root == nil {
		return trait.Empty(), nil
	}
	return evaluateParallel(ctx, g.root, trait, substitution, depth)
}

func evaluateParallel[E, F any](ctx context.Context, n *node[E], trait Trait[F], substitution func(E) F, depth int) (F, error) {
	if err := ctx.Err(); err != nil {
		var zero F
		return zero, err
	}
	if depth <= 0 || n.kind == kindAtom || n.size < parallelThreshold {
		return evaluate(n, trait, substitution)
	}

	var left, right F
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = evaluateParallel(gctx, n.left, trait, substitution, depth-1)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = evaluateParallel(gctx, n.right, trait, substitution, depth-1)
		return err
	})
	if err := g.Wait(); err != nil {
		var zero F
		return zero, err
	}
	return combine(n.kind, trait, left, right)
}
