package flume

import "context"

// indexed carries an element's original position through the engine so
// results can be stored in input order even though they complete out of
// order.
type indexed[T any] struct {
	pos  int
	elem T
}

// Transform applies f to every element of elems concurrently and
// returns the results in input order. The first f error stops the run:
// no element is newly started after the error is observed, and that
// error is returned. A cancelled ctx yields its cancellation cause
// instead. len(elems)==0 returns an empty slice and nil.
func Transform[T, R any](ctx context.Context, elems []T, f func(context.Context, T) (R, error), opts ...Option) ([]R, error) {
	cfg := defaultConfig()
	cfg.apply(opts)

	results := make([]R, len(elems))
	if len(elems) == 0 {
		return results, nil
	}

	pool := NewPool[noSlot](cfg.concurrency, WithPoolHooks[noSlot](cfg.hooks))

	next := 0
	pull := func() (indexed[T], bool) {
		if next == len(elems) {
			return indexed[T]{}, false
		}
		item := indexed[T]{pos: next, elem: elems[next]}
		next++
		return item, true
	}
	work := func(ctx context.Context, _ noSlot, item indexed[T]) (R, error) {
		return f(ctx, item.elem)
	}

	var firstErr error
	push := func(item indexed[T], res R, err error) bool {
		if err != nil {
			firstErr = err
			return false
		}
		results[item.pos] = res
		return true
	}

	runErr := Iterate(ctx, pool, pull, work, push)
	if firstErr != nil {
		return results, firstErr
	}
	return results, runErr
}

// ForEach applies f to every element of elems concurrently, discarding
// results. Its contract is otherwise identical to Transform.
func ForEach[T any](ctx context.Context, elems []T, f func(context.Context, T) error, opts ...Option) error {
	_, err := Transform(ctx, elems, func(ctx context.Context, elem T) (struct{}, error) {
		return struct{}{}, f(ctx, elem)
	}, opts...)
	return err
}
