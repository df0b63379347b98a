package flume

import (
	"context"
	"sync"
)

// Item is one completed element delivered by a Stream.
type Item[T, R any] struct {
	Elem  T
	Value R
	Err   error
}

// Stream adapts a running engine into a caller-driven iterator:
// completions are handed over one at a time through Next, and the
// caller decides when to stop. While the caller is between Next calls
// the engine's backpressure keeps at most pool-size completions
// pending.
type Stream[T, R any] struct {
	items chan Item[T, R]
	quit  chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	err      error
}

// NewStream starts an engine run over pull and work and returns its
// consumption handle. The caller must eventually call Stop, even after
// Next has reported exhaustion.
func NewStream[S, T, R any](ctx context.Context, pool *Pool[S], pull Pull[T], work Work[S, T, R]) *Stream[T, R] {
	s := &Stream[T, R]{
		items: make(chan Item[T, R]),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		s.err = Iterate(ctx, pool, pull, work, func(elem T, res R, err error) bool {
			select {
			case s.items <- Item[T, R]{Elem: elem, Value: res, Err: err}:
				return true
			case <-s.quit:
				return false
			}
		})
	}()

	return s
}

// Next blocks for the next completion, in completion order. ok=false
// means the run has terminated and fully drained.
func (s *Stream[T, R]) Next() (item Item[T, R], ok bool) {
	select {
	case item = <-s.items:
		return item, true
	case <-s.done:
		return item, false
	}
}

// Stop ends consumption. The engine observes it as sink rejection:
// pulling stops, in-flight work drains, and Stop returns the run's
// terminal error once everything has exited. Stop is idempotent and
// returns the identical error every time.
func (s *Stream[T, R]) Stop() error {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
	return s.err
}
