package flume

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pull supplies the next element from the source. It is called only by
// the dispatcher, one call at a time; returning ok=false means the
// source is exhausted and Pull is never called again.
type Pull[T any] func() (elem T, ok bool)

// Push delivers one completed element to the sink together with the
// user function's result. It is called only by the collector, strictly
// one call at a time, in completion order rather than submission order.
// Returning false rejects further results and terminates the run.
type Push[T, R any] func(elem T, res R, err error) bool

// Work is the user function applied to each element. It runs on one of
// the pool's slots and receives that slot's reusable state.
// Cancellation is advisory: Work is expected to observe ctx and return
// promptly, the engine never preempts an in-progress call.
type Work[S, T, R any] func(ctx context.Context, slot S, elem T) (R, error)

// ErrRejected is the cancellation cause recorded when the sink stops a
// run by returning false.
var ErrRejected = errors.New("flume: sink rejected further results")

// Cause identifies which trigger terminated a run.
type Cause int

const (
	causeUnknown Cause = iota

	// Exhausted means the source ran out of elements.
	Exhausted
	// Rejected means the sink returned false.
	Rejected
	// Cancelled means the caller context ended.
	Cancelled
)

func (c Cause) String() string {
	switch c {
	case Exhausted:
		return "exhausted"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type outcome[T, R any] struct {
	elem T
	res  R
	err  error
}

type run[S, T, R any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	work  Work[S, T, R]
	hooks Hooks

	tasks     chan T
	completed chan outcome[T, R]
	acks      chan struct{}

	stopOnce sync.Once
	cause    Cause
}

// stop records the termination cause. The first trigger wins; rejection
// and cancellation also fire the run's cancellation scope, exhaustion
// only ends the pull loop and lets in-flight work drain.
func (r *run[S, T, R]) stop(c Cause, err error) {
	r.stopOnce.Do(func() {
		r.cause = c
		if c != Exhausted {
			r.cancel(err)
		}
	})
}

// Iterate pulls elements from pull, applies work to each on one of the
// pool's slots, and hands every completed pair to push in completion
// order. At most pool.Size() calls of work run at any instant; both
// hand-offs are rendezvous channels, so a full pool stalls the
// dispatcher and a slow sink stalls the slots.
//
// Iterate returns a non-nil error only when the run was terminated by
// ctx; source exhaustion and sink rejection both return nil. It returns
// only after the dispatcher, every slot, and the collector have exited
// and all in-flight work has drained.
func Iterate[S, T, R any](ctx context.Context, pool *Pool[S], pull Pull[T], work Work[S, T, R], push Push[T, R]) error {
	if pool == nil {
		panic("flume: nil pool")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r := &run[S, T, R]{
		ctx:       runCtx,
		cancel:    cancel,
		work:      work,
		hooks:     HooksFromContext(ctx).Join(pool.hooks),
		tasks:     make(chan T),
		completed: make(chan outcome[T, R]),
		acks:      make(chan struct{}),
	}

	var eg errgroup.Group
	for id := 0; id < pool.size; id++ {
		id := id
		eg.Go(func() error {
			r.runSlot(id, pool)
			return nil
		})
	}
	go r.dispatch(pull)

	// Slots exit only after the dispatcher has closed the task channel,
	// so waiting on the group joins both.
	go func() {
		_ = eg.Wait()
		close(r.completed)
	}()

	r.collect(push)

	if r.hooks.OnDone != nil {
		r.hooks.OnDone(r.cause)
	}
	if r.cause == Cancelled {
		return context.Cause(runCtx)
	}
	return nil
}

func (r *run[S, T, R]) dispatch(pull Pull[T]) {
	defer close(r.tasks)

	for {
		select {
		case <-r.ctx.Done():
			r.stop(Cancelled, context.Cause(r.ctx))
			return
		default:
		}

		elem, ok := pull()
		if !ok {
			// A blocking source may have unblocked because the scope
			// ended rather than because it drained.
			if r.ctx.Err() != nil {
				r.stop(Cancelled, context.Cause(r.ctx))
			} else {
				r.stop(Exhausted, nil)
			}
			return
		}
		if r.hooks.OnPull != nil {
			r.hooks.OnPull()
		}

		select {
		case r.tasks <- elem:
		case <-r.ctx.Done():
			r.stop(Cancelled, context.Cause(r.ctx))
			return
		}
	}
}

func (r *run[S, T, R]) runSlot(id int, pool *Pool[S]) {
	var state S
	if pool.init != nil {
		state = pool.init(id)
	}
	if pool.release != nil {
		defer pool.release(id, state)
	}

	for elem := range r.tasks {
		// An assignment may have been handed off in the same instant the
		// scope ended; it must not start once termination is visible.
		if r.ctx.Err() != nil {
			continue
		}
		if r.hooks.OnStart != nil {
			r.hooks.OnStart(id)
		}
		res, err := r.invoke(state, elem)
		if r.hooks.OnFinish != nil {
			r.hooks.OnFinish(id, err)
		}
		r.completed <- outcome[T, R]{elem: elem, res: res, err: err}

		// The slot stays busy until the collector has acted on the
		// completion, so a rejection verdict is visible before any slot
		// can accept new work.
		<-r.acks
	}
}

// invoke converts a panicking user function into an ordinary error
// result so the fault never crosses the slot's goroutine boundary.
func (r *run[S, T, R]) invoke(state S, elem T) (res R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("flume: panic recovered: %v", p)
		}
	}()
	return r.work(r.ctx, state, elem)
}

// collect merges completions from every slot and drives the sink. Once
// a cause is recorded it stops pushing but keeps draining, so no slot
// is left blocked on an abandoned hand-off.
func (r *run[S, T, R]) collect(push Push[T, R]) {
	pushing := true
	for out := range r.completed {
		switch {
		case !pushing:
		case r.ctx.Err() != nil:
			r.stop(Cancelled, context.Cause(r.ctx))
			pushing = false
		case !push(out.elem, out.res, out.err):
			r.stop(Rejected, ErrRejected)
			pushing = false
		}
		r.acks <- struct{}{}
	}
}
