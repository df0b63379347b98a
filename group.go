package flume

import (
	"context"
	"errors"
	"sync"
)

// Task is a unit of work managed by Group.
type Task func(context.Context) error

var (
	// ErrGroupClosed is returned by Go when submission happens after Wait.
	ErrGroupClosed = errors.New("flume: group is closed")

	// ErrNilTask is returned by Go when the task callback is nil.
	ErrNilTask = errors.New("flume: nil task")
)

// Group runs dynamically registered tasks on a bounded engine run. Its
// source blocks until a task is registered or the group is sealed; its
// sink records the first task error and, in fail-fast mode, cancels the
// remaining tasks.
type Group struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	submit chan Task
	quit   chan struct{}
	done   chan struct{}

	quitOnce sync.Once
	err      error
}

// NewGroup creates a Group and starts its engine run.
func NewGroup(ctx context.Context, opts ...Option) *Group {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := defaultConfig()
	cfg.apply(opts)

	baseCtx, cancel := context.WithCancelCause(ctx)
	g := &Group{
		ctx:    baseCtx,
		cancel: cancel,
		submit: make(chan Task),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go g.run(cfg)

	return g
}

// Context returns the group context passed to each task.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Cancel cancels the group with the given cause.
func (g *Group) Cancel(err error) {
	if err == nil {
		err = context.Canceled
	}
	g.cancel(err)
}

// Go registers a task. It is safe to call concurrently while the group
// runs; when every slot is busy, Go blocks until one frees up. After
// Wait or termination it returns ErrGroupClosed.
func (g *Group) Go(fn Task) error {
	if fn == nil {
		return ErrNilTask
	}

	select {
	case g.submit <- fn:
		return nil
	case <-g.quit:
		return ErrGroupClosed
	case <-g.ctx.Done():
		return ErrGroupClosed
	}
}

// Wait seals the group against new tasks, blocks until every started
// task has drained, and returns the first observed task error, nil if
// none. Repeated calls return the identical error.
func (g *Group) Wait() error {
	g.quitOnce.Do(func() { close(g.quit) })
	<-g.done
	return g.err
}

func (g *Group) run(cfg config) {
	defer close(g.done)

	pool := NewPool[noSlot](cfg.concurrency, WithPoolHooks[noSlot](cfg.hooks))

	pull := func() (Task, bool) {
		select {
		case fn := <-g.submit:
			return fn, true
		case <-g.quit:
			return nil, false
		case <-g.ctx.Done():
			return nil, false
		}
	}
	work := func(ctx context.Context, _ noSlot, fn Task) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}

	var firstErr error
	push := func(_ Task, _ struct{}, err error) bool {
		if err == nil {
			return true
		}
		if firstErr == nil {
			firstErr = err
		}
		if cfg.failFast {
			g.cancel(err)
			return false
		}
		return true
	}

	runErr := Iterate(g.ctx, pool, pull, work, push)

	switch {
	case firstErr != nil:
		g.err = firstErr
	case runErr != nil:
		g.err = runErr
	default:
		g.err = context.Cause(g.ctx)
	}
}
