package flume

// Pool describes a bounded set of persistent worker slots. Each run
// started with the pool creates the per-slot state once before the
// slot's first assignment and releases it exactly once at teardown,
// whatever cause ended the run. A slot executes its assignments
// strictly serially, so the state needs no locking.
type Pool[S any] struct {
	size    int
	init    func(id int) S
	release func(id int, state S)
	hooks   Hooks
}

// PoolOption configures a Pool.
type PoolOption[S any] func(*Pool[S])

// NewPool creates a pool of size worker slots, identified 0..size-1.
func NewPool[S any](size int, opts ...PoolOption[S]) *Pool[S] {
	if size < 1 {
		panic("flume: pool size must be at least 1")
	}

	p := &Pool[S]{size: size}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Size returns the number of worker slots.
func (p *Pool[S]) Size() int { return p.size }

// WithSlotInit sets the constructor for a slot's reusable state.
func WithSlotInit[S any](fn func(id int) S) PoolOption[S] {
	return func(p *Pool[S]) { p.init = fn }
}

// WithSlotRelease sets the destructor for a slot's state.
func WithSlotRelease[S any](fn func(id int, state S)) PoolOption[S] {
	return func(p *Pool[S]) { p.release = fn }
}

// WithPoolHooks attaches an instrumentation bundle to every run of the
// pool, joined with whatever the run context carries.
func WithPoolHooks[S any](h Hooks) PoolOption[S] {
	return func(p *Pool[S]) { p.hooks = p.hooks.Join(h) }
}

// noSlot is the slot state of engines that carry none.
type noSlot struct{}
