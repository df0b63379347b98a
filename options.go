package flume

import "runtime"

// Option configures a derived engine (Transform, ForEach, Group).
type Option func(*config)

type config struct {
	concurrency int
	failFast    bool
	hooks       Hooks
}

func defaultConfig() config {
	return config{
		concurrency: runtime.GOMAXPROCS(0),
		failFast:    true,
	}
}

func (c *config) apply(opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
}

// WithConcurrency sets how many worker slots the engine uses.
func WithConcurrency(n int) Option {
	if n < 1 {
		panic("flume: concurrency must be at least 1")
	}

	return func(c *config) {
		c.concurrency = n
	}
}

// WithFailFast controls whether a Group cancels on the first task
// error. Transform and ForEach always fail fast.
func WithFailFast(enabled bool) Option {
	return func(c *config) {
		c.failFast = enabled
	}
}

// WithHooks attaches an instrumentation bundle to the engine run,
// joined with whatever the run context carries.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Join(h)
	}
}
