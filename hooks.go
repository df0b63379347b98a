package flume

// Hooks bundles optional instrumentation callbacks observed by a run.
// The zero value is the identity: joining it changes nothing. Any field
// may be nil.
//
// OnPull runs on the dispatcher; OnStart and OnFinish run on slot
// goroutines and may therefore fire concurrently across slots; OnDone
// runs once, on the caller goroutine, after the run has fully drained.
type Hooks struct {
	OnPull   func()
	OnStart  func(slot int)
	OnFinish func(slot int, err error)
	OnDone   func(cause Cause)
}

// Join composes two bundles into one that invokes h's callbacks first,
// then other's. Join is associative and absorbs the zero Hooks, so any
// fold order over a set of bundles yields the same composite.
func (h Hooks) Join(other Hooks) Hooks {
	return Hooks{
		OnPull:   join0(h.OnPull, other.OnPull),
		OnStart:  join1(h.OnStart, other.OnStart),
		OnFinish: join2(h.OnFinish, other.OnFinish),
		OnDone:   join1(h.OnDone, other.OnDone),
	}
}

func join0(a, b func()) func() {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func() { a(); b() }
}

func join1[A any](a, b func(A)) func(A) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(v A) { a(v); b(v) }
}

func join2[A, B any](a, b func(A, B)) func(A, B) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(v A, w B) { a(v, w); b(v, w) }
}
