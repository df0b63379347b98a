// Package flume provides a generic concurrent-iteration engine for Go.
//
// It combines:
//   - a dispatcher pulling elements one at a time from a caller source
//   - a pool of persistent worker slots with reusable per-slot state
//   - a collector delivering completions to a caller sink as they finish
//
// Core behavior:
//   - run a source/sink pair with Iterate over a NewPool
//   - map slices concurrently with Transform and ForEach
//   - run dynamically submitted tasks with NewGroup / Go / Wait
//   - consume completions on demand with NewStream / Next / Stop
//
// Semantics:
//   - at most pool-size user-function calls execute at any instant
//   - the sink runs serialized, in completion order, never submission order
//   - a run ends exhausted, rejected, or cancelled; the first cause wins
//   - Iterate returns a non-nil error only for cancellation
//   - both hand-offs are rendezvous channels: a full pool stalls the
//     dispatcher, a slow sink stalls the slots
//
// Instrumentation:
//   - Hooks bundles optional probes; Join composes bundles
//   - ContextWithHooks threads immutable hook registries through call trees
//   - NewMetricsHooks and NewLogHooks adapt Prometheus and logrus
package flume
