package flume

import (
	"context"
	"sort"
)

type hooksCtxKey struct{}

// ContextWithHooks returns a context whose hook registry is the
// parent's plus h stored under name. The registry is immutable: the
// parent's map is copied, never mutated, so sibling scopes stay
// independent and a nested scope sees the union of inherited and
// locally added entries. Registering a name again replaces the
// inherited entry.
func ContextWithHooks(ctx context.Context, name string, h Hooks) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	parent, _ := ctx.Value(hooksCtxKey{}).(map[string]Hooks)
	registry := make(map[string]Hooks, len(parent)+1)
	for k, v := range parent {
		registry[k] = v
	}
	registry[name] = h
	return context.WithValue(ctx, hooksCtxKey{}, registry)
}

// HooksFromContext folds every bundle registered on ctx into one
// composite, joining in lexical name order so the fold is
// deterministic.
func HooksFromContext(ctx context.Context) Hooks {
	if ctx == nil {
		return Hooks{}
	}

	registry, _ := ctx.Value(hooksCtxKey{}).(map[string]Hooks)
	if len(registry) == 0 {
		return Hooks{}
	}

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	var merged Hooks
	for _, name := range names {
		merged = merged.Join(registry[name])
	}
	return merged
}
