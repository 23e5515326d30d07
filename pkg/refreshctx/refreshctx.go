// Package refreshctx carries the current refresh attempt through the fetch
// and apply context so fetchers and sinks can log or forward it.
package refreshctx

import (
	"context"

	"github.com/jdziat/simple-refresh/pkg/core"
)

type attemptKey struct{}

// Attempt identifies one guarded refresh.
type Attempt struct {
	Kind      core.Kind
	AttemptID string
	Source    core.Source
}

// WithAttempt returns a context carrying a.
func WithAttempt(ctx context.Context, a Attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

// AttemptFromContext returns the attempt in ctx, if any.
func AttemptFromContext(ctx context.Context) (Attempt, bool) {
	a, ok := ctx.Value(attemptKey{}).(Attempt)
	return a, ok
}

// AttemptIDFromContext returns the current attempt ID, or empty string
// outside a refresh.
func AttemptIDFromContext(ctx context.Context) string {
	a, _ := AttemptFromContext(ctx)
	return a.AttemptID
}

// KindFromContext returns the kind being refreshed, or empty string
// outside a refresh.
func KindFromContext(ctx context.Context) core.Kind {
	a, _ := AttemptFromContext(ctx)
	return a.Kind
}
