// Package core provides the domain models and interfaces for the refresh package.
package core

import "context"

// Kind names one independent refresher (tables, activity logs, notifications, ...).
type Kind string

const (
	KindTable        Kind = "table"
	KindLog          Kind = "log"
	KindNotification Kind = "notification"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Source tells what caused a refresh attempt.
type Source string

const (
	SourceTimer  Source = "timer"
	SourceHint   Source = "hint"   // pushed over the activity channel
	SourceManual Source = "manual" // explicit Trigger or API call
)

// Fetcher performs the network request for one refresher kind.
// Implementations must honour ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts an ordinary function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch calls f(ctx).
func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// Sink receives a successfully fetched payload. It is the rendering surface:
// a DOM, a snapshot table, a TUI pane.
type Sink interface {
	Apply(ctx context.Context, kind Kind, payload []byte) error
}

// SinkFunc adapts an ordinary function to Sink.
type SinkFunc func(ctx context.Context, kind Kind, payload []byte) error

// Apply calls f(ctx, kind, payload).
func (f SinkFunc) Apply(ctx context.Context, kind Kind, payload []byte) error {
	return f(ctx, kind, payload)
}

// Starter is the interface for long-running loops.
type Starter interface {
	Start(ctx context.Context) error
}
