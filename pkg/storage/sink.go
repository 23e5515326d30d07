package storage

import (
	"context"

	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/core"
)

// SnapshotSink records every applied payload. It implements core.Sink and
// may wrap another sink, which runs first.
type SnapshotSink struct {
	store Storage
	next  core.Sink
	clock clock.PassiveClock
}

// NewSnapshotSink creates a sink writing to store. next may be nil.
func NewSnapshotSink(store Storage, next core.Sink) *SnapshotSink {
	return &SnapshotSink{store: store, next: next, clock: clock.RealClock{}}
}

// WithClock sets the clock used for AppliedAt.
func (s *SnapshotSink) WithClock(c clock.PassiveClock) *SnapshotSink {
	s.clock = c
	return s
}

// Apply forwards to the wrapped sink, then stores the payload.
func (s *SnapshotSink) Apply(ctx context.Context, kind core.Kind, payload []byte) error {
	if s.next != nil {
		if err := s.next.Apply(ctx, kind, payload); err != nil {
			return err
		}
	}
	return s.store.SaveSnapshot(ctx, kind, payload, s.clock.Now())
}

var _ core.Sink = (*SnapshotSink)(nil)
