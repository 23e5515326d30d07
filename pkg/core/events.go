package core

import "time"

// Event is the interface for all coordinator events.
type Event interface {
	eventMarker()
}

// ActivityNoted is emitted when user activity re-arms the pause window.
type ActivityNoted struct {
	PausedUntil time.Time
	Timestamp   time.Time
}

func (*ActivityNoted) eventMarker() {}

// ResumedNow is emitted when the pause window is collapsed after a mutation.
type ResumedNow struct {
	Timestamp time.Time
}

func (*ResumedNow) eventMarker() {}

// RefreshSkipped is emitted when a tick is dropped by the pause or in-flight guard.
type RefreshSkipped struct {
	Kind      Kind
	Source    Source
	Reason    Outcome
	Timestamp time.Time
}

func (*RefreshSkipped) eventMarker() {}

// RefreshStarted is emitted when a guarded fetch is issued.
type RefreshStarted struct {
	Kind      Kind
	AttemptID string
	Source    Source
	Timestamp time.Time
}

func (*RefreshStarted) eventMarker() {}

// RefreshSucceeded is emitted when a fetch settles and its payload was applied.
type RefreshSucceeded struct {
	Kind      Kind
	AttemptID string
	Bytes     int
	Duration  time.Duration
	Timestamp time.Time
}

func (*RefreshSucceeded) eventMarker() {}

// RefreshFailed is emitted when a fetch or apply fails.
type RefreshFailed struct {
	Kind      Kind
	AttemptID string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

func (*RefreshFailed) eventMarker() {}

// RefreshDiscarded is emitted when a fetch settles while the user has started
// editing, so its payload is dropped instead of re-rendering under them.
type RefreshDiscarded struct {
	Kind      Kind
	AttemptID string
	Timestamp time.Time
}

func (*RefreshDiscarded) eventMarker() {}

// HintReceived is emitted when a pushed activity message asks for a refresh.
type HintReceived struct {
	Kind      Kind // empty means every kind
	Timestamp time.Time
}

func (*HintReceived) eventMarker() {}
