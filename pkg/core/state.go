package core

// State is the observable state of one refresher kind.
type State string

const (
	// StateIdle means no request is outstanding and refresh is not paused.
	StateIdle State = "idle"
	// StateInFlight means a request for this kind has been issued and not yet settled.
	StateInFlight State = "in_flight"
	// StatePaused is a transient observation: idle, but the shared window
	// would make the next tick a no-op. It is never stored.
	StatePaused State = "paused"
)

// Outcome is the result of a guarded refresh attempt.
type Outcome string

const (
	OutcomeStarted         Outcome = "started"
	OutcomeSkippedPaused   Outcome = "skipped_paused"
	OutcomeSkippedInFlight Outcome = "skipped_in_flight"
	// OutcomeSkippedClosed means the refresher is shutting down.
	OutcomeSkippedClosed   Outcome = "skipped_closed"
)

// Skipped reports whether the attempt was dropped by a guard.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedPaused, OutcomeSkippedInFlight, OutcomeSkippedClosed:
		return true
	}
	return false
}
