// Package refresh coordinates periodic dashboard refreshers so they never
// clobber an edit in progress.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	coord := refresh.New()
//
//	rows, _ := refresh.NewHTTPFetcher("https://admin.example.com/api/users")
//	coord.Register(refresh.KindTable, rows, refresh.WithSchedule(refresh.Every(10*time.Second)))
//
//	// From the UI layer:
//	coord.NoteActivity() // user focused an inline editor
//	coord.ResumeNow()    // the save succeeded
//
//	coord.Start(ctx)
package refresh

import (
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/coordinator"
	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/fetch"
	"github.com/jdziat/simple-refresh/pkg/pause"
	"github.com/jdziat/simple-refresh/pkg/refresher"
	"github.com/jdziat/simple-refresh/pkg/schedule"
	"github.com/jdziat/simple-refresh/pkg/security"
	"github.com/jdziat/simple-refresh/pkg/storage"
)

type (
	// Coordinator owns the shared pause window and every refresher.
	Coordinator = coordinator.Coordinator

	// CoordinatorOption configures a Coordinator.
	CoordinatorOption = coordinator.Option

	// Status is a point-in-time view of the coordinator.
	Status = coordinator.Status

	// Refresher issues guarded fetches for one kind.
	Refresher = refresher.Refresher

	// Option configures a Refresher.
	Option = refresher.Option

	// RefresherStats are a refresher's counters.
	RefresherStats = refresher.Stats

	// Kind names a refresher.
	Kind = core.Kind

	// State is a refresher's observed state.
	State = core.State

	// Outcome is the result of a guarded attempt.
	Outcome = core.Outcome

	// Source is what triggered an attempt.
	Source = core.Source

	// Fetcher performs the network request for a kind.
	Fetcher = core.Fetcher

	// FetcherFunc adapts a function to Fetcher.
	FetcherFunc = core.FetcherFunc

	// Sink applies a fetched payload.
	Sink = core.Sink

	// SinkFunc adapts a function to Sink.
	SinkFunc = core.SinkFunc

	// Event is the interface for all coordinator events.
	Event = core.Event

	// ActivityNoted is emitted when the pause window is re-armed.
	ActivityNoted = core.ActivityNoted

	// ResumedNow is emitted when the pause window collapses.
	ResumedNow = core.ResumedNow

	// RefreshSkipped is emitted when an attempt is dropped.
	RefreshSkipped = core.RefreshSkipped

	// RefreshStarted is emitted when a fetch is issued.
	RefreshStarted = core.RefreshStarted

	// RefreshSucceeded is emitted when a payload is applied.
	RefreshSucceeded = core.RefreshSucceeded

	// RefreshFailed is emitted when a fetch or apply fails.
	RefreshFailed = core.RefreshFailed

	// RefreshDiscarded is emitted when a result arrives during a pause.
	RefreshDiscarded = core.RefreshDiscarded

	// HintReceived is emitted for every pushed hint.
	HintReceived = core.HintReceived

	// FetchError wraps a fetch failure with its kind.
	FetchError = core.FetchError

	// Schedule defines when a refresher ticks next.
	Schedule = schedule.Schedule

	// Tracker classifies user interactions.
	Tracker = activity.Tracker

	// ActivityEvent is one user interaction.
	ActivityEvent = activity.Event

	// ActivityElement describes an interaction's target element.
	ActivityElement = activity.Element

	// Scope selects which interactions pause refresh.
	Scope = activity.Scope

	// HTTPFetcher GETs a JSON resource.
	HTTPFetcher = fetch.HTTPFetcher

	// GormStorage persists refresh stats and snapshots.
	GormStorage = storage.GormStorage
)

// Predefined kinds
const (
	KindTable        = core.KindTable
	KindLog          = core.KindLog
	KindNotification = core.KindNotification
)

// State constants
const (
	StateIdle     = core.StateIdle
	StateInFlight = core.StateInFlight
	StatePaused   = core.StatePaused
)

// Outcome constants
const (
	OutcomeStarted         = core.OutcomeStarted
	OutcomeSkippedPaused   = core.OutcomeSkippedPaused
	OutcomeSkippedInFlight = core.OutcomeSkippedInFlight
	OutcomeSkippedClosed   = core.OutcomeSkippedClosed
)

// Scope constants
const (
	ScopeEditors = activity.ScopeEditors
	ScopeGlobal  = activity.ScopeGlobal
)

// Limits
const (
	DefaultMaxPause   = pause.DefaultMaxPause
	MaxKindNameLength = security.MaxKindNameLength
	MinMaxPause       = security.MinMaxPause
	MaxMaxPause       = security.MaxMaxPause
)

// Error variables
var (
	ErrInvalidKind     = core.ErrInvalidKind
	ErrKindTooLong     = core.ErrKindTooLong
	ErrKindExists      = core.ErrKindExists
	ErrUnknownKind     = core.ErrUnknownKind
	ErrInvalidMaxPause = core.ErrInvalidMaxPause
	ErrInvalidInterval = core.ErrInvalidInterval
	ErrNilFetcher      = core.ErrNilFetcher
)

// New creates a Coordinator with an unpaused window.
func New(opts ...CoordinatorOption) *Coordinator {
	return coordinator.New(opts...)
}

// WithMaxPause sets how long one activity note pauses refresh.
func WithMaxPause(d time.Duration) CoordinatorOption {
	return coordinator.WithMaxPause(d)
}

// NewTracker creates an activity tracker driving c.
func NewTracker(c *Coordinator, opts ...activity.Option) *Tracker {
	return activity.NewTracker(c, opts...)
}

// NewHTTPFetcher creates a JSON fetcher for url.
func NewHTTPFetcher(url string, opts ...fetch.Option) (*HTTPFetcher, error) {
	return fetch.New(url, opts...)
}

// NewGormStorage creates a GORM-backed stats and snapshot store.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// ValidateKind validates a refresher kind name.
func ValidateKind(kind Kind) error {
	return security.ValidateKind(kind)
}

// Refresher option functions

// WithSchedule sets when the refresher ticks.
func WithSchedule(s Schedule) Option {
	return refresher.WithSchedule(s)
}

// WithSink sets where fetched payloads are applied.
func WithSink(s Sink) Option {
	return refresher.WithSink(s)
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return refresher.WithTimeout(d)
}

// Schedule functions

// Every creates a schedule that ticks at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}
