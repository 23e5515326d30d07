package refresher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/refreshctx"
	"github.com/jdziat/simple-refresh/pkg/schedule"
	"github.com/jdziat/simple-refresh/pkg/security"
)

// Pauser is the read side of the shared pause window.
type Pauser interface {
	IsPaused() bool
}

// Refresher issues guarded fetches for one kind. At most one fetch per
// Refresher is ever outstanding.
type Refresher struct {
	kind       core.Kind
	fetcher    core.Fetcher
	pauser     Pauser
	sink       core.Sink
	schedule   schedule.Schedule
	clock      clock.Clock
	logger     *slog.Logger
	emit       func(core.Event)
	timeout    time.Duration
	runOnStart bool

	inFlight atomic.Bool

	// mu orders wg.Add in acquire against the wg.Wait in Shutdown.
	mu      sync.RWMutex
	closing bool
	wg      sync.WaitGroup

	// closed is cancelled by Close so outgoing requests stop on shutdown.
	closed    context.Context
	closeFunc context.CancelFunc

	started         atomic.Int64
	succeeded       atomic.Int64
	failed          atomic.Int64
	skippedPaused   atomic.Int64
	skippedInFlight atomic.Int64
	discarded       atomic.Int64
	lastSuccess     atomic.Int64 // unix nanos
}

// Stats are point-in-time counters.
type Stats struct {
	Kind            core.Kind  `json:"kind"`
	State           core.State `json:"state"`
	Started         int64      `json:"started"`
	Succeeded       int64      `json:"succeeded"`
	Failed          int64      `json:"failed"`
	SkippedPaused   int64      `json:"skipped_paused"`
	SkippedInFlight int64      `json:"skipped_in_flight"`
	Discarded       int64      `json:"discarded"`
	LastSuccess     *time.Time `json:"last_success,omitempty"`
}

// New creates a Refresher for kind. pauser is consulted before every attempt.
func New(kind core.Kind, fetcher core.Fetcher, pauser Pauser, opts ...Option) (*Refresher, error) {
	if err := security.ValidateKind(kind); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, core.ErrNilFetcher
	}

	r := &Refresher{
		kind:    kind,
		fetcher: fetcher,
		pauser:  pauser,
		clock:   clock.RealClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	r.logger = r.logger.With("kind", string(kind))
	r.closed, r.closeFunc = context.WithCancel(context.Background())

	return r, nil
}

// Kind returns the refresher kind.
func (r *Refresher) Kind() core.Kind { return r.kind }

// InFlight reports whether a fetch for this kind is outstanding.
func (r *Refresher) InFlight() bool { return r.inFlight.Load() }

// State returns InFlight while a fetch is outstanding, Paused when the next
// tick would be dropped by the pause window, Idle otherwise.
func (r *Refresher) State() core.State {
	if r.inFlight.Load() {
		return core.StateInFlight
	}
	if r.paused() {
		return core.StatePaused
	}
	return core.StateIdle
}

// Trigger attempts a refresh and returns without waiting for it. A skipped
// attempt is dropped; the next tick re-checks.
func (r *Refresher) Trigger(ctx context.Context, source core.Source) core.Outcome {
	attemptID, outcome := r.acquire(source)
	if outcome != core.OutcomeStarted {
		return outcome
	}

	go func() {
		defer r.wg.Done()
		_ = r.settle(ctx, attemptID, source)
	}()
	return outcome
}

// Refresh attempts a refresh and waits for it to settle. The error is the
// fetch or apply failure; it has already been logged.
func (r *Refresher) Refresh(ctx context.Context, source core.Source) (core.Outcome, error) {
	attemptID, outcome := r.acquire(source)
	if outcome != core.OutcomeStarted {
		return outcome, nil
	}

	defer r.wg.Done()
	return outcome, r.settle(ctx, attemptID, source)
}

// Run ticks on the configured schedule until ctx is cancelled. Fetches it
// started see the same cancellation; call Wait to block until they settle.
func (r *Refresher) Run(ctx context.Context) error {
	if r.runOnStart {
		r.Trigger(ctx, core.SourceTimer)
	}

	if r.schedule == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	timer := r.clock.NewTimer(r.untilNext())
	defer timer.Stop()

	r.logger.Debug("refresher started", "schedule", fmt.Sprint(r.schedule))

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("refresher stopped")
			return ctx.Err()
		case <-timer.C():
			r.Trigger(ctx, core.SourceTimer)
			timer.Reset(r.untilNext())
		}
	}
}

// Wait blocks until every outstanding fetch has settled. It must not race
// with Trigger or Refresh from other goroutines; use Shutdown for that.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting attempts and waits for outstanding fetches to
// settle. Later attempts return OutcomeSkippedClosed.
func (r *Refresher) Shutdown() {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Close cancels any outstanding fetch and shuts the refresher down.
func (r *Refresher) Close() {
	r.closeFunc()
	r.Shutdown()
}

// Stats returns the current counters.
func (r *Refresher) Stats() Stats {
	s := Stats{
		Kind:            r.kind,
		State:           r.State(),
		Started:         r.started.Load(),
		Succeeded:       r.succeeded.Load(),
		Failed:          r.failed.Load(),
		SkippedPaused:   r.skippedPaused.Load(),
		SkippedInFlight: r.skippedInFlight.Load(),
		Discarded:       r.discarded.Load(),
	}
	if ns := r.lastSuccess.Load(); ns > 0 {
		t := time.Unix(0, ns)
		s.LastSuccess = &t
	}
	return s
}

func (r *Refresher) untilNext() time.Duration {
	now := r.clock.Now()
	d := r.schedule.Next(now).Sub(now)
	if d < 0 {
		d = 0
	}
	return d
}

func (r *Refresher) paused() bool {
	return r.pauser != nil && r.pauser.IsPaused()
}

// acquire runs the guards. The pause check comes first so a paused tick
// never touches the in-flight flag. The read lock keeps wg.Add from racing
// Shutdown's wg.Wait.
func (r *Refresher) acquire(source core.Source) (string, core.Outcome) {
	if r.paused() {
		r.skippedPaused.Add(1)
		r.skip(source, core.OutcomeSkippedPaused)
		return "", core.OutcomeSkippedPaused
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closing {
		r.skip(source, core.OutcomeSkippedClosed)
		return "", core.OutcomeSkippedClosed
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		r.skippedInFlight.Add(1)
		r.skip(source, core.OutcomeSkippedInFlight)
		return "", core.OutcomeSkippedInFlight
	}
	r.wg.Add(1)

	attemptID := uuid.New().String()
	r.started.Add(1)
	r.publish(&core.RefreshStarted{
		Kind:      r.kind,
		AttemptID: attemptID,
		Source:    source,
		Timestamp: r.clock.Now(),
	})
	return attemptID, core.OutcomeStarted
}

func (r *Refresher) skip(source core.Source, reason core.Outcome) {
	r.logger.Debug("refresh skipped", "source", string(source), "reason", string(reason))
	r.publish(&core.RefreshSkipped{
		Kind:      r.kind,
		Source:    source,
		Reason:    reason,
		Timestamp: r.clock.Now(),
	})
}

// settle performs the fetch for an acquired attempt. The in-flight flag is
// cleared on every path, including a panicking fetcher or sink.
func (r *Refresher) settle(ctx context.Context, attemptID string, source core.Source) (err error) {
	defer r.inFlight.Store(false)

	start := r.clock.Now()
	defer func() {
		if p := recover(); p != nil {
			err = r.fail(attemptID, start, fmt.Errorf("panic: %v", p))
		}
	}()

	fctx, cancel := r.fetchContext(ctx)
	defer cancel()
	fctx = refreshctx.WithAttempt(fctx, refreshctx.Attempt{Kind: r.kind, AttemptID: attemptID, Source: source})

	payload, fetchErr := r.fetcher.Fetch(fctx)
	if fetchErr != nil {
		return r.fail(attemptID, start, fetchErr)
	}

	// The user started editing while the request was out; rendering now
	// would clobber their edit.
	if r.paused() {
		r.discarded.Add(1)
		r.logger.Debug("refresh result discarded", "attempt_id", attemptID)
		r.publish(&core.RefreshDiscarded{Kind: r.kind, AttemptID: attemptID, Timestamp: r.clock.Now()})
		return nil
	}

	if r.sink != nil {
		if applyErr := r.sink.Apply(fctx, r.kind, payload); applyErr != nil {
			return r.fail(attemptID, start, fmt.Errorf("apply: %w", applyErr))
		}
	}

	now := r.clock.Now()
	r.succeeded.Add(1)
	r.lastSuccess.Store(now.UnixNano())
	r.publish(&core.RefreshSucceeded{
		Kind:      r.kind,
		AttemptID: attemptID,
		Bytes:     len(payload),
		Duration:  now.Sub(start),
		Timestamp: now,
	})
	return nil
}

func (r *Refresher) fail(attemptID string, start time.Time, cause error) error {
	err := core.NewFetchError(r.kind, cause)
	now := r.clock.Now()
	r.failed.Add(1)

	if errors.Is(cause, context.Canceled) {
		r.logger.Debug("refresh cancelled", "attempt_id", attemptID)
	} else {
		r.logger.Warn("refresh failed",
			"attempt_id", attemptID,
			"error", security.SanitizeErrorMessage(cause.Error()))
	}

	r.publish(&core.RefreshFailed{
		Kind:      r.kind,
		AttemptID: attemptID,
		Error:     err,
		Duration:  now.Sub(start),
		Timestamp: now,
	})
	return err
}

func (r *Refresher) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	fctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.closed, cancel)
	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		fctx, cancelTimeout = context.WithTimeout(fctx, r.timeout)
		return fctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return fctx, func() {
		stop()
		cancel()
	}
}

func (r *Refresher) publish(e core.Event) {
	if r.emit != nil {
		r.emit(e)
	}
}
