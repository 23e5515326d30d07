package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/pause"
	"github.com/jdziat/simple-refresh/pkg/refresher"
)

// Coordinator owns the shared pause window and the refresher registry.
type Coordinator struct {
	window *pause.Window
	clock  clock.Clock
	logger *slog.Logger
	buffer int

	mu         sync.RWMutex
	refreshers map[core.Kind]*refresher.Refresher
	order      []core.Kind

	// Event stream
	eventSubs []chan core.Event
}

// Status is a point-in-time view for dashboards and the HTTP API.
type Status struct {
	Paused      bool              `json:"paused"`
	PausedUntil *time.Time        `json:"paused_until,omitempty"`
	Remaining   time.Duration     `json:"remaining"`
	MaxPause    time.Duration     `json:"max_pause"`
	Refreshers  []refresher.Stats `json:"refreshers"`
}

// New creates a Coordinator with an unpaused window and no refreshers.
func New(opts ...Option) *Coordinator {
	cfg := &config{
		maxPause: pause.DefaultMaxPause,
		clock:    clock.RealClock{},
		logger:   slog.Default(),
		buffer:   100,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	c := &Coordinator{
		clock:      cfg.clock,
		logger:     cfg.logger,
		buffer:     cfg.buffer,
		refreshers: make(map[core.Kind]*refresher.Refresher),
	}
	c.window = pause.New(
		pause.WithClock(cfg.clock),
		pause.WithMaxPause(cfg.maxPause),
		pause.WithObserver(c.onWindowChange),
	)
	return c
}

// NoteActivity re-arms the pause window to MaxPause from now.
func (c *Coordinator) NoteActivity() {
	c.window.NoteActivity()
}

// ResumeNow collapses the pause window. Call it once per successful
// create/update/delete, not per keystroke.
func (c *Coordinator) ResumeNow() {
	c.window.ResumeNow()
}

// IsPaused reports whether background refreshes are currently suppressed.
func (c *Coordinator) IsPaused() bool {
	return c.window.IsPaused()
}

// Window exposes the shared pause window.
func (c *Coordinator) Window() *pause.Window {
	return c.window
}

func (c *Coordinator) onWindowChange(ch pause.Change) {
	switch ch.Type {
	case pause.ChangeActivity:
		c.logger.Debug("refresh paused", "until", ch.PausedUntil)
		c.Emit(&core.ActivityNoted{PausedUntil: ch.PausedUntil, Timestamp: ch.At})
	case pause.ChangeResume:
		c.logger.Debug("refresh resumed")
		c.Emit(&core.ResumedNow{Timestamp: ch.At})
	}
}

// Register adds a refresher kind. Refreshers must be registered before Start.
// The coordinator's clock, logger and event stream are applied first, so
// opts may override them.
func (c *Coordinator) Register(kind core.Kind, fetcher core.Fetcher, opts ...refresher.Option) (*refresher.Refresher, error) {
	base := []refresher.Option{
		refresher.WithClock(c.clock),
		refresher.WithLogger(c.logger),
		refresher.WithEmitter(c.Emit),
	}
	r, err := refresher.New(kind, fetcher, c.window, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.refreshers[kind]; exists {
		return nil, fmt.Errorf("%w: %s", core.ErrKindExists, kind)
	}
	c.refreshers[kind] = r
	c.order = append(c.order, kind)
	return r, nil
}

// Refresher returns the refresher registered for kind.
func (c *Coordinator) Refresher(kind core.Kind) (*refresher.Refresher, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.refreshers[kind]
	return r, ok
}

// Kinds returns registered kinds in registration order.
func (c *Coordinator) Kinds() []core.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]core.Kind, len(c.order))
	copy(kinds, c.order)
	return kinds
}

func (c *Coordinator) all() []*refresher.Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs := make([]*refresher.Refresher, 0, len(c.order))
	for _, k := range c.order {
		rs = append(rs, c.refreshers[k])
	}
	return rs
}

func (c *Coordinator) lookup(kind core.Kind) (*refresher.Refresher, error) {
	r, ok := c.Refresher(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
	return r, nil
}

// Trigger starts a guarded refresh of kind without waiting for it.
func (c *Coordinator) Trigger(ctx context.Context, kind core.Kind) (core.Outcome, error) {
	r, err := c.lookup(kind)
	if err != nil {
		return "", err
	}
	return r.Trigger(ctx, core.SourceManual), nil
}

// Refresh runs a guarded refresh of kind and waits for it to settle.
func (c *Coordinator) Refresh(ctx context.Context, kind core.Kind) (core.Outcome, error) {
	r, err := c.lookup(kind)
	if err != nil {
		return "", err
	}
	return r.Refresh(ctx, core.SourceManual)
}

// Hint handles a pushed "activity occurred" message. It takes the same
// guarded path as a timer tick. An empty kind hints every refresher.
func (c *Coordinator) Hint(ctx context.Context, kind core.Kind) (map[core.Kind]core.Outcome, error) {
	var targets []*refresher.Refresher
	if kind == "" {
		targets = c.all()
	} else {
		r, err := c.lookup(kind)
		if err != nil {
			return nil, err
		}
		targets = []*refresher.Refresher{r}
	}

	c.Emit(&core.HintReceived{Kind: kind, Timestamp: c.clock.Now()})

	outcomes := make(map[core.Kind]core.Outcome, len(targets))
	for _, r := range targets {
		outcomes[r.Kind()] = r.Trigger(ctx, core.SourceHint)
	}
	return outcomes, nil
}

// States returns the current state of every refresher kind.
func (c *Coordinator) States() map[core.Kind]core.State {
	rs := c.all()
	states := make(map[core.Kind]core.State, len(rs))
	for _, r := range rs {
		states[r.Kind()] = r.State()
	}
	return states
}

// Status returns the window and per-kind counters.
func (c *Coordinator) Status() Status {
	s := Status{
		Paused:    c.window.IsPaused(),
		Remaining: c.window.Remaining(),
		MaxPause:  c.window.MaxPause(),
	}
	if until := c.window.PausedUntil(); !until.IsZero() {
		s.PausedUntil = &until
	}
	for _, r := range c.all() {
		s.Refreshers = append(s.Refreshers, r.Stats())
	}
	return s
}

// Start runs every registered refresher's schedule. Blocks until ctx is
// cancelled, then shuts every refresher down and waits for outstanding
// fetches to settle. Triggers and hints arriving after that are skipped
// with OutcomeSkippedClosed.
func (c *Coordinator) Start(ctx context.Context) error {
	rs := c.all()
	c.logger.Info("refresh coordinator started", "kinds", len(rs), "max_pause", c.window.MaxPause())

	var wg sync.WaitGroup
	for _, r := range rs {
		wg.Add(1)
		go func(r *refresher.Refresher) {
			defer wg.Done()
			_ = r.Run(ctx)
		}(r)
	}

	<-ctx.Done()
	wg.Wait()
	c.Shutdown()
	c.logger.Info("refresh coordinator stopped")
	return ctx.Err()
}

// Wait blocks until no refresher has a fetch outstanding. Callers must not
// trigger concurrently; Shutdown covers that case.
func (c *Coordinator) Wait() {
	for _, r := range c.all() {
		r.Wait()
	}
}

// Shutdown stops every refresher from accepting new attempts and waits for
// outstanding fetches to settle. Safe to call while other goroutines
// trigger or hint.
func (c *Coordinator) Shutdown() {
	for _, r := range c.all() {
		r.Shutdown()
	}
}

// Close cancels outstanding fetches of every refresher.
func (c *Coordinator) Close() {
	for _, r := range c.all() {
		r.Close()
	}
}

// Events returns a channel that receives coordinator events.
// Events are dropped for a subscriber whose buffer is full.
func (c *Coordinator) Events() <-chan core.Event {
	ch := make(chan core.Event, c.buffer)
	c.mu.Lock()
	c.eventSubs = append(c.eventSubs, ch)
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed; callers must stop reading before calling Unsubscribe.
func (c *Coordinator) Unsubscribe(ch <-chan core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.eventSubs {
		if sub == ch {
			c.eventSubs = append(c.eventSubs[:i], c.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit emits an event to all subscribers.
func (c *Coordinator) Emit(e core.Event) {
	c.mu.RLock()
	subs := make([]chan core.Event, len(c.eventSubs))
	copy(subs, c.eventSubs)
	c.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full - this prevents blocking on slow consumers
		}
	}
}
