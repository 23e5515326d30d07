package pause

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/security"
)

// DefaultMaxPause is how long one burst of activity suppresses refresh.
const DefaultMaxPause = 3 * time.Minute

// ChangeType describes how the window moved.
type ChangeType string

const (
	ChangeActivity ChangeType = "activity"
	ChangeResume   ChangeType = "resume"
)

// Change is passed to the observer after the window has moved.
type Change struct {
	Type        ChangeType
	PausedUntil time.Time
	At          time.Time
}

// Option configures a Window.
type Option interface {
	apply(*Window)
}

type optionFunc func(*Window)

func (f optionFunc) apply(w *Window) { f(w) }

// WithMaxPause sets the length of the window armed by NoteActivity.
// Values are clamped to [security.MinMaxPause, security.MaxMaxPause].
func WithMaxPause(d time.Duration) Option {
	return optionFunc(func(w *Window) {
		w.maxPause = security.ClampMaxPause(d)
	})
}

// WithClock overrides the time source. Tests pass a fake clock.
func WithClock(c clock.PassiveClock) Option {
	return optionFunc(func(w *Window) {
		w.clock = c
	})
}

// WithObserver registers fn to be called after every NoteActivity and ResumeNow.
// fn runs outside the window's lock and must not block.
func WithObserver(fn func(Change)) Option {
	return optionFunc(func(w *Window) {
		w.observer = fn
	})
}

// Window is the shared pause state. It is safe for concurrent use; writes
// are last-write-wins. The zero time means never paused.
type Window struct {
	clock    clock.PassiveClock
	maxPause time.Duration
	observer func(Change)

	mu          sync.RWMutex
	pausedUntil time.Time
}

// New creates an unpaused Window.
func New(opts ...Option) *Window {
	w := &Window{
		clock:    clock.RealClock{},
		maxPause: DefaultMaxPause,
	}
	for _, opt := range opts {
		opt.apply(w)
	}
	return w
}

// MaxPause returns the configured window length.
func (w *Window) MaxPause() time.Duration { return w.maxPause }

// NoteActivity re-arms the window to end MaxPause from now. Repeated calls
// re-arm, they never stack. The deadline never moves backward.
func (w *Window) NoteActivity() time.Time {
	now := w.clock.Now()
	until := now.Add(w.maxPause)

	w.mu.Lock()
	if until.After(w.pausedUntil) {
		w.pausedUntil = until
	}
	until = w.pausedUntil
	w.mu.Unlock()

	w.notify(Change{Type: ChangeActivity, PausedUntil: until, At: now})
	return until
}

// ResumeNow collapses the window so IsPaused is false from now on.
// It does not touch requests already in flight.
func (w *Window) ResumeNow() {
	now := w.clock.Now()

	w.mu.Lock()
	w.pausedUntil = now
	w.mu.Unlock()

	w.notify(Change{Type: ChangeResume, PausedUntil: now, At: now})
}

// IsPaused reports whether now falls inside [activity, activity+MaxPause).
func (w *Window) IsPaused() bool {
	now := w.clock.Now()
	w.mu.RLock()
	defer w.mu.RUnlock()
	return now.Before(w.pausedUntil)
}

// PausedUntil returns the current deadline. The zero time means never armed.
func (w *Window) PausedUntil() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pausedUntil
}

// Remaining returns how long the window stays paused, or 0.
func (w *Window) Remaining() time.Duration {
	now := w.clock.Now()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !now.Before(w.pausedUntil) {
		return 0
	}
	return w.pausedUntil.Sub(now)
}

func (w *Window) notify(c Change) {
	if w.observer != nil {
		w.observer(c)
	}
}
