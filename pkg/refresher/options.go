package refresher

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/schedule"
)

// Option configures a Refresher.
type Option interface {
	apply(*Refresher)
}

type optionFunc func(*Refresher)

func (f optionFunc) apply(r *Refresher) { f(r) }

// WithSink sets where successful payloads are applied.
func WithSink(s core.Sink) Option {
	return optionFunc(func(r *Refresher) {
		r.sink = s
	})
}

// WithSchedule sets when Run ticks. Without a schedule the refresher only
// reacts to hints and manual triggers.
func WithSchedule(s schedule.Schedule) Option {
	return optionFunc(func(r *Refresher) {
		r.schedule = s
	})
}

// WithInterval is shorthand for WithSchedule(schedule.Every(d)).
func WithInterval(d time.Duration) Option {
	return WithSchedule(schedule.Every(d))
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	})
}

// WithClock overrides the time source used for scheduling and durations.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(r *Refresher) {
		r.clock = c
	})
}

// WithEmitter sets the function that receives refresher events.
func WithEmitter(fn func(core.Event)) Option {
	return optionFunc(func(r *Refresher) {
		r.emit = fn
	})
}

// WithTimeout bounds each fetch. Zero means only the caller's context applies.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(r *Refresher) {
		r.timeout = d
	})
}

// WithRunOnStart makes Run attempt a refresh as soon as it starts, the way
// a page populates its widgets on load.
func WithRunOnStart(enabled bool) Option {
	return optionFunc(func(r *Refresher) {
		r.runOnStart = enabled
	})
}
