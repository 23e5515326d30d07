package coordinator

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

// Option configures a Coordinator.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	maxPause time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	buffer   int
}

// WithMaxPause sets how long one burst of activity suppresses refresh. Default: 3 minutes.
func WithMaxPause(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.maxPause = d
	})
}

// WithClock overrides the time source for the window and every refresher.
func WithClock(clk clock.Clock) Option {
	return optionFunc(func(c *config) {
		c.clock = clk
	})
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithEventBuffer sets the buffer size of channels returned by Events. Default: 100.
func WithEventBuffer(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.buffer = n
		}
	})
}
