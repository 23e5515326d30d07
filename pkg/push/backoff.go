package push

import (
	"context"
	"math/rand"
	"time"
)

// BackoffConfig holds reconnect backoff settings.
type BackoffConfig struct {
	// InitialBackoff is the delay before the first reconnect.
	// Default: 500ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between reconnects.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the delay after each failed attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of the delay to randomize (0.0 to 1.0).
	// Default: 0.1 (10% jitter)
	JitterFraction float64
}

// DefaultBackoffConfig returns the default reconnect backoff.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

type backoff struct {
	cfg     BackoffConfig
	current time.Duration
}

func newBackoff(cfg BackoffConfig) *backoff {
	return &backoff{cfg: cfg, current: cfg.InitialBackoff}
}

func (b *backoff) reset() {
	b.current = b.cfg.InitialBackoff
}

// next returns the jittered delay for this attempt and grows the base delay.
func (b *backoff) next() time.Duration {
	delay := b.current
	jitter := time.Duration(float64(delay) * b.cfg.JitterFraction * (rand.Float64()*2 - 1))
	sleep := delay + jitter
	if sleep < 0 {
		sleep = delay
	}

	b.current = time.Duration(float64(b.current) * b.cfg.BackoffMultiplier)
	if b.current > b.cfg.MaxBackoff {
		b.current = b.cfg.MaxBackoff
	}
	return sleep
}

// wait sleeps for the next delay or until ctx is done.
func (b *backoff) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.next()):
		return nil
	}
}
