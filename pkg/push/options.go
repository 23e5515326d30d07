package push

import (
	"log/slog"
	"net/http"
)

// Option configures a Listener.
type Option interface {
	apply(*Listener)
}

type optionFunc func(*Listener)

func (f optionFunc) apply(l *Listener) { f(l) }

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	})
}

// WithBackoff sets the reconnect backoff. Zero durations keep their defaults.
func WithBackoff(cfg BackoffConfig) Option {
	return optionFunc(func(l *Listener) {
		if cfg.InitialBackoff > 0 {
			l.backoff.InitialBackoff = cfg.InitialBackoff
		}
		if cfg.MaxBackoff > 0 {
			l.backoff.MaxBackoff = cfg.MaxBackoff
		}
		if cfg.BackoffMultiplier >= 1 {
			l.backoff.BackoffMultiplier = cfg.BackoffMultiplier
		}
		if cfg.JitterFraction >= 0 && cfg.JitterFraction <= 1 {
			l.backoff.JitterFraction = cfg.JitterFraction
		}
	})
}

// WithHeader adds a header to the handshake request.
func WithHeader(key, value string) Option {
	return optionFunc(func(l *Listener) {
		l.header.Add(key, value)
	})
}

// WithHTTPClient sets the client used for the handshake.
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(l *Listener) {
		l.client = c
	})
}
