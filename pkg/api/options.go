// Package api exposes the refresh coordinator over HTTP for the dashboard.
package api

import (
	"log/slog"
	"net/http"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/storage"
)

// Option configures the API handler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	middleware []func(http.Handler) http.Handler
	tracker    *activity.Tracker
	storage    storage.Storage
	metrics    http.Handler
	logger     *slog.Logger
}

// WithMiddleware wraps the handler with middleware (auth, CORS, etc.).
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return optionFunc(func(c *config) {
		c.middleware = append(c.middleware, mw...)
	})
}

// WithTracker sets the activity tracker used by /activity and /mutations.
// Without it a tracker with default scope and keywords is created.
func WithTracker(t *activity.Tracker) Option {
	return optionFunc(func(c *config) {
		c.tracker = t
	})
}

// WithStorage enables the /snapshots and /stats endpoints.
func WithStorage(s storage.Storage) Option {
	return optionFunc(func(c *config) {
		c.storage = s
	})
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return optionFunc(func(c *config) {
		c.metrics = h
	})
}
