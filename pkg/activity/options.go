package activity

import "log/slog"

// Option configures a Tracker.
type Option interface {
	apply(*Tracker)
}

type optionFunc func(*Tracker)

func (f optionFunc) apply(t *Tracker) { f(t) }

// WithScope sets the tracking scope. Unknown scopes are ignored.
func WithScope(s Scope) Option {
	return optionFunc(func(t *Tracker) {
		if s.Valid() {
			t.scope = s
		}
	})
}

// WithKeywords replaces the CRUD keyword list.
func WithKeywords(words ...string) Option {
	return optionFunc(func(t *Tracker) {
		if len(words) > 0 {
			t.setKeywords(words)
		}
	})
}

// WithEditorMarkers replaces the classes and data attributes that identify
// add-row and inline-edit controls.
func WithEditorMarkers(markers ...string) Option {
	return optionFunc(func(t *Tracker) {
		if len(markers) > 0 {
			t.markers = markers
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	})
}
