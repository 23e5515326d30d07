package activity

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Scope selects which interactions pause refresh.
type Scope string

const (
	// ScopeEditors pauses only for the table's add-row and inline-edit controls.
	ScopeEditors Scope = "editors"
	// ScopeGlobal pauses for any form field and any CRUD-looking click.
	ScopeGlobal Scope = "global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeEditors || s == ScopeGlobal
}

// DefaultKeywords are the words that mark a control as create/update/delete.
var DefaultKeywords = []string{"add", "new", "create", "edit", "update", "save", "delete", "remove"}

// DefaultEditorMarkers are the classes and data attributes that identify the
// table's add-row and inline-edit controls.
var DefaultEditorMarkers = []string{"add-row-input", "inline-edit-input", "inline-edit", "add-row"}

// Window is the part of the coordinator the tracker drives.
type Window interface {
	NoteActivity()
	ResumeNow()
}

// Stats are the tracker's counters.
type Stats struct {
	Observed int64 `json:"observed"`
	Noted    int64 `json:"noted"`
	Resumed  int64 `json:"resumed"`
}

// Tracker classifies interactions and mutation results.
type Tracker struct {
	window   Window
	scope    Scope
	keywords map[string]bool
	markers  []string
	logger   *slog.Logger

	observed atomic.Int64
	noted    atomic.Int64
	resumed  atomic.Int64
}

// NewTracker creates a Tracker that drives w.
func NewTracker(w Window, opts ...Option) *Tracker {
	t := &Tracker{
		window:  w,
		scope:   ScopeEditors,
		markers: DefaultEditorMarkers,
		logger:  slog.Default(),
	}
	t.setKeywords(DefaultKeywords)
	for _, opt := range opts {
		opt.apply(t)
	}
	return t
}

func (t *Tracker) setKeywords(words []string) {
	t.keywords = make(map[string]bool, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			t.keywords[w] = true
		}
	}
}

// Scope returns the configured scope.
func (t *Tracker) Scope() Scope { return t.scope }

// Observe notes activity if ev qualifies and reports whether it did.
func (t *Tracker) Observe(ev Event) bool {
	t.observed.Add(1)
	if !t.Qualifies(ev) {
		return false
	}
	t.noted.Add(1)
	t.window.NoteActivity()
	t.logger.Debug("activity noted", "event", string(ev.Type), "tag", ev.Target.Tag)
	return true
}

// Qualifies reports whether ev counts as editing under the tracker's scope.
func (t *Tracker) Qualifies(ev Event) bool {
	el := ev.Target

	if ev.Type.editing() && t.isEditor(el) && el.acceptsMarkedInput() {
		return true
	}
	if t.scope != ScopeGlobal {
		return false
	}

	switch {
	case ev.Type.editing():
		return el.isFormField()
	case ev.Type == EventClick:
		return el.isControl() && t.looksLikeCRUD(el)
	}
	return false
}

// MutationCompleted collapses the pause window after a successful
// create, update or delete. It reports whether it resumed.
func (t *Tracker) MutationCompleted(method string, status int) bool {
	if !IsMutation(method) || status < 200 || status > 299 {
		return false
	}
	t.resumed.Add(1)
	t.window.ResumeNow()
	t.logger.Debug("mutation completed, refresh resumed", "method", strings.ToUpper(method), "status", status)
	return true
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Observed: t.observed.Load(),
		Noted:    t.noted.Load(),
		Resumed:  t.resumed.Load(),
	}
}

// IsMutation reports whether method creates, updates or deletes.
func IsMutation(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (t *Tracker) isEditor(el Element) bool {
	for _, m := range t.markers {
		if el.hasClass(m) {
			return true
		}
		if _, ok := el.Data[m]; ok {
			return true
		}
	}
	return false
}

func (t *Tracker) looksLikeCRUD(el Element) bool {
	for _, w := range el.words() {
		if t.keywords[w] {
			return true
		}
	}
	return false
}
