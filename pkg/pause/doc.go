// Package pause provides the shared pause window that suppresses background
// refreshes while a user is editing.
//
// A Window holds one timestamp, pausedUntil. User activity re-arms it to
// now+MaxPause (absolute, never cumulative); a completed mutation collapses
// it to now. Every refresher consults IsPaused immediately before issuing a
// request and drops the tick when it reports true.
//
// Most users should import the root package github.com/jdziat/simple-refresh
// which wires a Window into the coordinator.
package pause
