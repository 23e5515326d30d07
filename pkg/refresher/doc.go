// Package refresher provides the guarded periodic refresher used for each
// refresher kind (tables, activity logs, notifications).
//
// This package includes:
//   - Refresher: one kind's fetch, in-flight guard, and tick loop
//   - Option: configuration for sink, schedule, logger, clock and timeout
//   - Stats: point-in-time counters for observability
//
// Every attempt, whether it comes from the timer, a pushed hint, or a manual
// call, goes through the same guard: it is dropped when the shared pause
// window is active or when this kind already has a request outstanding.
//
// Most users should import the root package github.com/jdziat/simple-refresh
// which registers refreshers through the coordinator.
package refresher
