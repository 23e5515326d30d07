// Package schedule provides tick schedules for refreshers.
//
// This package includes:
//   - Schedule interface for defining when a refresher ticks
//   - Every() for fixed-interval polling
//   - Cron() and ParseCron() for cron expression-based schedules
//   - Parse() for configuration strings that may be either
//
// Most users should import the root package github.com/jdziat/simple-refresh
// which re-exports these functions.
package schedule
