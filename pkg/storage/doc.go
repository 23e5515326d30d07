// Package storage persists refresh statistics and the last applied payload
// per kind.
//
// This package includes:
//   - GormStorage: a GORM-based implementation supporting SQLite and PostgreSQL
//   - SnapshotSink: a core.Sink that records every applied payload
//   - StatsCollector: turns coordinator events into per-minute counters
//   - Open: connects with driver-appropriate pool settings
//
// The pause window itself is never persisted.
package storage
