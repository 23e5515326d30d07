package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jdziat/simple-refresh/pkg/core"
)

// ErrSnapshotNotFound is returned when no payload has been applied for a kind.
var ErrSnapshotNotFound = errors.New("refresh: snapshot not found")

// RefreshStat stores per-kind refresh counters bucketed by minute.
type RefreshStat struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Kind            string    `gorm:"index:idx_refresh_stats_kind_ts;size:64;not null" json:"kind"`
	Timestamp       time.Time `gorm:"index:idx_refresh_stats_kind_ts;not null" json:"timestamp"`
	Started         int64     `gorm:"default:0" json:"started"`
	Succeeded       int64     `gorm:"default:0" json:"succeeded"`
	Failed          int64     `gorm:"default:0" json:"failed"`
	SkippedPaused   int64     `gorm:"default:0" json:"skipped_paused"`
	SkippedInFlight int64     `gorm:"default:0" json:"skipped_in_flight"`
	Discarded       int64     `gorm:"default:0" json:"discarded"`
}

// Snapshot is the last payload applied for a kind.
type Snapshot struct {
	Kind      string    `gorm:"primaryKey;size:64" json:"kind"`
	Payload   []byte    `json:"-"`
	Bytes     int       `json:"bytes"`
	AppliedAt time.Time `gorm:"not null" json:"applied_at"`
}

// Counters are the increments applied to one RefreshStat bucket.
type Counters struct {
	Started         int64
	Succeeded       int64
	Failed          int64
	SkippedPaused   int64
	SkippedInFlight int64
	Discarded       int64
}

// IsZero reports whether every counter is zero.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// Storage is the interface for statistics and snapshot persistence.
type Storage interface {
	Migrate(ctx context.Context) error
	UpsertStatCounters(ctx context.Context, kind core.Kind, ts time.Time, c Counters) error
	GetStatsHistory(ctx context.Context, kind core.Kind, since, until time.Time) ([]RefreshStat, error)
	PruneStats(ctx context.Context, before time.Time) (int64, error)
	SaveSnapshot(ctx context.Context, kind core.Kind, payload []byte, at time.Time) error
	GetSnapshot(ctx context.Context, kind core.Kind) (*Snapshot, error)
}
