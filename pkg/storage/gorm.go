package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-refresh/pkg/core"
)

// GormStorage implements Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&RefreshStat{}, &Snapshot{})
}

// UpsertStatCounters adds c to the bucket for kind at ts, truncated to the minute.
func (s *GormStorage) UpsertStatCounters(ctx context.Context, kind core.Kind, ts time.Time, c Counters) error {
	ts = ts.UTC().Truncate(time.Minute)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RefreshStat
		result := tx.Where("kind = ? AND timestamp = ?", string(kind), ts).First(&existing)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(&RefreshStat{
				Kind:            string(kind),
				Timestamp:       ts,
				Started:         c.Started,
				Succeeded:       c.Succeeded,
				Failed:          c.Failed,
				SkippedPaused:   c.SkippedPaused,
				SkippedInFlight: c.SkippedInFlight,
				Discarded:       c.Discarded,
			}).Error
		}
		if result.Error != nil {
			return result.Error
		}

		return tx.Model(&existing).Updates(map[string]any{
			"started":           gorm.Expr("started + ?", c.Started),
			"succeeded":         gorm.Expr("succeeded + ?", c.Succeeded),
			"failed":            gorm.Expr("failed + ?", c.Failed),
			"skipped_paused":    gorm.Expr("skipped_paused + ?", c.SkippedPaused),
			"skipped_in_flight": gorm.Expr("skipped_in_flight + ?", c.SkippedInFlight),
			"discarded":         gorm.Expr("discarded + ?", c.Discarded),
		}).Error
	})
}

// GetStatsHistory returns buckets in time order. An empty kind matches all
// kinds; zero times leave that end of the range open.
func (s *GormStorage) GetStatsHistory(ctx context.Context, kind core.Kind, since, until time.Time) ([]RefreshStat, error) {
	var stats []RefreshStat
	q := s.db.WithContext(ctx).Order("timestamp ASC").Order("kind ASC")

	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UTC())
	}
	if !until.IsZero() {
		q = q.Where("timestamp <= ?", until.UTC())
	}

	return stats, q.Find(&stats).Error
}

// PruneStats deletes buckets older than before.
func (s *GormStorage) PruneStats(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&RefreshStat{})
	return result.RowsAffected, result.Error
}

// SaveSnapshot replaces the stored payload for kind.
func (s *GormStorage) SaveSnapshot(ctx context.Context, kind core.Kind, payload []byte, at time.Time) error {
	snap := &Snapshot{
		Kind:      string(kind),
		Payload:   payload,
		Bytes:     len(payload),
		AppliedAt: at.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "bytes", "applied_at"}),
	}).Create(snap).Error
}

// GetSnapshot returns the last payload applied for kind.
func (s *GormStorage) GetSnapshot(ctx context.Context, kind core.Kind) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.WithContext(ctx).Where("kind = ?", string(kind)).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, kind)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

var _ Storage = (*GormStorage)(nil)
