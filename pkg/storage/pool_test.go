package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigFor(t *testing.T) {
	assert.Equal(t, SQLitePoolConfig(), PoolConfigFor(DriverSQLite))
	assert.Equal(t, DefaultPoolConfig(), PoolConfigFor(DriverPostgres))
}

func TestPoolOptions(t *testing.T) {
	cfg := DefaultPoolConfig()

	MaxOpenConns(2).applyPool(&cfg)
	ConnMaxLifetime(10 * time.Minute).applyPool(&cfg)
	assert.Equal(t, 2, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns, "idle is capped at open")
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxLifetime)

	MaxOpenConns(0).applyPool(&cfg)
	ConnMaxLifetime(0).applyPool(&cfg)
	assert.Equal(t, 2, cfg.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxLifetime)

	WithPoolConfig(SQLitePoolConfig()).applyPool(&cfg)
	assert.Equal(t, SQLitePoolConfig(), cfg)
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	// One connection keeps the in-memory database shared across calls.
	store := NewGormStorage(db)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.SaveSnapshot(context.Background(), "table", []byte(`[]`), time.Now()))
	_, err = store.GetSnapshot(context.Background(), "table")
	assert.NoError(t, err)
}

func TestOpen_PoolOverride(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:", WithPoolConfig(DefaultPoolConfig()), MaxOpenConns(3))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, ConfigurePool(db))
	assert.Equal(t, DefaultPoolConfig().MaxOpenConns, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, ConfigurePool(db, MaxOpenConns(5)))
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}
