package ha

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewMigrationLocker_NilDB(t *testing.T) {
	locker := NewMigrationLocker(nil)
	called := false
	require.NoError(t, locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestFallbackMigrationLock_RunsFn(t *testing.T) {
	db := newTestDB(t)
	locker := NewMigrationLocker(db)

	called := false
	require.NoError(t, locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)

	// The lock row is released afterwards.
	var count int64
	require.NoError(t, db.Model(&migrationLockRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFallbackMigrationLock_Serializes(t *testing.T) {
	db := newTestDB(t)
	locker := NewMigrationLocker(db)

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock(context.Background(), func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}

func TestFallbackMigrationLock_StaleLockRecovered(t *testing.T) {
	db := newTestDB(t)
	locker := NewMigrationLocker(db)

	// Simulate a crashed holder with an old lock row.
	require.NoError(t, db.Create(&migrationLockRecord{
		ID:       "migration",
		LockedAt: time.Now().Add(-time.Hour),
		LockedBy: "crashed-replica",
	}).Error)

	called := false
	require.NoError(t, locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestMigrationLockEnabled(t *testing.T) {
	t.Setenv("ORDERCORE_MIGRATION_LOCK_ENABLED", "")
	assert.True(t, MigrationLockEnabled())

	t.Setenv("ORDERCORE_MIGRATION_LOCK_ENABLED", "false")
	assert.False(t, MigrationLockEnabled())

	t.Setenv("ORDERCORE_MIGRATION_LOCK_ENABLED", "1")
	assert.True(t, MigrationLockEnabled())
}
