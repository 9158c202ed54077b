package lifecycle

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/orderdesk/ordercore/pkg/orders"
)

func newTestDB(t *testing.T) (*gorm.DB, *orders.OrderStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := orders.NewOrderStore(db)
	require.NoError(t, store.AutoMigrate())
	return db, store
}

func seedOrder(t *testing.T, store *orders.OrderStore, owner string) *orders.Order {
	t.Helper()
	order := &orders.Order{
		Number:      "ORD-" + uuid.New().String()[:8],
		Title:       "Quarterly supply order",
		Description: "Replacement parts",
	}
	require.NoError(t, store.Create(order, owner))
	return order
}

func historyCount(t *testing.T, db *gorm.DB, orderID string, action orders.HistoryAction) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&orders.HistoryEntry{}).
		Where("order_id = ? AND action = ?", orderID, action).Count(&count).Error)
	return count
}

func TestArchiveManager_SetAndRemoveExpiration(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	ok, err := manager.RemoveExpiration(order.ID, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	expiry := time.Now().Add(72 * time.Hour).UTC()
	ok, err = manager.SetExpiration(order.ID, expiry, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ExpirationDate)
	assert.WithinDuration(t, expiry, *loaded.ExpirationDate, time.Second)
	assert.EqualValues(t, 1, historyCount(t, db, order.ID, orders.ActionExpirationSet))

	ok, err = manager.RemoveExpiration(order.ID, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err = store.GetByID(order.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ExpirationDate)
	assert.EqualValues(t, 1, historyCount(t, db, order.ID, orders.ActionExpirationRemoved))
}

func TestArchiveManager_Archive(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	ok, err := manager.Archive(order.ID, "alice", "project closed")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsArchived)
	assert.Equal(t, "alice", loaded.ArchivedBy)
	assert.Equal(t, "project closed", loaded.ArchiveReason)
	assert.EqualValues(t, 1, historyCount(t, db, order.ID, orders.ActionArchived))

	var snapshots []orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&snapshots).Error)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].CanBeRestored)
	assert.Equal(t, order.Number, snapshots[0].Number)

	decoded, err := DecodeSnapshot(snapshots[0].StateBlob)
	require.NoError(t, err)
	assert.Equal(t, order.Title, decoded.Title)

	// Archiving twice is a no-op.
	ok, err = manager.Archive(order.ID, "alice", "again")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = manager.Archive("no-such-order", "alice", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveManager_Restore(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	ok, err := manager.Archive(order.ID, "alice", "seasonal cleanup")
	require.NoError(t, err)
	require.True(t, ok)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)

	ok, err = manager.Restore(snapshot.ID, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsArchived)
	assert.Empty(t, loaded.ArchivedBy)
	assert.EqualValues(t, 1, historyCount(t, db, order.ID, orders.ActionRestored))

	// The snapshot is consumed by the restore.
	var count int64
	require.NoError(t, db.Model(&orders.ArchivedOrder{}).Where("id = ?", snapshot.ID).Count(&count).Error)
	assert.Zero(t, count)

	ok, err = manager.Restore(snapshot.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveManager_RestoreNonRestorable(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	ok, err := manager.Archive(order.ID, "alice", "legal hold")
	require.NoError(t, err)
	require.True(t, ok)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)
	require.NoError(t, db.Model(&orders.ArchivedOrder{}).Where("id = ?", snapshot.ID).
		Update("can_be_restored", false).Error)

	ok, err = manager.Restore(snapshot.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsArchived)
}

func TestArchiveManager_ArchiveExpired(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	expired1 := seedOrder(t, store, "alice")
	expired2 := seedOrder(t, store, "alice")
	current := seedOrder(t, store, "alice")
	require.NoError(t, db.Model(&orders.Order{}).Where("id IN ?", []string{expired1.ID, expired2.ID}).
		Update("expiration_date", past).Error)
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", current.ID).
		Update("expiration_date", future).Error)

	count, err := manager.ArchiveExpired("system")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var archivedRows int64
	require.NoError(t, db.Model(&orders.ArchivedOrder{}).Count(&archivedRows).Error)
	assert.EqualValues(t, 2, archivedRows)
	assert.EqualValues(t, 1, historyCount(t, db, expired1.ID, orders.ActionArchived))
	assert.EqualValues(t, 1, historyCount(t, db, expired2.ID, orders.ActionArchived))
	assert.EqualValues(t, 0, historyCount(t, db, current.ID, orders.ActionArchived))

	// A second run finds nothing left to archive.
	count, err = manager.ArchiveExpired("system")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestArchiveManager_PermanentlyDelete(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	require.NoError(t, db.Create(&orders.PermissionGrant{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		UserID:    "bob",
		Kind:      orders.GrantView,
		GrantedBy: "alice",
		GrantedAt: time.Now(),
		IsActive:  true,
	}).Error)
	added, err := store.AddAttachment(&orders.Attachment{
		OrderID:  order.ID,
		FileName: "invoice.pdf",
	}, "alice")
	require.NoError(t, err)
	require.True(t, added)

	ok, err := manager.Archive(order.ID, "alice", "end of retention")
	require.NoError(t, err)
	require.True(t, ok)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)

	ok, err = manager.PermanentlyDelete(snapshot.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Nothing about the order is left behind in any table.
	var count int64
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", order.ID).Count(&count).Error)
	assert.Zero(t, count)
	for _, model := range []any{
		&orders.PermissionGrant{},
		&orders.Attachment{},
		&orders.HistoryEntry{},
		&orders.ArchivedOrder{},
	} {
		count = -1
		require.NoError(t, db.Model(model).Where("order_id = ?", order.ID).Count(&count).Error)
		assert.Zero(t, count)
	}

	ok, err = manager.PermanentlyDelete(snapshot.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveManager_PermanentlyDeleteSnapshotOnly(t *testing.T) {
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)
	order := seedOrder(t, store, "alice")

	ok, err := manager.Archive(order.ID, "alice", "stale")
	require.NoError(t, err)
	require.True(t, ok)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)

	// Simulate the live order disappearing out of band.
	require.NoError(t, db.Delete(&orders.Order{}, "id = ?", order.ID).Error)

	ok, err = manager.PermanentlyDelete(snapshot.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var count int64
	require.NoError(t, db.Model(&orders.ArchivedOrder{}).Where("id = ?", snapshot.ID).Count(&count).Error)
	assert.Zero(t, count)
}
