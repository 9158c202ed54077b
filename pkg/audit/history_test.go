package audit

import (
	"fmt"
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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, orders.NewOrderStore(db).AutoMigrate())
	return db
}

func seedHistory(t *testing.T, store *HistoryStore, orderID string, performedAt time.Time, description string) {
	t.Helper()
	require.NoError(t, store.Append(&orders.HistoryEntry{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Action:      orders.ActionUpdated,
		Description: description,
		PerformedBy: "tester",
		PerformedAt: performedAt,
	}))
}

func TestHistoryStore_ListByOrderPaging(t *testing.T) {
	db := newTestDB(t)
	store := NewHistoryStore(db)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		seedHistory(t, store, "order-1", base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("change %d", i))
	}
	seedHistory(t, store, "order-2", base, "unrelated")

	entries, nextToken, total, err := store.ListByOrder("order-1", 3, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 3)
	assert.NotEmpty(t, nextToken)
	// Newest first.
	assert.Equal(t, "change 4", entries[0].Description)
	assert.Equal(t, "change 2", entries[2].Description)

	entries, nextToken, total, err = store.ListByOrder("order-1", 3, nextToken)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 2)
	assert.Empty(t, nextToken)
	assert.Equal(t, "change 1", entries[0].Description)
	assert.Equal(t, "change 0", entries[1].Description)
}

func TestHistoryStore_ListByOrderBadToken(t *testing.T) {
	db := newTestDB(t)
	store := NewHistoryStore(db)

	_, _, _, err := store.ListByOrder("order-1", 10, "not-a-timestamp")
	require.Error(t, err)
}

func TestHistoryStore_DeleteOlderThan(t *testing.T) {
	db := newTestDB(t)
	store := NewHistoryStore(db)

	cutoff := time.Now().UTC()
	seedHistory(t, store, "order-1", cutoff.Add(-48*time.Hour), "old")
	seedHistory(t, store, "order-1", cutoff.Add(-time.Hour), "also old")
	seedHistory(t, store, "order-1", cutoff.Add(time.Hour), "recent")

	deleted, err := store.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []orders.HistoryEntry
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].Description)
}

func TestHistoryStore_DeleteOldHistoryDefault(t *testing.T) {
	db := newTestDB(t)
	store := NewHistoryStore(db)

	now := time.Now().UTC()
	seedHistory(t, store, "order-1", now.AddDate(0, -4, 0), "past retention")
	seedHistory(t, store, "order-1", now.AddDate(0, -1, 0), "within retention")

	// Non-positive months falls back to the 3-month default.
	deleted, err := store.DeleteOldHistory(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var count int64
	require.NoError(t, db.Model(&orders.HistoryEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
