package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/ordercore/pkg/orders"
)

func seedActivity(t *testing.T, store *ActivityStore, orderID string, createdAt time.Time, path string) {
	t.Helper()
	require.NoError(t, store.Append(&orders.ActivityLogEntry{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		Actor:      "tester",
		Method:     "GET",
		Path:       path,
		Success:    true,
		StatusCode: 200,
		CreatedAt:  createdAt,
	}))
}

func TestActivityStore_ListByOrderPaging(t *testing.T) {
	db := newTestDB(t)
	store := NewActivityStore(db)

	base := time.Now().UTC().Truncate(time.Second)
	seedActivity(t, store, "order-1", base, "/first")
	seedActivity(t, store, "order-1", base.Add(time.Minute), "/second")
	seedActivity(t, store, "order-1", base.Add(2*time.Minute), "/third")
	seedActivity(t, store, "order-2", base, "/other")

	entries, nextToken, total, err := store.ListByOrder("order-1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "/third", entries[0].Path)
	require.NotEmpty(t, nextToken)

	entries, nextToken, _, err = store.ListByOrder("order-1", 2, nextToken)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/first", entries[0].Path)
	assert.Empty(t, nextToken)
}

func TestActivityStore_CleanupOldLogs(t *testing.T) {
	db := newTestDB(t)
	store := NewActivityStore(db)

	now := time.Now().UTC()
	seedActivity(t, store, "order-1", now.Add(-100*24*time.Hour), "/ancient")
	seedActivity(t, store, "order-1", now.Add(-time.Hour), "/fresh")

	// Non-positive retention falls back to the 90-day default.
	deleted, err := store.CleanupOldLogs(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []orders.ActivityLogEntry
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "/fresh", remaining[0].Path)
}
