package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/orders"
)

// DefaultActivityRetention is how long activity log rows are kept when no
// explicit retention is supplied.
const DefaultActivityRetention = 90 * 24 * time.Hour

// ActivityStore provides append-only operations for the request-level
// activity log.
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append creates a new activity log entry.
func (s *ActivityStore) Append(entry *orders.ActivityLogEntry) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}
	return nil
}

// ListByOrder returns paginated activity entries for an order, newest first.
func (s *ActivityStore) ListByOrder(orderID string, pageSize int, pageToken string) ([]orders.ActivityLogEntry, string, int, error) {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	var totalSize int64
	if err := s.db.Model(&orders.ActivityLogEntry{}).Where("order_id = ?", orderID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count activity entries: %w", err)
	}

	query := s.db.Where("order_id = ?", orderID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var entries []orders.ActivityLogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list activity entries: %w", err)
	}

	var nextToken string
	if len(entries) > pageSize {
		nextToken = entries[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		entries = entries[:pageSize]
	}

	return entries, nextToken, int(totalSize), nil
}

// CleanupOldLogs removes activity entries older than the retention window.
// A non-positive retention falls back to the 90-day default. Returns the
// number of deleted rows.
func (s *ActivityStore) CleanupOldLogs(retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultActivityRetention
	}
	cutoff := time.Now().Add(-retention)
	result := s.db.Where("created_at < ?", cutoff).Delete(&orders.ActivityLogEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old activity entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
