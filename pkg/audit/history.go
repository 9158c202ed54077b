// Package audit provides the two append-only logs of the order core: the
// domain-level order history and the request-level activity trace, plus the
// background retention worker that purges both.
package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/orders"
)

const (
	// DefaultHistoryPageSize is the page size for history listings.
	DefaultHistoryPageSize = 50
	// MaxHistoryPageSize caps a single history fetch.
	MaxHistoryPageSize = 100
	// DefaultHistoryRetentionMonths is how long history rows are kept.
	DefaultHistoryRetentionMonths = 3
)

// HistoryStore provides append-only operations for order history entries.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append creates a new immutable history entry.
func (s *HistoryStore) Append(entry *orders.HistoryEntry) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// ListByOrder returns paginated history for an order, newest first.
// pageToken is an RFC3339 timestamp; entries with performed_at < pageToken
// are returned. The total count is returned alongside the page.
func (s *HistoryStore) ListByOrder(orderID string, pageSize int, pageToken string) ([]orders.HistoryEntry, string, int, error) {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	var totalSize int64
	if err := s.db.Model(&orders.HistoryEntry{}).Where("order_id = ?", orderID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count history entries: %w", err)
	}

	query := s.db.Where("order_id = ?", orderID).Order("performed_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("performed_at < ?", t)
	}

	var entries []orders.HistoryEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list history entries: %w", err)
	}

	var nextToken string
	if len(entries) > pageSize {
		nextToken = entries[pageSize-1].PerformedAt.Format(time.RFC3339Nano)
		entries = entries[:pageSize]
	}

	return entries, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes history entries performed before the cutoff time.
// Returns the number of deleted rows.
func (s *HistoryStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("performed_at < ?", cutoff).Delete(&orders.HistoryEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old history entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOldHistory removes history entries older than monthsToKeep months.
// A non-positive value falls back to the default retention.
func (s *HistoryStore) DeleteOldHistory(monthsToKeep int) (int64, error) {
	if monthsToKeep <= 0 {
		monthsToKeep = DefaultHistoryRetentionMonths
	}
	cutoff := time.Now().AddDate(0, -monthsToKeep, 0)
	return s.DeleteOlderThan(cutoff)
}
