// Package lifecycle moves orders through their archival lifecycle:
// active -> archived -> restored or permanently deleted. Archival produces a
// detached snapshot row that outlives the order itself.
package lifecycle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/orders"
)

// ArchiveManager implements the lifecycle state machine.
type ArchiveManager struct {
	db     *gorm.DB
	store  *orders.OrderStore
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewArchiveManager creates a new ArchiveManager.
func NewArchiveManager(db *gorm.DB, logger *slog.Logger) *ArchiveManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveManager{
		db:     db,
		store:  orders.NewOrderStore(db),
		logger: logger,
		nowFn:  time.Now,
	}
}

// SetExpiration sets the order's expiration date and logs the change.
// Returns false when the order does not exist.
func (m *ArchiveManager) SetExpiration(orderID string, date time.Time, actor string) (bool, error) {
	var order orders.Order
	err := m.db.Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load order: %w", err)
	}

	oldValue := ""
	if order.ExpirationDate != nil {
		oldValue = order.ExpirationDate.Format(time.RFC3339)
	}
	now := m.nowFn()

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&orders.Order{}).Where("id = ?", orderID).
			Updates(map[string]any{
				"expiration_date": date,
				"updated_by":      actor,
				"updated_at":      now,
			}).Error; err != nil {
			return fmt.Errorf("set expiration: %w", err)
		}
		entry := orders.NewHistoryEntry(orderID, orders.ActionExpirationSet,
			fmt.Sprintf("Expiration set to %s", date.Format(time.RFC3339)),
			oldValue, date.Format(time.RFC3339), actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append expiration history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveExpiration clears the order's expiration date and logs the change.
// Returns false when the order does not exist or has no expiration set.
func (m *ArchiveManager) RemoveExpiration(orderID, actor string) (bool, error) {
	var order orders.Order
	err := m.db.Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load order: %w", err)
	}
	if order.ExpirationDate == nil {
		return false, nil
	}
	oldValue := order.ExpirationDate.Format(time.RFC3339)
	now := m.nowFn()

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&orders.Order{}).Where("id = ?", orderID).
			Updates(map[string]any{
				"expiration_date": nil,
				"updated_by":      actor,
				"updated_at":      now,
			}).Error; err != nil {
			return fmt.Errorf("remove expiration: %w", err)
		}
		entry := orders.NewHistoryEntry(orderID, orders.ActionExpirationRemoved,
			"Expiration removed", oldValue, "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append expiration history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Archive takes a snapshot of the order and marks it archived in one
// transaction. Returns false when the order is missing or already archived.
// The snapshot defaults to restorable.
func (m *ArchiveManager) Archive(orderID, actor, reason string) (bool, error) {
	order, err := m.store.GetByID(orderID)
	if err != nil {
		return false, err
	}
	if order == nil || order.IsArchived {
		return false, nil
	}

	stateBlob, err := buildSnapshot(order)
	if err != nil {
		return false, err
	}
	attachments, err := m.store.ListAttachments(orderID)
	if err != nil {
		return false, err
	}
	attachmentsBlob, err := buildAttachmentsBlob(attachments)
	if err != nil {
		return false, err
	}

	now := m.nowFn()
	archived := &orders.ArchivedOrder{
		ID:              uuid.New().String(),
		OrderID:         order.ID,
		Number:          order.Number,
		Title:           order.Title,
		Description:     order.Description,
		OwnerID:         order.OwnerID,
		StateBlob:       stateBlob,
		AttachmentsBlob: attachmentsBlob,
		ArchivedBy:      actor,
		ArchivedAt:      now,
		ArchiveReason:   reason,
		CanBeRestored:   true,
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(archived).Error; err != nil {
			return fmt.Errorf("create archive snapshot: %w", err)
		}
		if err := tx.Model(&orders.Order{}).Where("id = ?", orderID).
			Updates(map[string]any{
				"is_archived":    true,
				"archived_at":    now,
				"archived_by":    actor,
				"archive_reason": reason,
				"updated_by":     actor,
				"updated_at":     now,
			}).Error; err != nil {
			return fmt.Errorf("mark order archived: %w", err)
		}
		entry := orders.NewHistoryEntry(orderID, orders.ActionArchived,
			fmt.Sprintf("Order archived: %s", reason), "", reason, actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append archive history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ArchiveExpired archives every currently-expired order. Per-item failures
// are logged and do not abort the batch. Returns the count archived.
func (m *ArchiveManager) ArchiveExpired(actor string) (int, error) {
	expired, err := m.store.ListExpired(m.nowFn())
	if err != nil {
		return 0, err
	}

	archived := 0
	for i := range expired {
		o := &expired[i]
		ok, err := m.Archive(o.ID, actor, "Order expired")
		if err != nil {
			m.logger.Error("failed to archive expired order", "orderID", o.ID, "error", err)
			continue
		}
		if ok {
			archived++
		}
	}
	return archived, nil
}

// Restore brings an archived order back to the active state: clears the
// archive flags, logs a Restored entry, and deletes the snapshot row in one
// transaction. Fails (false) when the snapshot is missing, marked
// non-restorable, or the live order no longer exists.
func (m *ArchiveManager) Restore(archivedOrderID, actor string) (bool, error) {
	var snapshot orders.ArchivedOrder
	err := m.db.Where("id = ?", archivedOrderID).First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load archive snapshot: %w", err)
	}
	if !snapshot.CanBeRestored {
		return false, nil
	}

	var order orders.Order
	err = m.db.Where("id = ?", snapshot.OrderID).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load order: %w", err)
	}

	now := m.nowFn()
	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&orders.Order{}).Where("id = ?", order.ID).
			Updates(map[string]any{
				"is_archived":    false,
				"archived_at":    nil,
				"archived_by":    "",
				"archive_reason": "",
				"updated_by":     actor,
				"updated_at":     now,
			}).Error; err != nil {
			return fmt.Errorf("clear archive flags: %w", err)
		}
		entry := orders.NewHistoryEntry(order.ID, orders.ActionRestored,
			"Order restored from archive", "", "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append restore history: %w", err)
		}
		if err := tx.Delete(&orders.ArchivedOrder{}, "id = ?", archivedOrderID).Error; err != nil {
			return fmt.Errorf("delete archive snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// PermanentlyDelete removes the snapshot and, when the live order still
// exists, cascades deletion across every child table and the order row. This
// is the only irreversible operation; it is not recorded in order history
// because the order row no longer exists to log against. Returns false when
// the snapshot does not exist.
func (m *ArchiveManager) PermanentlyDelete(archivedOrderID string) (bool, error) {
	var snapshot orders.ArchivedOrder
	err := m.db.Where("id = ?", archivedOrderID).First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load archive snapshot: %w", err)
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		orderID := snapshot.OrderID

		var count int64
		if err := tx.Model(&orders.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if count > 0 {
			children := []any{
				&orders.Attachment{},
				&orders.HistoryEntry{},
				&orders.ActivityLogEntry{},
				&orders.PermissionGrant{},
				&orders.DepartmentAccess{},
				&orders.UserException{},
			}
			for _, model := range children {
				if err := tx.Where("order_id = ?", orderID).Delete(model).Error; err != nil {
					return fmt.Errorf("cascade delete order children: %w", err)
				}
			}
			if err := tx.Delete(&orders.Order{}, "id = ?", orderID).Error; err != nil {
				return fmt.Errorf("delete order: %w", err)
			}
		}

		// The snapshot row goes regardless of whether the order still existed.
		if err := tx.Delete(&orders.ArchivedOrder{}, "id = ?", archivedOrderID).Error; err != nil {
			return fmt.Errorf("delete archive snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	m.logger.Info("permanently deleted archived order",
		"archivedOrderID", archivedOrderID, "orderID", snapshot.OrderID)
	return true, nil
}
