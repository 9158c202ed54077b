package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStore provides CRUD operations for orders and their owned records.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// AutoMigrate creates or updates the order tables and every child table the
// order owns, plus the detached archive snapshot table.
func (s *OrderStore) AutoMigrate() error {
	models := []any{
		&Order{},
		&PermissionGrant{},
		&DepartmentAccess{},
		&UserException{},
		&HistoryEntry{},
		&ActivityLogEntry{},
		&ArchivedOrder{},
		&Attachment{},
	}
	for _, m := range models {
		if err := s.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto-migrate order tables: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for components that share the store's
// connection (managers open their own transactions on it).
func (s *OrderStore) DB() *gorm.DB { return s.db }

// NewHistoryEntry builds a history row for an order action. The caller is
// responsible for persisting it, normally inside the same transaction as the
// primary mutation.
func NewHistoryEntry(orderID string, action HistoryAction, description, oldValue, newValue, actor string) *HistoryEntry {
	return &HistoryEntry{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Action:      action,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
		PerformedBy: actor,
		PerformedAt: time.Now().UTC(),
	}
}

// Create persists a new order and its Created history entry in one
// transaction. The actor becomes the implicit owner.
func (s *OrderStore) Create(order *Order, actor string) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.OwnerID == "" {
		order.OwnerID = actor
	}
	if order.Status == "" {
		order.Status = StatusDraft
	}
	if order.Priority == "" {
		order.Priority = PriorityNormal
	}
	order.CreatedBy = actor
	order.UpdatedBy = actor

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		entry := NewHistoryEntry(order.ID, ActionCreated,
			fmt.Sprintf("Order %s created", order.Number), "", "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("create order history: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an order with its grants, department accesses, and
// exceptions preloaded. Returns nil, nil if no order exists.
func (s *OrderStore) GetByID(orderID string) (*Order, error) {
	var order Order
	err := s.db.
		Preload("Grants").
		Preload("DepartmentAccesses").
		Preload("Exceptions").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// Update saves changed order fields and appends history entries for the
// tracked transitions (status, priority, assignment), all in one transaction.
// Returns false if the order no longer exists.
func (s *OrderStore) Update(order *Order, actor string) (bool, error) {
	var existing Order
	err := s.db.Where("id = ?", order.ID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load order for update: %w", err)
	}

	var entries []*HistoryEntry
	if existing.Status != order.Status {
		entries = append(entries, NewHistoryEntry(order.ID, ActionStatusChanged,
			fmt.Sprintf("Status changed from %s to %s", existing.Status, order.Status),
			string(existing.Status), string(order.Status), actor))
	}
	if existing.Priority != order.Priority {
		entries = append(entries, NewHistoryEntry(order.ID, ActionPriorityChanged,
			fmt.Sprintf("Priority changed from %s to %s", existing.Priority, order.Priority),
			string(existing.Priority), string(order.Priority), actor))
	}
	if existing.AssignedTo != order.AssignedTo {
		entries = append(entries, NewHistoryEntry(order.ID, ActionAssigned,
			fmt.Sprintf("Assigned to %s", order.AssignedTo),
			existing.AssignedTo, order.AssignedTo, actor))
	}
	if len(entries) == 0 {
		entries = append(entries, NewHistoryEntry(order.ID, ActionUpdated,
			"Order updated", "", "", actor))
	}

	order.UpdatedBy = actor
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"title":       order.Title,
			"description": order.Description,
			"status":      order.Status,
			"priority":    order.Priority,
			"assigned_to": order.AssignedTo,
			"is_public":   order.IsPublic,
			"updated_by":  actor,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		for _, entry := range entries {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("append order history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByOwner returns all non-archived orders owned by a user, newest first.
func (s *OrderStore) ListByOwner(ownerID string) ([]Order, error) {
	var result []Order
	err := s.db.
		Where("owner_id = ? AND is_archived = ?", ownerID, false).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list orders by owner: %w", err)
	}
	return result, nil
}

// ListAttachments returns the file metadata rows for an order.
func (s *OrderStore) ListAttachments(orderID string) ([]Attachment, error) {
	var result []Attachment
	err := s.db.Where("order_id = ?", orderID).Order("uploaded_at ASC").Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list order attachments: %w", err)
	}
	return result, nil
}

// AddAttachment records file metadata for an order and appends an
// AttachmentAdded history entry in the same transaction. Returns false if the
// order does not exist.
func (s *OrderStore) AddAttachment(att *Attachment, actor string) (bool, error) {
	var count int64
	if err := s.db.Model(&Order{}).Where("id = ?", att.OrderID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	if count == 0 {
		return false, nil
	}
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	att.UploadedBy = actor

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(att).Error; err != nil {
			return fmt.Errorf("create attachment: %w", err)
		}
		entry := NewHistoryEntry(att.OrderID, ActionAttachmentAdded,
			fmt.Sprintf("Attachment %s added", att.FileName), "", att.FileName, actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append attachment history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveAttachment deletes an attachment row and appends an AttachmentRemoved
// history entry. Returns false if the attachment does not exist.
func (s *OrderStore) RemoveAttachment(attachmentID, actor string) (bool, error) {
	var att Attachment
	err := s.db.Where("id = ?", attachmentID).First(&att).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load attachment: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Attachment{}, "id = ?", attachmentID).Error; err != nil {
			return fmt.Errorf("delete attachment: %w", err)
		}
		entry := NewHistoryEntry(att.OrderID, ActionAttachmentRemoved,
			fmt.Sprintf("Attachment %s removed", att.FileName), att.FileName, "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append attachment history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
