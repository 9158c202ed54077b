package orders

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a custom GORM type for map[string]any stored as JSON.
type JSONMap map[string]any

// Scan implements the sql.Scanner interface for JSONMap.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONMap.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// OrderStatus represents order workflow states.
type OrderStatus string

const (
	StatusDraft      OrderStatus = "draft"
	StatusOpen       OrderStatus = "open"
	StatusInProgress OrderStatus = "in_progress"
	StatusOnHold     OrderStatus = "on_hold"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderPriority represents order urgency classification.
type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityNormal OrderPriority = "normal"
	PriorityHigh   OrderPriority = "high"
	PriorityUrgent OrderPriority = "urgent"
)

// GrantKind is a capability that can be granted to a user on an order.
type GrantKind string

const (
	GrantView     GrantKind = "view"
	GrantEdit     GrantKind = "edit"
	GrantDelete   GrantKind = "delete"
	GrantShare    GrantKind = "share"
	GrantDownload GrantKind = "download"
	GrantPrint    GrantKind = "print"
	GrantComment  GrantKind = "comment"
	GrantApprove  GrantKind = "approve"
)

// AllGrantKinds lists every capability kind in declaration order.
var AllGrantKinds = []GrantKind{
	GrantView, GrantEdit, GrantDelete, GrantShare,
	GrantDownload, GrantPrint, GrantComment, GrantApprove,
}

// HistoryAction identifies the kind of domain action recorded in a HistoryEntry.
type HistoryAction string

const (
	ActionCreated                 HistoryAction = "Created"
	ActionUpdated                 HistoryAction = "Updated"
	ActionPermissionGranted       HistoryAction = "PermissionGranted"
	ActionPermissionRevoked       HistoryAction = "PermissionRevoked"
	ActionDepartmentAccessGranted HistoryAction = "DepartmentAccessGranted"
	ActionDepartmentAccessRevoked HistoryAction = "DepartmentAccessRevoked"
	ActionUserExceptionAdded      HistoryAction = "UserExceptionAdded"
	ActionUserExceptionRemoved    HistoryAction = "UserExceptionRemoved"
	ActionExpirationSet           HistoryAction = "ExpirationSet"
	ActionExpirationRemoved       HistoryAction = "ExpirationRemoved"
	ActionArchived                HistoryAction = "Archived"
	ActionRestored                HistoryAction = "Restored"
	ActionDeleted                 HistoryAction = "Deleted"
	ActionAttachmentAdded         HistoryAction = "AttachmentAdded"
	ActionAttachmentRemoved       HistoryAction = "AttachmentRemoved"
	ActionStatusChanged           HistoryAction = "StatusChanged"
	ActionPriorityChanged         HistoryAction = "PriorityChanged"
	ActionAssigned                HistoryAction = "Assigned"
)
