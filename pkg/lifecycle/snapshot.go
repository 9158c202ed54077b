package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orderdesk/ordercore/pkg/orders"
)

// snapshotVersion tags the state blob format so archived rows remain
// readable after the live schema evolves.
const snapshotVersion = 1

// OrderSnapshot is the serialized full state of an order at archival time.
// It must stay reconstructible after the live order and its children are
// deleted, so it embeds copies rather than references.
type OrderSnapshot struct {
	Version        int                    `json:"version"`
	OrderID        string                 `json:"orderId"`
	Number         string                 `json:"number"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	OwnerID        string                 `json:"ownerId"`
	Status         orders.OrderStatus     `json:"status"`
	Priority       orders.OrderPriority   `json:"priority"`
	AssignedTo     string                 `json:"assignedTo,omitempty"`
	IsPublic       bool                   `json:"isPublic"`
	ExpirationDate *time.Time             `json:"expirationDate,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	CreatedBy      string                 `json:"createdBy"`
	Grants         []GrantSnapshot        `json:"grants,omitempty"`
	Departments    []DeptAccessSnapshot   `json:"departmentAccesses,omitempty"`
	Exceptions     []ExceptionSnapshot    `json:"exceptions,omitempty"`
}

// GrantSnapshot is the archived copy of a permission grant.
type GrantSnapshot struct {
	UserID    string           `json:"userId"`
	Kind      orders.GrantKind `json:"kind"`
	GrantedBy string           `json:"grantedBy"`
	GrantedAt time.Time        `json:"grantedAt"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	IsActive  bool             `json:"isActive"`
}

// DeptAccessSnapshot is the archived copy of a department access.
type DeptAccessSnapshot struct {
	DepartmentID string `json:"departmentId"`
	AccessLevel  int    `json:"accessLevel"`
	IsActive     bool   `json:"isActive"`
}

// ExceptionSnapshot is the archived copy of a user exception.
type ExceptionSnapshot struct {
	UserID    string     `json:"userId"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsActive  bool       `json:"isActive"`
}

// AttachmentSnapshot is the archived metadata of one attachment.
type AttachmentSnapshot struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Path        string `json:"path"`
	SizeBytes   int64  `json:"sizeBytes"`
	UploadedBy  string `json:"uploadedBy,omitempty"`
}

// buildSnapshot serializes the order and its owned permission records.
func buildSnapshot(order *orders.Order) (string, error) {
	snap := OrderSnapshot{
		Version:        snapshotVersion,
		OrderID:        order.ID,
		Number:         order.Number,
		Title:          order.Title,
		Description:    order.Description,
		OwnerID:        order.OwnerID,
		Status:         order.Status,
		Priority:       order.Priority,
		AssignedTo:     order.AssignedTo,
		IsPublic:       order.IsPublic,
		ExpirationDate: order.ExpirationDate,
		CreatedAt:      order.CreatedAt,
		CreatedBy:      order.CreatedBy,
	}
	for i := range order.Grants {
		g := &order.Grants[i]
		snap.Grants = append(snap.Grants, GrantSnapshot{
			UserID:    g.UserID,
			Kind:      g.Kind,
			GrantedBy: g.GrantedBy,
			GrantedAt: g.GrantedAt,
			ExpiresAt: g.ExpiresAt,
			IsActive:  g.IsActive,
		})
	}
	for i := range order.DepartmentAccesses {
		da := &order.DepartmentAccesses[i]
		snap.Departments = append(snap.Departments, DeptAccessSnapshot{
			DepartmentID: da.DepartmentID,
			AccessLevel:  da.AccessLevel,
			IsActive:     da.IsActive,
		})
	}
	for i := range order.Exceptions {
		e := &order.Exceptions[i]
		snap.Exceptions = append(snap.Exceptions, ExceptionSnapshot{
			UserID:    e.UserID,
			Reason:    e.Reason,
			ExpiresAt: e.ExpiresAt,
			IsActive:  e.IsActive,
		})
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal order snapshot: %w", err)
	}
	return string(b), nil
}

// buildAttachmentsBlob serializes attachment metadata for the archive row.
func buildAttachmentsBlob(attachments []orders.Attachment) (string, error) {
	if len(attachments) == 0 {
		return "", nil
	}
	snaps := make([]AttachmentSnapshot, 0, len(attachments))
	for i := range attachments {
		a := &attachments[i]
		snaps = append(snaps, AttachmentSnapshot{
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Path:        a.Path,
			SizeBytes:   a.SizeBytes,
			UploadedBy:  a.UploadedBy,
		})
	}
	b, err := json.Marshal(snaps)
	if err != nil {
		return "", fmt.Errorf("marshal attachments blob: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot parses a state blob back into an OrderSnapshot.
func DecodeSnapshot(blob string) (*OrderSnapshot, error) {
	var snap OrderSnapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return nil, fmt.Errorf("decode order snapshot: %w", err)
	}
	return &snap, nil
}
