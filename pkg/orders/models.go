package orders

import (
	"time"
)

// Order is the protected business record managed by this core.
// It owns its grants, department accesses, exceptions, history entries,
// activity log entries, and attachments; all are cascade-deleted with it.
type Order struct {
	ID             string        `gorm:"primaryKey;column:id;type:varchar(36)"`
	Number         string        `gorm:"column:number;uniqueIndex;not null"`
	Title          string        `gorm:"column:title;not null"`
	Description    string        `gorm:"column:description;type:text"`
	OwnerID        string        `gorm:"column:owner_id;index;not null"`
	Status         OrderStatus   `gorm:"column:status;default:draft;not null"`
	Priority       OrderPriority `gorm:"column:priority;default:normal;not null"`
	AssignedTo     string        `gorm:"column:assigned_to;index"`
	IsPublic       bool          `gorm:"column:is_public;default:false;not null"`
	IsArchived     bool          `gorm:"column:is_archived;index;default:false;not null"`
	ArchivedAt     *time.Time    `gorm:"column:archived_at"`
	ArchivedBy     string        `gorm:"column:archived_by"`
	ArchiveReason  string        `gorm:"column:archive_reason"`
	ExpirationDate *time.Time    `gorm:"column:expiration_date;index"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	CreatedBy      string        `gorm:"column:created_by"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
	UpdatedBy      string        `gorm:"column:updated_by"`

	Grants             []PermissionGrant  `gorm:"foreignKey:OrderID;references:ID"`
	DepartmentAccesses []DepartmentAccess `gorm:"foreignKey:OrderID;references:ID"`
	Exceptions         []UserException    `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the GORM table name.
func (Order) TableName() string { return "orders" }

// IsExpired reports whether the order's expiration date has passed.
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpirationDate != nil && o.ExpirationDate.Before(now)
}

// PermissionGrant is a time-bounded, user-specific capability authorization.
// At most one active row exists per (order, user, kind); re-granting
// reactivates the existing row instead of duplicating it.
type PermissionGrant struct {
	ID        string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID   string     `gorm:"column:order_id;index:idx_grant_order_user,priority:1;not null"`
	UserID    string     `gorm:"column:user_id;index:idx_grant_order_user,priority:2;not null"`
	Kind      GrantKind  `gorm:"column:kind;not null"`
	GrantedBy string     `gorm:"column:granted_by;not null"`
	GrantedAt time.Time  `gorm:"column:granted_at;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	IsActive  bool       `gorm:"column:is_active;default:true;not null"`
	Note      string     `gorm:"column:note"`
}

// TableName returns the GORM table name.
func (PermissionGrant) TableName() string { return "permission_grants" }

// InEffect reports whether the grant counts toward effective permissions:
// active, and either unexpired or without an expiry.
func (g *PermissionGrant) InEffect(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// DepartmentAccess grants coarse capabilities to all active members of a
// department. The flags are derived from the numeric access level:
// 1 = view only, 2 = view+edit, 3 = full (view+edit+download+share).
type DepartmentAccess struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID      string    `gorm:"column:order_id;index:idx_dept_order,priority:1;not null"`
	DepartmentID string    `gorm:"column:department_id;index:idx_dept_order,priority:2;not null"`
	AccessLevel  int       `gorm:"column:access_level;default:1;not null"`
	CanView      bool      `gorm:"column:can_view;default:true;not null"`
	CanEdit      bool      `gorm:"column:can_edit;default:false;not null"`
	CanDownload  bool      `gorm:"column:can_download;default:false;not null"`
	CanShare     bool      `gorm:"column:can_share;default:false;not null"`
	GrantedBy    string    `gorm:"column:granted_by;not null"`
	GrantedAt    time.Time `gorm:"column:granted_at;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true;not null"`
}

// TableName returns the GORM table name.
func (DepartmentAccess) TableName() string { return "department_accesses" }

// UserException is a deny-list override suppressing all capabilities for a
// specific user on an order. Owners and administrators are never subject to it.
type UserException struct {
	ID        string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID   string     `gorm:"column:order_id;index:idx_exc_order_user,priority:1;not null"`
	UserID    string     `gorm:"column:user_id;index:idx_exc_order_user,priority:2;not null"`
	Reason    string     `gorm:"column:reason;not null"`
	CreatedBy string     `gorm:"column:created_by;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	IsActive  bool       `gorm:"column:is_active;default:true;not null"`
}

// TableName returns the GORM table name.
func (UserException) TableName() string { return "user_exceptions" }

// InEffect reports whether the exception currently blocks the user.
func (e *UserException) InEffect(now time.Time) bool {
	if !e.IsActive {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// HistoryEntry is an immutable audit record of a domain-level action on an
// order. Rows are never updated or deleted except by the retention purge.
type HistoryEntry struct {
	ID          string        `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID     string        `gorm:"column:order_id;index:idx_hist_order_time,priority:1;not null"`
	Action      HistoryAction `gorm:"column:action;index;not null"`
	Description string        `gorm:"column:description;type:text"`
	OldValue    string        `gorm:"column:old_value"`
	NewValue    string        `gorm:"column:new_value"`
	PerformedBy string        `gorm:"column:performed_by;not null"`
	PerformedAt time.Time     `gorm:"column:performed_at;index:idx_hist_order_time,priority:2;not null"`
}

// TableName returns the GORM table name.
func (HistoryEntry) TableName() string { return "order_history" }

// ActivityLogEntry is an immutable request-level access trace, coarser than
// HistoryEntry and used for security forensics.
type ActivityLogEntry struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID    string    `gorm:"column:order_id;index"`
	Tenant     string    `gorm:"column:tenant;index"`
	Actor      string    `gorm:"column:actor;index;not null"`
	Controller string    `gorm:"column:controller"`
	ActionName string    `gorm:"column:action_name"`
	Method     string    `gorm:"column:method;not null"`
	Path       string    `gorm:"column:path;not null"`
	Query      string    `gorm:"column:query"`
	Success    bool      `gorm:"column:success;not null"`
	StatusCode int       `gorm:"column:status_code;not null"`
	ClientIP   string    `gorm:"column:client_ip"`
	UserAgent  string    `gorm:"column:user_agent"`
	Payload    JSONMap   `gorm:"column:payload;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;index;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ActivityLogEntry) TableName() string { return "order_activity_log" }

// ArchivedOrder is a detached snapshot taken at archival time. It holds no
// live references to the original order's children and remains the source of
// truth for restore and permanent deletion even after the order row is gone.
type ArchivedOrder struct {
	ID              string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID         string    `gorm:"column:order_id;index;not null"`
	Number          string    `gorm:"column:number;not null"`
	Title           string    `gorm:"column:title;not null"`
	Description     string    `gorm:"column:description;type:text"`
	OwnerID         string    `gorm:"column:owner_id;not null"`
	StateBlob       string    `gorm:"column:state_blob;type:text;not null"`
	AttachmentsBlob string    `gorm:"column:attachments_blob;type:text"`
	ArchivedBy      string    `gorm:"column:archived_by;not null"`
	ArchivedAt      time.Time `gorm:"column:archived_at;not null"`
	ArchiveReason   string    `gorm:"column:archive_reason"`
	CanBeRestored   bool      `gorm:"column:can_be_restored;default:true;not null"`
}

// TableName returns the GORM table name.
func (ArchivedOrder) TableName() string { return "archived_orders" }

// Attachment is file metadata associated with an order. Upload and storage
// mechanics live outside this core; attachments are read when building an
// archival snapshot and cascade-deleted with the order.
type Attachment struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrderID     string    `gorm:"column:order_id;index;not null"`
	FileName    string    `gorm:"column:file_name;not null"`
	ContentType string    `gorm:"column:content_type"`
	Path        string    `gorm:"column:path;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes"`
	UploadedBy  string    `gorm:"column:uploaded_by"`
	UploadedAt  time.Time `gorm:"column:uploaded_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Attachment) TableName() string { return "order_attachments" }
