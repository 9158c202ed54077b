package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Directory resolves users, their roles, and their active department
// memberships. The permission resolver depends on this interface rather than
// on a concrete identity provider.
type Directory interface {
	// UserExists reports whether the user id is known.
	UserExists(userID string) (bool, error)
	// RolesOf returns the role set held by the user. Unknown users get an
	// empty set, not an error.
	RolesOf(userID string) (RoleSet, error)
	// ActiveDepartments returns the ids of departments the user is an active
	// member of.
	ActiveDepartments(userID string) ([]string, error)
}

// UserRecord is a directory entry for an application user.
type UserRecord struct {
	ID        string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Username  string          `gorm:"column:username;uniqueIndex;not null"`
	Email     string          `gorm:"column:email"`
	Roles     RoleStringSlice `gorm:"column:roles;type:text"`
	IsActive  bool            `gorm:"column:is_active;default:true;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (UserRecord) TableName() string { return "users" }

// DepartmentMembership links a user to a department.
type DepartmentMembership struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	UserID       string    `gorm:"column:user_id;index:idx_member_user_dept,priority:1;not null"`
	DepartmentID string    `gorm:"column:department_id;index:idx_member_user_dept,priority:2;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true;not null"`
	JoinedAt     time.Time `gorm:"column:joined_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (DepartmentMembership) TableName() string { return "department_memberships" }

// DirectoryStore is a GORM-backed Directory.
type DirectoryStore struct {
	db *gorm.DB
}

// NewDirectoryStore creates a new DirectoryStore.
func NewDirectoryStore(db *gorm.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// AutoMigrate creates or updates the directory tables.
func (s *DirectoryStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&UserRecord{}); err != nil {
		return fmt.Errorf("auto-migrate users: %w", err)
	}
	if err := s.db.AutoMigrate(&DepartmentMembership{}); err != nil {
		return fmt.Errorf("auto-migrate department_memberships: %w", err)
	}
	return nil
}

// UserExists reports whether an active user with the given id exists.
func (s *DirectoryStore) UserExists(userID string) (bool, error) {
	var count int64
	err := s.db.Model(&UserRecord{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

// RolesOf returns the role set of the user. Missing users yield an empty set.
func (s *DirectoryStore) RolesOf(userID string) (RoleSet, error) {
	var user UserRecord
	err := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return NewRoleSet(), nil
		}
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	roles := NewRoleSet()
	for _, v := range user.Roles {
		if role, ok := ParseRole(v); ok {
			roles.Add(role)
		}
	}
	return roles, nil
}

// ActiveDepartments returns the department ids the user actively belongs to.
func (s *DirectoryStore) ActiveDepartments(userID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&DepartmentMembership{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("department_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list active departments: %w", err)
	}
	return ids, nil
}

// UpsertUser creates or updates a directory entry, keyed by id.
func (s *DirectoryStore) UpsertUser(user *UserRecord) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "roles", "is_active"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// AddMembership records an active department membership for a user.
func (s *DirectoryStore) AddMembership(m *DepartmentMembership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.IsActive = true
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("add department membership: %w", err)
	}
	return nil
}
