package identity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Role is an enumerated application role. Role checks go through RoleSet
// membership, never through raw string comparison at call sites.
type Role string

const (
	// RoleAdministrator bypasses grant and exception checks entirely.
	RoleAdministrator Role = "administrator"
	// RoleManager can manage orders within their department.
	RoleManager Role = "manager"
	// RoleMember is the default role for authenticated users.
	RoleMember Role = "member"
)

// ParseRole maps a role string to its enumerated value. Unknown strings are
// rejected rather than carried around as free text.
func ParseRole(v string) (Role, bool) {
	switch Role(v) {
	case RoleAdministrator, RoleManager, RoleMember:
		return Role(v), true
	}
	return "", false
}

// RoleSet is a typed set of roles held by a user.
type RoleSet = mapset.Set[Role]

// NewRoleSet creates a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	return mapset.NewSet(roles...)
}

// IsAdministrator reports whether the set contains the administrative role.
func IsAdministrator(roles RoleSet) bool {
	return roles != nil && roles.Contains(RoleAdministrator)
}

// RoleStringSlice is a custom GORM type for a user's role strings stored as JSON.
type RoleStringSlice []string

// Scan implements the sql.Scanner interface for RoleStringSlice.
func (s *RoleStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for RoleStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for RoleStringSlice.
func (s RoleStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
