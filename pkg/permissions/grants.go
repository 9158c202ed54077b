package permissions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/orders"
)

// GrantRequest describes the full desired capability set for a user on an
// order. Kinds present are (re)activated; previously-active kinds absent from
// the request are deactivated.
type GrantRequest struct {
	Capabilities []orders.GrantKind `json:"capabilities"`
	ExpiresAt    *time.Time         `json:"expiresAt,omitempty"`
	Note         string             `json:"note,omitempty"`
}

// GrantManager mutates grants, department accesses, and user exceptions.
// Every mutation appends exactly one history entry and touches the order's
// updated_at/updated_by in the same transaction. Revocation never deletes
// rows; it deactivates them to preserve audit lineage.
type GrantManager struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewGrantManager creates a new GrantManager.
func NewGrantManager(db *gorm.DB) *GrantManager {
	return &GrantManager{db: db, nowFn: time.Now}
}

// ApplyGrants applies the requested capability set for targetUser on the
// order atomically. Returns false when the order does not exist.
func (m *GrantManager) ApplyGrants(orderID, targetUserID, actor string, req GrantRequest) (bool, error) {
	now := m.nowFn()

	var order orders.Order
	err := m.db.Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load order: %w", err)
	}

	requested := mapset.NewSet(req.Capabilities...)

	err = m.db.Transaction(func(tx *gorm.DB) error {
		var existing []orders.PermissionGrant
		if err := tx.Where("order_id = ? AND user_id = ?", orderID, targetUserID).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("load existing grants: %w", err)
		}

		previouslyActive := mapset.NewSet[orders.GrantKind]()
		byKind := make(map[orders.GrantKind]*orders.PermissionGrant, len(existing))
		for i := range existing {
			g := &existing[i]
			byKind[g.Kind] = g
			if g.IsActive {
				previouslyActive.Add(g.Kind)
			}
		}

		// Reactivate or create requested kinds with a fresh grant timestamp.
		for _, kind := range orders.AllGrantKinds {
			if !requested.Contains(kind) {
				continue
			}
			if g, ok := byKind[kind]; ok {
				updates := map[string]any{
					"is_active":  true,
					"granted_by": actor,
					"granted_at": now,
					"expires_at": req.ExpiresAt,
					"note":       req.Note,
				}
				if err := tx.Model(&orders.PermissionGrant{}).Where("id = ?", g.ID).
					Updates(updates).Error; err != nil {
					return fmt.Errorf("reactivate grant %s: %w", kind, err)
				}
				continue
			}
			grant := &orders.PermissionGrant{
				ID:        uuid.New().String(),
				OrderID:   orderID,
				UserID:    targetUserID,
				Kind:      kind,
				GrantedBy: actor,
				GrantedAt: now,
				ExpiresAt: req.ExpiresAt,
				IsActive:  true,
				Note:      req.Note,
			}
			if err := tx.Create(grant).Error; err != nil {
				return fmt.Errorf("create grant %s: %w", kind, err)
			}
		}

		// Deactivate active kinds that were not requested. The rows stay.
		for _, kind := range orders.AllGrantKinds {
			if requested.Contains(kind) || !previouslyActive.Contains(kind) {
				continue
			}
			if err := tx.Model(&orders.PermissionGrant{}).
				Where("order_id = ? AND user_id = ? AND kind = ?", orderID, targetUserID, kind).
				Updates(map[string]any{"is_active": false, "expires_at": now}).Error; err != nil {
				return fmt.Errorf("deactivate grant %s: %w", kind, err)
			}
		}

		action := orders.ActionPermissionGranted
		if requested.Cardinality() == 0 {
			action = orders.ActionPermissionRevoked
		}
		entry := orders.NewHistoryEntry(orderID, action,
			fmt.Sprintf("Permissions for user %s set to [%s]", targetUserID, kindList(requested)),
			kindList(previouslyActive), kindList(requested), actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append grant history: %w", err)
		}

		return touchOrder(tx, orderID, actor, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantDepartmentAccess grants a department coarse access at the given level
// (1 = view, 2 = view+edit, 3 = full). One row exists per (order, department);
// re-granting updates it in place. Returns false on a missing order or an
// invalid department id / level.
func (m *GrantManager) GrantDepartmentAccess(orderID, departmentID string, level int, actor string) (bool, error) {
	if strings.TrimSpace(departmentID) == "" || level < 1 || level > 3 {
		return false, nil
	}
	now := m.nowFn()

	exists, err := m.orderExists(orderID)
	if err != nil || !exists {
		return false, err
	}

	canView, canEdit, canDownload, canShare := AccessLevelFlags(level)

	err = m.db.Transaction(func(tx *gorm.DB) error {
		var existing orders.DepartmentAccess
		err := tx.Where("order_id = ? AND department_id = ?", orderID, departmentID).
			First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]any{
				"access_level": level,
				"can_view":     canView,
				"can_edit":     canEdit,
				"can_download": canDownload,
				"can_share":    canShare,
				"granted_by":   actor,
				"granted_at":   now,
				"is_active":    true,
			}
			if err := tx.Model(&orders.DepartmentAccess{}).Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("update department access: %w", err)
			}
		case err == gorm.ErrRecordNotFound:
			access := &orders.DepartmentAccess{
				ID:           uuid.New().String(),
				OrderID:      orderID,
				DepartmentID: departmentID,
				AccessLevel:  level,
				CanView:      canView,
				CanEdit:      canEdit,
				CanDownload:  canDownload,
				CanShare:     canShare,
				GrantedBy:    actor,
				GrantedAt:    now,
				IsActive:     true,
			}
			if err := tx.Create(access).Error; err != nil {
				return fmt.Errorf("create department access: %w", err)
			}
		default:
			return fmt.Errorf("load department access: %w", err)
		}

		entry := orders.NewHistoryEntry(orderID, orders.ActionDepartmentAccessGranted,
			fmt.Sprintf("Department %s granted access level %d", departmentID, level),
			"", fmt.Sprintf("level %d", level), actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append department access history: %w", err)
		}

		return touchOrder(tx, orderID, actor, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeDepartmentAccess deactivates a department's access. Returns false if
// no active access row exists.
func (m *GrantManager) RevokeDepartmentAccess(orderID, departmentID, actor string) (bool, error) {
	now := m.nowFn()

	var existing orders.DepartmentAccess
	err := m.db.Where("order_id = ? AND department_id = ? AND is_active = ?", orderID, departmentID, true).
		First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load department access: %w", err)
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&orders.DepartmentAccess{}).Where("id = ?", existing.ID).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("revoke department access: %w", err)
		}
		entry := orders.NewHistoryEntry(orderID, orders.ActionDepartmentAccessRevoked,
			fmt.Sprintf("Department %s access revoked", departmentID),
			fmt.Sprintf("level %d", existing.AccessLevel), "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append department access history: %w", err)
		}
		return touchOrder(tx, orderID, actor, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddUserException places a deny-list entry for the user on the order,
// reactivating a previously removed one if present. Returns false when the
// order does not exist.
func (m *GrantManager) AddUserException(orderID, userID, reason string, expiresAt *time.Time, actor string) (bool, error) {
	now := m.nowFn()

	exists, err := m.orderExists(orderID)
	if err != nil || !exists {
		return false, err
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		var existing orders.UserException
		err := tx.Where("order_id = ? AND user_id = ?", orderID, userID).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]any{
				"reason":     reason,
				"created_by": actor,
				"created_at": now,
				"expires_at": expiresAt,
				"is_active":  true,
			}
			if err := tx.Model(&orders.UserException{}).Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("reactivate user exception: %w", err)
			}
		case err == gorm.ErrRecordNotFound:
			exc := &orders.UserException{
				ID:        uuid.New().String(),
				OrderID:   orderID,
				UserID:    userID,
				Reason:    reason,
				CreatedBy: actor,
				CreatedAt: now,
				ExpiresAt: expiresAt,
				IsActive:  true,
			}
			if err := tx.Create(exc).Error; err != nil {
				return fmt.Errorf("create user exception: %w", err)
			}
		default:
			return fmt.Errorf("load user exception: %w", err)
		}

		entry := orders.NewHistoryEntry(orderID, orders.ActionUserExceptionAdded,
			fmt.Sprintf("Access exception added for user %s: %s", userID, reason),
			"", reason, actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append exception history: %w", err)
		}
		return touchOrder(tx, orderID, actor, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveUserException deactivates the user's exception on the order. Returns
// false if no active exception exists.
func (m *GrantManager) RemoveUserException(orderID, userID, actor string) (bool, error) {
	now := m.nowFn()

	var existing orders.UserException
	err := m.db.Where("order_id = ? AND user_id = ? AND is_active = ?", orderID, userID, true).
		First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("load user exception: %w", err)
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&orders.UserException{}).Where("id = ?", existing.ID).
			Updates(map[string]any{"is_active": false, "expires_at": now}).Error; err != nil {
			return fmt.Errorf("remove user exception: %w", err)
		}
		entry := orders.NewHistoryEntry(orderID, orders.ActionUserExceptionRemoved,
			fmt.Sprintf("Access exception removed for user %s", userID),
			existing.Reason, "", actor)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append exception history: %w", err)
		}
		return touchOrder(tx, orderID, actor, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AccessLevelFlags maps a numeric department access level to capability flags.
func AccessLevelFlags(level int) (canView, canEdit, canDownload, canShare bool) {
	switch level {
	case 1:
		return true, false, false, false
	case 2:
		return true, true, false, false
	case 3:
		return true, true, true, true
	}
	return false, false, false, false
}

func (m *GrantManager) orderExists(orderID string) (bool, error) {
	var count int64
	if err := m.db.Model(&orders.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return count > 0, nil
}

func touchOrder(tx *gorm.DB, orderID, actor string, now time.Time) error {
	err := tx.Model(&orders.Order{}).Where("id = ?", orderID).
		Updates(map[string]any{"updated_by": actor, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("touch order: %w", err)
	}
	return nil
}

func kindList(kinds mapset.Set[orders.GrantKind]) string {
	items := make([]string, 0, kinds.Cardinality())
	for kind := range kinds.Iter() {
		items = append(items, string(kind))
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}
