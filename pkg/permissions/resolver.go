// Package permissions computes effective permissions for (order, user) pairs
// and manages grants, department accesses, and user exceptions.
package permissions

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/orderdesk/ordercore/pkg/identity"
	"github.com/orderdesk/ordercore/pkg/orders"
)

// Grant labels used for diagnostics in EffectivePermissions.
const (
	LabelOwner            = "Owner"
	LabelAdministrator    = "Administrator"
	LabelPublic           = "Public"
	LabelDepartmentAccess = "DepartmentAccess"
)

// EffectivePermissions is the computed, non-persisted view of what a user may
// do with an order. It is recomputed from stored state on every query and
// never cached.
type EffectivePermissions struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`

	IsOwner bool `json:"isOwner"`
	IsAdmin bool `json:"isAdmin"`

	CanView     bool `json:"canView"`
	CanEdit     bool `json:"canEdit"`
	CanDelete   bool `json:"canDelete"`
	CanShare    bool `json:"canShare"`
	CanDownload bool `json:"canDownload"`
	CanApprove  bool `json:"canApprove"`
	CanComment  bool `json:"canComment"`

	// Labels names the sources that contributed to the result, for display.
	Labels []string `json:"labels"`
}

// CanAccess reports whether the user may open the order at all.
func (p EffectivePermissions) CanAccess() bool {
	return p.IsAdmin || p.IsOwner || p.CanView || p.CanEdit
}

// CanDeleteOrder reports whether the user may delete the order.
func (p EffectivePermissions) CanDeleteOrder() bool {
	return p.IsAdmin || p.IsOwner || p.CanDelete
}

// Resolver computes EffectivePermissions from stored grants, department
// accesses, and exceptions.
type Resolver struct {
	store *orders.OrderStore
	dir   identity.Directory
	nowFn func() time.Time
}

// NewResolver creates a new Resolver.
func NewResolver(store *orders.OrderStore, dir identity.Directory) *Resolver {
	return &Resolver{store: store, dir: dir, nowFn: time.Now}
}

// Resolve computes the effective permissions of a user on an order. It fails
// soft: a missing order or user yields an all-false result, never an error
// about the domain itself.
func (r *Resolver) Resolve(orderID, userID string) (EffectivePermissions, error) {
	result := EffectivePermissions{OrderID: orderID, UserID: userID}
	now := r.nowFn()

	order, err := r.store.GetByID(orderID)
	if err != nil {
		return result, err
	}
	if order == nil {
		return result, nil
	}

	exists, err := r.dir.UserExists(userID)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, nil
	}

	roles, err := r.dir.RolesOf(userID)
	if err != nil {
		return result, err
	}

	result.IsOwner = order.OwnerID == userID
	result.IsAdmin = identity.IsAdministrator(roles)

	// A blocking exception is a hard stop for everyone except the owner and
	// administrators: capability flags stay false and no labels are reported.
	if hasBlockingException(order, userID, now) && !(result.IsOwner || result.IsAdmin) {
		return result, nil
	}

	kinds := effectiveGrantKinds(order, userID, now)

	memberOf, err := r.dir.ActiveDepartments(userID)
	if err != nil {
		return result, err
	}
	deptAccesses := matchingDepartmentAccesses(order, memberOf)

	deptView, deptEdit, deptDownload, deptShare := false, false, false, false
	for _, da := range deptAccesses {
		deptView = deptView || da.CanView
		deptEdit = deptEdit || da.CanEdit
		deptDownload = deptDownload || da.CanDownload
		deptShare = deptShare || da.CanShare
	}

	bypass := result.IsOwner || result.IsAdmin

	result.CanView = bypass || order.IsPublic ||
		kinds.Contains(orders.GrantView) || kinds.Contains(orders.GrantEdit) || kinds.Contains(orders.GrantDelete) ||
		deptView || deptEdit || deptShare
	result.CanEdit = bypass || kinds.Contains(orders.GrantEdit) || deptEdit
	result.CanDelete = bypass || kinds.Contains(orders.GrantDelete)
	result.CanShare = bypass || kinds.Contains(orders.GrantShare) || deptShare
	result.CanDownload = bypass || kinds.Contains(orders.GrantDownload) || deptDownload
	result.CanApprove = bypass || kinds.Contains(orders.GrantApprove)
	result.CanComment = bypass || kinds.Contains(orders.GrantComment)

	result.Labels = buildLabels(result, order.IsPublic, kinds, len(deptAccesses) > 0)
	return result, nil
}

// CanUserAccessOrder is a convenience predicate over Resolve.
func (r *Resolver) CanUserAccessOrder(orderID, userID string) (bool, error) {
	perms, err := r.Resolve(orderID, userID)
	if err != nil {
		return false, err
	}
	return perms.CanAccess(), nil
}

// CanUserDeleteOrder is a convenience predicate over Resolve.
func (r *Resolver) CanUserDeleteOrder(orderID, userID string) (bool, error) {
	perms, err := r.Resolve(orderID, userID)
	if err != nil {
		return false, err
	}
	return perms.CanDeleteOrder(), nil
}

func hasBlockingException(order *orders.Order, userID string, now time.Time) bool {
	for i := range order.Exceptions {
		e := &order.Exceptions[i]
		if e.UserID == userID && e.InEffect(now) {
			return true
		}
	}
	return false
}

func effectiveGrantKinds(order *orders.Order, userID string, now time.Time) mapset.Set[orders.GrantKind] {
	kinds := mapset.NewSet[orders.GrantKind]()
	for i := range order.Grants {
		g := &order.Grants[i]
		if g.UserID == userID && g.InEffect(now) {
			kinds.Add(g.Kind)
		}
	}
	return kinds
}

func matchingDepartmentAccesses(order *orders.Order, memberOf []string) []*orders.DepartmentAccess {
	member := mapset.NewSet(memberOf...)
	var matched []*orders.DepartmentAccess
	for i := range order.DepartmentAccesses {
		da := &order.DepartmentAccesses[i]
		if da.IsActive && member.Contains(da.DepartmentID) {
			matched = append(matched, da)
		}
	}
	return matched
}

func buildLabels(p EffectivePermissions, isPublic bool, kinds mapset.Set[orders.GrantKind], hasDeptAccess bool) []string {
	labels := mapset.NewSet[string]()
	if p.IsOwner {
		labels.Add(LabelOwner)
	}
	if p.IsAdmin {
		labels.Add(LabelAdministrator)
	}
	if isPublic {
		labels.Add(LabelPublic)
	}
	if hasDeptAccess {
		labels.Add(LabelDepartmentAccess)
	}
	for kind := range kinds.Iter() {
		labels.Add(grantLabel(kind))
	}
	out := labels.ToSlice()
	sort.Strings(out)
	return out
}

func grantLabel(kind orders.GrantKind) string {
	switch kind {
	case orders.GrantView:
		return "View"
	case orders.GrantEdit:
		return "Edit"
	case orders.GrantDelete:
		return "Delete"
	case orders.GrantShare:
		return "Share"
	case orders.GrantDownload:
		return "Download"
	case orders.GrantPrint:
		return "Print"
	case orders.GrantComment:
		return "Comment"
	case orders.GrantApprove:
		return "Approve"
	}
	return string(kind)
}
