package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/ordercore/pkg/identity"
)

// GetEffectivePermissionsHandler handles
// GET /orders/{orderId}/users/{userId}/permissions.
func GetEffectivePermissionsHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		userID := chi.URLParam(r, "userId")
		if orderID == "" || userID == "" {
			writeError(w, http.StatusBadRequest, "missing order or user ID")
			return
		}

		perms, err := resolver.Resolve(orderID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to resolve permissions: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, perms)
	}
}

// ApplyGrantsHandler handles PUT /orders/{orderId}/users/{userId}/grants.
// The actor must hold the share capability on the order.
func ApplyGrantsHandler(manager *GrantManager, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		userID := chi.URLParam(r, "userId")

		actor, ok := requireShare(w, r, resolver, orderID)
		if !ok {
			return
		}

		var req GrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		applied, err := manager.ApplyGrants(orderID, userID, actor, req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to apply grants: %v", err))
			return
		}
		if !applied {
			writeError(w, http.StatusNotFound, fmt.Sprintf("order %q not found", orderID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"applied": true})
	}
}

// departmentAccessRequest is the body for granting department access.
type departmentAccessRequest struct {
	DepartmentID string `json:"departmentId"`
	AccessLevel  int    `json:"accessLevel"`
}

// GrantDepartmentAccessHandler handles POST /orders/{orderId}/departments.
func GrantDepartmentAccessHandler(manager *GrantManager, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		actor, ok := requireShare(w, r, resolver, orderID)
		if !ok {
			return
		}

		var req departmentAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		granted, err := manager.GrantDepartmentAccess(orderID, req.DepartmentID, req.AccessLevel, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to grant department access: %v", err))
			return
		}
		if !granted {
			writeError(w, http.StatusBadRequest, "invalid department or access level, or order not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"granted": true})
	}
}

// RevokeDepartmentAccessHandler handles
// DELETE /orders/{orderId}/departments/{departmentId}.
func RevokeDepartmentAccessHandler(manager *GrantManager, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		departmentID := chi.URLParam(r, "departmentId")

		actor, ok := requireShare(w, r, resolver, orderID)
		if !ok {
			return
		}

		revoked, err := manager.RevokeDepartmentAccess(orderID, departmentID, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to revoke department access: %v", err))
			return
		}
		if !revoked {
			writeError(w, http.StatusNotFound, "no active department access found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
	}
}

// exceptionRequest is the body for adding a user exception.
type exceptionRequest struct {
	UserID    string     `json:"userId"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// AddExceptionHandler handles POST /orders/{orderId}/exceptions.
func AddExceptionHandler(manager *GrantManager, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		actor, ok := requireShare(w, r, resolver, orderID)
		if !ok {
			return
		}

		var req exceptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "missing user ID")
			return
		}

		added, err := manager.AddUserException(orderID, req.UserID, req.Reason, req.ExpiresAt, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to add exception: %v", err))
			return
		}
		if !added {
			writeError(w, http.StatusNotFound, fmt.Sprintf("order %q not found", orderID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"added": true})
	}
}

// RemoveExceptionHandler handles
// DELETE /orders/{orderId}/exceptions/{userId}.
func RemoveExceptionHandler(manager *GrantManager, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		userID := chi.URLParam(r, "userId")

		actor, ok := requireShare(w, r, resolver, orderID)
		if !ok {
			return
		}

		removed, err := manager.RemoveUserException(orderID, userID, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to remove exception: %v", err))
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "no active exception found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": true})
	}
}

// requireShare resolves the requesting identity and checks that it may manage
// sharing on the order. A failed check writes the response and returns false.
func requireShare(w http.ResponseWriter, r *http.Request, resolver *Resolver, orderID string) (string, bool) {
	id, ok := identity.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no identity")
		return "", false
	}
	perms, err := resolver.Resolve(orderID, id.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to resolve permissions: %v", err))
		return "", false
	}
	if !perms.CanShare {
		writeError(w, http.StatusForbidden, "share permission required")
		return "", false
	}
	return id.User, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
