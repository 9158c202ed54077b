package lifecycle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/ordercore/pkg/identity"
	"github.com/orderdesk/ordercore/pkg/orders"
)

// expirationRequest is the body for setting an expiration date.
type expirationRequest struct {
	ExpirationDate time.Time `json:"expirationDate"`
}

// SetExpirationHandler handles PUT /orders/{orderId}/expiration.
func SetExpirationHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		actor, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		var req expirationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		set, err := manager.SetExpiration(orderID, req.ExpirationDate, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to set expiration: %v", err))
			return
		}
		if !set {
			writeError(w, http.StatusNotFound, fmt.Sprintf("order %q not found", orderID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"set": true})
	}
}

// RemoveExpirationHandler handles DELETE /orders/{orderId}/expiration.
func RemoveExpirationHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		actor, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		removed, err := manager.RemoveExpiration(orderID, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to remove expiration: %v", err))
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "order not found or has no expiration")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": true})
	}
}

// archiveRequest is the body for archiving an order.
type archiveRequest struct {
	Reason string `json:"reason"`
}

// ArchiveHandler handles POST /orders/{orderId}:archive.
func ArchiveHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		actor, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		var req archiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		archived, err := manager.Archive(orderID, actor, req.Reason)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to archive order: %v", err))
			return
		}
		if !archived {
			writeError(w, http.StatusNotFound, "order not found or already archived")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archived": true})
	}
}

// ArchiveExpiredHandler handles POST /orders:archive-expired. Administrators only.
func ArchiveExpiredHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.IdentityFromContext(r.Context())
		if !ok || !identity.IsAdministrator(id.Roles) {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}

		count, err := manager.ArchiveExpired(id.User)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to archive expired orders: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archived": count})
	}
}

// RestoreHandler handles POST /archived/{archivedOrderId}:restore.
func RestoreHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archivedID := chi.URLParam(r, "archivedOrderId")
		actor, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		restored, err := manager.Restore(archivedID, actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to restore order: %v", err))
			return
		}
		if !restored {
			writeError(w, http.StatusNotFound, "snapshot not found, not restorable, or order missing")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"restored": true})
	}
}

// PermanentlyDeleteHandler handles DELETE /archived/{archivedOrderId}.
// Administrators only; this is the one irreversible operation.
func PermanentlyDeleteHandler(manager *ArchiveManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archivedID := chi.URLParam(r, "archivedOrderId")

		id, ok := identity.IdentityFromContext(r.Context())
		if !ok || !identity.IsAdministrator(id.Roles) {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}

		deleted, err := manager.PermanentlyDelete(archivedID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete archived order: %v", err))
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, fmt.Sprintf("archived order %q not found", archivedID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// ExpirationWarningsHandler handles GET /orders:expiration-warnings.
// Query param: days (horizon, defaults to the standard warning window).
func ExpirationWarningsHandler(store *orders.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 0
		if v := r.URL.Query().Get("days"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				days = parsed
			}
		}

		now := time.Now()
		if days > 0 {
			near, err := store.ListNearExpiration(now, days)
			if err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list near-expiration orders: %v", err))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"orders": near})
			return
		}

		warnings, err := store.ExpirationWarnings(now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list expiration warnings: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
	}
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := identity.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no identity")
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
