package audit

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

// ListHistoryHandler handles GET /orders/{orderId}/history.
// Query params: pageSize, pageToken.
func ListHistoryHandler(store *HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		if orderID == "" {
			writeError(w, http.StatusBadRequest, "missing order ID")
			return
		}

		pageSize := 0
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		entries, nextToken, total, err := store.ListByOrder(orderID, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list history: %v", err))
			return
		}

		items := make([]historyResponse, len(entries))
		for i, entry := range entries {
			items[i] = historyToResponse(entry)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"entries":       items,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// ListActivityHandler handles GET /orders/{orderId}/activity.
func ListActivityHandler(store *ActivityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		if orderID == "" {
			writeError(w, http.StatusBadRequest, "missing order ID")
			return
		}

		pageSize := 0
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		entries, nextToken, total, err := store.ListByOrder(orderID, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list activity: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"entries":       entries,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// PurgeHistoryHandler handles POST /history:purge. Administrators only.
// Body: {"months": 3}; non-positive values fall back to the default window.
func PurgeHistoryHandler(history *HistoryStore, activity *ActivityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.IdentityFromContext(r.Context())
		if !ok || !identity.IsAdministrator(id.Roles) {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}

		var req struct {
			Months       int `json:"months"`
			ActivityDays int `json:"activityDays"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		historyDeleted, err := history.DeleteOldHistory(req.Months)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("history purge failed: %v", err))
			return
		}

		var activityDeleted int64
		if activity != nil {
			retention := time.Duration(req.ActivityDays) * 24 * time.Hour
			activityDeleted, err = activity.CleanupOldLogs(retention)
			if err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("activity purge failed: %v", err))
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"historyDeleted":  historyDeleted,
			"activityDeleted": activityDeleted,
		})
	}
}

// historyResponse is the API shape of a history entry.
type historyResponse struct {
	ID          string `json:"id"`
	OrderID     string `json:"orderId"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	OldValue    string `json:"oldValue,omitempty"`
	NewValue    string `json:"newValue,omitempty"`
	PerformedBy string `json:"performedBy"`
	PerformedAt string `json:"performedAt"`
}

func historyToResponse(entry orders.HistoryEntry) historyResponse {
	return historyResponse{
		ID:          entry.ID,
		OrderID:     entry.OrderID,
		Action:      string(entry.Action),
		Description: entry.Description,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		PerformedBy: entry.PerformedBy,
		PerformedAt: entry.PerformedAt.Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
