package audit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdesk/ordercore/pkg/identity"
	"github.com/orderdesk/ordercore/pkg/orders"
	"github.com/orderdesk/ordercore/pkg/tenancy"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// ActivityMiddleware records a request-level activity log entry for every
// order API request. The write is best-effort: an append failure is logged
// and never fails the originating request.
func ActivityMiddleware(store *ActivityStore, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(capture, r)

			actor := "anonymous"
			if id, ok := identity.IdentityFromContext(r.Context()); ok {
				actor = id.User
			}

			clientIP := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				clientIP = host
			}

			// The route pattern is only known once the router has matched,
			// so both fields are read after the handler ran.
			actionName := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				actionName = rctx.RoutePattern()
			}

			entry := &orders.ActivityLogEntry{
				ID:         uuid.New().String(),
				OrderID:    chi.URLParam(r, "orderId"),
				Tenant:     tenancy.TenantID(r.Context()),
				Actor:      actor,
				Controller: routeController(actionName),
				ActionName: actionName,
				Method:     r.Method,
				Path:       r.URL.Path,
				Query:      r.URL.RawQuery,
				Success:    capture.statusCode >= 200 && capture.statusCode < 400,
				StatusCode: capture.statusCode,
				ClientIP:   clientIP,
				UserAgent:  r.UserAgent(),
				Payload: orders.JSONMap{
					"duration": time.Since(startTime).String(),
				},
				CreatedAt: startTime,
			}

			if err := store.Append(entry); err != nil {
				logger.Error("failed to write activity log entry",
					"error", err, "path", r.URL.Path)
			}
		})
	}
}

// routeController derives the owning router name from a matched route
// pattern, skipping any /api/vN mount prefix. "/api/v1/permissions/orders/
// {orderId}/grants" yields "permissions".
func routeController(pattern string) string {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "" || seg == "api" {
			continue
		}
		if len(seg) >= 2 && seg[0] == 'v' && seg[1] >= '0' && seg[1] <= '9' {
			continue
		}
		return seg
	}
	return ""
}
