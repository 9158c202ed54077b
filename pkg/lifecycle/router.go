package lifecycle

import (
	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/ordercore/pkg/orders"
)

// Router creates a chi.Router for the lifecycle API.
func Router(manager *ArchiveManager, store *orders.OrderStore) chi.Router {
	r := chi.NewRouter()

	r.Put("/orders/{orderId}/expiration", SetExpirationHandler(manager))
	r.Delete("/orders/{orderId}/expiration", RemoveExpirationHandler(manager))
	r.Post("/orders/{orderId}:archive", ArchiveHandler(manager))
	r.Post("/orders:archive-expired", ArchiveExpiredHandler(manager))
	r.Get("/orders:expiration-warnings", ExpirationWarningsHandler(store))
	r.Post("/archived/{archivedOrderId}:restore", RestoreHandler(manager))
	r.Delete("/archived/{archivedOrderId}", PermanentlyDeleteHandler(manager))

	return r
}
