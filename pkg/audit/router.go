package audit

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the audit API.
func Router(history *HistoryStore, activity *ActivityStore) chi.Router {
	r := chi.NewRouter()

	r.Get("/orders/{orderId}/history", ListHistoryHandler(history))
	r.Get("/orders/{orderId}/activity", ListActivityHandler(activity))
	r.Post("/history:purge", PurgeHistoryHandler(history, activity))

	return r
}
