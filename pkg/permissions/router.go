package permissions

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the permissions API.
func Router(resolver *Resolver, manager *GrantManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/orders/{orderId}/users/{userId}/permissions", GetEffectivePermissionsHandler(resolver))
	r.Put("/orders/{orderId}/users/{userId}/grants", ApplyGrantsHandler(manager, resolver))
	r.Post("/orders/{orderId}/departments", GrantDepartmentAccessHandler(manager, resolver))
	r.Delete("/orders/{orderId}/departments/{departmentId}", RevokeDepartmentAccessHandler(manager, resolver))
	r.Post("/orders/{orderId}/exceptions", AddExceptionHandler(manager, resolver))
	r.Delete("/orders/{orderId}/exceptions/{userId}", RemoveExceptionHandler(manager, resolver))

	return r
}
