// Package identity provides request identity plumbing for the order core:
// context propagation, a typed role set, header- and JWT-based extraction
// middleware, and the user/department directory the permission resolver
// consults.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// identityCtxKey is an unexported type used as the context key for Identity.
type identityCtxKey struct{}

// Identity represents the authenticated user making a request.
type Identity struct {
	User  string
	Roles RoleSet
}

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// HeaderMiddleware returns HTTP middleware that extracts identity from
// X-Remote-User and X-Remote-Role headers and stores it in the request
// context. If X-Remote-User is missing, the user defaults to "anonymous".
// X-Remote-Role is comma-separated.
func HeaderMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get("X-Remote-User"))
			if user == "" {
				user = "anonymous"
			}

			roles := NewRoleSet()
			roleHeader := strings.TrimSpace(r.Header.Get("X-Remote-Role"))
			if roleHeader != "" {
				for _, v := range strings.Split(roleHeader, ",") {
					if role, ok := ParseRole(strings.TrimSpace(v)); ok {
						roles.Add(role)
					}
				}
			}

			id := Identity{User: user, Roles: roles}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
