package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig controls bearer-token identity extraction.
type JWTConfig struct {
	// Secret is the HMAC key used to verify token signatures.
	Secret []byte
	// RoleClaim is the claim holding the user's role(s). Defaults to "role".
	RoleClaim string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	Logger *slog.Logger
}

// JWTMiddleware returns HTTP middleware that verifies a Bearer token and
// attaches the resulting Identity to the request context. Requests without a
// token proceed as "anonymous"; requests with an invalid token are rejected.
func JWTMiddleware(cfg JWTConfig) func(http.Handler) http.Handler {
	roleClaim := cfg.RoleClaim
	if roleClaim == "" {
		roleClaim = "role"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				id := Identity{User: "anonymous", Roles: NewRoleSet()}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}

			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == header {
				http.Error(w, "malformed Authorization header", http.StatusUnauthorized)
				return
			}

			id, err := identityFromToken(raw, cfg.Secret, roleClaim, cfg.Issuer)
			if err != nil {
				logger.Warn("rejected bearer token", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// identityFromToken verifies the token signature and claims and maps them to
// an Identity. The role claim may be a string or a list of strings.
func identityFromToken(raw string, secret []byte, roleClaim, issuer string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("token is not valid")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}

	roles := NewRoleSet()
	switch v := claims[roleClaim].(type) {
	case string:
		if role, ok := ParseRole(v); ok {
			roles.Add(role)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if role, ok := ParseRole(s); ok {
					roles.Add(role)
				}
			}
		}
	}

	return Identity{User: subject, Roles: roles}, nil
}
