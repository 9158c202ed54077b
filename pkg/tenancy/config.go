// Package tenancy provides multi-tenant context resolution and middleware
// for the order server. It supports single-tenant (backward compatible) and
// header-based multi-tenant modes.
package tenancy

import "os"

// Mode controls how tenant context is resolved.
type Mode string

const (
	// ModeSingle uses the "default" tenant for all requests (backward compat).
	ModeSingle Mode = "single"
	// ModeHeader requires a tenant per request (multi-tenant).
	ModeHeader Mode = "header"
)

// ModeFromEnv reads ORDERCORE_TENANCY_MODE, defaulting to single-tenant.
// Unknown values fall back to single-tenant rather than failing startup.
func ModeFromEnv() Mode {
	switch Mode(os.Getenv("ORDERCORE_TENANCY_MODE")) {
	case ModeHeader:
		return ModeHeader
	}
	return ModeSingle
}
