package cache

import "net/http"

// Manager holds the response cache for the expiration-warnings listing.
// Permission resolutions are deliberately excluded: the HTTP surface must
// re-query grant state on every request, so no cache instance exists for it.
type Manager struct {
	warnings *LRUCache
}

// NewManager creates a Manager from the given configuration.
// If cfg is nil or disabled, it returns nil.
func NewManager(cfg *Config) *Manager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Manager{
		warnings: NewLRUCache(cfg.MaxSize, cfg.WarningsTTL),
	}
}

// InvalidateAll clears the warnings cache entirely.
func (m *Manager) InvalidateAll() {
	if m == nil {
		return
	}
	m.warnings.InvalidateAll()
}

// WarningsMiddleware returns HTTP middleware that caches the
// expiration-warnings listing.
func (m *Manager) WarningsMiddleware() func(http.Handler) http.Handler {
	return Middleware(m.warnings)
}
