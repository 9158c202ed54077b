package cache

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func countingHandler(status int, calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestMiddleware_CachesGetResponses(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	var calls atomic.Int64
	handler := Middleware(c)(countingHandler(http.StatusOK, &calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders:expiration-warnings", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 1, calls.Load())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders:expiration-warnings", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
	assert.EqualValues(t, 1, calls.Load())

	// A different query string is a different key.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders:expiration-warnings?verbose=1", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestMiddleware_SkipsNonGetAndErrors(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	var calls atomic.Int64
	handler := Middleware(c)(countingHandler(http.StatusOK, &calls))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders/ord-1/exceptions", nil))
	assert.Equal(t, 0, c.Size())

	var failCalls atomic.Int64
	failing := Middleware(c)(countingHandler(http.StatusInternalServerError, &failCalls))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders:expiration-warnings", nil))
	assert.Equal(t, 0, c.Size())
}

func TestInvalidateOnWrite(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.warnings.Set("/orders:expiration-warnings", []byte("cached"))
	m.warnings.Set("/orders:expiration-warnings?days=3", []byte("cached"))

	handler := m.InvalidateOnWrite()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders/ord-1/archive", nil))

	assert.Equal(t, 0, m.warnings.Size())
}

func TestInvalidateOnWrite_FailedWriteKeepsCache(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.warnings.Set("/orders:expiration-warnings", []byte("cached"))

	handler := m.InvalidateOnWrite()(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders/ord-1/archive", nil))

	_, ok := m.warnings.Get("/orders:expiration-warnings")
	assert.True(t, ok)
}

func TestNewManager_DisabledIsNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	assert.Nil(t, NewManager(cfg))
	assert.Nil(t, NewManager(nil))

	// Nil-manager invalidation is a no-op, not a panic.
	var m *Manager
	m.InvalidateAll()
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ORDERCORE_CACHE_ENABLED", "false")
	t.Setenv("ORDERCORE_CACHE_WARNINGS_TTL", "30")
	t.Setenv("ORDERCORE_CACHE_MAX_SIZE", "50")

	cfg := ConfigFromEnv()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.WarningsTTL)
	assert.Equal(t, 50, cfg.MaxSize)
}
