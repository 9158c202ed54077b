package lifecycle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/identity"
	"github.com/orderdesk/ordercore/pkg/orders"
)

func newTestRouter(t *testing.T) (chi.Router, *gorm.DB, *orders.OrderStore) {
	t.Helper()
	db, store := newTestDB(t)
	manager := NewArchiveManager(db, nil)

	r := chi.NewRouter()
	r.Use(identity.HeaderMiddleware())
	r.Mount("/", Router(manager, store))
	return r, db, store
}

func doRequest(t *testing.T, router chi.Router, method, path, user, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-Remote-User", user)
	}
	if role != "" {
		req.Header.Set("X-Remote-Role", role)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestExpirationHandlers(t *testing.T) {
	router, _, store := newTestRouter(t)
	order := seedOrder(t, store, "alice")

	expiry := time.Now().Add(48 * time.Hour).UTC()
	rec := doRequest(t, router, http.MethodPut,
		"/orders/"+order.ID+"/expiration", "alice", "",
		map[string]any{"expirationDate": expiry})
	require.Equal(t, http.StatusOK, rec.Code)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ExpirationDate)

	rec = doRequest(t, router, http.MethodDelete,
		"/orders/"+order.ID+"/expiration", "alice", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A second removal has nothing to remove.
	rec = doRequest(t, router, http.MethodDelete,
		"/orders/"+order.ID+"/expiration", "alice", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodPut,
		"/orders/no-such/expiration", "alice", "",
		map[string]any{"expirationDate": expiry})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveAndRestoreHandlers(t *testing.T) {
	router, db, store := newTestRouter(t)
	order := seedOrder(t, store, "alice")

	rec := doRequest(t, router, http.MethodPost,
		"/orders/"+order.ID+":archive", "alice", "",
		map[string]any{"reason": "wrapped up"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost,
		"/orders/"+order.ID+":archive", "alice", "",
		map[string]any{"reason": "again"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)

	rec = doRequest(t, router, http.MethodPost,
		"/archived/"+snapshot.ID+":restore", "bob", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsArchived)
}

func TestArchiveExpiredHandler_AdminOnly(t *testing.T) {
	router, db, store := newTestRouter(t)
	order := seedOrder(t, store, "alice")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", order.ID).
		Update("expiration_date", past).Error)

	rec := doRequest(t, router, http.MethodPost,
		"/orders:archive-expired", "alice", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost,
		"/orders:archive-expired", "root", "administrator", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["archived"])
}

func TestPermanentlyDeleteHandler_AdminOnly(t *testing.T) {
	router, db, store := newTestRouter(t)
	order := seedOrder(t, store, "alice")

	rec := doRequest(t, router, http.MethodPost,
		"/orders/"+order.ID+":archive", "alice", "",
		map[string]any{"reason": "done"})
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot orders.ArchivedOrder
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&snapshot).Error)

	rec = doRequest(t, router, http.MethodDelete,
		"/archived/"+snapshot.ID, "alice", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodDelete,
		"/archived/"+snapshot.ID, "root", "administrator", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	loaded, err := store.GetByID(order.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestExpirationWarningsHandler(t *testing.T) {
	router, db, store := newTestRouter(t)
	soon := seedOrder(t, store, "alice")
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", soon.ID).
		Update("expiration_date", time.Now().Add(5*24*time.Hour)).Error)

	rec := doRequest(t, router, http.MethodGet, "/orders:expiration-warnings", "alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Warnings []orders.ExpirationWarning `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Warnings, 1)

	rec = doRequest(t, router, http.MethodGet, "/orders:expiration-warnings?days=3", "alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var near struct {
		Orders []orders.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &near))
	assert.Empty(t, near.Orders)
}
