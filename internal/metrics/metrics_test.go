package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRouteTemplate(t *testing.T) {
	m := New(false)
	r := mux.NewRouter()
	r.Use(m.Middleware())
	r.HandleFunc("/api/v1/{table}/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/contacts/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	got, err := m.Counters("foodcrm_http")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got[`foodcrm_http_requests_total{method="GET",path="/api/v1/{table}/{id}",status="404"}`])
}

func TestHandler_ExposesStoreMetrics(t *testing.T) {
	m := New(false)
	m.QueryCache("contacts", true)
	m.QueryCache("contacts", false)
	m.QueryCache("contacts", false)
	m.Fetch("contacts", 20*time.Millisecond, nil)
	m.Fetch("contacts", time.Millisecond, errors.New("boom"))
	m.Rollback("contacts", store.OpUpdate)
	m.Bulk("contacts", store.OpDeleteMany, store.BulkPartial)

	got, err := m.Counters("foodcrm_store")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[`foodcrm_store_query_cache_total{result="hit",store="contacts"}`])
	assert.Equal(t, 2.0, got[`foodcrm_store_query_cache_total{result="miss",store="contacts"}`])
	assert.Equal(t, 1.0, got[`foodcrm_store_rollbacks_total{op="update",store="contacts"}`])
	assert.Equal(t, 1.0, got[`foodcrm_store_bulk_operations_total{op="delete_many",status="partial",store="contacts"}`])

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `foodcrm_store_fetch_duration_seconds_count{status="error",store="contacts"} 1`))
}
