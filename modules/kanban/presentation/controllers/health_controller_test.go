package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/pkg/application"
)

func serveHealth(t *testing.T, opts HealthControllerOptions) (int, healthResponse) {
	t.Helper()
	r := mux.NewRouter()
	NewHealthController(application.New(&application.ApplicationOptions{}), opts).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_InMemoryIsHealthy(t *testing.T) {
	code, body := serveHealth(t, HealthControllerOptions{InMemory: true})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, healthStatusHealthy, body.Status)
	require.Contains(t, body.Checks, "store")
	require.NotContains(t, body.Checks, "database")
}

func TestHealth_MissingPoolIsDown(t *testing.T) {
	code, body := serveHealth(t, HealthControllerOptions{OutboxTable: pgx.Identifier{"public", "kanban_outbox"}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, healthStatusDown, body.Status)
	require.Equal(t, healthStatusDown, body.Checks["database"].Status)
	require.Equal(t, healthStatusDown, body.Checks["outbox"].Status)
	require.Equal(t, "database connection pool not available", body.Checks["outbox"].Error)
}

func TestMergeHealthStatus(t *testing.T) {
	require.Equal(t, healthStatusDegraded, mergeHealthStatus(healthStatusHealthy, healthStatusDegraded))
	require.Equal(t, healthStatusDown, mergeHealthStatus(healthStatusDegraded, healthStatusDown))
	require.Equal(t, healthStatusDown, mergeHealthStatus(healthStatusDown, healthStatusHealthy))
	require.Equal(t, healthStatusDegraded, mergeHealthStatus(healthStatusDegraded, healthStatusHealthy))
}
