package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "v1")
	h.SetReady(false)

	code, body := serve(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	h := NewHealthChecker(sc, "v1")

	code, body := serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["cache"])

	h.SetReady(false)
	code, _ = serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.SetReady(true)
	require.NoError(t, sc.Shutdown())
	code, body = serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["checks"].(map[string]any)["shutdown"])
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	h := NewHealthChecker(sc, "v1.2.3")

	code, body := serve(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "v1.2.3", body["version"])
	assert.Equal(t, "disabled", body["cache"])
	assert.NotEmpty(t, body["uptime"])

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	code, body = serve(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["status"])
}

func TestServerContext_NilApp(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.False(t, sc.IsShutdown())
}
