package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/litcal-mcp/internal/litcal/litcaltest"
)

func serve(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	rec, body := serve(t, h.LivenessHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newTestContext(t, api)
	h := NewHealthChecker(sc)

	rec, body := serve(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "metadata not loaded yet")
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["metadata"])

	require.NoError(t, sc.Init(context.Background()))
	rec, body = serve(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	h.SetReady(false)
	assert.False(t, h.IsReady())
	rec, _ = serve(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	require.NoError(t, sc.Shutdown())
	rec, body = serve(t, h.ReadinessHandler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "shutting down", body["checks"].(map[string]any)["shutdown"])
}

func TestHealthChecker_Detailed(t *testing.T) {
	api := litcaltest.NewServer(t)
	sc := newTestContext(t, api)
	require.NoError(t, sc.Init(context.Background()))
	h := NewHealthChecker(sc)

	rec, body := serve(t, h.DetailedHealthHandler(), "/healthz/detailed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["metadata"])
	assert.Equal(t, "file", body["cache_backend"])
	assert.Equal(t, api.URL, body["api_base_url"])
	assert.NotEmpty(t, body["uptime"])
	assert.NotEmpty(t, body["metadata_age"])
}

func TestHealthChecker_RegisterHealthEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthChecker(nil).RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec, _ := serve(t, mux, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
