package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/internal/services"
)

func newHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewHealthService("test", "", nil, nil, nil, logger)
	return NewHealthHandler(svc, logger)
}

func TestHealthHandler_HealthCheck(t *testing.T) {
	handler := newHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.Version)
}

func TestHealthHandler_ReadinessCheck(t *testing.T) {
	handler := newHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	handler.ReadinessCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	// No runner wired in this harness, so the service reports not ready.
	assert.Equal(t, "not_ready", status.Status)
	assert.Contains(t, status.Services, "runner")
}

func TestHealthHandler_Version(t *testing.T) {
	handler := newHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()

	handler.Version(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}
