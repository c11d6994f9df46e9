package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"supplypulse/internal/infrastructure"
	"supplypulse/internal/shared/testutil"
)

func newOTelTestProviders(t *testing.T) *infrastructure.OTelProviders {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	return &infrastructure.OTelProviders{
		TracerProvider: tp,
		Tracer:         tp.Tracer("test"),
		Meter:          sdkmetric.NewMeterProvider().Meter("test"),
		Logger:         logger,
	}
}

func TestNewOTelMiddleware(t *testing.T) {
	m, err := NewOTelMiddleware(newOTelTestProviders(t))

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.Metrics())
}

func TestOTelMiddleware_Handler(t *testing.T) {
	m, err := NewOTelMiddleware(newOTelTestProviders(t))
	require.NoError(t, err)

	var gotTraceID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"run-1"}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/runs", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, gotTraceID, 32)
}

func TestOTelMiddleware_HandlerLogsCompletion(t *testing.T) {
	providers := newOTelTestProviders(t)
	logger, logHandler := testutil.NewTestLogger(t)
	providers.Logger = logger

	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))

	assert.True(t, logHandler.ContainsMessage("HTTP request completed"))
	assert.True(t, logHandler.ContainsAttr("status_code", int64(http.StatusNotFound)))
}

func TestWebSocketTraceMiddleware(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	var gotTraceID string
	handler := WebSocketTraceMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = infrastructure.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEmpty(t, gotTraceID)
	assert.True(t, logHandler.ContainsMessage("WebSocket upgrade attempt"))
}

func TestBusinessMetricsMiddleware_RoundTrip(t *testing.T) {
	metrics, err := infrastructure.CreateBusinessMetrics(sdkmetric.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	handler := BusinessMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := GetBusinessMetricsFromContext(r.Context())
		assert.Same(t, metrics, got)

		// Counter updates must not panic when wired through context
		RecordSystemError(r.Context(), "export_failure", "exports")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestGetBusinessMetricsFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Nil(t, GetBusinessMetricsFromContext(req.Context()))
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded for wins", "10.0.0.1", "10.0.0.2", "10.0.0.3:1234", "10.0.0.1"},
		{"real ip next", "", "10.0.0.2", "10.0.0.3:1234", "10.0.0.2"},
		{"remote addr fallback", "", "", "10.0.0.3:1234", "10.0.0.3:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, GetRealIP(req))
		})
	}
}
