package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/shared/testutil"
	"supplypulse/internal/services"
)

// MockNarrativeService is a mock implementation of the narrative service
type MockNarrativeService struct {
	mock.Mock
}

func (m *MockNarrativeService) Narrate(ctx context.Context, runID, prompt string) (*services.NarrativeResult, error) {
	args := m.Called(ctx, runID, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NarrativeResult), args.Error(1)
}

func (m *MockNarrativeService) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func newNarrativeHandler(t *testing.T, svc NarrativeServiceInterface) *NarrativeHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewNarrativeHandler(svc, logger)
}

func postNarrative(handler *NarrativeHandler, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func TestNarrativeHandler_Narrate(t *testing.T) {
	svc := &MockNarrativeService{}
	handler := newNarrativeHandler(t, svc)

	svc.On("Narrate", mock.Anything, "run-1", "Which warehouse needs attention?").
		Return(&services.NarrativeResult{
			RunID:       "run-1",
			Prompt:      "Which warehouse needs attention?",
			Narrative:   "Norte shows the oldest reviews and the highest ticket rate.",
			GeneratedAt: time.Now().UTC(),
		}, nil)

	rec := postNarrative(handler, `{"run_id":"run-1","prompt":"Which warehouse needs attention?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Norte shows the oldest reviews")
	svc.AssertExpectations(t)
}

func TestNarrativeHandler_Narrate_TrimsPrompt(t *testing.T) {
	svc := &MockNarrativeService{}
	handler := newNarrativeHandler(t, svc)

	svc.On("Narrate", mock.Anything, "run-1", "hello").
		Return(&services.NarrativeResult{RunID: "run-1", Narrative: "ok"}, nil)

	rec := postNarrative(handler, `{"run_id":"run-1","prompt":"   hello   "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestNarrativeHandler_Narrate_InvalidBody(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty run id", `{"prompt":"tell me things"}`},
		{"short prompt", `{"run_id":"run-1","prompt":"ab"}`},
		{"oversized prompt", fmt.Sprintf(`{"run_id":"run-1","prompt":%q}`, strings.Repeat("x", 2100))},
		{"not json", `this is not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockNarrativeService{}
			handler := newNarrativeHandler(t, svc)

			rec := postNarrative(handler, tt.payload)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "Narrate")
		})
	}
}

func TestNarrativeHandler_Narrate_Disabled(t *testing.T) {
	svc := &MockNarrativeService{}
	handler := newNarrativeHandler(t, svc)

	svc.On("Narrate", mock.Anything, "run-1", "hello").
		Return(nil, fmt.Errorf("no narrative provider configured: %w", apierrors.ErrNarrativeDisabled))

	rec := postNarrative(handler, `{"run_id":"run-1","prompt":"hello"}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "NARRATIVE_DISABLED")
}

func TestNarrativeHandler_Narrate_Throttled(t *testing.T) {
	svc := &MockNarrativeService{}
	handler := newNarrativeHandler(t, svc)

	svc.On("Narrate", mock.Anything, "run-1", "hello").
		Return(nil, fmt.Errorf("narrative provider throttled: %w", apierrors.ErrRateLimited))

	rec := postNarrative(handler, `{"run_id":"run-1","prompt":"hello"}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNarrativeHandler_Status(t *testing.T) {
	svc := &MockNarrativeService{}
	handler := newNarrativeHandler(t, svc)

	svc.On("Enabled").Return(false)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}
