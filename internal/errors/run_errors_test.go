package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProblemDetails(t *testing.T) {
	pd := NewProblemDetails(
		http.StatusNotFound,
		"/errors/run-not-found",
		"Run Not Found",
		"No analysis run exists with the requested identifier.",
		"/api/runs/abc",
	)

	assert.Equal(t, http.StatusNotFound, pd.Status)
	assert.Equal(t, "/errors/run-not-found", pd.Type)
	assert.Equal(t, "Run Not Found", pd.Title)
	assert.Equal(t, "No analysis run exists with the requested identifier.", pd.Detail)
	assert.Equal(t, "/api/runs/abc", pd.Instance)
	assert.NotNil(t, pd.Extensions)
}

func TestProblemDetails_WithExtension(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, "/errors/run-already-running", "Run Already In Progress", "", "").
		WithExtension("trace_id", "trace-1").
		WithExtension("active_run_id", "run-9")

	assert.Equal(t, "trace-1", pd.Extensions["trace_id"])
	assert.Equal(t, "run-9", pd.Extensions["active_run_id"])
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(
		http.StatusUnprocessableEntity,
		"/errors/dataset-invalid",
		"Dataset Failed Validation",
		"The dataset does not match the expected structure and cannot be analyzed.",
		"/api/runs#t1",
	).WithExtension("dataset", "inventory").
		WithExtension("missing_columns", []string{"Stock_Actual", "Punto_Reorden"})

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Standard RFC 7807 fields and extensions share the top level.
	assert.Equal(t, "/errors/dataset-invalid", decoded["type"])
	assert.Equal(t, "Dataset Failed Validation", decoded["title"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), decoded["status"])
	assert.Equal(t, "inventory", decoded["dataset"])

	cols, ok := decoded["missing_columns"].([]interface{})
	require.True(t, ok)
	assert.Len(t, cols, 2)
}

func TestProblemDetails_MarshalJSON_OmitsEmpty(t *testing.T) {
	pd := NewProblemDetails(http.StatusInternalServerError, "/errors/internal", "Internal Server Error", "", "")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.NotContains(t, decoded, "detail")
	assert.NotContains(t, decoded, "instance")
}

func TestProblemDetails_Render(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, "/errors/run-already-running", "Run Already In Progress", "", "")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/runs", nil)

	err := render.Render(w, r, pd)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNewRunNotFoundError(t *testing.T) {
	pd := NewRunNotFoundError("run-42", "trace-7")

	assert.Equal(t, http.StatusNotFound, pd.Status)
	assert.Equal(t, "/errors/run-not-found", pd.Type)
	assert.Equal(t, "RUN_NOT_FOUND", pd.Extensions["error_code"])
	assert.Equal(t, "trace-7", pd.Extensions["trace_id"])
	assert.Equal(t, "run-42", pd.Extensions["run_id"])
}

func TestNewRunNotFoundError_NoRunID(t *testing.T) {
	pd := NewRunNotFoundError("", "trace-7")

	assert.NotContains(t, pd.Extensions, "run_id")
}

func TestNewRunConflictError(t *testing.T) {
	started := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	pd := NewRunConflictError(&RunConflictDetails{
		ActiveRunID: "run-1",
		Stage:       "clean",
		StartedAt:   &started,
	}, "trace-3")

	assert.Equal(t, http.StatusConflict, pd.Status)
	assert.Equal(t, "/errors/run-already-running", pd.Type)
	assert.Equal(t, "run-1", pd.Extensions["active_run_id"])
	assert.Equal(t, "clean", pd.Extensions["current_stage"])
	assert.Equal(t, "2025-06-01T10:30:00Z", pd.Extensions["started_at"])
}

func TestNewRunConflictError_NilDetails(t *testing.T) {
	pd := NewRunConflictError(nil, "trace-3")

	assert.Equal(t, http.StatusConflict, pd.Status)
	assert.Equal(t, "RUN_IN_PROGRESS", pd.Extensions["error_code"])
	assert.NotContains(t, pd.Extensions, "active_run_id")
}

func TestNewDatasetMissingError(t *testing.T) {
	pd := NewDatasetMissingError(&DatasetIssueDetails{
		Kind: "transactions",
		Path: "data/uploads/transacciones_logisticas_v2.csv",
	}, "trace-5")

	assert.Equal(t, http.StatusBadRequest, pd.Status)
	assert.Equal(t, "/errors/dataset-missing", pd.Type)
	assert.Equal(t, "transactions", pd.Extensions["dataset"])
	assert.Equal(t, "data/uploads/transacciones_logisticas_v2.csv", pd.Extensions["path"])
}

func TestNewDatasetInvalidError(t *testing.T) {
	pd := NewDatasetInvalidError(&DatasetIssueDetails{
		Kind:           "inventory",
		MissingColumns: []string{"Stock_Actual"},
		RowCount:       240,
		HealthStatus:   "INVALIDO",
	}, "trace-9")

	assert.Equal(t, http.StatusUnprocessableEntity, pd.Status)
	assert.Equal(t, "/errors/dataset-invalid", pd.Type)
	assert.Equal(t, "inventory", pd.Extensions["dataset"])
	assert.Equal(t, []string{"Stock_Actual"}, pd.Extensions["missing_columns"])
	assert.Equal(t, 240, pd.Extensions["row_count"])
	assert.Equal(t, "INVALIDO", pd.Extensions["health_status"])
}

func TestNewNarrativeDisabledError(t *testing.T) {
	pd := NewNarrativeDisabledError("trace-2")

	assert.Equal(t, http.StatusServiceUnavailable, pd.Status)
	assert.Equal(t, "/errors/narrative-disabled", pd.Type)
	assert.Equal(t, "NARRATIVE_DISABLED", pd.Extensions["error_code"])
	assert.Contains(t, pd.Extensions["hint"], "PULSE_NARRATIVE_API_KEY")
}

func TestMapRunError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "run not found",
			err:        ErrRunNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "/errors/run-not-found",
			wantCode:   "RUN_NOT_FOUND",
		},
		{
			name:       "run in progress",
			err:        ErrRunInProgress,
			wantStatus: http.StatusConflict,
			wantType:   "/errors/run-already-running",
			wantCode:   "RUN_IN_PROGRESS",
		},
		{
			name:       "dataset missing",
			err:        ErrDatasetMissing,
			wantStatus: http.StatusBadRequest,
			wantType:   "/errors/dataset-missing",
			wantCode:   "DATASET_MISSING",
		},
		{
			name:       "dataset invalid wrapped",
			err:        fmt.Errorf("inventory: %w", ErrDatasetInvalid),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   "/errors/dataset-invalid",
			wantCode:   "DATASET_INVALID",
		},
		{
			name:       "reconcile unavailable",
			err:        ErrReconcileUnavailable,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   "/errors/reconciliation-unavailable",
			wantCode:   "RECONCILIATION_UNAVAILABLE",
		},
		{
			name:       "export not found",
			err:        ErrExportNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "/errors/export-not-found",
			wantCode:   "EXPORT_NOT_FOUND",
		},
		{
			name:       "narrative disabled",
			err:        ErrNarrativeDisabled,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "/errors/narrative-disabled",
			wantCode:   "NARRATIVE_DISABLED",
		},
		{
			name:       "narrative unavailable",
			err:        ErrNarrativeUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "/errors/narrative-unavailable",
			wantCode:   "NARRATIVE_UNAVAILABLE",
		},
		{
			name:       "rate limited",
			err:        ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantType:   "/errors/rate-limited",
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "/errors/internal-error",
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := MapRunError(tt.err, "trace-x")

			pd, ok := renderer.(*ProblemDetails)
			require.True(t, ok)

			assert.Equal(t, tt.wantStatus, pd.Status)
			assert.Equal(t, tt.wantType, pd.Type)
			assert.Equal(t, tt.wantCode, pd.Extensions["error_code"])
			assert.Equal(t, "trace-x", pd.Extensions["trace_id"])
		})
	}
}

func TestMapRunError_APIError(t *testing.T) {
	apiErr := New(http.StatusNotFound, "RUN_NOT_FOUND", "Run not found")

	renderer := MapRunError(apiErr, "trace-y")

	pd, ok := renderer.(*ProblemDetails)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, pd.Status)
	assert.Equal(t, "/errors/run-not-found", pd.Type)
}
