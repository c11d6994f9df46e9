package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "simple message",
			apiError: &APIError{
				StatusCode: http.StatusBadRequest,
				ErrorCode:  "INVALID_REQUEST",
				Message:    "Invalid request format",
			},
			want: "Invalid request format",
		},
		{
			name: "empty message",
			apiError: &APIError{
				StatusCode: http.StatusInternalServerError,
				ErrorCode:  "INTERNAL_ERROR",
				Message:    "",
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.apiError.Error()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{
			name:       "bad request error",
			apiError:   ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found error",
			apiError:   ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "run failed error",
			apiError:   ErrRunFailed,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			err := render.Render(w, r, tt.apiError)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestNew(t *testing.T) {
	err := New(http.StatusConflict, "RUN_IN_PROGRESS", "Run already in progress")

	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "RUN_IN_PROGRESS", err.ErrorCode)
	assert.Equal(t, "Run already in progress", err.Message)
	assert.Nil(t, err.Details)
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]string{"dataset": "inventory"}
	err := NewWithDetails(http.StatusUnprocessableEntity, "DATASET_INVALID", "Dataset failed validation", details)

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, "DATASET_INVALID", err.ErrorCode)
	assert.Equal(t, "Dataset failed validation", err.Message)
	assert.Equal(t, details, err.Details)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing parameter", ErrMissingParameter, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"invalid parameter", ErrInvalidParameter, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", ErrConflict, http.StatusConflict, "CONFLICT"},
		{"payload too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"unprocessable entity", ErrUnprocessableEntity, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"rate limit exceeded", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"internal server", ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"run failed", ErrRunFailed, http.StatusInternalServerError, "RUN_FAILED"},
		{"file system", ErrFileSystem, http.StatusInternalServerError, "FILESYSTEM_ERROR"},
		{"websocket upgrade", ErrWebSocketUpgrade, http.StatusInternalServerError, "WEBSOCKET_UPGRADE_FAILED"},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := InvalidRequestWithError(cause)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
	assert.Equal(t, cause.Error(), err.Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("port", "must be between 1 and 65535")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	ve, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "port", ve.Field)
	assert.Equal(t, "must be between 1 and 65535", ve.Message)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("Run")

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "NOT_FOUND", err.ErrorCode)
	assert.Equal(t, "Run not found", err.Message)
	assert.Equal(t, "Run", err.Details)
}

func TestErrRunExecution(t *testing.T) {
	cause := fmt.Errorf("stage clean: column missing")
	err := ErrRunExecution(cause)

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "RUN_EXECUTION_FAILED", err.ErrorCode)
	assert.Equal(t, cause.Error(), err.Details)
}

func TestFileSystemError(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := FileSystemError("export write", cause)

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "FILESYSTEM_ERROR", err.ErrorCode)
	assert.Contains(t, err.Message, "export write")
	assert.Equal(t, cause.Error(), err.Details)
}

func TestErrorResponse_Render(t *testing.T) {
	resp := NewErrorResponse(ErrConflict)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/runs", nil)

	err := render.Render(w, r, resp)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNewValidationErrors(t *testing.T) {
	errs := []ValidationError{
		{Field: "kind", Message: "unknown dataset kind"},
		{Field: "file", Message: "file is required"},
	}
	err := NewValidationErrors(errs)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	ve, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, errs, ve.Errors)
}

func TestErrPanic(t *testing.T) {
	err := ErrPanic("something exploded")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", err.ErrorCode)

	pr, ok := err.Details.(PanicRecovery)
	require.True(t, ok)
	assert.Equal(t, "something exploded", pr.Message)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, ErrNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	err := json.NewDecoder(w.Body).Decode(&body)
	require.NoError(t, err)

	assert.Equal(t, false, body["success"])
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["error_code"])
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("dataset kind is required")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
	assert.Equal(t, "dataset kind is required", err.Message)
}

func TestNewInternalError(t *testing.T) {
	err := NewInternalError("export directory unavailable")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", err.ErrorCode)
	assert.Equal(t, "export directory unavailable", err.Message)
}

func TestAPIError_JSONSerialization(t *testing.T) {
	apiErr := NewWithDetails(http.StatusUnprocessableEntity, "DATASET_INVALID", "Dataset failed validation",
		map[string]interface{}{"missing_columns": []string{"Stock_Actual"}})

	data, err := json.Marshal(apiErr)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "DATASET_INVALID", decoded["error_code"])
	assert.Equal(t, "Dataset failed validation", decoded["message"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), decoded["status_code"])
	assert.NotNil(t, decoded["details"])
}
