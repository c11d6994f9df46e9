package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Analysis run errors (using errors package for sentinel errors)
var (
	ErrRunNotFound          = errors.New("run not found")
	ErrRunInProgress        = errors.New("run already in progress")
	ErrDatasetMissing       = errors.New("dataset file missing")
	ErrDatasetInvalid       = errors.New("dataset failed validation")
	ErrReconcileUnavailable = errors.New("reconciliation requires inventory and transactions")
	ErrExportNotFound       = errors.New("export not found")

	// Narrative-specific errors
	ErrNarrativeDisabled    = errors.New("narrative service disabled")
	ErrNarrativeUnavailable = errors.New("narrative service unavailable")
	ErrRateLimited          = errors.New("rate limited")
)

// DatasetIssueDetails provides additional context for dataset errors
type DatasetIssueDetails struct {
	Kind           string     `json:"kind,omitempty"`
	Path           string     `json:"path,omitempty"`
	MissingColumns []string   `json:"missing_columns,omitempty"`
	RowCount       int        `json:"row_count,omitempty"`
	HealthStatus   string     `json:"health_status,omitempty"`
	CheckedAt      *time.Time `json:"checked_at,omitempty"`
}

// RunConflictDetails provides additional context when a run rejects a new request
type RunConflictDetails struct {
	ActiveRunID string     `json:"active_run_id,omitempty"`
	Stage       string     `json:"stage,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	// Use standard JSON marshaling
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewRunNotFoundError creates an error for requests that reference an unknown run
func NewRunNotFoundError(runID, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusNotFound,
		"/errors/run-not-found",
		"Run Not Found",
		"No analysis run exists with the requested identifier.",
		fmt.Sprintf("/api/runs#%s", traceID),
	)

	problem.WithExtension("error_code", "RUN_NOT_FOUND").
		WithExtension("trace_id", traceID)

	if runID != "" {
		problem.WithExtension("run_id", runID)
	}

	return problem
}

// NewRunConflictError creates an error for run requests rejected because another run is active
func NewRunConflictError(details *RunConflictDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusConflict,
		"/errors/run-already-running",
		"Run Already In Progress",
		"An analysis run is already in progress. Wait for it to finish or watch its progress instead.",
		fmt.Sprintf("/api/runs#%s", traceID),
	)

	problem.WithExtension("error_code", "RUN_IN_PROGRESS").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.ActiveRunID != "" {
			problem.WithExtension("active_run_id", details.ActiveRunID)
		}
		if details.Stage != "" {
			problem.WithExtension("current_stage", details.Stage)
		}
		if details.StartedAt != nil {
			problem.WithExtension("started_at", details.StartedAt.Format("2006-01-02T15:04:05Z"))
		}
	}

	return problem
}

// NewDatasetMissingError creates an error for a dataset file that could not be found
func NewDatasetMissingError(details *DatasetIssueDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusBadRequest,
		"/errors/dataset-missing",
		"Dataset File Missing",
		"One of the configured dataset files does not exist. Upload it or fix the configured path.",
		fmt.Sprintf("/api/runs#%s", traceID),
	)

	problem.WithExtension("error_code", "DATASET_MISSING").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Kind != "" {
			problem.WithExtension("dataset", details.Kind)
		}
		if details.Path != "" {
			problem.WithExtension("path", details.Path)
		}
	}

	return problem
}

// NewDatasetInvalidError creates an error for a dataset that failed structural validation
func NewDatasetInvalidError(details *DatasetIssueDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		"/errors/dataset-invalid",
		"Dataset Failed Validation",
		"The dataset does not match the expected structure and cannot be analyzed.",
		fmt.Sprintf("/api/runs#%s", traceID),
	)

	problem.WithExtension("error_code", "DATASET_INVALID").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Kind != "" {
			problem.WithExtension("dataset", details.Kind)
		}
		if len(details.MissingColumns) > 0 {
			problem.WithExtension("missing_columns", details.MissingColumns)
		}
		if details.RowCount > 0 {
			problem.WithExtension("row_count", details.RowCount)
		}
		if details.HealthStatus != "" {
			problem.WithExtension("health_status", details.HealthStatus)
		}
		if details.CheckedAt != nil {
			problem.WithExtension("checked_at", details.CheckedAt.Format("2006-01-02T15:04:05Z"))
		}
	}

	return problem
}

// NewNarrativeDisabledError creates an error for narrative requests while the service is disabled
func NewNarrativeDisabledError(traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusServiceUnavailable,
		"/errors/narrative-disabled",
		"Narrative Service Disabled",
		"The narrative service is disabled because no API key is configured.",
		fmt.Sprintf("/api/narrative#%s", traceID),
	)

	problem.WithExtension("error_code", "NARRATIVE_DISABLED").
		WithExtension("trace_id", traceID).
		WithExtension("hint", "Set PULSE_NARRATIVE_API_KEY to enable executive narratives.")

	return problem
}

// MapRunError maps domain errors to HTTP problem details
func MapRunError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/runs#trace-%s", traceID)

	// Check if it's an APIError from errors.go
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == "RUN_NOT_FOUND" {
			return NewRunNotFoundError("", traceID)
		}
	}

	switch {
	case errors.Is(err, ErrRunNotFound):
		return NewRunNotFoundError("", traceID)
	case errors.Is(err, ErrRunInProgress):
		return NewRunConflictError(nil, traceID)
	case errors.Is(err, ErrDatasetMissing):
		return NewDatasetMissingError(nil, traceID)
	case errors.Is(err, ErrDatasetInvalid):
		return NewDatasetInvalidError(nil, traceID)
	case errors.Is(err, ErrReconcileUnavailable):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/reconciliation-unavailable",
			"Reconciliation Unavailable",
			"Reconciliation needs both the inventory and transactions datasets. The run will continue without SKU verification.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RECONCILIATION_UNAVAILABLE")

	case errors.Is(err, ErrExportNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/export-not-found",
			"Export Not Found",
			"The requested export file does not exist for this run.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "EXPORT_NOT_FOUND")

	case errors.Is(err, ErrNarrativeDisabled):
		return NewNarrativeDisabledError(traceID)

	case errors.Is(err, ErrNarrativeUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/narrative-unavailable",
			"Narrative Service Unavailable",
			"Unable to reach the narrative provider. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NARRATIVE_UNAVAILABLE")

	case errors.Is(err, ErrRateLimited):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			"/errors/rate-limited",
			"Too Many Requests",
			"Too many requests. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RATE_LIMITED").
			WithExtension("retry_after", 60)

	default:
		// Generic error
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
