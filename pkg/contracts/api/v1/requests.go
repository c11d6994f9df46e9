// Package api contains API contract definitions for SupplyPulse.
// Version v1 represents the current stable API version.
package api

// Run API Requests

// DatasetPathInput names one source file for a run
type DatasetPathInput struct {
	Kind string `json:"kind" validate:"required,oneof=feedback inventory transactions"`
	Path string `json:"path" validate:"required"`
}

// RunStartRequest represents a request to start an analysis run.
// With an empty body the service falls back to the configured data
// directory and canonical file names.
type RunStartRequest struct {
	DataDir  string             `json:"data_dir,omitempty"`
	Datasets []DatasetPathInput `json:"datasets,omitempty" validate:"omitempty,dive"`
}

// RunListRequest represents a request to list analysis runs
type RunListRequest struct {
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed"`
	Limit  int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
}

// Narrative API Requests

// NarrativeRequest represents a request for an executive narrative
// grounded on a completed run's warehouse summary
type NarrativeRequest struct {
	RunID  string `json:"run_id" validate:"required,uuid"`
	Prompt string `json:"prompt" validate:"required,min=3,max=2000"`
}

// Export API Requests

// ExportDownloadRequest represents a request to download a run artifact
type ExportDownloadRequest struct {
	RunID    string `json:"run_id" param:"id" validate:"required,uuid"`
	Filename string `json:"filename" param:"filename" validate:"required,filename"`
}

