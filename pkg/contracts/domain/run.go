package domain

import "time"

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StageID names one stage of the analysis pipeline, in execution order.
type StageID string

const (
	StageLoad      StageID = "load"
	StageClean     StageID = "clean"
	StageScore     StageID = "score"
	StageReconcile StageID = "reconcile"
	StageAggregate StageID = "aggregate"
	StageExport    StageID = "export"
)

// StageStatus is the lifecycle state of one pipeline stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageState is a snapshot of one stage within a run.
type StageState struct {
	ID        StageID     `json:"id"`
	Status    StageStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
}

// DatasetInput names one uploaded (or configured) source file for a run.
type DatasetInput struct {
	Kind DatasetKind `json:"kind"`
	Path string      `json:"path"`
}

// Run is the public snapshot of one analysis run. Results are attached
// once the run completes; every table inside belongs to this run only.
type Run struct {
	ID         string                        `json:"id"`
	Status     RunStatus                     `json:"status"`
	Inputs     []DatasetInput                `json:"inputs"`
	Stages     []StageState                  `json:"stages"`
	Datasets   map[DatasetKind]DatasetStatus `json:"datasets,omitempty"`
	Error      string                        `json:"error,omitempty"`
	CreatedAt  time.Time                     `json:"created_at"`
	StartedAt  *time.Time                    `json:"started_at,omitempty"`
	FinishedAt *time.Time                    `json:"finished_at,omitempty"`
}

// RunResult bundles everything a completed run exposes to reporting.
type RunResult struct {
	Health       map[DatasetKind]*HealthReport  `json:"health"`
	CleaningLogs map[DatasetKind][]CleaningStep `json:"cleaning_logs"`
	Reconciled   []ReconciledRecord             `json:"reconciled,omitempty"`
	Summary      *ReconciliationSummary         `json:"summary,omitempty"`
	Warehouses   []WarehouseSummary             `json:"warehouses,omitempty"`
	Categories   []CategoryParadox              `json:"categories,omitempty"`
	Cities       []CityCorrelation              `json:"cities,omitempty"`
	Partial      *PartialSummary                `json:"partial,omitempty"`
	ExportDir    string                         `json:"export_dir,omitempty"`
	ExportFiles  []string                       `json:"export_files,omitempty"`
}
