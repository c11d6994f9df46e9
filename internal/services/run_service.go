package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/operations"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

const (
	// DefaultRunListLimit bounds run listings when the caller does not ask
	// for a specific page size.
	DefaultRunListLimit = 20

	// DefaultReconcileRecordLimit bounds the number of reconciled rows
	// returned inline on the reconciliation report. The full table is
	// always available as a CSV export.
	DefaultReconcileRecordLimit = 100
)

// RunService owns the run lifecycle for the HTTP layer: it resolves
// dataset inputs, starts runs on the Runner and serves run state and
// report sections out of the run store.
type RunService struct {
	runner    *operations.Runner
	paths     *config.Paths
	fileNames map[domain.DatasetKind]string
	logger    *slog.Logger
}

// NewRunService creates the run service. The paths supply the data
// directory used when a start request names no dataset files.
func NewRunService(runner *operations.Runner, paths *config.Paths, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &RunService{
		runner: runner,
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "services.run"),
	}
}

// SetDatasetFiles overrides the file names directory scans look for.
// Blank entries keep the canonical name. Call before serving requests.
func (s *RunService) SetDatasetFiles(cfg config.DatasetsConfig) {
	s.fileNames = map[domain.DatasetKind]string{
		domain.DatasetFeedback:     cfg.FeedbackFile,
		domain.DatasetInventory:    cfg.InventoryFile,
		domain.DatasetTransactions: cfg.TransactionsFile,
	}
}

// fileName returns the file name a directory scan expects for kind.
func (s *RunService) fileName(kind domain.DatasetKind) string {
	if name := s.fileNames[kind]; name != "" {
		return name
	}
	return domain.CanonicalFileName(kind)
}

// StartRun resolves the request into dataset inputs and hands them to the
// runner. The run executes in the background; the returned Run is the
// accepted pending snapshot.
func (s *RunService) StartRun(ctx context.Context, req api.RunStartRequest) (*domain.Run, error) {
	inputs, err := s.resolveInputs(req)
	if err != nil {
		return nil, err
	}

	run, err := s.runner.Start(ctx, inputs)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "run started",
		slog.String("run_id", run.ID),
		slog.Int("datasets", len(inputs)))
	return run, nil
}

// resolveInputs turns a start request into concrete dataset inputs.
// Explicitly named files win over the data directory; an empty request
// falls back to the configured data directory and the canonical file
// names. Directory scans only pick up files that exist so a partial
// delivery starts a degraded run instead of failing outright.
func (s *RunService) resolveInputs(req api.RunStartRequest) ([]domain.DatasetInput, error) {
	if len(req.Datasets) > 0 {
		inputs := make([]domain.DatasetInput, 0, len(req.Datasets))
		for _, d := range req.Datasets {
			inputs = append(inputs, domain.DatasetInput{
				Kind: domain.DatasetKind(d.Kind),
				Path: d.Path,
			})
		}
		return inputs, nil
	}

	dataDir := req.DataDir
	if dataDir == "" {
		if s.paths == nil {
			return nil, fmt.Errorf("no dataset files named and no data directory configured: %w", apierrors.ErrDatasetMissing)
		}
		dataDir = s.paths.DataDir
	}

	var inputs []domain.DatasetInput
	for _, kind := range domain.AllDatasetKinds {
		path := filepath.Join(dataDir, s.fileName(kind))
		if _, err := os.Stat(path); err != nil {
			s.logger.Debug("canonical dataset file absent",
				slog.String("dataset", string(kind)),
				slog.String("path", path))
			continue
		}
		inputs = append(inputs, domain.DatasetInput{Kind: kind, Path: path})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no dataset files found in %s: %w", dataDir, apierrors.ErrDatasetMissing)
	}
	return inputs, nil
}

// GetRun returns one run by ID.
func (s *RunService) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return s.runner.Store().Get(runID)
}

// ListRuns returns recent runs, newest first, optionally filtered by
// status. A non-positive limit applies the default page size.
func (s *RunService) ListRuns(ctx context.Context, status string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	return s.runner.Store().List(domain.RunStatus(status), limit), nil
}

// ReconciliationReport is the JSON shape of GET /api/runs/{id}/reconciliation.
// Records carries at most the requested number of reconciled rows; the
// full table ships as sku_reconciliation.csv under the run's exports.
type ReconciliationReport struct {
	RunID        string                        `json:"run_id"`
	Summary      *domain.ReconciliationSummary `json:"summary,omitempty"`
	Partial      *domain.PartialSummary        `json:"partial,omitempty"`
	TotalRecords int                           `json:"total_records"`
	Records      []domain.ReconciledRecord     `json:"records,omitempty"`
}

// AggregateReport is the JSON shape of GET /api/runs/{id}/aggregates.
type AggregateReport struct {
	RunID      string                    `json:"run_id"`
	Warehouses []domain.WarehouseSummary `json:"warehouses,omitempty"`
	Categories []domain.CategoryParadox  `json:"categories,omitempty"`
	Cities     []domain.CityCorrelation  `json:"cities,omitempty"`
}

// HealthReports returns the per-dataset health reports of a finished run.
func (s *RunService) HealthReports(ctx context.Context, runID string) (map[domain.DatasetKind]*domain.HealthReport, error) {
	_, result, err := s.finishedResult(runID)
	if err != nil {
		return nil, err
	}
	return result.Health, nil
}

// CleaningLogs returns the per-dataset cleaning audit of a finished run.
func (s *RunService) CleaningLogs(ctx context.Context, runID string) (map[domain.DatasetKind][]domain.CleaningStep, error) {
	_, result, err := s.finishedResult(runID)
	if err != nil {
		return nil, err
	}
	return result.CleaningLogs, nil
}

// Reconciliation returns the SKU reconciliation section of a finished
// run. When neither inventory nor transactions survived cleaning there
// is nothing to report and the call fails with ErrReconcileUnavailable.
func (s *RunService) Reconciliation(ctx context.Context, runID string, recordLimit int) (*ReconciliationReport, error) {
	run, result, err := s.finishedResult(runID)
	if err != nil {
		return nil, err
	}
	if result.Summary == nil && result.Partial == nil {
		return nil, fmt.Errorf("run %s: %w", runID, apierrors.ErrReconcileUnavailable)
	}

	if recordLimit <= 0 {
		recordLimit = DefaultReconcileRecordLimit
	}
	records := result.Reconciled
	if len(records) > recordLimit {
		records = records[:recordLimit]
	}

	return &ReconciliationReport{
		RunID:        run.ID,
		Summary:      result.Summary,
		Partial:      result.Partial,
		TotalRecords: len(result.Reconciled),
		Records:      records,
	}, nil
}

// Aggregates returns the cross-entity summaries of a finished run. They
// derive from reconciled records, so a run that never reconciled has
// none to offer.
func (s *RunService) Aggregates(ctx context.Context, runID string) (*AggregateReport, error) {
	run, result, err := s.finishedResult(runID)
	if err != nil {
		return nil, err
	}
	if len(result.Reconciled) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, apierrors.ErrReconcileUnavailable)
	}
	return &AggregateReport{
		RunID:      run.ID,
		Warehouses: result.Warehouses,
		Categories: result.Categories,
		Cities:     result.Cities,
	}, nil
}

// Result exposes the raw stored result of a finished run.
func (s *RunService) Result(ctx context.Context, runID string) (*domain.RunResult, error) {
	_, result, err := s.finishedResult(runID)
	return result, err
}

// finishedResult fetches a run and its stored result, rejecting runs
// that are still executing. Failed runs keep whatever partial result
// their completed stages produced; a run that failed before loading any
// dataset has no result at all.
func (s *RunService) finishedResult(runID string) (*domain.Run, *domain.RunResult, error) {
	run, err := s.runner.Store().Get(runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Status == domain.RunPending || run.Status == domain.RunRunning {
		return nil, nil, fmt.Errorf("run %s is still %s: %w", runID, run.Status, apierrors.ErrRunInProgress)
	}
	result, err := s.runner.Store().Result(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s produced no reports: %w", runID, err)
	}
	return run, result, nil
}
