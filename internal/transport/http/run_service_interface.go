package http

import (
	"context"

	"supplypulse/internal/services"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

// RunServiceInterface defines the run operations the handlers consume.
type RunServiceInterface interface {
	StartRun(ctx context.Context, req api.RunStartRequest) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, status string, limit int) ([]*domain.Run, error)
	HealthReports(ctx context.Context, runID string) (map[domain.DatasetKind]*domain.HealthReport, error)
	CleaningLogs(ctx context.Context, runID string) (map[domain.DatasetKind][]domain.CleaningStep, error)
	Reconciliation(ctx context.Context, runID string, recordLimit int) (*services.ReconciliationReport, error)
	Aggregates(ctx context.Context, runID string) (*services.AggregateReport, error)
}
