package operations

import (
	"context"
	"fmt"
	"log/slog"

	"supplypulse/internal/aggregate"
	"supplypulse/internal/anomaly"
	"supplypulse/internal/cleaning"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/exporter"
	"supplypulse/internal/health"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/reconcile"
	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"

	"golang.org/x/sync/errgroup"
)

// stageOutcome is the non-error result of one stage. A skipped stage
// had nothing to do; message feeds the run's stage state either way.
type stageOutcome struct {
	skipped bool
	message string
}

type stageFunc func(ctx context.Context, rd *runData) (stageOutcome, error)

// runData is the private state one run threads through its stages.
// Tables are handed forward and never mutated after the owning stage
// finishes with them.
type runData struct {
	runID      string
	inputs     []domain.DatasetInput
	raw        map[domain.DatasetKind]*table.Table
	cleaned    map[domain.DatasetKind]*table.Table
	status     map[domain.DatasetKind]domain.DatasetStatus
	rowsLoaded map[domain.DatasetKind]int
	result     *domain.RunResult

	// loaded flips once at least one dataset was read; it gates
	// result persistence for failed runs.
	loaded bool
}

func newRunData(runID string, inputs []domain.DatasetInput) *runData {
	return &runData{
		runID:      runID,
		inputs:     inputs,
		raw:        make(map[domain.DatasetKind]*table.Table),
		cleaned:    make(map[domain.DatasetKind]*table.Table),
		status:     make(map[domain.DatasetKind]domain.DatasetStatus),
		rowsLoaded: make(map[domain.DatasetKind]int),
		result: &domain.RunResult{
			Health:       make(map[domain.DatasetKind]*domain.HealthReport),
			CleaningLogs: make(map[domain.DatasetKind][]domain.CleaningStep),
		},
	}
}

// usable returns the cleaned table for a kind when the dataset loaded
// with all required columns, nil otherwise.
func (rd *runData) usable(kind domain.DatasetKind) *table.Table {
	if rd.status[kind] != domain.DatasetOK {
		return nil
	}
	return rd.cleaned[kind]
}

func (rd *runData) statusSnapshot() map[domain.DatasetKind]domain.DatasetStatus {
	out := make(map[domain.DatasetKind]domain.DatasetStatus, len(rd.status))
	for k, v := range rd.status {
		out[k] = v
	}
	return out
}

// loadStage reads every provided input. Inputs are independent files
// and read concurrently; unreadable files mark the dataset missing
// rather than failing the run, and the run only fails when nothing at
// all could be read.
func (r *Runner) loadStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	byKind := make(map[domain.DatasetKind]string, len(rd.inputs))
	for _, in := range rd.inputs {
		byKind[in.Kind] = in.Path
	}

	// Each goroutine writes only its own slot; read failures are
	// inspected after Wait so one bad file never aborts the others.
	type readResult struct {
		table *table.Table
		err   error
	}
	results := make(map[domain.DatasetKind]*readResult, len(byKind))
	var g errgroup.Group
	for kind, path := range byKind {
		res := &readResult{}
		results[kind] = res
		g.Go(func() error {
			res.table, res.err = table.Read(string(kind), path)
			return nil
		})
	}
	_ = g.Wait()

	loaded := 0
	for _, kind := range domain.AllDatasetKinds {
		res, ok := results[kind]
		if !ok {
			rd.status[kind] = domain.DatasetMissing
			continue
		}

		if res.err != nil {
			rd.status[kind] = domain.DatasetMissing
			infrastructure.WithError(r.logger, res.err).WarnContext(ctx, "dataset unreadable",
				slog.String("run_id", rd.runID),
				slog.String("dataset", string(kind)),
				slog.String("path", byKind[kind]))
			continue
		}

		t := res.table
		rd.raw[kind] = t
		rd.rowsLoaded[kind] = t.NumRows()
		loaded++

		if missing := anomaly.MissingRequired(t, domain.RequiredColumns(kind)); len(missing) > 0 {
			rd.status[kind] = domain.DatasetInvalid
			r.logger.WarnContext(ctx, "dataset missing required columns",
				slog.String("run_id", rd.runID),
				slog.String("dataset", string(kind)),
				slog.Any("columns", missing))
			continue
		}
		rd.status[kind] = domain.DatasetOK
	}

	if loaded == 0 {
		return stageOutcome{}, fmt.Errorf("no readable datasets: %w", apierrors.ErrDatasetMissing)
	}
	rd.loaded = true
	return stageOutcome{message: fmt.Sprintf("loaded %d of %d datasets", loaded, len(domain.AllDatasetKinds))}, nil
}

// cleanOrder puts inventory first so the transactions cleaner sees the
// cleaned inventory key set for phantom tagging.
var cleanOrder = []domain.DatasetKind{
	domain.DatasetInventory,
	domain.DatasetFeedback,
	domain.DatasetTransactions,
}

func (r *Runner) cleanStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	env := cleaning.Env{Now: r.now()}

	removed := 0
	cleanedCount := 0
	for _, kind := range cleanOrder {
		raw, ok := rd.raw[kind]
		if !ok {
			continue
		}

		pipeline := cleaning.ForDataset(kind, r.logger)
		cleaned, log := pipeline.Run(ctx, env, raw)
		rd.cleaned[kind] = cleaned
		rd.result.CleaningLogs[kind] = log.Steps()
		removed += log.TotalRemoved()
		cleanedCount++

		if kind == domain.DatasetInventory && rd.status[kind] == domain.DatasetOK {
			env.InventoryKeys = reconcile.InventoryKeySet(cleaned)
		}
	}

	if cleanedCount == 0 {
		return stageOutcome{skipped: true, message: "no datasets to clean"}, nil
	}
	return stageOutcome{message: fmt.Sprintf("removed %d rows across %d datasets", removed, cleanedCount)}, nil
}

// scoreStage scores the cleaned tables. Scores describe the data as it
// leaves cleaning; the status half of the report still reflects
// structural validity.
func (r *Runner) scoreStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	scorer := health.NewScorer(health.DefaultPenalties(), r.logger)

	for _, kind := range domain.AllDatasetKinds {
		t, ok := rd.cleaned[kind]
		if !ok {
			continue
		}
		report := scorer.Score(ctx, t, domain.RequiredColumns(kind), kind)
		rd.result.Health[kind] = &report

		dropped := rd.rowsLoaded[kind] - t.NumRows()
		infrastructure.RecordDatasetMetrics(ctx, r.metrics, string(kind),
			int64(rd.rowsLoaded[kind]), int64(dropped), report.HealthScore)
	}

	if len(rd.result.Health) == 0 {
		return stageOutcome{skipped: true, message: "no datasets to score"}, nil
	}
	return stageOutcome{message: fmt.Sprintf("scored %d datasets", len(rd.result.Health))}, nil
}

// reconcileStage joins transactions against inventory when both are
// structurally sound, and degrades to a one-sided summary when only
// one of them is.
func (r *Runner) reconcileStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	inventory := rd.usable(domain.DatasetInventory)
	transactions := rd.usable(domain.DatasetTransactions)

	switch {
	case inventory != nil && transactions != nil:
		engine := reconcile.NewEngine(r.logger)
		records := engine.Reconcile(ctx, inventory, transactions)
		summary := reconcile.Summarize(records)
		rd.result.Reconciled = records
		rd.result.Summary = &summary
		return stageOutcome{message: fmt.Sprintf("reconciled %d transactions, %d phantom",
			summary.Transactions, summary.PhantomCount)}, nil

	case inventory != nil:
		partial := reconcile.InventoryOnly(inventory)
		rd.result.Partial = &partial
		return stageOutcome{message: "inventory-only analysis; transactions unavailable"}, nil

	case transactions != nil:
		partial := reconcile.TransactionsOnly(transactions)
		rd.result.Partial = &partial
		return stageOutcome{message: "transactions-only analysis; inventory unavailable"}, nil

	default:
		return stageOutcome{skipped: true, message: "requires inventory or transactions"}, nil
	}
}

func (r *Runner) aggregateStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	if len(rd.result.Reconciled) == 0 {
		return stageOutcome{skipped: true, message: "no reconciled records"}, nil
	}

	agg := aggregate.NewAggregator(r.logger)
	feedback := rd.usable(domain.DatasetFeedback)
	inventory := rd.usable(domain.DatasetInventory)

	rd.result.Warehouses = agg.Warehouses(ctx, rd.result.Reconciled, feedback, r.now())
	rd.result.Categories = agg.CategoryParadoxes(ctx, rd.result.Reconciled, inventory, feedback)
	rd.result.Cities = agg.CityCorrelations(ctx, rd.result.Reconciled, feedback)

	return stageOutcome{message: fmt.Sprintf("%d warehouses, %d categories, %d cities",
		len(rd.result.Warehouses), len(rd.result.Categories), len(rd.result.Cities))}, nil
}

func (r *Runner) exportStage(ctx context.Context, rd *runData) (stageOutcome, error) {
	if r.paths == nil {
		return stageOutcome{skipped: true, message: "no export directory configured"}, nil
	}

	dir := r.paths.RunExportDir(rd.runID)
	files, err := exporter.NewReportExporter(r.paths).ExportAll(ctx, rd.result, dir)
	if err != nil {
		return stageOutcome{}, fmt.Errorf("write exports: %w", err)
	}

	rd.result.ExportDir = dir
	rd.result.ExportFiles = files
	infrastructure.RecordExportMetrics(ctx, r.metrics, rd.runID, int64(len(files)))
	return stageOutcome{message: fmt.Sprintf("wrote %d files", len(files))}, nil
}
