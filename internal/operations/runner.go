package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
	"supplypulse/pkg/contracts/events"
)

// Broadcaster pushes run snapshots to connected WebSocket clients.
// The hub in internal/websocket satisfies it; a nil Broadcaster
// disables broadcasting.
type Broadcaster interface {
	BroadcastRunSnapshot(snapshot events.RunSnapshot)
}

// Options configures a Runner.
type Options struct {
	// Paths locates the export directory tree. Exports are skipped
	// when nil.
	Paths *config.Paths

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// ConflictError reports the run that blocked a new request. It unwraps
// to ErrRunInProgress so transport mapping stays sentinel-based.
type ConflictError struct {
	ActiveRunID string
	Stage       string
	StartedAt   *time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("run %s already in progress", e.ActiveRunID)
}

func (e *ConflictError) Unwrap() error { return apierrors.ErrRunInProgress }

// Runner executes analysis runs over the fixed six-stage pipeline.
// Exactly one run executes at a time; Start rejects concurrent
// requests with a ConflictError.
type Runner struct {
	store   *RunStore
	hub     Broadcaster
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	paths   *config.Paths
	tracer  runTracer
	now     func() time.Time

	mu       sync.Mutex
	activeID string

	quit     chan struct{}
	quitOnce sync.Once
}

// NewRunner creates a runner writing run state into store and
// broadcasting snapshots through hub.
func NewRunner(store *RunStore, hub Broadcaster, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		store:  store,
		hub:    hub,
		logger: infrastructure.WithComponent(logger, "operations.runner"),
		paths:  opts.Paths,
		tracer: newRunTracer(),
		now:    now,
		quit:   make(chan struct{}),
	}
}

// SetMetrics attaches business metrics. Safe to leave unset; all
// recording helpers tolerate a nil receiver.
func (r *Runner) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	r.metrics = metrics
}

// Store exposes the run store for read-side handlers.
func (r *Runner) Store() *RunStore { return r.store }

// Active returns the ID of the currently executing run, if any.
func (r *Runner) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID, r.activeID != ""
}

// Stop asks the runner to wind down. A run in flight finishes its
// current stage, then fails the remaining ones as interrupted. Stop
// never blocks.
func (r *Runner) Stop() {
	r.quitOnce.Do(func() { close(r.quit) })
}

// Start validates inputs, registers a pending run, and executes it in
// the background. The returned run is the pending snapshot; progress
// flows through the store and the WebSocket hub.
func (r *Runner) Start(ctx context.Context, inputs []domain.DatasetInput) (*domain.Run, error) {
	run, err := r.begin(ctx, inputs)
	if err != nil {
		return nil, err
	}

	// Detach from the request context so the run survives the HTTP
	// response while keeping trace correlation. Callers without a trace
	// get one here so run logs stay correlatable.
	bg := infrastructure.EnsureTraceID(context.WithoutCancel(ctx))
	go func() {
		if execErr := r.execute(bg, run.ID, run.Inputs); execErr != nil {
			r.logger.Error("run failed",
				slog.String("run_id", run.ID),
				slog.String("error", execErr.Error()))
		}
	}()
	return run, nil
}

// RunOnce executes a run synchronously and returns the final run, its
// result, and the pipeline error if any stage failed. Used by the
// batch CLI.
func (r *Runner) RunOnce(ctx context.Context, inputs []domain.DatasetInput) (*domain.Run, *domain.RunResult, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	run, err := r.begin(ctx, inputs)
	if err != nil {
		return nil, nil, err
	}

	execErr := r.execute(ctx, run.ID, run.Inputs)

	final, err := r.store.Get(run.ID)
	if err != nil {
		return nil, nil, err
	}
	result, _ := r.store.Result(run.ID)
	return final, result, execErr
}

// begin applies the single-flight guard and registers the pending run.
func (r *Runner) begin(ctx context.Context, inputs []domain.DatasetInput) (*domain.Run, error) {
	cleaned := normalizeInputs(inputs)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no dataset inputs provided: %w", apierrors.ErrDatasetMissing)
	}

	r.mu.Lock()
	if r.activeID != "" {
		conflict := r.conflictLocked()
		r.mu.Unlock()
		return nil, conflict
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		Status:    domain.RunPending,
		Inputs:    cleaned,
		Stages:    newStageStates(),
		Datasets:  make(map[domain.DatasetKind]domain.DatasetStatus),
		CreatedAt: r.now().UTC(),
	}
	r.activeID = run.ID
	r.mu.Unlock()

	r.store.Create(run)
	r.broadcast(run)

	r.logger.InfoContext(ctx, "run accepted",
		slog.String("run_id", run.ID),
		slog.Int("inputs", len(cleaned)))
	return run, nil
}

// conflictLocked builds the ConflictError for the active run. Caller
// holds r.mu.
func (r *Runner) conflictLocked() *ConflictError {
	conflict := &ConflictError{ActiveRunID: r.activeID}
	if active, err := r.store.Get(r.activeID); err == nil {
		conflict.StartedAt = active.StartedAt
		for _, st := range active.Stages {
			if st.Status == domain.StageActive {
				conflict.Stage = string(st.ID)
				break
			}
		}
	}
	return conflict
}

// release clears the single-flight guard once a run finishes.
func (r *Runner) release(runID string) {
	r.mu.Lock()
	if r.activeID == runID {
		r.activeID = ""
	}
	r.mu.Unlock()
}

// execute walks the pipeline for one run. It always releases the
// single-flight guard and records run metrics on the way out.
func (r *Runner) execute(ctx context.Context, runID string, inputs []domain.DatasetInput) (runErr error) {
	ctx, span := r.tracer.startRun(ctx, runID)
	start := r.now()

	infrastructure.RecordActiveRunChange(ctx, r.metrics, 1)
	defer func() {
		infrastructure.RecordActiveRunChange(ctx, r.metrics, -1)
		infrastructure.RecordRunMetrics(ctx, r.metrics, runID, r.now().Sub(start), runErr == nil, runErr)
		endSpan(span, runErr)
		r.release(runID)
	}()

	startedAt := start.UTC()
	r.updateRun(runID, func(run *domain.Run) {
		run.Status = domain.RunRunning
		run.StartedAt = &startedAt
	})
	r.logger.InfoContext(ctx, "run started", slog.String("run_id", runID))

	rd := newRunData(runID, inputs)
	stages := []struct {
		id domain.StageID
		fn stageFunc
	}{
		{domain.StageLoad, r.loadStage},
		{domain.StageClean, r.cleanStage},
		{domain.StageScore, r.scoreStage},
		{domain.StageReconcile, r.reconcileStage},
		{domain.StageAggregate, r.aggregateStage},
		{domain.StageExport, r.exportStage},
	}

	failed := false
	for _, st := range stages {
		if failed {
			r.setStage(runID, st.id, domain.StageSkipped, "earlier stage failed")
			continue
		}

		if reason := r.interrupted(ctx); reason != "" {
			infrastructure.RecordRunCancellation(ctx, r.metrics, runID, reason)
			runErr = fmt.Errorf("run interrupted before stage %s (%s)", st.id, reason)
			r.setStage(runID, st.id, domain.StageSkipped, "run interrupted")
			failed = true
			continue
		}

		stageCtx, stageSpan := r.tracer.startStage(ctx, runID, st.id)
		r.setStage(runID, st.id, domain.StageActive, "")
		stageStart := r.now()

		outcome, err := st.fn(stageCtx, rd)

		duration := r.now().Sub(stageStart)
		infrastructure.RecordStageMetrics(stageCtx, r.metrics, runID, string(st.id), duration, err == nil)
		endSpan(stageSpan, err)

		switch {
		case err != nil:
			r.setStage(runID, st.id, domain.StageFailed, err.Error())
			r.logger.ErrorContext(stageCtx, "stage failed",
				slog.String("run_id", runID),
				slog.String("stage", string(st.id)),
				slog.String("error", err.Error()))
			runErr = fmt.Errorf("stage %s: %w", st.id, err)
			failed = true
		case outcome.skipped:
			r.setStage(runID, st.id, domain.StageSkipped, outcome.message)
			r.logger.InfoContext(stageCtx, "stage skipped",
				slog.String("run_id", runID),
				slog.String("stage", string(st.id)),
				slog.String("reason", outcome.message))
		default:
			r.setStage(runID, st.id, domain.StageCompleted, outcome.message)
			r.logger.InfoContext(stageCtx, "stage completed",
				slog.String("run_id", runID),
				slog.String("stage", string(st.id)),
				slog.Duration("duration", duration))
		}

		// Dataset statuses firm up during load; keep the run in sync.
		if st.id == domain.StageLoad {
			statuses := rd.statusSnapshot()
			r.updateRun(runID, func(run *domain.Run) {
				run.Datasets = statuses
			})
		}
	}

	if rd.loaded {
		r.store.SaveResult(runID, rd.result)
	}

	finishedAt := r.now().UTC()
	r.updateRun(runID, func(run *domain.Run) {
		run.FinishedAt = &finishedAt
		if runErr != nil {
			run.Status = domain.RunFailed
			run.Error = runErr.Error()
		} else {
			run.Status = domain.RunCompleted
		}
	})

	r.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", runID),
		slog.Bool("success", runErr == nil),
		slog.Duration("duration", r.now().Sub(start)))
	return runErr
}

// interrupted reports why the run should stop at a stage boundary, or
// "" to continue. Stages themselves are never interrupted mid-flight.
func (r *Runner) interrupted(ctx context.Context) string {
	select {
	case <-r.quit:
		return "shutdown"
	default:
	}
	if ctx.Err() != nil {
		return "context"
	}
	return ""
}

// updateRun mutates the stored run and broadcasts the new snapshot.
func (r *Runner) updateRun(runID string, mutate func(*domain.Run)) {
	run, err := r.store.Update(runID, mutate)
	if err != nil {
		return
	}
	r.broadcast(run)
}

func (r *Runner) setStage(runID string, stageID domain.StageID, status domain.StageStatus, message string) {
	at := r.now().UTC()
	r.updateRun(runID, func(run *domain.Run) {
		for i := range run.Stages {
			if run.Stages[i].ID != stageID {
				continue
			}
			run.Stages[i].Status = status
			run.Stages[i].Message = message
			switch status {
			case domain.StageActive:
				run.Stages[i].StartedAt = &at
			case domain.StageCompleted, domain.StageFailed, domain.StageSkipped:
				if run.Stages[i].StartedAt == nil {
					run.Stages[i].StartedAt = &at
				}
				run.Stages[i].EndedAt = &at
			}
			return
		}
	})
}

func (r *Runner) broadcast(run *domain.Run) {
	if r.hub == nil {
		return
	}
	r.hub.BroadcastRunSnapshot(events.SnapshotFromRun(run))
}

// newStageStates seeds the six pipeline stages in execution order.
func newStageStates() []domain.StageState {
	ids := []domain.StageID{
		domain.StageLoad,
		domain.StageClean,
		domain.StageScore,
		domain.StageReconcile,
		domain.StageAggregate,
		domain.StageExport,
	}
	stages := make([]domain.StageState, len(ids))
	for i, id := range ids {
		stages[i] = domain.StageState{ID: id, Status: domain.StagePending}
	}
	return stages
}

// normalizeInputs drops blank paths and keeps the first input per
// dataset kind, preserving ingestion order.
func normalizeInputs(inputs []domain.DatasetInput) []domain.DatasetInput {
	seen := make(map[domain.DatasetKind]bool, len(inputs))
	out := make([]domain.DatasetInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Path == "" || seen[in.Kind] {
			continue
		}
		seen[in.Kind] = true
		out = append(out, in)
	}
	return out
}
