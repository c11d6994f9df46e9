package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/middleware"
	"supplypulse/internal/operations"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

const (
	// maxUploadBytes caps a multipart run-start request. Datasets are
	// CSV or XLSX files of at most a few hundred thousand rows.
	maxUploadBytes = 64 << 20

	// maxInlineRecords caps the reconciled rows a client may request
	// inline; the full table is served as a CSV export.
	maxInlineRecords = 1000
)

// RunHandler handles run lifecycle and report requests.
type RunHandler struct {
	service RunServiceInterface
	paths   *config.Paths
	logger  *slog.Logger
	query   *middleware.QueryParamValidator
}

// NewRunHandler creates a new run handler.
func NewRunHandler(service RunServiceInterface, paths *config.Paths, logger *slog.Logger) *RunHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &RunHandler{
		service: service,
		paths:   paths,
		logger:  logger.With(slog.String("handler", "runs")),
		query:   middleware.NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false)),
	}
}

// Routes returns the run API routes.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(60*time.Second, h.logger))

	r.Post("/", h.Start)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/health", h.HealthReport)
	r.Get("/{id}/cleaning-log", h.CleaningLog)
	r.Get("/{id}/reconciliation", h.Reconciliation)
	r.Get("/{id}/aggregates", h.Aggregates)

	return r
}

// startRunRequest wraps the API contract with render.Binder validation.
type startRunRequest struct {
	api.RunStartRequest
}

// Bind implements the render.Binder interface for request validation.
func (req *startRunRequest) Bind(r *http.Request) error {
	seen := make(map[string]bool, len(req.Datasets))
	for i, d := range req.Datasets {
		switch domain.DatasetKind(d.Kind) {
		case domain.DatasetFeedback, domain.DatasetInventory, domain.DatasetTransactions:
		default:
			return fmt.Errorf("datasets[%d]: unknown kind %q", i, d.Kind)
		}
		if strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("datasets[%d]: path is required", i)
		}
		if seen[d.Kind] {
			return fmt.Errorf("datasets[%d]: kind %q named twice", i, d.Kind)
		}
		seen[d.Kind] = true
	}
	return nil
}

// Start handles POST /api/runs. It accepts three request shapes: a
// multipart upload with one file field per dataset kind, a JSON body
// naming dataset paths or a data directory, or an empty body that falls
// back to the configured data directory. The run executes in the
// background; the response is 202 with the accepted run snapshot.
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "run start request",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))

	var req api.RunStartRequest
	switch {
	case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"):
		uploaded, err := h.collectUploads(r)
		if err != nil {
			h.renderBindError(w, r, err)
			return
		}
		req = uploaded

	case r.ContentLength > 0:
		data := &startRunRequest{}
		if err := render.Bind(r, data); err != nil {
			h.renderBindError(w, r, err)
			return
		}
		req = data.RunStartRequest
	}

	run, err := h.service.StartRun(ctx, req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, run)
}

// collectUploads saves multipart dataset files into the uploads
// directory and returns a start request naming them. Field names match
// the dataset kinds; unknown fields are ignored.
func (h *RunHandler) collectUploads(r *http.Request) (api.RunStartRequest, error) {
	var req api.RunStartRequest

	if h.paths == nil {
		return req, errors.New("uploads are not supported: no data directory configured")
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, fmt.Errorf("parse multipart form: %w", err)
	}
	if err := os.MkdirAll(h.paths.UploadsDir, 0o755); err != nil {
		return req, fmt.Errorf("prepare uploads directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	for _, kind := range domain.AllDatasetKinds {
		file, header, err := r.FormFile(string(kind))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return req, fmt.Errorf("read %s upload: %w", kind, err)
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			file.Close()
			return req, fmt.Errorf("%s: unsupported file type %q, expected .csv or .xlsx", kind, ext)
		}

		dst := h.paths.GetUploadPath(fmt.Sprintf("%s_%s%s", stamp, kind, ext))
		if err := saveUpload(file, dst); err != nil {
			file.Close()
			return req, fmt.Errorf("save %s upload: %w", kind, err)
		}
		file.Close()

		req.Datasets = append(req.Datasets, api.DatasetPathInput{
			Kind: string(kind),
			Path: dst,
		})
	}

	if len(req.Datasets) == 0 {
		return req, errors.New("no dataset files in upload: use form fields feedback, inventory or transactions")
	}
	return req, nil
}

func saveUpload(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// List handles GET /api/runs.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, ok := h.query.ValidateEnum(w, r, "status",
		[]string{"pending", "running", "completed", "failed"}, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 100, 0)
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(ctx, status, limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get handles GET /api/runs/{id}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// HealthReport handles GET /api/runs/{id}/health.
func (h *RunHandler) HealthReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	reports, err := h.service.HealthReports(r.Context(), runID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"run_id":  runID,
		"reports": reports,
	})
}

// CleaningLog handles GET /api/runs/{id}/cleaning-log. The optional
// dataset query parameter narrows the response to one dataset.
func (h *RunHandler) CleaningLog(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	dataset, ok := h.query.ValidateEnum(w, r, "dataset",
		[]string{"feedback", "inventory", "transactions"}, "")
	if !ok {
		return
	}

	logs, err := h.service.CleaningLogs(r.Context(), runID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if dataset != "" {
		render.JSON(w, r, map[string]interface{}{
			"run_id":  runID,
			"dataset": dataset,
			"steps":   logs[domain.DatasetKind(dataset)],
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"run_id": runID,
		"logs":   logs,
	})
}

// Reconciliation handles GET /api/runs/{id}/reconciliation.
func (h *RunHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxInlineRecords, 0)
	if !ok {
		return
	}

	report, err := h.service.Reconciliation(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// Aggregates handles GET /api/runs/{id}/aggregates.
func (h *RunHandler) Aggregates(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Aggregates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// renderBindError renders a 400 for malformed request bodies.
func (h *RunHandler) renderBindError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.WarnContext(ctx, "invalid run request",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID))

	problem := apierrors.NewProblemDetails(
		http.StatusBadRequest,
		"/errors/validation_failed",
		"Validation Failed",
		err.Error(),
		r.URL.Path+"#"+reqID,
	).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

	render.Render(w, r, problem)
}

// renderError maps service errors onto RFC 7807 responses. Run
// conflicts carry the active run's identity so clients can switch to
// watching it instead of retrying.
func (h *RunHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	var conflict *operations.ConflictError
	if errors.As(err, &conflict) {
		h.logger.InfoContext(ctx, "run request rejected, another run active",
			slog.String("active_run_id", conflict.ActiveRunID),
			slog.String("stage", conflict.Stage))
		render.Render(w, r, apierrors.NewRunConflictError(&apierrors.RunConflictDetails{
			ActiveRunID: conflict.ActiveRunID,
			Stage:       conflict.Stage,
			StartedAt:   conflict.StartedAt,
		}, traceID))
		return
	}

	problem := apierrors.MapRunError(err, traceID)
	if pd, ok := problem.(*apierrors.ProblemDetails); ok && pd.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "run request failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
			slog.String("trace_id", traceID))
	} else {
		h.logger.WarnContext(ctx, "run request rejected",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path))
	}
	render.Render(w, r, problem)
}
