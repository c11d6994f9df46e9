package http

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/services"
)

// ExportServiceInterface defines the export operations the handler consumes.
type ExportServiceInterface interface {
	List(ctx context.Context, runID string) ([]services.ExportFile, error)
	Resolve(ctx context.Context, runID, filename string) (string, error)
}

// ExportHandler serves run artifacts for download.
type ExportHandler struct {
	service ExportServiceInterface
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service ExportServiceInterface, logger *slog.Logger) *ExportHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExportHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "exports")),
	}
}

// Routes returns the export API routes.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.List)
	r.Get("/{id}/{filename}", h.Download)
	return r
}

// List handles GET /api/exports/{id}.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	files, err := h.service.List(r.Context(), runID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"run_id": runID,
		"files":  files,
	})
}

// Download handles GET /api/exports/{id}/{filename}. Artifacts are
// served as attachments with the content type their extension implies.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	path, err := h.service.Resolve(ctx, runID, filename)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "serving export",
		slog.String("run_id", runID),
		slog.String("file", filename))

	w.Header().Set("Content-Type", contentTypeFor(filename))
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	http.ServeFile(w, r, path)
}

func contentTypeFor(filename string) string {
	switch filepath.Ext(filename) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func (h *ExportHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "export request rejected",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path))
	render.Render(w, r, apierrors.MapRunError(err, infrastructure.TraceIDFromContext(ctx)))
}
