package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/middleware"
	"supplypulse/internal/services"
	api "supplypulse/pkg/contracts/api/v1"
)

// NarrativeServiceInterface defines the narrative operations the handler consumes.
type NarrativeServiceInterface interface {
	Narrate(ctx context.Context, runID, prompt string) (*services.NarrativeResult, error)
	Enabled() bool
}

// NarrativeHandler handles executive narrative requests.
type NarrativeHandler struct {
	service NarrativeServiceInterface
	logger  *slog.Logger
}

// NewNarrativeHandler creates a new narrative handler.
func NewNarrativeHandler(service NarrativeServiceInterface, logger *slog.Logger) *NarrativeHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &NarrativeHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "narrative")),
	}
}

// Routes returns the narrative API routes.
func (h *NarrativeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Narrate)
	r.Get("/status", h.Status)
	return r
}

// narrativeRequest wraps the API contract with render.Binder validation.
type narrativeRequest struct {
	api.NarrativeRequest
}

const maxPromptLength = 2000

// Bind implements the render.Binder interface for request validation.
func (req *narrativeRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(req.RunID) == "" {
		return errors.New("run_id is required")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < 3 {
		return errors.New("prompt must be at least 3 characters")
	}
	if len(prompt) > maxPromptLength {
		return errors.New("prompt exceeds 2000 characters")
	}
	req.Prompt = prompt
	return nil
}

// Narrate handles POST /api/narrative. The narrative is generated from
// the named run's stored warehouse summary; failures surface as problem
// responses and never touch the run's data.
func (h *NarrativeHandler) Narrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	data := &narrativeRequest{}
	if err := render.Bind(r, data); err != nil {
		h.logger.WarnContext(ctx, "invalid narrative request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation_failed",
			"Validation Failed",
			err.Error(),
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)))
		return
	}

	result, err := h.service.Narrate(ctx, data.RunID, data.Prompt)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// Status handles GET /api/narrative/status.
func (h *NarrativeHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"enabled": h.service.Enabled(),
	})
}

func (h *NarrativeHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	problem := apierrors.MapRunError(err, traceID)
	if pd, ok := problem.(*apierrors.ProblemDetails); ok && pd.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "narrative request failed",
			slog.String("error", err.Error()),
			slog.String("trace_id", traceID))
	} else {
		h.logger.WarnContext(ctx, "narrative request rejected",
			slog.String("error", err.Error()))
	}
	render.Render(w, r, problem)
}
