package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// Narrator produces plain-language commentary over a run result. It is
// satisfied by narrative.Analyst.
type Narrator interface {
	Narrate(ctx context.Context, result *domain.RunResult, prompt string) (string, error)
	Enabled() bool
}

// NarrativeService answers narrative requests by pairing a finished
// run's result with the configured analyst. Narrative failures never
// alter stored run data; callers get an error and the run stays as it
// was.
type NarrativeService struct {
	narrator Narrator
	runs     *RunService
	logger   *slog.Logger
	now      func() time.Time
}

// NarrativeResult is the JSON shape of POST /api/narrative.
type NarrativeResult struct {
	RunID       string    `json:"run_id"`
	Prompt      string    `json:"prompt"`
	Narrative   string    `json:"narrative"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewNarrativeService creates the narrative service.
func NewNarrativeService(narrator Narrator, runs *RunService, logger *slog.Logger) *NarrativeService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &NarrativeService{
		narrator: narrator,
		runs:     runs,
		logger:   infrastructure.WithComponent(logger, "services.narrative"),
		now:      time.Now,
	}
}

// Enabled reports whether a narrative provider is configured.
func (s *NarrativeService) Enabled() bool {
	return s.narrator != nil && s.narrator.Enabled()
}

// Narrate produces commentary for a finished run. The run must exist
// and have a stored result; the prompt is forwarded verbatim.
func (s *NarrativeService) Narrate(ctx context.Context, runID, prompt string) (*NarrativeResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("no narrative provider configured: %w", apierrors.ErrNarrativeDisabled)
	}

	result, err := s.runs.Result(ctx, runID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	text, err := s.narrator.Narrate(ctx, result, prompt)
	if err != nil {
		s.logger.WarnContext(ctx, "narrative request failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "narrative generated",
		slog.String("run_id", runID),
		slog.Duration("duration", s.now().Sub(start)),
		slog.Int("chars", len(text)))

	return &NarrativeResult{
		RunID:       runID,
		Prompt:      prompt,
		Narrative:   text,
		GeneratedAt: s.now().UTC(),
	}, nil
}
