package services

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"supplypulse/internal/infrastructure"
	"supplypulse/internal/operations"
	ws "supplypulse/internal/websocket"
)

// HealthService answers liveness and readiness probes for the service
// shell. Readiness inspects the collaborators the API depends on; none
// of the checks touch the analysis engine itself.
type HealthService struct {
	version   string
	buildTime string
	runner    *operations.Runner
	hub       *ws.Hub
	narrative *NarrativeService
	system    *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the JSON shape of the health endpoints.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth describes one collaborator inside a readiness response.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates the health service.
func NewHealthService(version, buildTime string, runner *operations.Runner, hub *ws.Hub, narrative *NarrativeService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		runner:    runner,
		hub:       hub,
		narrative: narrative,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "services.health"),
	}
}

// SetSystemMetrics attaches the process metrics collector. Liveness
// responses then report the collector's stats instead of the ad hoc
// runtime reads used when metrics are disabled.
func (s *HealthService) SetSystemMetrics(collector *infrastructure.SystemMetricsCollector) {
	s.system = collector
}

// Liveness reports whether the process is up. It never fails while the
// process can serve requests.
func (s *HealthService) Liveness(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
	}

	if s.system != nil {
		status.Runtime = s.system.GetCurrentStats(ctx).FormatStats()
		return status
	}

	status.Runtime = map[string]interface{}{
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
	return status
}

// Readiness reports per-collaborator status. The narrative provider
// being disabled is reported but never blocks readiness; it is an
// optional collaborator.
func (s *HealthService) Readiness(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["runner"] = s.checkRunner()
	status.Services["websocket"] = s.checkWebSocket()
	status.Services["narrative"] = s.checkNarrative()

	if sh, ok := status.Services["runner"].(ServiceHealth); ok && sh.Status == "unavailable" {
		status.Status = "not_ready"
	}
	return status
}

// VersionInfo reports build information and process start time.
func (s *HealthService) VersionInfo(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"version":    s.version,
		"build_time": s.buildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": s.startTime.UTC().Format(time.RFC3339),
	}
}

func (s *HealthService) checkRunner() ServiceHealth {
	if s.runner == nil {
		return ServiceHealth{Status: "unavailable", Message: "runner not configured"}
	}
	if id, busy := s.runner.Active(); busy {
		return ServiceHealth{Status: "busy", Message: "run " + id + " in progress"}
	}
	return ServiceHealth{Status: "ready"}
}

func (s *HealthService) checkWebSocket() ServiceHealth {
	if s.hub == nil {
		return ServiceHealth{Status: "unavailable", Message: "hub not configured"}
	}
	return ServiceHealth{Status: "ready", Message: "clients: " + strconv.Itoa(s.hub.ClientCount())}
}

func (s *HealthService) checkNarrative() ServiceHealth {
	if s.narrative == nil || !s.narrative.Enabled() {
		return ServiceHealth{Status: "disabled", Message: "no API key configured"}
	}
	return ServiceHealth{Status: "ready"}
}
