// Package services implements the business logic layer between the HTTP
// handlers and the analysis engine. Handlers stay thin: they decode and
// validate requests, call one service method, and render the result.
//
// RunService owns run lifecycle and report access, ExportService resolves
// run artifacts on disk, NarrativeService fronts the LLM collaborator and
// HealthService answers liveness and readiness probes. All services log
// through component-scoped slog loggers and return the sentinel errors
// from internal/errors so the transport layer can map them to RFC 7807
// responses without inspecting message strings.
package services
