package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	customMiddleware "supplypulse/internal/middleware"
	"supplypulse/internal/narrative"
	"supplypulse/internal/operations"
	"supplypulse/internal/services"
	handlers "supplypulse/internal/transport/http"
	ws "supplypulse/internal/websocket"
	"supplypulse/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	VERSION = "v" + contracts.Version
	AppName = "SupplyPulse - Supply Chain Data Quality"
)

// Application is the composition root: it owns configuration, the
// analysis runner, the WebSocket hub and the HTTP server.
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	Runner           *operations.Runner
	RunService       *services.RunService
	ExportService    *services.ExportService
	NarrativeService *services.NarrativeService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics
	SystemMetrics    *infrastructure.SystemMetricsCollector
}

// NewApplication loads configuration and wires every component
// together. Nothing starts listening until Start is called.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	// config.Load already ensured the directory tree exists; resolve it
	// again here so the layout is logged through the structured logger.
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the hub, runner and business services
// in dependency order.
func (a *Application) initializeServices() {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	if a.OTelProviders.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Warn("Business metrics unavailable, continuing without",
				slog.String("error", err.Error()))
		} else {
			a.Metrics = metrics
		}

		collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
		if err != nil {
			a.Logger.Warn("System metrics unavailable, continuing without",
				slog.String("error", err.Error()))
		} else {
			a.SystemMetrics = collector
		}
	}

	store := operations.NewRunStore(0)
	runner := operations.NewRunner(store, hub, operations.Options{Paths: a.Paths}, a.Logger)
	if a.Metrics != nil {
		runner.SetMetrics(a.Metrics)
	}
	a.Runner = runner

	runService := services.NewRunService(runner, a.Paths, a.Logger)
	runService.SetDatasetFiles(a.Config.Datasets)
	a.RunService = runService

	a.ExportService = services.NewExportService(store, a.Paths, a.Logger)

	completer := narrative.NewClient(a.Config.Narrative, a.Logger)
	analyst := narrative.NewAnalyst(completer, a.Logger)
	if a.Metrics != nil {
		analyst.SetMetrics(a.Metrics)
	}
	a.NarrativeService = services.NewNarrativeService(analyst, runService, a.Logger)

	a.HealthService = services.NewHealthService(VERSION, contracts.BuildTime, runner, hub, a.NarrativeService, a.Logger)
	if a.SystemMetrics != nil {
		a.HealthService.SetSystemMetrics(a.SystemMetrics)
	}
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware first. None of these wrap the ResponseWriter,
	// so the WebSocket upgrade still sees the raw connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// WebSocket endpoint stays outside the full middleware group.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		// Full instrumentation needs a tracer and a meter; without them
		// the lightweight span middleware keeps trace IDs flowing.
		if a.OTelProviders.Tracer != nil && a.OTelProviders.Meter != nil {
			otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
			if err != nil {
				a.Logger.Error("Failed to create OpenTelemetry middleware",
					slog.String("error", err.Error()))
				r.Use(customMiddleware.TraceMiddleware("http_request"))
			} else {
				r.Use(otelMiddleware.Handler)
			}
		} else {
			r.Use(customMiddleware.TraceMiddleware("http_request"))
		}

		if a.Metrics != nil {
			r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		corsConfig := a.getCORSConfig()
		a.Logger.Info("CORS configured",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins))
		r.Use(customMiddleware.CORS(corsConfig))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	// Prometheus scrape endpoint, outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures the /api endpoints.
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		errorHandler := apierrors.NewErrorHandler(a.Logger, false)
		validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)
		r.Use(validation.ValidateRequest)

		// Quick read endpoints run under the standard timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)

			exportHandler := handlers.NewExportHandler(a.ExportService, a.Logger)
			r.Mount("/exports", exportHandler.Routes())
		})

		// Runs and narrative can outlive the read timeout: uploads
		// stream in and narrative waits on the model provider.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))

			runHandler := handlers.NewRunHandler(a.RunService, a.Paths, a.Logger)
			r.Mount("/runs", runHandler.Routes())

			narrativeHandler := handlers.NewNarrativeHandler(a.NarrativeService, a.Logger)
			r.With(customMiddleware.ContentTypeValidator("application/json")).
				Mount("/narrative", narrativeHandler.Routes())
		})
	})
}

// setupStaticRoutes serves operator-provided assets from the web
// directory, when one is deployed next to the binary.
func (a *Application) setupStaticRoutes(r chi.Router) {
	staticDir := a.Paths.StaticDir
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", http.FileServer(http.Dir(staticDir))))
	})
}

// getCORSConfig builds the CORS policy from the configured origins plus
// the service's own address.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	if a.Config.Security.EnableCORS {
		origins = append(origins, a.Config.Security.AllowedOrigins...)
	}

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// isDevelopmentMode reports whether relaxed policies apply.
func (a *Application) isDevelopmentMode() bool {
	if a.Config.Logging.Development {
		return true
	}
	return os.Getenv("GO_ENV") == "development"
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server. A listen failure cancels the supplied
// context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("uploads_dir", a.Paths.UploadsDir),
		slog.String("exports_dir", a.Paths.ExportsDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	if a.SystemMetrics != nil {
		go a.SystemMetrics.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings",
			slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Wind down the runner before the hub so an interrupted run still
	// records its final status.
	a.Runner.Stop()
	a.WebSocketHub.Stop()

	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")

	// Last so the shutdown messages above still reach the file sink.
	if err := infrastructure.CloseLogFile(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	return nil
}

// Run runs the application until interrupted or the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Shutting down after server error")
	}

	// Shut down on a fresh context: ctx may already be cancelled.
	return a.Stop(context.Background())
}

// handleWebSocket upgrades /ws connections and hands them to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The RequestID middleware has already tagged the context; the ws-
	// fallback only covers direct handler invocations in tests.
	reqID := customMiddleware.GetRequestID(r.Context())
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// No origin header means a non-browser client.
			if origin == "" {
				return true
			}

			if a.isDevelopmentMode() {
				return true
			}

			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "WebSocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			// With a custom Error hook the upgrader no longer writes
			// the response itself.
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	ws.ServeWSWithTrace(a.WebSocketHub, conn, reqID)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))
}

// performStartupHealthCheck verifies the working directories are
// writable and reports which configured dataset files are present.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"data":    a.Paths.DataDir,
		"uploads": a.Paths.UploadsDir,
		"exports": a.Paths.ExportsDir,
		"cache":   a.Paths.CacheDir,
		"logs":    a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	// Absent dataset files are informational: runs can be fed by upload
	// or explicit paths instead.
	datasets := map[string]string{
		"feedback":     a.Config.Datasets.FeedbackFile,
		"inventory":    a.Config.Datasets.InventoryFile,
		"transactions": a.Config.Datasets.TransactionsFile,
	}

	for kind, file := range datasets {
		path := filepath.Join(a.Paths.DataDir, file)
		if !config.FileExists(path) {
			a.Logger.InfoContext(ctx, "Dataset file not present",
				slog.String("dataset", kind),
				slog.String("path", path))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
