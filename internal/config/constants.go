package config

import "time"

// Application constants - all hardcoded values for the SupplyPulse system
const (
	// Application Info
	AppName    = "SupplyPulse"
	AppVersion = "1.2.0"

	// Default dataset filenames as delivered by the customer's export job
	DefaultFeedbackFile     = "feedback_clientes_v2.csv"
	DefaultInventoryFile    = "inventario_central_v2.csv"
	DefaultTransactionsFile = "transacciones_logisticas_v2.csv"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	NarrativeTimeout    = 60 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultUploadsDir = "data/uploads"
	DefaultExportsDir = "data/exports"

	// Operation Timeouts
	DefaultOperationTimeout = 15 * time.Minute
	AnalysisStageTimeout    = 5 * time.Minute

	// Upload limits
	DefaultMaxUploadBytes = 50 << 20 // 50MB per dataset file

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// API Endpoints (internal)
	APIBasePath       = "/api"
	RunsEndpoint      = "/api/runs"
	ExportsEndpoint   = "/api/exports"
	NarrativeEndpoint = "/api/narrative"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
