// Package app wires the SupplyPulse service together and manages its
// lifecycle: configuration loading, logging and observability setup,
// service construction, HTTP routing and graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Resolve the directory layout (data, uploads, exports, logs)
//	4. Construct the WebSocket hub, run store and analysis runner
//	5. Build services and mount HTTP handlers
//	6. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed or time out
//	- A running analysis is cancelled and its status recorded
//	- WebSocket clients receive a disconnect message
//	- OpenTelemetry providers are flushed
//
// All initialization errors are returned to the caller. The app never
// calls os.Exit() directly, leaving exit codes to the main function.
package app
