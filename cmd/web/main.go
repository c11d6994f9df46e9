package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"supplypulse/internal/app"
)

func main() {
	// Optional .env beside the working directory; deployed environments
	// set variables directly and the file is simply absent.
	if err := godotenv.Load(); err == nil {
		slog.Info("Environment loaded from .env file")
	}

	// Create application instance
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start application
	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
