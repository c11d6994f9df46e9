package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"supplypulse/internal/config"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/operations"
	"supplypulse/internal/validation"
	"supplypulse/pkg/contracts"
	"supplypulse/pkg/contracts/domain"
)

func main() {
	feedbackFile := flag.String("feedback", "", "customer feedback dataset (.csv or .xlsx; defaults to the configured file inside -in)")
	inventoryFile := flag.String("inventory", "", "inventory dataset (.csv or .xlsx; defaults to the configured file inside -in)")
	transactionsFile := flag.String("transactions", "", "transactions dataset (.csv or .xlsx; defaults to the configured file inside -in)")
	inDir := flag.String("in", "", "directory scanned for datasets not named explicitly (defaults to the data directory)")
	outDir := flag.String("out", "", "root directory for export files (defaults to data/exports relative to the executable)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	// Optional .env beside the working directory carries path overrides
	// and the narrative key in local setups.
	if err := godotenv.Load(); err == nil {
		slog.Info("Environment loaded from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if *outDir != "" {
		// Exports land under <out>/<run-id>; everything else keeps the
		// standard layout.
		override := *paths
		override.ExportsDir = *outDir
		paths = &override
	}
	if *inDir == "" {
		*inDir = paths.DataDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	logger.Info("Starting supply chain analysis",
		slog.String("input_dir", *inDir),
		slog.String("export_dir", paths.ExportsDir),
		slog.String("executable_dir", paths.ExecutableDir))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(paths.ExportsDir); err != nil {
		logger.Error("Export directory unusable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	explicit := map[domain.DatasetKind]string{
		domain.DatasetFeedback:     *feedbackFile,
		domain.DatasetInventory:    *inventoryFile,
		domain.DatasetTransactions: *transactionsFile,
	}
	inputs, err := resolveInputs(cfg, validator, *inDir, explicit, logger)
	if err != nil {
		logger.Error("No usable dataset inputs", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, in := range inputs {
		fmt.Printf("Using %s dataset: %s\n", in.Kind, in.Path)
	}

	store := operations.NewRunStore(1)
	runner := operations.NewRunner(store, nil, operations.Options{Paths: paths}, logger)

	run, result, err := runner.RunOnce(context.Background(), inputs)
	if err != nil {
		if run != nil {
			printStages(run)
		}
		logger.Error("Analysis failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "analysis failed: %s\n", err)
		os.Exit(1)
	}

	printStages(run)
	printSummary(result)

	logger.Info("Analysis completed",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.String("export_dir", result.ExportDir))
}

// resolveInputs builds the dataset list for one batch run. Explicit
// flags always win and must validate; remaining kinds fall back to
// their configured file name inside dir and are skipped when absent.
func resolveInputs(cfg *config.Config, validator *validation.FileValidator, dir string, explicit map[domain.DatasetKind]string, logger *slog.Logger) ([]domain.DatasetInput, error) {
	if err := validator.ValidateInputDirectory(dir); err != nil {
		return nil, err
	}

	configured := map[domain.DatasetKind]string{
		domain.DatasetFeedback:     cfg.Datasets.FeedbackFile,
		domain.DatasetInventory:    cfg.Datasets.InventoryFile,
		domain.DatasetTransactions: cfg.Datasets.TransactionsFile,
	}

	var inputs []domain.DatasetInput
	for _, kind := range domain.AllDatasetKinds {
		path := explicit[kind]
		if path == "" {
			name := configured[kind]
			if name == "" {
				name = domain.CanonicalFileName(kind)
			}
			candidate := filepath.Join(dir, name)
			if !config.FileExists(candidate) {
				logger.Warn("Dataset file not found, skipping",
					slog.String("dataset", string(kind)),
					slog.String("path", candidate))
				continue
			}
			path = candidate
		}

		if err := validator.ValidateDatasetFile(path); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		inputs = append(inputs, domain.DatasetInput{Kind: kind, Path: path})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no dataset files found in %s: provide -feedback, -inventory or -transactions", dir)
	}
	return inputs, nil
}

func printStages(run *domain.Run) {
	fmt.Printf("\nRun %s finished with status %s\n", run.ID, run.Status)
	for _, st := range run.Stages {
		fmt.Printf("  %-11s %-10s %s\n", string(st.ID)+":", st.Status, st.Message)
	}
}

// printSummary writes the operator-facing report: what cleaning
// removed, how healthy each dataset looks, and where the exports went.
func printSummary(result *domain.RunResult) {
	if result == nil {
		return
	}

	fmt.Println("\nCleaning summary:")
	for _, kind := range domain.AllDatasetKinds {
		steps := result.CleaningLogs[kind]
		if len(steps) == 0 {
			continue
		}
		removed := 0
		for _, step := range steps {
			removed += step.Removed
		}
		fmt.Printf("  %-14s %d rows in, %d rows out, %d removed across %d steps\n",
			string(kind)+":", steps[0].RowsBefore, steps[len(steps)-1].RowsAfter, removed, len(steps))
	}

	fmt.Println("\nHealth scores:")
	for _, kind := range domain.AllDatasetKinds {
		report := result.Health[kind]
		if report == nil {
			continue
		}
		fmt.Printf("  %-14s %.1f (%s), %d rows, %d duplicate rows\n",
			string(kind)+":", report.HealthScore, report.Status, report.Rows, report.Duplicates)
	}

	if s := result.Summary; s != nil {
		fmt.Println("\nReconciliation:")
		fmt.Printf("  %d transactions, %d phantom (%.1f%%), revenue at risk %.1f%%\n",
			s.Transactions, s.PhantomCount, s.PhantomSharePct, s.RevenueAtRiskPct)
	}
	if p := result.Partial; p != nil {
		fmt.Printf("\nPartial analysis (%s): %d groups\n", p.Mode, len(p.Groups))
	}

	if result.ExportDir != "" {
		fmt.Printf("\nWrote %d export files to %s\n", len(result.ExportFiles), result.ExportDir)
	}
}
