package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/operations"
)

// ExportService resolves run artifacts on disk for download. Artifact
// names are validated against the run's export directory so a request
// can never read outside it.
type ExportService struct {
	store  *operations.RunStore
	paths  *config.Paths
	logger *slog.Logger
}

// ExportFile describes one downloadable artifact of a run.
type ExportFile struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewExportService creates the export service.
func NewExportService(store *operations.RunStore, paths *config.Paths, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExportService{
		store:  store,
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "services.export"),
	}
}

// List returns the artifacts written by a run, sorted by name.
func (s *ExportService) List(ctx context.Context, runID string) ([]ExportFile, error) {
	dir, err := s.exportDir(runID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s wrote no exports: %w", runID, apierrors.ErrExportNotFound)
		}
		return nil, fmt.Errorf("read export directory: %w", err)
	}

	files := make([]ExportFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ExportFile{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Resolve validates an artifact name and returns its absolute path for
// serving. Names containing path separators or traversal segments are
// rejected before touching the filesystem.
func (s *ExportService) Resolve(ctx context.Context, runID, filename string) (string, error) {
	if !safeFilename(filename) {
		s.logger.WarnContext(ctx, "rejected export filename",
			slog.String("run_id", runID),
			slog.String("filename", filename))
		return "", fmt.Errorf("unsafe export name %q: %w", filename, apierrors.ErrExportNotFound)
	}

	dir, err := s.exportDir(runID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("export %s for run %s: %w", filename, runID, apierrors.ErrExportNotFound)
	}
	return path, nil
}

// exportDir locates the artifact directory for a run, preferring the
// directory the run recorded over the configured layout.
func (s *ExportService) exportDir(runID string) (string, error) {
	if _, err := s.store.Get(runID); err != nil {
		return "", err
	}
	if result, err := s.store.Result(runID); err == nil && result.ExportDir != "" {
		return result.ExportDir, nil
	}
	if s.paths == nil {
		return "", fmt.Errorf("no export directory configured: %w", apierrors.ErrExportNotFound)
	}
	return s.paths.RunExportDir(runID), nil
}

// safeFilename accepts plain file names only: no separators, no
// traversal, nothing hidden.
func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Base(name) == name
}
