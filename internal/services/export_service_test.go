package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/operations"
	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

func newExportHarness(t *testing.T) (*ExportService, *operations.RunStore, *config.Paths) {
	t.Helper()

	paths := config.NewPaths(t.TempDir())
	store := operations.NewRunStore(0)
	logger, _ := testutil.NewTestLogger(t)

	return NewExportService(store, paths, logger), store, paths
}

func seedExports(t *testing.T, store *operations.RunStore, runID string, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data\n"), 0o644))
	}
	store.Create(&domain.Run{ID: runID, Status: domain.RunCompleted, CreatedAt: time.Now().UTC()})
	store.SaveResult(runID, &domain.RunResult{ExportDir: dir})
	return dir
}

func TestExportService_List(t *testing.T) {
	svc, store, _ := newExportHarness(t)
	dir := seedExports(t, store, "run-1", "sku_reconciliation.csv", "health_report.json")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := svc.List(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Sorted by name, directories skipped.
	assert.Equal(t, "health_report.json", files[0].Name)
	assert.Equal(t, "sku_reconciliation.csv", files[1].Name)
	assert.Positive(t, files[0].SizeBytes)
}

func TestExportService_List_UnknownRun(t *testing.T) {
	svc, _, _ := newExportHarness(t)

	_, err := svc.List(context.Background(), "ghost")
	require.ErrorIs(t, err, apierrors.ErrRunNotFound)
}

func TestExportService_List_NoExportsWritten(t *testing.T) {
	svc, store, _ := newExportHarness(t)
	store.Create(&domain.Run{ID: "bare", Status: domain.RunFailed, CreatedAt: time.Now().UTC()})

	_, err := svc.List(context.Background(), "bare")
	require.ErrorIs(t, err, apierrors.ErrExportNotFound)
}

func TestExportService_Resolve(t *testing.T) {
	svc, store, _ := newExportHarness(t)
	dir := seedExports(t, store, "run-1", "resumen_sku_fantasma.csv")

	path, err := svc.Resolve(context.Background(), "run-1", "resumen_sku_fantasma.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "resumen_sku_fantasma.csv"), path)
}

func TestExportService_Resolve_Missing(t *testing.T) {
	svc, store, _ := newExportHarness(t)
	seedExports(t, store, "run-1", "resumen_sku_fantasma.csv")

	_, err := svc.Resolve(context.Background(), "run-1", "nope.csv")
	require.ErrorIs(t, err, apierrors.ErrExportNotFound)
}

func TestExportService_Resolve_RejectsTraversal(t *testing.T) {
	svc, store, _ := newExportHarness(t)
	seedExports(t, store, "run-1", "resumen_sku_fantasma.csv")

	for _, name := range []string{
		"../secret.csv",
		"..",
		"a/b.csv",
		`a\b.csv`,
		".env",
		"",
	} {
		_, err := svc.Resolve(context.Background(), "run-1", name)
		require.ErrorIs(t, err, apierrors.ErrExportNotFound, "name %q", name)
	}
}

func TestExportService_FallsBackToConfiguredLayout(t *testing.T) {
	svc, store, paths := newExportHarness(t)

	// Run exists but stored no result; the configured per-run directory
	// still serves whatever is on disk.
	store.Create(&domain.Run{ID: "run-2", Status: domain.RunFailed, CreatedAt: time.Now().UTC()})
	dir := paths.RunExportDir("run-2")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "health_report.json"), []byte("{}"), 0o644))

	files, err := svc.List(context.Background(), "run-2")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "health_report.json", files[0].Name)
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"sku_reconciliation.csv", true},
		{"health_report.json", true},
		{"cleaning_log_feedback.csv", true},
		{"", false},
		{".", false},
		{"..", false},
		{".hidden", false},
		{"dir/file.csv", false},
		{`dir\file.csv`, false},
		{"../../etc/passwd", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeFilename(tt.name), "name %q", tt.name)
	}
}
