package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
	"supplypulse/internal/validation"
	"supplypulse/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("col\nvalue\n"), 0644))
	return path
}

func TestResolveInputs(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string
		wantKinds     []domain.DatasetKind
		wantErr       bool
		errorContains string
	}{
		{
			name: "discovers configured file names in directory",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				writeFile(t, dir, cfg.Datasets.InventoryFile)
				writeFile(t, dir, cfg.Datasets.TransactionsFile)
				return nil
			},
			wantKinds: []domain.DatasetKind{domain.DatasetInventory, domain.DatasetTransactions},
		},
		{
			name: "explicit path wins over directory scan",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				other := t.TempDir()
				path := writeFile(t, other, "mi_feedback.csv")
				return map[domain.DatasetKind]string{domain.DatasetFeedback: path}
			},
			wantKinds: []domain.DatasetKind{domain.DatasetFeedback},
		},
		{
			name: "custom configured name is honored",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				cfg.Datasets.InventoryFile = "stock_actual.csv"
				writeFile(t, dir, "stock_actual.csv")
				return nil
			},
			wantKinds: []domain.DatasetKind{domain.DatasetInventory},
		},
		{
			name: "blank configured name falls back to canonical",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				cfg.Datasets.TransactionsFile = ""
				writeFile(t, dir, domain.CanonicalFileName(domain.DatasetTransactions))
				return nil
			},
			wantKinds: []domain.DatasetKind{domain.DatasetTransactions},
		},
		{
			name: "explicit path must exist",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				return map[domain.DatasetKind]string{
					domain.DatasetInventory: filepath.Join(dir, "no_such_file.csv"),
				}
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "unsupported extension is rejected",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				path := writeFile(t, dir, "transacciones.txt")
				return map[domain.DatasetKind]string{domain.DatasetTransactions: path}
			},
			wantErr:       true,
			errorContains: "not a supported dataset format",
		},
		{
			name: "empty directory yields a usable error",
			setup: func(t *testing.T, dir string, cfg *config.Config) map[domain.DatasetKind]string {
				return nil
			},
			wantErr:       true,
			errorContains: "no dataset files found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.Default()
			explicit := tt.setup(t, dir, cfg)

			validator := validation.NewFileValidator(discardLogger())
			inputs, err := resolveInputs(cfg, validator, dir, explicit, discardLogger())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			var kinds []domain.DatasetKind
			for _, in := range inputs {
				kinds = append(kinds, in.Kind)
				assert.FileExists(t, in.Path)
			}
			assert.Equal(t, tt.wantKinds, kinds)
		})
	}
}

func TestResolveInputs_MissingDirectory(t *testing.T) {
	validator := validation.NewFileValidator(discardLogger())
	_, err := resolveInputs(config.Default(), validator, "/non/existent/dir", nil, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPrintSummary_NilResult(t *testing.T) {
	assert.NotPanics(t, func() { printSummary(nil) })
}
