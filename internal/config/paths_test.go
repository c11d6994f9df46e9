package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths_Layout(t *testing.T) {
	base := filepath.Join("some", "base")
	paths := NewPaths(base)

	assert.Equal(t, base, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "uploads"), paths.UploadsDir)
	assert.Equal(t, filepath.Join(base, "data", "exports"), paths.ExportsDir)
	assert.Equal(t, filepath.Join(base, "data", "cache"), paths.CacheDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "web"), paths.WebDir)
	assert.Equal(t, filepath.Join(base, "web", "static"), paths.StaticDir)
}

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.NotEmpty(t, paths.ExecutableDir)
	assert.True(t, filepath.IsAbs(paths.ExecutableDir))
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
}

func TestPaths_EnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths := NewPaths(base)

	require.NoError(t, paths.EnsureDirectories())

	assert.DirExists(t, paths.DataDir)
	assert.DirExists(t, paths.UploadsDir)
	assert.DirExists(t, paths.ExportsDir)
	assert.DirExists(t, paths.CacheDir)
	assert.DirExists(t, paths.LogsDir)

	// Idempotent on existing directories.
	require.NoError(t, paths.EnsureDirectories())
}

func TestPaths_Getters(t *testing.T) {
	paths := NewPaths("base")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"upload", paths.GetUploadPath("in.csv"), filepath.Join("base", "data", "uploads", "in.csv")},
		{"export", paths.GetExportPath("out.csv"), filepath.Join("base", "data", "exports", "out.csv")},
		{"cache", paths.GetCachePath("tmp.bin"), filepath.Join("base", "data", "cache", "tmp.bin")},
		{"log", paths.GetLogPath("app.log"), filepath.Join("base", "logs", "app.log")},
		{"web", paths.GetWebFilePath("index.html"), filepath.Join("base", "web", "index.html")},
		{"static", paths.GetStaticFilePath("app.css"), filepath.Join("base", "web", "static", "app.css")},
		{"relative", paths.GetRelativePath("config.yaml"), filepath.Join("base", "config.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPaths_RunExportDir(t *testing.T) {
	paths := NewPaths("base")
	got := paths.RunExportDir("run-123")
	assert.Equal(t, filepath.Join("base", "data", "exports", "run-123"), got)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	assert.True(t, FileExists(existing))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
