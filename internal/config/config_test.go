package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elm-make.toml")
	content := `
source_dirs = ["src", "vendor"]
stuff_dir = "build"
compiler_version = "0.19.0"

[package]
author = "alice"
project = "app"

[build]
workers = 2

[exclude]
dirs = ["generated"]

[dependencies]
"elm-lang/core" = "deps/core/src"

[history]
enabled = true
path = "build/history.db"

[observability]
metrics_addr = ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"src", "vendor"}, cfg.SourceDirs)
	assert.Equal(t, "build", cfg.StuffDir)
	assert.Equal(t, "0.19.0", cfg.CompilerVersion)
	assert.Equal(t, "alice", cfg.Package.Author)
	assert.Equal(t, 2, cfg.Build.Workers)
	assert.Equal(t, []string{"generated"}, cfg.Exclude.Dirs)
	assert.Equal(t, "deps/core/src", cfg.Dependencies["elm-lang/core"])
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, ":9090", cfg.Observability.MetricsAddr)
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elm-make.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"src"}, cfg.SourceDirs)
	assert.Equal(t, "elm-stuff", cfg.StuffDir)
	assert.Equal(t, runtime.NumCPU(), cfg.Build.Workers)
	assert.Contains(t, cfg.ImplicitImports, "Basics")
	assert.False(t, cfg.History.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "user", cfg.Package.Author)
	assert.Equal(t, "0.19.1", cfg.CompilerVersion)
	assert.Positive(t, cfg.Build.Workers)
}
