package crawl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abadi199/elm-make/internal/config"
	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Package = config.Package{Author: "alice", Project: "app"}
	cfg.SourceDirs = []string{filepath.Join(dir, "src")}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	return cfg, dir
}

func crawlWith(t *testing.T, cfg *config.Config) (project.Summary, error) {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c.Crawl(context.Background())
}

func TestCrawl_DiscoversModulesAndImports(t *testing.T) {
	cfg, dir := testConfig(t)
	writeFile(t, filepath.Join(dir, "src", "Main.elm"),
		"module Main exposing (main)\n\nimport Page.Home\nimport List\n\nmain = 1\n")
	writeFile(t, filepath.Join(dir, "src", "Page", "Home.elm"),
		"module Page.Home exposing (view)\n\nview = 1\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	pkg := project.Pkg{Author: "alice", Project: "app"}
	main := summary[project.ModuleID{Pkg: pkg, Name: "Main"}]
	// List is an implicit import and must not appear as a dependency.
	assert.Equal(t, []project.ModuleID{{Pkg: pkg, Name: "Page.Home"}}, main.Deps)

	home := summary[project.ModuleID{Pkg: pkg, Name: "Page.Home"}]
	assert.Empty(t, home.Deps)
	assert.False(t, home.Location.IsNative)
}

func TestCrawl_NativeModules(t *testing.T) {
	cfg, dir := testConfig(t)
	writeFile(t, filepath.Join(dir, "src", "Native", "Http.js"), "// native http\n")
	writeFile(t, filepath.Join(dir, "src", "Http.elm"),
		"module Http exposing (get)\n\nimport Native.Http\n\nget = 1\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	pkg := project.Pkg{Author: "alice", Project: "app"}
	native := summary[project.ModuleID{Pkg: pkg, Name: "Native.Http"}]
	assert.True(t, native.Location.IsNative)

	http := summary[project.ModuleID{Pkg: pkg, Name: "Http"}]
	assert.Equal(t, []project.ModuleID{{Pkg: pkg, Name: "Native.Http"}}, http.Deps)
}

func TestCrawl_ModuleNameMismatch(t *testing.T) {
	cfg, dir := testConfig(t)
	writeFile(t, filepath.Join(dir, "src", "Main.elm"),
		"module Totally.Different exposing (..)\n")

	_, err := crawlWith(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeModuleNameMismatch))
}

func TestCrawl_HeaderlessFileUsesPathName(t *testing.T) {
	cfg, dir := testConfig(t)
	writeFile(t, filepath.Join(dir, "src", "Main.elm"), "main = 1\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)
	pkg := project.Pkg{Author: "alice", Project: "app"}
	_, ok := summary[project.ModuleID{Pkg: pkg, Name: "Main"}]
	assert.True(t, ok)
}

func TestCrawl_DuplicateModules(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.SourceDirs = []string{filepath.Join(dir, "src"), filepath.Join(dir, "vendor")}
	writeFile(t, filepath.Join(dir, "src", "Util.elm"), "module Util exposing (..)\n")
	writeFile(t, filepath.Join(dir, "vendor", "Util.elm"), "module Util exposing (..)\n")

	_, err := crawlWith(t, cfg)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeModuleDuplicates))

	be, _ := errors.AsBuildError(err)
	assert.Len(t, be.Paths, 2)
}

func TestCrawl_DependencyPackages(t *testing.T) {
	cfg, dir := testConfig(t)
	depDir := filepath.Join(dir, "deps", "core", "src")
	writeFile(t, filepath.Join(depDir, "Json", "Decode.elm"),
		"module Json.Decode exposing (..)\n")
	cfg.Dependencies = map[string]string{"elm-lang/core": depDir}

	writeFile(t, filepath.Join(dir, "src", "Main.elm"),
		"module Main exposing (..)\n\nimport Json.Decode\n\nmain = 1\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	corePkg := project.Pkg{Author: "elm-lang", Project: "core"}
	appPkg := project.Pkg{Author: "alice", Project: "app"}
	// The import resolves across packages by module name.
	main := summary[project.ModuleID{Pkg: appPkg, Name: "Main"}]
	assert.Equal(t, []project.ModuleID{{Pkg: corePkg, Name: "Json.Decode"}}, main.Deps)
}

func TestCrawl_MissingPackage(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Dependencies = map[string]string{"elm-lang/core": filepath.Join(dir, "no-such-dir")}

	_, err := crawlWith(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingPackage))
}

func TestCrawl_ExcludesApply(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Exclude.Dirs = []string{"generated"}
	cfg.Exclude.Files = []string{"*Scratch*"}
	writeFile(t, filepath.Join(dir, "src", "Main.elm"), "module Main exposing (..)\n")
	writeFile(t, filepath.Join(dir, "src", "generated", "Api.elm"), "module Api exposing (..)\n")
	writeFile(t, filepath.Join(dir, "src", "Scratch.elm"), "module Scratch exposing (..)\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)
	require.Len(t, summary, 1)
}

func TestCrawl_UnresolvedImportSurvivesForAnalyzer(t *testing.T) {
	cfg, dir := testConfig(t)
	writeFile(t, filepath.Join(dir, "src", "Main.elm"),
		"module Main exposing (..)\n\nimport Missing.Module\n\nmain = 1\n")

	summary, err := crawlWith(t, cfg)
	require.NoError(t, err)

	pkg := project.Pkg{Author: "alice", Project: "app"}
	main := summary[project.ModuleID{Pkg: pkg, Name: "Main"}]
	require.Len(t, main.Deps, 1)
	assert.Equal(t, "Missing.Module", main.Deps[0].Name)
}
