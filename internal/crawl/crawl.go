// Package crawl discovers the project's module graph: it walks the source
// roots of the root package and its local dependencies, maps file paths to
// module names, and records each module's direct imports.
package crawl

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/abadi199/elm-make/internal/config"
	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/observability"
	"github.com/abadi199/elm-make/internal/project"
)

const (
	sourceExt = ".elm"
	nativeExt = ".js"
)

type Crawler struct {
	rootPkg      project.Pkg
	roots        []string
	depRoots     map[project.Pkg]string
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	implicit     map[string]bool
}

// found is one discovered source file before import resolution.
type found struct {
	id      project.ModuleID
	loc     project.Location
	imports []string
}

func New(cfg *config.Config) (*Crawler, error) {
	c := &Crawler{
		rootPkg:  project.Pkg{Author: cfg.Package.Author, Project: cfg.Package.Project},
		roots:    cfg.SourceDirs,
		depRoots: make(map[project.Pkg]string),
		implicit: make(map[string]bool, len(cfg.ImplicitImports)),
	}
	for _, name := range cfg.ImplicitImports {
		c.implicit[name] = true
	}
	for name, dir := range cfg.Dependencies {
		author, proj, ok := strings.Cut(name, "/")
		if !ok {
			return nil, errors.MissingPackage(name)
		}
		c.depRoots[project.Pkg{Author: author, Project: proj}] = dir
	}
	for _, pattern := range cfg.Exclude.Dirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		c.excludeDirs = append(c.excludeDirs, g)
	}
	for _, pattern := range cfg.Exclude.Files {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		c.excludeFiles = append(c.excludeFiles, g)
	}
	return c, nil
}

// Crawl walks every source root and produces the project summary the
// analyzer consumes. Imports resolve by module name across all crawled
// packages; imports that resolve nowhere are kept so the analyzer can report
// them with their importer.
func (c *Crawler) Crawl(ctx context.Context) (project.Summary, error) {
	ctx, span := observability.Tracer.Start(ctx, "crawl.Crawl")
	defer span.End()
	_ = ctx

	var all []found
	for _, root := range c.roots {
		mods, err := c.crawlRoot(c.rootPkg, root)
		if err != nil {
			return nil, err
		}
		all = append(all, mods...)
	}

	depPkgs := make([]project.Pkg, 0, len(c.depRoots))
	for pkg := range c.depRoots {
		depPkgs = append(depPkgs, pkg)
	}
	sort.Slice(depPkgs, func(i, j int) bool { return depPkgs[i].String() < depPkgs[j].String() })
	for _, pkg := range depPkgs {
		dir := c.depRoots[pkg]
		if _, err := os.Stat(dir); err != nil {
			return nil, errors.MissingPackage(pkg.String())
		}
		mods, err := c.crawlRoot(pkg, dir)
		if err != nil {
			return nil, err
		}
		all = append(all, mods...)
	}

	index, err := buildNameIndex(all)
	if err != nil {
		return nil, err
	}

	summary := make(project.Summary, len(all))
	for _, mod := range all {
		deps := make([]project.ModuleID, 0, len(mod.imports))
		for _, name := range mod.imports {
			if target, ok := index[name]; ok {
				deps = append(deps, target)
			} else {
				// Not discovered anywhere; surfaces as ModuleNotFound
				// during analysis, attributed to this importer.
				deps = append(deps, project.ModuleID{Pkg: mod.id.Pkg, Name: name})
			}
		}
		summary[mod.id] = project.Data{Location: mod.loc, Deps: deps}
	}

	slog.Debug("crawl complete", "modules", len(summary), "packages", 1+len(depPkgs))
	return summary, nil
}

func (c *Crawler) crawlRoot(pkg project.Pkg, root string) ([]found, error) {
	var mods []found
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && c.matchAny(c.excludeDirs, rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.matchAny(c.excludeFiles, rel, d.Name()) {
			return nil
		}

		switch filepath.Ext(path) {
		case sourceExt:
			name := moduleNameFromPath(rel, sourceExt)
			imports, declared, err := parseSource(path)
			if err != nil {
				return err
			}
			if declared != "" && declared != name {
				return errors.ModuleNameMismatch(path, name, declared)
			}
			mods = append(mods, found{
				id:      project.ModuleID{Pkg: pkg, Name: name},
				loc:     project.Location{SourcePath: path},
				imports: c.filterImplicit(imports),
			})
		case nativeExt:
			name := moduleNameFromPath(rel, nativeExt)
			mods = append(mods, found{
				id:  project.ModuleID{Pkg: pkg, Name: name},
				loc: project.Location{SourcePath: path, IsNative: true},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mods, nil
}

func (c *Crawler) matchAny(globs []glob.Glob, rel, base string) bool {
	for _, g := range globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (c *Crawler) filterImplicit(imports []string) []string {
	out := imports[:0]
	for _, name := range imports {
		if !c.implicit[name] {
			out = append(out, name)
		}
	}
	return out
}

// buildNameIndex maps module names to their unique provider. Two files
// providing the same module name is a fatal duplicate, whether they live in
// the same package or not.
func buildNameIndex(all []found) (map[string]project.ModuleID, error) {
	index := make(map[string]project.ModuleID, len(all))
	providers := make(map[string][]found)
	for _, mod := range all {
		providers[mod.id.Name] = append(providers[mod.id.Name], mod)
	}
	for name, mods := range providers {
		if len(mods) > 1 {
			paths := make([]string, 0, len(mods))
			pkgs := make([]project.Pkg, 0, len(mods))
			for _, m := range mods {
				paths = append(paths, m.loc.SourcePath)
				pkgs = append(pkgs, m.id.Pkg)
			}
			sort.Strings(paths)
			return nil, errors.ModuleDuplicates(name, nil, paths, pkgs)
		}
		index[name] = mods[0].id
	}
	return index, nil
}

// moduleNameFromPath turns "Json/Decode.elm" into "Json.Decode".
func moduleNameFromPath(rel, ext string) string {
	trimmed := strings.TrimSuffix(rel, ext)
	return strings.ReplaceAll(trimmed, "/", ".")
}
