package project

import "strings"

// Pkg identifies a package as an (author, project) pair, e.g. "elm-lang/core".
type Pkg struct {
	Author  string
	Project string
}

func (p Pkg) String() string {
	return p.Author + "/" + p.Project
}

// ModuleID uniquely identifies a module within one build. Equality is
// structural, so ModuleID is usable directly as a map key.
type ModuleID struct {
	Pkg  Pkg
	Name string // dotted module name, e.g. "Json.Decode"
}

func (id ModuleID) String() string {
	return id.Pkg.String() + ":" + id.Name
}

// Hyphenated returns the module name with dots replaced by hyphens, the form
// used for artifact file names.
func (id ModuleID) Hyphenated() string {
	return strings.ReplaceAll(id.Name, ".", "-")
}

// Location is where a module's source lives. Native modules are pre-supplied
// JavaScript: they take part in dependency ordering but are never handed to
// the compiler.
type Location struct {
	SourcePath string
	IsNative   bool
}
