package project

// Interface is the compiler-produced summary of a module's public surface.
// It is immutable once produced and is persisted as one file per module in
// the artifact directory.
type Interface struct {
	Fingerprint string            `json:"fingerprint"`
	Exports     map[string]string `json:"exports,omitempty"`
	Native      bool              `json:"native,omitempty"`
}

// Data pairs a module's source location with its direct imports.
type Data struct {
	Location Location
	Deps     []ModuleID
}

// Summary is the input dependency graph: every module in the project mapped
// to its location and direct dependencies. Produced by the crawler, consumed
// once by the staleness analyzer.
type Summary map[ModuleID]Data

// BuildData describes one module that must be compiled. Blocking and the
// keys of Ready partition the module's dependency set; the module is
// schedulable iff Blocking is empty.
type BuildData struct {
	Blocking []ModuleID
	Ready    map[ModuleID]Interface
	Location Location
}

// BuildSummary is the subset of the project that requires recompilation.
// Modules whose cached interfaces survived staleness analysis do not appear.
type BuildSummary map[ModuleID]BuildData
