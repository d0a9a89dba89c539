// Package errors defines the structured error taxonomy of the build driver.
// Every failure is returned to the caller as a single value; rendering for
// humans is the reporting layer's concern.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abadi199/elm-make/internal/project"
)

type ErrorCode string

const (
	CodeCycle              ErrorCode = "CYCLE"
	CodeModuleNotFound     ErrorCode = "MODULE_NOT_FOUND"
	CodeModuleDuplicates   ErrorCode = "MODULE_DUPLICATES"
	CodeModuleNameMismatch ErrorCode = "MODULE_NAME_MISMATCH"
	CodeCorruptedArtifact  ErrorCode = "CORRUPTED_ARTIFACT"
	CodeCompilerErrors     ErrorCode = "COMPILER_ERRORS"
	CodeMissingPackage     ErrorCode = "MISSING_PACKAGE"
)

// Context keys shared across constructors.
const (
	CtxPath   = "path"
	CtxModule = "module"
	CtxParent = "parent"
)

// Diagnostic is one compiler-reported problem within a source file.
type Diagnostic struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// BuildError carries an error code, a human-oriented message and any
// structured payload the code implies.
type BuildError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}

	// Structured payloads; populated depending on Code.
	Cycle       []project.ModuleID
	Diagnostics []Diagnostic
	Paths       []string
	Packages    []project.Pkg
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Cycle reports a strongly-connected component in the dependency graph.
func Cycle(members []project.ModuleID) *BuildError {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return &BuildError{
		Code:    CodeCycle,
		Message: "import cycle: " + strings.Join(names, " -> "),
		Cycle:   members,
	}
}

// ModuleNotFound reports a dependency that is absent from the project
// summary. parent is nil when the missing module was requested at the root.
func ModuleNotFound(name project.ModuleID, parent *project.ModuleID) *BuildError {
	e := &BuildError{
		Code:    CodeModuleNotFound,
		Message: fmt.Sprintf("module %s could not be found", name.Name),
	}
	e.WithContext(CtxModule, name.String())
	if parent != nil {
		e.Message = fmt.Sprintf("module %s, imported by %s, could not be found", name.Name, parent.Name)
		e.WithContext(CtxParent, parent.String())
	}
	return e
}

// ModuleDuplicates reports a module name provided by more than one file or
// package.
func ModuleDuplicates(name string, parent *project.ModuleID, paths []string, pkgs []project.Pkg) *BuildError {
	e := &BuildError{
		Code:     CodeModuleDuplicates,
		Message:  fmt.Sprintf("module %s is defined more than once", name),
		Paths:    paths,
		Packages: pkgs,
	}
	e.WithContext(CtxModule, name)
	if parent != nil {
		e.WithContext(CtxParent, parent.String())
	}
	return e
}

// ModuleNameMismatch reports a module whose declared name disagrees with the
// name implied by its file path.
func ModuleNameMismatch(path, expected, actual string) *BuildError {
	e := &BuildError{
		Code:    CodeModuleNameMismatch,
		Message: fmt.Sprintf("file %s must declare module %s, not %s", path, expected, actual),
	}
	e.WithContext(CtxPath, path)
	e.WithContext("expected", expected)
	e.WithContext("actual", actual)
	return e
}

// CorruptedArtifact reports an interface file that exists but cannot be read
// back. Deleting the artifact directory clears the condition.
func CorruptedArtifact(path string, err error) *BuildError {
	e := &BuildError{
		Code:    CodeCorruptedArtifact,
		Message: fmt.Sprintf("artifact %s is corrupted; delete the artifact directory and rebuild", path),
		Err:     err,
	}
	e.WithContext(CtxPath, path)
	return e
}

// CompilerErrors wraps the diagnostics the compiler produced for one module.
func CompilerErrors(path string, module project.ModuleID, diags []Diagnostic) *BuildError {
	e := &BuildError{
		Code:        CodeCompilerErrors,
		Message:     fmt.Sprintf("%d problem(s) compiling %s", len(diags), module.Name),
		Diagnostics: diags,
	}
	e.WithContext(CtxPath, path)
	e.WithContext(CtxModule, module.String())
	return e
}

// MissingPackage reports a declared dependency whose sources are not
// available locally.
func MissingPackage(name string) *BuildError {
	e := &BuildError{
		Code:    CodeMissingPackage,
		Message: fmt.Sprintf("package %s is missing", name),
	}
	e.WithContext("package", name)
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// AsBuildError extracts a BuildError from err's chain.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
