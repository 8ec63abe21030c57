package codegen

import (
	"fmt"
	"strings"
)

const (
	// the import path of the flame runtime shipped with this module
	FlameImportPath string = "github.com/newrelic/go-easy-profiling/flame"

	// DefaultGuardVariable is the local that holds the guard under the explicit discipline
	DefaultGuardVariable = "flameGuard"

	// resultVariablePrefix names the locals that capture results under the explicit discipline
	resultVariablePrefix = "flameResult"
)

// Runtime describes the profiling library that generated guards call into.
// The library must expose a function taking a single string and returning a
// guard value, and the guard must expose a method without arguments that ends it.
type Runtime struct {
	ImportPath string // import path of the runtime package
	StartFunc  string // package level guard constructor
	EndMethod  string // method on the guard that ends its span
}

// DefaultRuntime is the flame runtime: flame.StartGuard(name).End()
func DefaultRuntime() Runtime {
	return Runtime{
		ImportPath: FlameImportPath,
		StartFunc:  "StartGuard",
		EndMethod:  "End",
	}
}

// PackageName is the name the runtime package is most likely imported as.
func (rt Runtime) PackageName() string {
	name := rt.ImportPath
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Validate returns an error if any part of the runtime description is missing.
func (rt Runtime) Validate() error {
	switch {
	case rt.ImportPath == "":
		return fmt.Errorf("runtime import path must not be empty")
	case rt.StartFunc == "":
		return fmt.Errorf("runtime guard constructor must not be empty")
	case rt.EndMethod == "":
		return fmt.Errorf("runtime guard end method must not be empty")
	}
	return nil
}

// Discipline selects how the lifetime of a generated guard is bound to the function body.
type Discipline uint8

const (
	// ScopeBound defers the end of the guard, so it ends on every exit path including panics.
	ScopeBound Discipline = iota
	// ExplicitEnd captures the results of the original body and ends the guard before returning them.
	ExplicitEnd
)

func (d Discipline) String() string {
	switch d {
	case ScopeBound:
		return "scope"
	case ExplicitEnd:
		return "explicit"
	default:
		return "unknown"
	}
}

// ParseDiscipline converts the textual name of a discipline, as used in configuration, into a Discipline.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scope", "defer":
		return ScopeBound, nil
	case "explicit":
		return ExplicitEnd, nil
	}
	return ScopeBound, fmt.Errorf("unknown guard discipline %q: expected \"scope\" or \"explicit\"", s)
}
