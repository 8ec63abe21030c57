package parser

import (
	"fmt"
	"go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/newrelic/go-easy-profiling/internal/codegen"
	"github.com/newrelic/go-easy-profiling/parser/facts"
)

const (
	// DefaultEntryDirective marks a node whose function-like descendants are instrumented.
	DefaultEntryDirective = "flame"

	// DefaultOptOutDirective marks a node that is never instrumented.
	DefaultOptOutDirective = "noflame"
)

// DefaultRestrictedDirectives are the compiler directives that forbid the calls a guard makes.
// Functions carrying any of them are never guarded.
var DefaultRestrictedDirectives = []string{
	"go:nosplit",
	"go:systemstack",
	"go:nowritebarrier",
	"go:nowritebarrierrec",
}

// Config controls which nodes are instrumented and what the inserted guards look like.
type Config struct {
	EntryDirective       string
	OptOutDirective      string
	RestrictedDirectives []string
	Discipline           codegen.Discipline
	Runtime              codegen.Runtime
	Expander             Expander
}

// DefaultConfig returns the configuration used when nothing else is specified:
// //flame and //noflame directives, scope bound guards from the flame runtime, and no expansion.
func DefaultConfig() Config {
	return Config{
		EntryDirective:       DefaultEntryDirective,
		OptOutDirective:      DefaultOptOutDirective,
		RestrictedDirectives: append([]string(nil), DefaultRestrictedDirectives...),
		Discipline:           codegen.ScopeBound,
		Runtime:              codegen.DefaultRuntime(),
		Expander:             NoExpansion{},
	}
}

// Validate returns an error if the configuration can not be used to instrument code.
func (c Config) Validate() error {
	if c.EntryDirective == "" {
		return fmt.Errorf("entry directive must not be empty")
	}
	if c.OptOutDirective == "" {
		return fmt.Errorf("opt-out directive must not be empty")
	}
	if c.EntryDirective == c.OptOutDirective {
		return fmt.Errorf("entry and opt-out directives must differ, both are %q", c.EntryDirective)
	}
	if !token.IsIdentifier(c.Runtime.StartFunc) || !token.IsIdentifier(c.Runtime.EndMethod) {
		return fmt.Errorf("runtime functions must be identifiers: %q, %q", c.Runtime.StartFunc, c.Runtime.EndMethod)
	}
	return c.Runtime.Validate()
}

func (c Config) annotations() annotationSet {
	return annotationSet{
		entry:      c.EntryDirective,
		optOut:     c.OptOutDirective,
		restricted: c.RestrictedDirectives,
	}
}

func (c Config) expander() Expander {
	if c.Expander == nil {
		return NoExpansion{}
	}
	return c.Expander
}

// DependencyScan is a function that scans a declaration for facts that need to be recognized before instrumentation occurs.
// Functions that implement this should be designed to detect a specific thing during a walk of the full DST tree of a package.
type DependencyScan func(cfg Config, pkg *decorator.Package, node dst.Node) ([]facts.Entry, bool)
