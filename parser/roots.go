package parser

import (
	"fmt"
	"go/token"
	"regexp"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/newrelic/go-easy-profiling/internal/util"
)

// root is a node carrying the entry directive. Each root is folded by its own transformer
// whose qualified name starts with the arguments of the directive.
type root struct {
	kind       Kind
	annotation Annotation
	file       *dst.File
	node       dst.Node
	fn         function
}

// generatedCode matches the comment that marks generated Go source.
var generatedCode = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

func isGenerated(file *dst.File) bool {
	for _, line := range file.Decs.Start {
		if generatedCode.MatchString(line) {
			return true
		}
	}
	return false
}

// findRoots returns every root in file, outer roots before the roots nested inside them.
// Nodes that also carry the opt-out directive are not roots. It also rejects opt-out
// directives that carry arguments.
func findRoots(set annotationSet, pkg *decorator.Package, file *dst.File) ([]root, error) {
	var (
		roots []root
		err   error
	)

	check := func(node dst.Node, annotations []Annotation) (Annotation, bool) {
		if err != nil {
			return Annotation{}, false
		}
		if optOutErr := set.checkOptOut(annotations); optOutErr != nil {
			err = positioned(node, pkg, optOutErr)
			return Annotation{}, false
		}
		// the opt-out directive wins over an entry directive on the same node
		if _, ok := set.find(annotations, set.optOut); ok {
			return Annotation{}, false
		}
		return set.entryOf(annotations)
	}

	if a, ok := check(file, parseAnnotations(file.Decs.Start)); ok {
		roots = append(roots, root{kind: KindModule, annotation: a, file: file, node: file})
	}

	dst.Inspect(file, func(n dst.Node) bool {
		if err != nil {
			return false
		}

		switch v := n.(type) {
		case *dst.FuncDecl:
			fn := declFunction(v)
			if a, ok := check(v, fn.annotations); ok {
				roots = append(roots, root{kind: classify(v), annotation: a, file: file, node: v, fn: fn})
			}
		case *dst.GenDecl:
			if v.Tok != token.TYPE {
				break
			}
			for _, spec := range v.Specs {
				typeSpec, ok := spec.(*dst.TypeSpec)
				if !ok {
					continue
				}
				if a, ok := check(typeSpec, parseAnnotations(v.Decs.Start, typeSpec.Decs.Start)); ok {
					roots = append(roots, root{kind: classify(typeSpec), annotation: a, file: file, node: typeSpec})
				}
			}
		}

		for _, fn := range classifyBinding(n) {
			if a, ok := check(fn.node, fn.annotations); ok {
				roots = append(roots, root{kind: KindFreeFunction, annotation: a, file: file, node: fn.node, fn: fn})
			}
		}
		return true
	})
	return roots, err
}

// Instrument inserts guards into every function-like node reachable from a root in files,
// treating files as the files of a single package. pkg provides source positions and type
// information and may be nil. Files are modified in place.
func Instrument(cfg Config, pkg *decorator.Package, files []*dst.File) ([]Guard, error) {
	return instrument(cfg, pkg, files, ScanTypeDirectives)
}

func instrument(cfg Config, pkg *decorator.Package, files []*dst.File, scans ...DependencyScan) ([]Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sources := make([]*dst.File, 0, len(files))
	for _, file := range files {
		if !isGenerated(file) {
			sources = append(sources, file)
		}
	}

	index, err := newPackageIndex(cfg, pkg, sources, scans...)
	if err != nil {
		return nil, err
	}

	set := cfg.annotations()
	var guards []Guard
	for _, file := range sources {
		roots, err := findRoots(set, pkg, file)
		if err != nil {
			return guards, err
		}
		for _, r := range roots {
			inserted, err := index.transformRoot(cfg, r)
			guards = append(guards, inserted...)
			if err != nil {
				return guards, err
			}
		}
	}
	return guards, nil
}

// transformRoot folds a single root with a fresh transformer.
func (index *packageIndex) transformRoot(cfg Config, r root) ([]Guard, error) {
	seed, err := cfg.annotations().rootArguments(r.annotation)
	if err != nil {
		return nil, positioned(r.node, index.pkg, err)
	}

	t := newTransformer(cfg, index, r.file, seed)
	if err := t.foldRoot(r); err != nil {
		return t.guards, err
	}
	if t.names.depth() != len(seed) {
		return t.guards, fmt.Errorf("%s root left %d unbalanced scopes", r.kind, t.names.depth()-len(seed))
	}
	return t.guards, nil
}

// positioned prefixes err with the source position of node, when it is known.
func positioned(node dst.Node, pkg *decorator.Package, err error) error {
	pos := util.PositionString(node, pkg)
	if pos == "" {
		return err
	}
	return fmt.Errorf("%s: %w", pos, err)
}
