package parser

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/newrelic/go-easy-profiling/internal/util"
	"github.com/newrelic/go-easy-profiling/parser/facts"
)

// packageIndex holds what the transformers of one package need to know about
// declarations outside the node they are folding.
type packageIndex struct {
	pkg     *decorator.Package
	facts   facts.Keeper
	methods map[string][]*dst.FuncDecl
	fileOf  map[*dst.FuncDecl]*dst.File
}

// newPackageIndex scans files for facts and collects the methods of every receiver type.
// pkg may be nil, in which case impl descriptors are built without type information.
func newPackageIndex(cfg Config, pkg *decorator.Package, files []*dst.File, scans ...DependencyScan) (*packageIndex, error) {
	index := &packageIndex{
		pkg:     pkg,
		facts:   facts.NewKeeper(),
		methods: map[string][]*dst.FuncDecl{},
		fileOf:  map[*dst.FuncDecl]*dst.File{},
	}

	for _, file := range files {
		for _, decl := range file.Decls {
			if fn, ok := decl.(*dst.FuncDecl); ok && classify(fn) == KindImplMethod {
				name := util.ReceiverTypeName(fn.Recv.List[0].Type)
				index.methods[name] = append(index.methods[name], fn)
				index.fileOf[fn] = file
			}
			for _, scan := range scans {
				entries, ok := scan(cfg, pkg, decl)
				if !ok {
					continue
				}
				for _, entry := range entries {
					if err := index.facts.AddFact(entry); err != nil {
						return nil, fmt.Errorf("%s: %w", util.PositionString(decl, pkg), err)
					}
				}
			}
		}
	}
	return index, nil
}

// ScanTypeDirectives records type declarations carrying the entry or opt-out directive.
// Methods of those types are left alone by enclosing module traversals.
func ScanTypeDirectives(cfg Config, pkg *decorator.Package, node dst.Node) ([]facts.Entry, bool) {
	decl, ok := node.(*dst.GenDecl)
	if !ok || decl.Tok != token.TYPE {
		return nil, false
	}

	set := cfg.annotations()
	var entries []facts.Entry
	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*dst.TypeSpec)
		if !ok {
			continue
		}
		annotations := parseAnnotations(decl.Decs.Start, typeSpec.Decs.Start)
		switch {
		case hasDirective(annotations, set.optOut):
			entries = append(entries, facts.Entry{Name: typeSpec.Name.Name, Fact: facts.OptOutType})
		case hasDirective(annotations, set.entry):
			entries = append(entries, facts.Entry{Name: typeSpec.Name.Name, Fact: facts.EntryType})
		}
	}
	return entries, len(entries) > 0
}

func hasDirective(annotations []Annotation, name string) bool {
	for _, a := range annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// implDescriptor names the impl scope of a method: the receiver base type with its
// type parameters, followed by " as I" when a local interface I declares the method
// and the receiver type implements it.
func (index *packageIndex) implDescriptor(decl *dst.FuncDecl) string {
	descriptor := util.WriteExpr(util.ReceiverBase(decl.Recv.List[0].Type))
	if trait := index.traitOf(decl); trait != "" {
		return descriptor + " as " + trait
	}
	return descriptor
}

// traitOf returns the name of the first package level interface, in lexical order, that
// declares the method and is implemented by its receiver type or a pointer to it.
func (index *packageIndex) traitOf(decl *dst.FuncDecl) string {
	if index.pkg == nil || index.pkg.Types == nil {
		return ""
	}

	fn, ok := util.DefinedObject(decl.Name, index.pkg).(*types.Func)
	if !ok {
		return ""
	}
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return ""
	}

	recvType := recv.Type()
	if ptr, ok := recvType.(*types.Pointer); ok {
		recvType = ptr.Elem()
	}
	named, ok := recvType.(*types.Named)
	if !ok || named.TypeArgs().Len() > 0 || named.TypeParams().Len() > 0 {
		return ""
	}

	scope := index.pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || typeName.IsAlias() || typeName == named.Obj() {
			continue
		}
		iface, ok := typeName.Type().Underlying().(*types.Interface)
		if !ok || !declaresMethod(iface, decl.Name.Name) {
			continue
		}
		if n, ok := typeName.Type().(*types.Named); ok && n.TypeParams().Len() > 0 {
			continue
		}
		if types.Implements(named, iface) || types.Implements(types.NewPointer(named), iface) {
			return name
		}
	}
	return ""
}

func declaresMethod(iface *types.Interface, name string) bool {
	for i := 0; i < iface.NumMethods(); i++ {
		if iface.Method(i).Name() == name {
			return true
		}
	}
	return false
}
