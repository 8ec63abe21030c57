package parser

import (
	"go/token"

	"github.com/dave/dst"
)

// Kind is the role a node plays for instrumentation.
type Kind uint8

const (
	KindOther Kind = iota
	KindModule
	KindTrait
	KindTraitMethod
	KindImpl
	KindImplMethod
	KindFreeFunction
	KindMacroInvocation
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "Other"
	case KindModule:
		return "Module"
	case KindTrait:
		return "Trait"
	case KindTraitMethod:
		return "TraitMethod"
	case KindImpl:
		return "Impl"
	case KindImplMethod:
		return "ImplMethod"
	case KindFreeFunction:
		return "FreeFunction"
	case KindMacroInvocation:
		return "MacroInvocation"
	default:
		return "Unknown"
	}
}

// classify returns the kind of a node.
// Function literals are only function-like when they are bound to a name, which
// classify can not see; use classifyBinding for the statements that bind them.
func classify(node dst.Node) Kind {
	switch v := node.(type) {
	case *dst.File:
		return KindModule
	case *dst.TypeSpec:
		if _, ok := v.Type.(*dst.InterfaceType); ok {
			return KindTrait
		}
		return KindImpl
	case *dst.Field:
		if _, ok := v.Type.(*dst.FuncType); ok && len(v.Names) > 0 {
			return KindTraitMethod
		}
	case *dst.FuncDecl:
		if v.Recv != nil && len(v.Recv.List) > 0 {
			return KindImplMethod
		}
		return KindFreeFunction
	case *dst.BadDecl, *dst.BadStmt, *dst.BadExpr:
		return KindMacroInvocation
	}
	return KindOther
}

// function is a function-like node: a function or method declaration, or a
// function literal bound to an identifier.
type function struct {
	name        string
	node        dst.Node
	annotations []Annotation
	typ         *dst.FuncType
	body        *dst.BlockStmt
}

func declFunction(decl *dst.FuncDecl) function {
	return function{
		name:        decl.Name.Name,
		node:        decl,
		annotations: parseAnnotations(decl.Decs.Start),
		typ:         decl.Type,
		body:        decl.Body,
	}
}

func literalFunction(name string, lit *dst.FuncLit, annotations []Annotation) function {
	return function{
		name:        name,
		node:        lit,
		annotations: annotations,
		typ:         lit.Type,
		body:        lit.Body,
	}
}

// classifyBinding returns the named function literals bound by an assignment or a
// var declaration. Literals assigned to blank identifiers, selectors, or index
// expressions stay anonymous.
func classifyBinding(node dst.Node) []function {
	var named []function
	switch v := node.(type) {
	case *dst.AssignStmt:
		if len(v.Lhs) != len(v.Rhs) {
			return nil
		}
		annotations := parseAnnotations(v.Decs.Start)
		for i, rhs := range v.Rhs {
			lit, ok := rhs.(*dst.FuncLit)
			if !ok {
				continue
			}
			ident, ok := v.Lhs[i].(*dst.Ident)
			if !ok || ident.Name == "_" {
				continue
			}
			named = append(named, literalFunction(ident.Name, lit, annotations))
		}
	case *dst.GenDecl:
		if v.Tok != token.VAR {
			return nil
		}
		for _, spec := range v.Specs {
			valueSpec, ok := spec.(*dst.ValueSpec)
			if !ok || len(valueSpec.Names) != len(valueSpec.Values) {
				continue
			}
			annotations := parseAnnotations(v.Decs.Start, valueSpec.Decs.Start)
			for i, value := range valueSpec.Values {
				lit, ok := value.(*dst.FuncLit)
				if !ok || valueSpec.Names[i].Name == "_" {
					continue
				}
				named = append(named, literalFunction(valueSpec.Names[i].Name, lit, annotations))
			}
		}
	}
	return named
}
