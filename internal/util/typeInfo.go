package util

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
)

// Position returns the source position of a node according to the decorator of pkg.
// Nodes created after loading have no position, and nil is returned for them.
func Position(node dst.Node, pkg *decorator.Package) *token.Position {
	if node == nil || pkg == nil || pkg.Decorator == nil || pkg.Package == nil || pkg.Fset == nil {
		return nil
	}

	astNode := pkg.Decorator.Ast.Nodes[node]
	if astNode == nil {
		return nil
	}

	pos := pkg.Fset.Position(astNode.Pos())
	return &pos
}

// DefinedObject returns the object the identifier defines according to go types info.
func DefinedObject(ident *dst.Ident, pkg *decorator.Package) types.Object {
	if ident == nil || pkg == nil || pkg.Decorator == nil || pkg.Package == nil || pkg.TypesInfo == nil {
		return nil
	}

	astIdent, ok := pkg.Decorator.Ast.Nodes[ident].(*ast.Ident)
	if !ok {
		return nil
	}
	return pkg.TypesInfo.Defs[astIdent]
}

// WriteExpr returns the source form of a type expression.
// Only the forms that can appear in a method receiver or a type reference are
// rendered; anything else is rendered as an empty string.
func WriteExpr(expr dst.Expr) string {
	b := &strings.Builder{}
	writeExpr(b, expr)
	return b.String()
}

func writeExpr(b *strings.Builder, expr dst.Expr) {
	switch v := expr.(type) {
	case *dst.Ident:
		b.WriteString(v.Name)
	case *dst.StarExpr:
		b.WriteByte('*')
		writeExpr(b, v.X)
	case *dst.ParenExpr:
		b.WriteByte('(')
		writeExpr(b, v.X)
		b.WriteByte(')')
	case *dst.SelectorExpr:
		writeExpr(b, v.X)
		b.WriteByte('.')
		b.WriteString(v.Sel.Name)
	case *dst.IndexExpr:
		writeExpr(b, v.X)
		b.WriteByte('[')
		writeExpr(b, v.Index)
		b.WriteByte(']')
	case *dst.IndexListExpr:
		writeExpr(b, v.X)
		b.WriteByte('[')
		for i, index := range v.Indices {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, index)
		}
		b.WriteByte(']')
	case *dst.ArrayType:
		b.WriteByte('[')
		writeExpr(b, v.Len)
		b.WriteByte(']')
		writeExpr(b, v.Elt)
	case *dst.MapType:
		b.WriteString("map[")
		writeExpr(b, v.Key)
		b.WriteByte(']')
		writeExpr(b, v.Value)
	case *dst.BasicLit:
		b.WriteString(v.Value)
	case *dst.Ellipsis:
		b.WriteString("...")
		writeExpr(b, v.Elt)
	}
}

// ReceiverBase strips pointers and parentheses from a receiver type expression.
func ReceiverBase(expr dst.Expr) dst.Expr {
	for {
		switch v := expr.(type) {
		case *dst.StarExpr:
			expr = v.X
		case *dst.ParenExpr:
			expr = v.X
		default:
			return expr
		}
	}
}

// ReceiverTypeName returns the name of the type a receiver expression refers to,
// without pointers or type arguments.
func ReceiverTypeName(expr dst.Expr) string {
	switch v := ReceiverBase(expr).(type) {
	case *dst.Ident:
		return v.Name
	case *dst.IndexExpr:
		return ReceiverTypeName(v.X)
	case *dst.IndexListExpr:
		return ReceiverTypeName(v.X)
	}
	return ""
}

// PositionString returns the position of node as "file:line:column", or an empty string if it is unknown.
func PositionString(node dst.Node, pkg *decorator.Package) string {
	pos := Position(node, pkg)
	if pos == nil || !pos.IsValid() {
		return ""
	}
	return pos.String()
}
