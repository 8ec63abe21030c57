package util

import (
	"reflect"

	"github.com/dave/dst"
)

// SameExpr reports whether a and b spell the same expression, ignoring decorations.
// Identifiers match only when both their names and their resolved import paths match.
// Function literals and composite expressions not listed below never match.
func SameExpr(a, b dst.Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	switch a := a.(type) {
	case *dst.Ident:
		b := b.(*dst.Ident)
		return a.Name == b.Name && a.Path == b.Path
	case *dst.BasicLit:
		b := b.(*dst.BasicLit)
		return a.Kind == b.Kind && a.Value == b.Value
	case *dst.SelectorExpr:
		b := b.(*dst.SelectorExpr)
		return SameExpr(a.X, b.X) && SameExpr(a.Sel, b.Sel)
	case *dst.CallExpr:
		b := b.(*dst.CallExpr)
		return SameExpr(a.Fun, b.Fun) && a.Ellipsis == b.Ellipsis && sameExprs(a.Args, b.Args)
	case *dst.StarExpr:
		b := b.(*dst.StarExpr)
		return SameExpr(a.X, b.X)
	case *dst.ParenExpr:
		b := b.(*dst.ParenExpr)
		return SameExpr(a.X, b.X)
	case *dst.UnaryExpr:
		b := b.(*dst.UnaryExpr)
		return a.Op == b.Op && SameExpr(a.X, b.X)
	case *dst.BinaryExpr:
		b := b.(*dst.BinaryExpr)
		return a.Op == b.Op && SameExpr(a.X, b.X) && SameExpr(a.Y, b.Y)
	case *dst.IndexExpr:
		b := b.(*dst.IndexExpr)
		return SameExpr(a.X, b.X) && SameExpr(a.Index, b.Index)
	case *dst.IndexListExpr:
		b := b.(*dst.IndexListExpr)
		return SameExpr(a.X, b.X) && sameExprs(a.Indices, b.Indices)
	}
	return false
}

func sameExprs(a, b []dst.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !SameExpr(a[i], b[i]) {
			return false
		}
	}
	return true
}
