package parser

import (
	"errors"

	"github.com/dave/dst"
)

// ErrExpansionUnavailable is returned by an Expander that can not expand a node.
// The node is then left exactly as it is.
var ErrExpansionUnavailable = errors.New("expansion unavailable")

// Expander turns an opaque node (a *dst.BadDecl, *dst.BadStmt or *dst.BadExpr) into the nodes it stands for.
// Declarations may expand into any number of declarations, statements into any number of
// statements, and expressions into exactly one expression.
type Expander interface {
	Expand(node dst.Node) ([]dst.Node, error)
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(node dst.Node) ([]dst.Node, error)

func (f ExpanderFunc) Expand(node dst.Node) ([]dst.Node, error) {
	return f(node)
}

// NoExpansion never expands anything. Go source has no expansion stage, so this is the default.
type NoExpansion struct{}

func (NoExpansion) Expand(dst.Node) ([]dst.Node, error) {
	return nil, ErrExpansionUnavailable
}
