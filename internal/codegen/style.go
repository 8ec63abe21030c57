package codegen

import (
	"slices"

	"github.com/dave/dst"
)

// PrependStatementToBody inserts stmt as the first statement of body.
func PrependStatementToBody(body *dst.BlockStmt, stmt dst.Stmt) {
	if body == nil {
		return
	}

	body.List = slices.Insert(body.List, 0, stmt)
}

// CreateStatementBlock modifies the formatting of a set of statements to
// all be on separate lines, without any additional spacing between them.
//
// White space is always added after the block.
//
// If spacingBefore == true, an emptyline is added before the block.
func CreateStatementBlock(spacingBefore bool, stmts ...dst.Stmt) {
	for i, stmt := range stmts {
		stmtDecs := stmt.Decorations()
		stmtDecs.Before = dst.NewLine
		stmtDecs.After = dst.NewLine

		if i == len(stmts)-1 {
			stmtDecs.After = dst.EmptyLine
		}
		if spacingBefore && i == 0 {
			stmtDecs.Before = dst.EmptyLine
		}
	}
}
