package codegen

import (
	"fmt"
	"go/token"
	"strconv"

	"github.com/dave/dst"
	"github.com/newrelic/go-easy-profiling/internal/util"
)

// GuardCall creates a call to the runtime guard constructor with a string literal name:
//
//	flame.StartGuard("name")
func GuardCall(rt Runtime, name string) *dst.CallExpr {
	return &dst.CallExpr{
		Fun: &dst.Ident{
			Name: rt.StartFunc,
			Path: rt.ImportPath,
		},
		Args: []dst.Expr{
			&dst.BasicLit{
				Kind:  token.STRING,
				Value: strconv.Quote(name),
			},
		},
	}
}

// DeferGuard creates a statement that opens a guard and defers its end:
//
//	defer flame.StartGuard("name").End()
func DeferGuard(rt Runtime, name string) *dst.DeferStmt {
	return &dst.DeferStmt{
		Call: &dst.CallExpr{
			Fun: &dst.SelectorExpr{
				X:   GuardCall(rt, name),
				Sel: dst.NewIdent(rt.EndMethod),
			},
		},
		Decs: dst.DeferStmtDecorations{
			NodeDecs: dst.NodeDecs{
				After: dst.EmptyLine,
			},
		},
	}
}

// StartGuard creates a statement that binds a new guard to guardVariable:
//
//	flameGuard := flame.StartGuard("name")
func StartGuard(rt Runtime, name, guardVariable string) *dst.AssignStmt {
	return &dst.AssignStmt{
		Lhs: []dst.Expr{
			dst.NewIdent(guardVariable),
		},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{
			GuardCall(rt, name),
		},
	}
}

// EndGuard creates a statement that ends the guard stored in guardVariable:
//
//	flameGuard.End()
func EndGuard(rt Runtime, guardVariable string) *dst.ExprStmt {
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun: &dst.SelectorExpr{
				X:   dst.NewIdent(guardVariable),
				Sel: dst.NewIdent(rt.EndMethod),
			},
		},
	}
}

// InsertGuard splices a guard named name into body under discipline d.
// typ is the signature the body belongs to; it is only modified by the explicit
// discipline, which may need to name blank results. Returns false if there is no body.
func InsertGuard(d Discipline, rt Runtime, name string, typ *dst.FuncType, body *dst.BlockStmt) bool {
	if body == nil {
		return false
	}

	switch d {
	case ExplicitEnd:
		WrapBodyExplicit(rt, name, DefaultGuardVariable, typ, body)
	default:
		PrependStatementToBody(body, DeferGuard(rt, name))
	}
	return true
}

// WrapBodyExplicit rewrites body so that the original statements run inside an
// immediately invoked closure, the guard is ended once the closure returns, and
// the captured results are returned afterwards:
//
//	flameGuard := flame.StartGuard("name")
//	flameResult0, flameResult1 := func() (int, error) {
//		<original body>
//	}()
//	flameGuard.End()
//	return flameResult0, flameResult1
//
// Functions with named results assign to them and use a bare return. Blank
// result names in typ are replaced so that they can be assigned. The guard and
// result locals never reuse a name spelled in typ or body: a numeric suffix is
// added until they are unique.
func WrapBodyExplicit(rt Runtime, name, guardVariable string, typ *dst.FuncType, body *dst.BlockStmt) {
	used := scopeNames(typ, body)
	guardVariable = uniqueName(used, guardVariable)

	var results *dst.FieldList
	if typ != nil && typ.Results != nil && len(typ.Results.List) > 0 {
		results = typ.Results
	}

	closure := &dst.CallExpr{
		Fun: &dst.FuncLit{
			Type: &dst.FuncType{
				Func:    true,
				Params:  &dst.FieldList{Opening: true, Closing: true},
				Results: cloneFieldList(results),
			},
			Body: &dst.BlockStmt{
				List: body.List,
			},
		},
	}

	start := StartGuard(rt, name, guardVariable)
	end := EndGuard(rt, guardVariable)
	stmts := []dst.Stmt{start}

	switch {
	case results == nil:
		stmts = append(stmts, &dst.ExprStmt{X: closure}, end)
	case len(results.List[0].Names) > 0:
		captured := nameResults(results, used)
		stmts = append(stmts,
			&dst.AssignStmt{Lhs: captured, Tok: token.ASSIGN, Rhs: []dst.Expr{closure}},
			end,
			&dst.ReturnStmt{},
		)
	default:
		captured := resultVariables(results.NumFields(), used)
		returned := make([]dst.Expr, len(captured))
		for i, v := range captured {
			returned[i] = dst.Clone(v).(dst.Expr)
		}
		stmts = append(stmts,
			&dst.AssignStmt{Lhs: captured, Tok: token.DEFINE, Rhs: []dst.Expr{closure}},
			end,
			&dst.ReturnStmt{Results: returned},
		)
	}

	CreateStatementBlock(false, start)
	for _, stmt := range stmts[1:] {
		decs := stmt.Decorations()
		decs.Before = dst.NewLine
		decs.After = dst.NewLine
	}
	body.List = stmts
}

// IsGuardStatement returns true if stmt is a guard statement created for rt by
// either discipline. Both resolved identifiers and plain selector expressions
// on the runtime package name are recognized.
func IsGuardStatement(stmt dst.Stmt, rt Runtime) bool {
	switch v := stmt.(type) {
	case *dst.DeferStmt:
		sel, ok := v.Call.Fun.(*dst.SelectorExpr)
		if !ok || sel.Sel.Name != rt.EndMethod {
			return false
		}
		call, ok := sel.X.(*dst.CallExpr)
		return ok && isGuardCall(call, rt)
	case *dst.AssignStmt:
		if len(v.Rhs) != 1 {
			return false
		}
		call, ok := v.Rhs[0].(*dst.CallExpr)
		return ok && isGuardCall(call, rt)
	}
	return false
}

func isGuardCall(call *dst.CallExpr, rt Runtime) bool {
	if len(call.Args) != 1 {
		return false
	}

	switch fun := call.Fun.(type) {
	case *dst.Ident:
		return util.SameExpr(fun, &dst.Ident{Name: rt.StartFunc, Path: rt.ImportPath})
	case *dst.SelectorExpr:
		want := &dst.SelectorExpr{
			X:   dst.NewIdent(rt.PackageName()),
			Sel: dst.NewIdent(rt.StartFunc),
		}
		return util.SameExpr(fun, want)
	}
	return false
}

func cloneFieldList(fields *dst.FieldList) *dst.FieldList {
	if fields == nil {
		return nil
	}
	return dst.Clone(fields).(*dst.FieldList)
}

// scopeNames returns every identifier name spelled in typ and body.
func scopeNames(typ *dst.FuncType, body *dst.BlockStmt) map[string]bool {
	used := map[string]bool{}
	collect := func(n dst.Node) bool {
		if ident, ok := n.(*dst.Ident); ok {
			used[ident.Name] = true
		}
		return true
	}
	if typ != nil {
		dst.Inspect(typ, collect)
	}
	if body != nil {
		dst.Inspect(body, collect)
	}
	return used
}

// uniqueName returns base, or base with the smallest numeric suffix that is not in used,
// and records the result in used.
func uniqueName(used map[string]bool, base string) string {
	name := base
	for i := 1; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	used[name] = true
	return name
}

// nameResults returns identifiers for every named result, naming blank results along the way.
func nameResults(results *dst.FieldList, used map[string]bool) []dst.Expr {
	var idents []dst.Expr
	i := 0
	for _, field := range results.List {
		for j, name := range field.Names {
			if name.Name == "_" {
				field.Names[j] = dst.NewIdent(uniqueName(used, fmt.Sprintf("%s%d", resultVariablePrefix, i)))
			}
			idents = append(idents, dst.NewIdent(field.Names[j].Name))
			i++
		}
	}
	return idents
}

func resultVariables(n int, used map[string]bool) []dst.Expr {
	idents := make([]dst.Expr, n)
	for i := range idents {
		idents[i] = dst.NewIdent(uniqueName(used, fmt.Sprintf("%s%d", resultVariablePrefix, i)))
	}
	return idents
}
