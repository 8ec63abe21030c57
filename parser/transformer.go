package parser

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"
	"github.com/newrelic/go-easy-profiling/internal/codegen"
	"github.com/newrelic/go-easy-profiling/internal/util"
)

// Guard describes a guard inserted into the body of a function-like node.
type Guard struct {
	Name string
	Func dst.Node  // the *dst.FuncDecl or *dst.FuncLit that received the guard
	File *dst.File // the file containing Func
}

// Transformer folds one root node, inserting guards into every eligible function-like
// node below it. A Transformer is used for a single root and is not safe for concurrent use.
type Transformer struct {
	cfg     Config
	set     annotationSet
	index   *packageIndex
	file    *dst.File
	names   *nameStack
	visited map[dst.Node]bool
	guards  []Guard
}

func newTransformer(cfg Config, index *packageIndex, file *dst.File, seed []string) *Transformer {
	return &Transformer{
		cfg:     cfg,
		set:     cfg.annotations(),
		index:   index,
		file:    file,
		names:   newNameStack(seed),
		visited: map[dst.Node]bool{},
	}
}

// foldRoot instruments a node carrying the entry directive. The directive of the root
// itself does not exclude it.
func (t *Transformer) foldRoot(r root) error {
	switch r.kind {
	case KindModule:
		return t.foldFile(r.node.(*dst.File))
	case KindTrait:
		return t.foldTrait(r.node.(*dst.TypeSpec), nil, true)
	case KindImpl:
		return t.foldImpl(r.node.(*dst.TypeSpec))
	case KindImplMethod, KindFreeFunction:
		return t.foldFunction(r.fn, true)
	case KindTraitMethod, KindMacroInvocation, KindOther:
		return nil
	}
	return fmt.Errorf("unknown root kind %s", r.kind)
}

func (t *Transformer) foldFile(file *dst.File) error {
	t.names.push(file.Name.Name)
	defer t.names.pop()

	decls := make([]dst.Decl, 0, len(file.Decls))
	for _, decl := range file.Decls {
		folded, err := t.foldDecl(decl)
		if err != nil {
			return err
		}
		decls = append(decls, folded...)
	}
	file.Decls = decls
	return nil
}

// foldDecl folds a top level declaration. Opaque declarations may expand into several.
func (t *Transformer) foldDecl(decl dst.Decl) ([]dst.Decl, error) {
	switch classify(decl) {
	case KindMacroInvocation:
		return t.expandDecl(decl)
	case KindImplMethod:
		return []dst.Decl{decl}, t.foldMethod(decl.(*dst.FuncDecl))
	case KindFreeFunction:
		return []dst.Decl{decl}, t.foldFunction(declFunction(decl.(*dst.FuncDecl)), false)
	}

	gen, ok := decl.(*dst.GenDecl)
	if !ok {
		return []dst.Decl{decl}, nil
	}

	switch gen.Tok {
	case token.TYPE:
		for _, spec := range gen.Specs {
			typeSpec, ok := spec.(*dst.TypeSpec)
			if !ok || classify(typeSpec) != KindTrait {
				continue
			}
			annotations := parseAnnotations(gen.Decs.Start, typeSpec.Decs.Start)
			if err := t.foldTrait(typeSpec, annotations, false); err != nil {
				return nil, err
			}
		}
	case token.VAR:
		if _, err := t.walk(gen); err != nil {
			return nil, err
		}
	}
	return []dst.Decl{decl}, nil
}

// foldTrait visits an interface type. Interface methods never carry bodies, so the
// only effect is the scope it opens.
func (t *Transformer) foldTrait(spec *dst.TypeSpec, annotations []Annotation, root bool) error {
	if !root && t.set.excluded(annotations) {
		return nil
	}

	// interface methods have no bodies to guard
	t.names.push(spec.Name.Name)
	t.names.pop()
	return nil
}

// foldImpl instruments every method of the named type, across all files of the package.
func (t *Transformer) foldImpl(spec *dst.TypeSpec) error {
	file := t.file
	defer func() { t.file = file }()

	for _, method := range t.index.methods[spec.Name.Name] {
		t.file = t.index.fileOf[method]
		if err := t.foldImplMethod(method); err != nil {
			return err
		}
	}
	return nil
}

// foldMethod folds a method declaration found in a module. Methods of types carrying the
// entry or opt-out directive are left to the root of the type or skipped entirely.
func (t *Transformer) foldMethod(decl *dst.FuncDecl) error {
	typeName := util.ReceiverTypeName(decl.Recv.List[0].Type)
	if t.index.facts.Excludes(typeName) {
		return nil
	}
	return t.foldImplMethod(decl)
}

func (t *Transformer) foldImplMethod(decl *dst.FuncDecl) error {
	t.names.push(t.index.implDescriptor(decl))
	defer t.names.pop()

	return t.foldFunction(declFunction(decl), false)
}

// foldFunction inserts a guard named after the current scope into a function-like node,
// after folding the function-like nodes nested in its body.
func (t *Transformer) foldFunction(fn function, root bool) error {
	if !root && t.set.excluded(fn.annotations) {
		return nil
	}
	if fn.body == nil {
		return nil
	}
	if t.set.isRestricted(fn.annotations) {
		_, err := t.walk(fn.body)
		return err
	}

	t.names.push(fn.name)
	defer t.names.pop()
	name := t.names.current()

	guarded := len(fn.body.List) > 0 && codegen.IsGuardStatement(fn.body.List[0], t.cfg.Runtime)
	if _, err := t.walk(fn.body); err != nil {
		return err
	}
	if guarded {
		return nil
	}

	if codegen.InsertGuard(t.cfg.Discipline, t.cfg.Runtime, name, fn.typ, fn.body) {
		t.guards = append(t.guards, Guard{Name: name, Func: fn.node, File: t.file})
	}
	return nil
}

// walk visits node and its descendants looking for named function literals and
// opaque nodes. Anonymous function literals are walked like any other node.
func (t *Transformer) walk(node dst.Node) (dst.Node, error) {
	var err error
	result := dstutil.Apply(node, func(c *dstutil.Cursor) bool {
		n := c.Node()
		if err != nil || n == nil || t.visited[n] {
			return false
		}

		switch v := n.(type) {
		case *dst.AssignStmt, *dst.GenDecl:
			for _, fn := range classifyBinding(v) {
				t.visited[fn.node] = true
				if err = t.foldFunction(fn, false); err != nil {
					return false
				}
			}
		case *dst.BadStmt:
			err = t.spliceStmts(c, v)
			return false
		case *dst.BadExpr:
			err = t.spliceExpr(c, v)
			return false
		case *dst.BadDecl:
			err = t.spliceDecl(c, v)
			return false
		}
		return true
	}, nil)
	return result, err
}

// expand asks the expander for the nodes an opaque node stands for.
// ok is false when the node must be left exactly as it is.
func (t *Transformer) expand(node dst.Node) (nodes []dst.Node, ok bool, err error) {
	if t.visited[node] {
		return nil, false, nil
	}
	t.visited[node] = true

	nodes, err = t.cfg.expander().Expand(node)
	if errors.Is(err, ErrExpansionUnavailable) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return nodes, true, nil
}

func (t *Transformer) expandDecl(decl dst.Decl) ([]dst.Decl, error) {
	nodes, ok, err := t.expand(decl)
	if err != nil || !ok {
		return []dst.Decl{decl}, err
	}

	var decls []dst.Decl
	for _, node := range nodes {
		expanded, ok := node.(dst.Decl)
		if !ok {
			return nil, fmt.Errorf("expansion produced %T where a declaration is expected", node)
		}
		folded, err := t.foldDecl(expanded)
		if err != nil {
			return nil, err
		}
		decls = append(decls, folded...)
	}
	return decls, nil
}

func (t *Transformer) expandStmt(stmt dst.Stmt) ([]dst.Stmt, error) {
	nodes, ok, err := t.expand(stmt)
	if err != nil || !ok {
		return []dst.Stmt{stmt}, err
	}

	var stmts []dst.Stmt
	for _, node := range nodes {
		expanded, ok := node.(dst.Stmt)
		if !ok {
			return nil, fmt.Errorf("expansion produced %T where a statement is expected", node)
		}
		if classify(expanded) == KindMacroInvocation {
			nested, err := t.expandStmt(expanded)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, nested...)
			continue
		}
		folded, err := t.walk(expanded)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, folded.(dst.Stmt))
	}
	return stmts, nil
}

func (t *Transformer) expandExpr(expr dst.Expr) (dst.Expr, error) {
	nodes, ok, err := t.expand(expr)
	if err != nil || !ok {
		return expr, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expansion produced %d nodes where one expression is expected", len(nodes))
	}
	expanded, ok := nodes[0].(dst.Expr)
	if !ok {
		return nil, fmt.Errorf("expansion produced %T where an expression is expected", nodes[0])
	}
	folded, err := t.walk(expanded)
	if err != nil {
		return nil, err
	}
	return folded.(dst.Expr), nil
}

// spliceStmts replaces an opaque statement with its expansion. Inside a statement list the
// expansion is spliced into the list; anywhere else it is wrapped in a block.
func (t *Transformer) spliceStmts(c *dstutil.Cursor, stmt *dst.BadStmt) error {
	stmts, err := t.expandStmt(stmt)
	if err != nil {
		return err
	}
	if len(stmts) == 1 && stmts[0] == dst.Stmt(stmt) {
		return nil
	}

	if c.Index() < 0 {
		if len(stmts) == 1 {
			c.Replace(stmts[0])
		} else {
			c.Replace(&dst.BlockStmt{List: stmts})
		}
		return nil
	}

	if len(stmts) == 0 {
		c.Delete()
		return nil
	}
	for i := len(stmts) - 1; i > 0; i-- {
		c.InsertAfter(stmts[i])
	}
	c.Replace(stmts[0])
	return nil
}

func (t *Transformer) spliceExpr(c *dstutil.Cursor, expr *dst.BadExpr) error {
	expanded, err := t.expandExpr(expr)
	if err != nil {
		return err
	}
	if expanded != dst.Expr(expr) {
		c.Replace(expanded)
	}
	return nil
}

// spliceDecl replaces an opaque declaration inside a function body. Only a single
// declaration fits there.
func (t *Transformer) spliceDecl(c *dstutil.Cursor, decl *dst.BadDecl) error {
	decls, err := t.expandDecl(decl)
	if err != nil {
		return err
	}
	if len(decls) == 1 && decls[0] == dst.Decl(decl) {
		return nil
	}
	if len(decls) != 1 {
		return fmt.Errorf("expansion produced %d declarations where one is expected", len(decls))
	}
	c.Replace(decls[0])
	return nil
}

