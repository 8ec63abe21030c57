package parser

import (
	"go/token"
	"testing"

	"github.com/dave/dst"
	"github.com/stretchr/testify/assert"
)

func Test_classify(t *testing.T) {
	tests := []struct {
		name string
		node dst.Node
		want Kind
	}{
		{name: "file", node: &dst.File{Name: dst.NewIdent("app")}, want: KindModule},
		{name: "interface", node: &dst.TypeSpec{Name: dst.NewIdent("I"), Type: &dst.InterfaceType{Methods: &dst.FieldList{}}}, want: KindTrait},
		{name: "struct", node: &dst.TypeSpec{Name: dst.NewIdent("T"), Type: &dst.StructType{Fields: &dst.FieldList{}}}, want: KindImpl},
		{name: "interface method", node: &dst.Field{Names: []*dst.Ident{dst.NewIdent("M")}, Type: &dst.FuncType{}}, want: KindTraitMethod},
		{name: "embedded interface", node: &dst.Field{Type: dst.NewIdent("io.Reader")}, want: KindOther},
		{
			name: "method",
			node: &dst.FuncDecl{
				Recv: &dst.FieldList{List: []*dst.Field{{Type: dst.NewIdent("T")}}},
				Name: dst.NewIdent("m"),
				Type: &dst.FuncType{},
			},
			want: KindImplMethod,
		},
		{name: "function", node: &dst.FuncDecl{Name: dst.NewIdent("f"), Type: &dst.FuncType{}}, want: KindFreeFunction},
		{name: "bad declaration", node: &dst.BadDecl{}, want: KindMacroInvocation},
		{name: "bad statement", node: &dst.BadStmt{}, want: KindMacroInvocation},
		{name: "bad expression", node: &dst.BadExpr{}, want: KindMacroInvocation},
		{name: "function literal", node: &dst.FuncLit{}, want: KindOther},
		{name: "statement", node: &dst.ReturnStmt{}, want: KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.node))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "FreeFunction", KindFreeFunction.String())
	assert.Equal(t, "MacroInvocation", KindMacroInvocation.String())
	assert.Equal(t, "Unknown", Kind(100).String())
}

func Test_classifyBinding(t *testing.T) {
	lit := func() *dst.FuncLit {
		return &dst.FuncLit{Type: &dst.FuncType{}, Body: &dst.BlockStmt{}}
	}

	define := &dst.AssignStmt{
		Lhs: []dst.Expr{dst.NewIdent("f"), dst.NewIdent("_"), &dst.SelectorExpr{X: dst.NewIdent("s"), Sel: dst.NewIdent("g")}, dst.NewIdent("n")},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{lit(), lit(), lit(), &dst.BasicLit{Kind: token.INT, Value: "1"}},
	}
	define.Decs.Start = dst.Decorations{"//noflame"}

	got := classifyBinding(define)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "f", got[0].name)
		assert.Same(t, define.Rhs[0], got[0].node)
		assert.Equal(t, []Annotation{{Name: "noflame"}}, got[0].annotations)
	}

	multi := &dst.AssignStmt{
		Lhs: []dst.Expr{dst.NewIdent("a"), dst.NewIdent("b")},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{&dst.CallExpr{Fun: dst.NewIdent("pair")}},
	}
	assert.Empty(t, classifyBinding(multi))

	varDecl := &dst.GenDecl{
		Tok: token.VAR,
		Specs: []dst.Spec{
			&dst.ValueSpec{Names: []*dst.Ident{dst.NewIdent("h")}, Values: []dst.Expr{lit()}},
			&dst.ValueSpec{Names: []*dst.Ident{dst.NewIdent("x")}, Type: dst.NewIdent("int")},
		},
	}
	got = classifyBinding(varDecl)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "h", got[0].name)
	}

	constDecl := &dst.GenDecl{Tok: token.CONST}
	assert.Empty(t, classifyBinding(constDecl))
}
