package parser

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/lexer"
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func parseCodes(src string) []diagnostics.ErrorCode {
	p := New(lexer.Tokenize(src))
	p.ParseModule()
	var codes []diagnostics.ErrorCode
	for _, e := range p.Errors() {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestParseFunctionDef(t *testing.T) {
	mod, err := ParseString("dir/kernels.py", `import triton.language as tl

@triton.jit
def kernel(x, n: tl.constexpr, scale=2.5):
    return x
`)
	require.NoError(t, err)
	assert.Equal(t, "kernels", mod.Name)
	assert.Equal(t, "dir/kernels.py", mod.File)
	require.Len(t, mod.Statements, 2)

	imp := mod.Statements[0].(*ast.ImportStatement)
	assert.Equal(t, "triton.language", imp.Path)
	assert.Equal(t, "tl", imp.Alias.Value)

	fd := mod.Statements[1].(*ast.FunctionDef)
	assert.Equal(t, "kernel", fd.Name.Value)
	require.Len(t, fd.Decorators, 1)
	require.Len(t, fd.Parameters, 3)
	assert.Nil(t, fd.Parameters[0].Annotation)
	assert.NotNil(t, fd.Parameters[1].Annotation)
	assert.Equal(t, 2.5, fd.Parameters[2].Default.(*ast.FloatLiteral).Value)
	require.Len(t, fd.Body, 1)
	assert.IsType(t, &ast.ReturnStatement{}, fd.Body[0])
}

func TestParsePrecedence(t *testing.T) {
	mod, err := ParseString("p.py", "x = a + b * -c.d[0] < e and not f or g\n")
	require.NoError(t, err)
	value := mod.Statements[0].(*ast.AssignStatement).Value

	or := value.(*ast.InfixExpression)
	assert.Equal(t, "or", or.Operator)
	and := or.Left.(*ast.InfixExpression)
	assert.Equal(t, "and", and.Operator)
	assert.Equal(t, "not", and.Right.(*ast.PrefixExpression).Operator)

	lt := and.Left.(*ast.InfixExpression)
	assert.Equal(t, "<", lt.Operator)
	sum := lt.Left.(*ast.InfixExpression)
	assert.Equal(t, "+", sum.Operator)
	prod := sum.Right.(*ast.InfixExpression)
	assert.Equal(t, "*", prod.Operator)
	neg := prod.Right.(*ast.PrefixExpression)
	assert.IsType(t, &ast.IndexExpression{}, neg.Right)
}

func TestParseElifChain(t *testing.T) {
	mod, err := ParseString("c.py", "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
	require.NoError(t, err)
	outer := mod.Statements[0].(*ast.IfStatement)
	require.Len(t, outer.Alternative, 1)
	inner := outer.Alternative[0].(*ast.IfStatement)
	assert.Equal(t, "b", inner.Condition.(*ast.Identifier).Value)
	assert.Len(t, inner.Alternative, 1)
}

func TestParseAssignmentForms(t *testing.T) {
	mod, err := ParseString("a.py", "a, b = b, a\nself.x += 1\nv: tl.tensor\nt = (1,)\nf(a, k=2)\n")
	require.NoError(t, err)
	require.Len(t, mod.Statements, 5)

	swap := mod.Statements[0].(*ast.AssignStatement)
	assert.Len(t, swap.Target.(*ast.TupleLiteral).Elements, 2)
	assert.Len(t, swap.Value.(*ast.TupleLiteral).Elements, 2)

	aug := mod.Statements[1].(*ast.AugAssignStatement)
	assert.Equal(t, "+", aug.Operator)
	assert.IsType(t, &ast.AttributeExpression{}, aug.Target)

	decl := mod.Statements[2].(*ast.AssignStatement)
	assert.NotNil(t, decl.Annotation)
	assert.Nil(t, decl.Value)

	single := mod.Statements[3].(*ast.AssignStatement)
	assert.Len(t, single.Value.(*ast.TupleLiteral).Elements, 1)

	call := mod.Statements[4].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)
	assert.Len(t, call.Arguments, 1)
	require.Len(t, call.Keywords, 1)
	assert.Equal(t, "k", call.Keywords[0].Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diagnostics.ErrorCode
	}{
		{"illegal character", "x = $\n", diagnostics.ErrL001},
		{"unexpected indent", "x = 1\n    y = 2\n", diagnostics.ErrL002},
		{"missing operand", "x = = 1\n", diagnostics.ErrP001},
		{"from import", "from triton import jit\n", diagnostics.ErrP001},
		{"class bases", "class C(B):\n    pass\n", diagnostics.ErrP001},
		{"keyword order", "f(a=1, b)\n", diagnostics.ErrP001},
		{"literal target", "1 = x\n", diagnostics.ErrP002},
		{"chained assignment", "a = b = c\n", diagnostics.ErrP002},
		{"deep nesting", "x = " + strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300) + "\n", diagnostics.ErrP004},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, parseCodes(tt.src), tt.code)
		})
	}
}

func TestParseStringSetsErrorFile(t *testing.T) {
	_, err := ParseString("bad.py", "x = = 1\n")
	require.Error(t, err)
	var diag *diagnostics.DiagnosticError
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, "bad.py", diag.File)
}

func TestParserProcessor(t *testing.T) {
	ctx := pipeline.NewPipelineContext("x = 1\n")
	ctx.FilePath = "unit.py"
	ctx = (&ParserProcessor{}).Process(ctx)
	assert.Nil(t, ctx.AstRoot)
	require.Len(t, ctx.Errors, 1)

	ctx = pipeline.NewPipelineContext("x = 1\n")
	ctx.FilePath = "unit.py"
	ctx.TokenStream = lexer.Tokenize(ctx.SourceCode)
	ctx = (&ParserProcessor{}).Process(ctx)
	require.Empty(t, ctx.Errors)
	assert.Equal(t, "unit", ctx.AstRoot.Name)
}

func FuzzParse(f *testing.F) {
	f.Add("x = 1 + 2\n")
	f.Add("def f(a, b=1):\n    if a:\n        return b\n    return a\n")
	f.Add("@tl.aggregate\nclass P:\n    a: tl.tensor\n")
	f.Add("for i in range(0, 4):\n    x += i\n")
	f.Add("((((")
	f.Fuzz(func(t *testing.T, input string) {
		p := New(lexer.Tokenize(input))
		mod := p.ParseModule()
		if mod == nil {
			t.Fatal("ParseModule returned nil")
		}
	})
}
