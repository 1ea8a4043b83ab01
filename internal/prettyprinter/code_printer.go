package prettyprinter

import (
	"bytes"
	"github.com/funvibe/kerntrace/internal/ast"
	"strconv"
	"strings"
)

// --- Code Printer (Output looks like source code) ---

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[string]int{
	"or":  1,
	"and": 2,
	"not": 3,
	"==":  4,
	"!=":  4,
	"<":   4,
	">":   4,
	"<=":  4,
	">=":  4,
	"+":   5,
	"-":   5,
	"*":   6,
	"/":   6,
	"//":  6,
	"%":   6,
}

const (
	precLowest  = 0
	precUnary   = 7 // unary minus
	precPostfix = 8 // attribute, index and call
)

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return precPostfix
}

// CodePrinter renders a tree back to kernel source. Output parses to an
// equivalent tree.
type CodePrinter struct {
	buf    bytes.Buffer
	indent int

	// context of the expression being visited
	parentPrec int
	isRight    bool
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Print renders node, which may be a module, statement or expression.
func Print(node ast.Node) string {
	p := NewCodePrinter()
	if e, ok := node.(ast.Expression); ok {
		p.printExpr(e, precLowest, false)
	} else {
		node.Accept(p)
	}
	return strings.TrimRight(p.String(), "\n")
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func (p *CodePrinter) line(s string) {
	p.writeIndent()
	p.write(s)
	p.write("\n")
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	savedPrec, savedRight := p.parentPrec, p.isRight
	p.parentPrec, p.isRight = parentPrec, isRight
	expr.Accept(p)
	p.parentPrec, p.isRight = savedPrec, savedRight
}

func (p *CodePrinter) exprString(e ast.Expression) string {
	sub := &CodePrinter{}
	sub.printExpr(e, precLowest, false)
	return sub.String()
}

// bare prints a top-level tuple without parentheses, as in `a, b = b, a`.
func (p *CodePrinter) bare(e ast.Expression) {
	if t, ok := e.(*ast.TupleLiteral); ok && len(t.Elements) > 1 {
		p.printList(t.Elements)
		return
	}
	p.printExpr(e, precLowest, false)
}

func (p *CodePrinter) printList(exprs []ast.Expression) {
	for i, e := range exprs {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(e, precLowest, false)
	}
}

func (p *CodePrinter) block(b ast.Block) {
	p.indent++
	if len(b) == 0 {
		p.line("pass")
	}
	for _, s := range b {
		s.Accept(p)
	}
	p.indent--
}

func (p *CodePrinter) decorators(decs []ast.Expression) {
	for _, d := range decs {
		p.line("@" + p.exprString(d))
	}
}

// --- Statements ---

func (p *CodePrinter) VisitModule(m *ast.Module) {
	for i, s := range m.Statements {
		switch s.(type) {
		case *ast.FunctionDef, *ast.ClassDef:
			if i > 0 {
				p.write("\n\n")
			}
		}
		s.Accept(p)
	}
}

func (p *CodePrinter) VisitImportStatement(s *ast.ImportStatement) {
	if s.Alias != nil {
		p.line("import " + s.Path + " as " + s.Alias.Value)
		return
	}
	p.line("import " + s.Path)
}

func (p *CodePrinter) VisitFunctionDef(fd *ast.FunctionDef) {
	p.decorators(fd.Decorators)
	params := make([]string, len(fd.Parameters))
	for i, param := range fd.Parameters {
		var sb strings.Builder
		sb.WriteString(param.Name)
		if param.Annotation != nil {
			sb.WriteString(": " + p.exprString(param.Annotation))
		}
		if param.Default != nil {
			if param.Annotation != nil {
				sb.WriteString(" = ")
			} else {
				sb.WriteString("=")
			}
			sb.WriteString(p.exprString(param.Default))
		}
		params[i] = sb.String()
	}
	p.line("def " + fd.Name.Value + "(" + strings.Join(params, ", ") + "):")
	p.block(fd.Body)
}

func (p *CodePrinter) VisitClassDef(cd *ast.ClassDef) {
	p.decorators(cd.Decorators)
	p.line("class " + cd.Name.Value + ":")
	p.indent++
	if len(cd.Body) == 0 {
		p.line("pass")
	}
	for i, s := range cd.Body {
		if _, ok := s.(*ast.FunctionDef); ok && i > 0 {
			p.write("\n")
		}
		s.Accept(p)
	}
	p.indent--
}

func (p *CodePrinter) VisitAssignStatement(s *ast.AssignStatement) {
	p.writeIndent()
	p.bare(s.Target)
	if s.Annotation != nil {
		p.write(": ")
		p.printExpr(s.Annotation, precLowest, false)
	}
	if s.Value != nil {
		p.write(" = ")
		p.bare(s.Value)
	}
	p.write("\n")
}

func (p *CodePrinter) VisitAugAssignStatement(s *ast.AugAssignStatement) {
	p.writeIndent()
	p.printExpr(s.Target, precLowest, false)
	p.write(" " + s.Operator + "= ")
	p.printExpr(s.Value, precLowest, false)
	p.write("\n")
}

func (p *CodePrinter) VisitExpressionStatement(s *ast.ExpressionStatement) {
	p.writeIndent()
	p.bare(s.Expression)
	p.write("\n")
}

func (p *CodePrinter) VisitIfStatement(s *ast.IfStatement) {
	p.line("if " + p.exprString(s.Condition) + ":")
	p.block(s.Consequence)
	alt := s.Alternative
	for len(alt) == 1 {
		elif, ok := alt[0].(*ast.IfStatement)
		if !ok {
			break
		}
		p.line("elif " + p.exprString(elif.Condition) + ":")
		p.block(elif.Consequence)
		alt = elif.Alternative
	}
	if len(alt) > 0 {
		p.line("else:")
		p.block(alt)
	}
}

func (p *CodePrinter) VisitForStatement(s *ast.ForStatement) {
	p.line("for " + s.Target.Value + " in " + p.exprString(s.Iterable) + ":")
	p.block(s.Body)
}

func (p *CodePrinter) VisitWhileStatement(s *ast.WhileStatement) {
	p.line("while " + p.exprString(s.Condition) + ":")
	p.block(s.Body)
}

func (p *CodePrinter) VisitReturnStatement(s *ast.ReturnStatement) {
	p.writeIndent()
	p.write("return")
	if s.Value != nil {
		p.write(" ")
		p.bare(s.Value)
	}
	p.write("\n")
}

func (p *CodePrinter) VisitPassStatement(s *ast.PassStatement) {
	p.line("pass")
}

// --- Expressions ---

func (p *CodePrinter) VisitIdentifier(e *ast.Identifier) {
	p.write(e.Value)
}

func (p *CodePrinter) VisitIntegerLiteral(e *ast.IntegerLiteral) {
	p.write(strconv.FormatInt(e.Value, 10))
}

func (p *CodePrinter) VisitFloatLiteral(e *ast.FloatLiteral) {
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	p.write(s)
}

func (p *CodePrinter) VisitBooleanLiteral(e *ast.BooleanLiteral) {
	if e.Value {
		p.write("True")
	} else {
		p.write("False")
	}
}

func (p *CodePrinter) VisitNoneLiteral(e *ast.NoneLiteral) {
	p.write("None")
}

func (p *CodePrinter) VisitStringLiteral(e *ast.StringLiteral) {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range e.Value {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\', '\'':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	p.write(sb.String())
}

func (p *CodePrinter) VisitTupleLiteral(e *ast.TupleLiteral) {
	p.write("(")
	p.printList(e.Elements)
	if len(e.Elements) == 1 {
		p.write(",")
	}
	p.write(")")
}

func (p *CodePrinter) VisitListLiteral(e *ast.ListLiteral) {
	p.write("[")
	p.printList(e.Elements)
	p.write("]")
}

func (p *CodePrinter) VisitAttributeExpression(e *ast.AttributeExpression) {
	p.printExpr(e.Object, precPostfix, false)
	p.write("." + e.Name.Value)
}

func (p *CodePrinter) VisitIndexExpression(e *ast.IndexExpression) {
	p.printExpr(e.Left, precPostfix, false)
	p.write("[")
	p.bare(e.Index)
	p.write("]")
}

func (p *CodePrinter) VisitCallExpression(e *ast.CallExpression) {
	p.printExpr(e.Function, precPostfix, false)
	p.write("(")
	p.printList(e.Arguments)
	for i, kw := range e.Keywords {
		if i > 0 || len(e.Arguments) > 0 {
			p.write(", ")
		}
		p.write(kw.Name + "=")
		p.printExpr(kw.Value, precLowest, false)
	}
	p.write(")")
}

func (p *CodePrinter) VisitInfixExpression(e *ast.InfixExpression) {
	prec := getPrecedence(e.Operator)
	// Every binary operator is left-associative; comparisons do not chain.
	needParens := prec < p.parentPrec || (prec == p.parentPrec && (p.isRight || prec == operatorPrecedence["=="]))
	if needParens {
		p.write("(")
	}
	p.printExpr(e.Left, prec, false)
	p.write(" " + e.Operator + " ")
	p.printExpr(e.Right, prec, true)
	if needParens {
		p.write(")")
	}
}

func (p *CodePrinter) VisitPrefixExpression(e *ast.PrefixExpression) {
	prec := precUnary
	if e.Operator == "not" {
		prec = operatorPrecedence["not"]
	}
	needParens := prec < p.parentPrec
	if needParens {
		p.write("(")
	}
	if e.Operator == "not" {
		p.write("not ")
	} else {
		p.write(e.Operator)
	}
	p.printExpr(e.Right, prec, true)
	if needParens {
		p.write(")")
	}
}
