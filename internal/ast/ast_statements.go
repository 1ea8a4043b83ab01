package ast

import "github.com/funvibe/kerntrace/internal/token"

// ImportStatement represents `import a.b [as c]`.
type ImportStatement struct {
	Token token.Token // The 'import' token
	Path  string      // Dotted module path
	Alias *Identifier // Optional
}

func (is *ImportStatement) Accept(v Visitor)      { v.VisitImportStatement(is) }
func (is *ImportStatement) statementNode()        {}
func (is *ImportStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *ImportStatement) GetToken() token.Token { return is.Token }

// BoundName returns the name the import introduces in the module scope.
func (is *ImportStatement) BoundName() string {
	if is.Alias != nil {
		return is.Alias.Value
	}
	for i := 0; i < len(is.Path); i++ {
		if is.Path[i] == '.' {
			return is.Path[:i]
		}
	}
	return is.Path
}

// Parameter is a function parameter: name [: annotation] [= default].
type Parameter struct {
	Token      token.Token
	Name       string
	Annotation Expression // Optional
	Default    Expression // Optional
}

// FunctionDef represents a (possibly decorated) def.
type FunctionDef struct {
	Token      token.Token // The 'def' token
	Name       *Identifier
	Decorators []Expression
	Parameters []*Parameter
	Body       Block
}

func (fd *FunctionDef) Accept(v Visitor)      { v.VisitFunctionDef(fd) }
func (fd *FunctionDef) statementNode()        {}
func (fd *FunctionDef) TokenLiteral() string  { return fd.Token.Lexeme }
func (fd *FunctionDef) GetToken() token.Token { return fd.Token }

// ClassDef represents a (possibly decorated) class.
// Field declarations are AssignStatements with a nil Value.
type ClassDef struct {
	Token      token.Token // The 'class' token
	Name       *Identifier
	Decorators []Expression
	Body       Block
}

func (cd *ClassDef) Accept(v Visitor)      { v.VisitClassDef(cd) }
func (cd *ClassDef) statementNode()        {}
func (cd *ClassDef) TokenLiteral() string  { return cd.Token.Lexeme }
func (cd *ClassDef) GetToken() token.Token { return cd.Token }

// AssignStatement represents target [: annotation] [= value].
// Target is an Identifier, AttributeExpression, IndexExpression or TupleLiteral.
type AssignStatement struct {
	Token      token.Token // The '=' or ':' token
	Target     Expression
	Annotation Expression // Optional
	Value      Expression // nil for bare declarations (class fields)
}

func (as *AssignStatement) Accept(v Visitor)      { v.VisitAssignStatement(as) }
func (as *AssignStatement) statementNode()        {}
func (as *AssignStatement) TokenLiteral() string  { return as.Token.Lexeme }
func (as *AssignStatement) GetToken() token.Token { return as.Token }

// AugAssignStatement represents target op= value.
type AugAssignStatement struct {
	Token    token.Token
	Target   Expression
	Operator string // "+", "-", "*"
	Value    Expression
}

func (as *AugAssignStatement) Accept(v Visitor)      { v.VisitAugAssignStatement(as) }
func (as *AugAssignStatement) statementNode()        {}
func (as *AugAssignStatement) TokenLiteral() string  { return as.Token.Lexeme }
func (as *AugAssignStatement) GetToken() token.Token { return as.Token }

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) Accept(v Visitor)      { v.VisitExpressionStatement(es) }
func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }

// IfStatement represents if/elif/else. An elif chain is an IfStatement
// as the only statement of Alternative.
type IfStatement struct {
	Token       token.Token // The 'if' token
	Condition   Expression
	Consequence Block
	Alternative Block // Optional
}

func (is *IfStatement) Accept(v Visitor)      { v.VisitIfStatement(is) }
func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Token }

// ForStatement represents `for target in iterable:`.
type ForStatement struct {
	Token    token.Token // The 'for' token
	Target   *Identifier
	Iterable Expression
	Body     Block
}

func (fs *ForStatement) Accept(v Visitor)      { v.VisitForStatement(fs) }
func (fs *ForStatement) statementNode()        {}
func (fs *ForStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *ForStatement) GetToken() token.Token { return fs.Token }

type WhileStatement struct {
	Token     token.Token // The 'while' token
	Condition Expression
	Body      Block
}

func (ws *WhileStatement) Accept(v Visitor)      { v.VisitWhileStatement(ws) }
func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }

// ReturnStatement represents `return [value]`. Multiple values are a TupleLiteral.
type ReturnStatement struct {
	Token token.Token // The 'return' token
	Value Expression  // Optional
}

func (rs *ReturnStatement) Accept(v Visitor)      { v.VisitReturnStatement(rs) }
func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }

type PassStatement struct {
	Token token.Token
}

func (ps *PassStatement) Accept(v Visitor)      { v.VisitPassStatement(ps) }
func (ps *PassStatement) statementNode()        {}
func (ps *PassStatement) TokenLiteral() string  { return ps.Token.Lexeme }
func (ps *PassStatement) GetToken() token.Token { return ps.Token }
