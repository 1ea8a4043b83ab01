package parser

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/token"
	"strings"
)

// ParseModule parses statements until EOF.
func (p *Parser) ParseModule() *ast.Module {
	mod := &ast.Module{}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			mod.Statements = append(mod.Statements, stmt)
		} else {
			p.skipToStatementBoundary()
		}
		p.nextToken()
	}
	return mod
}

// parseStatement leaves curToken on the last token of the statement:
// NEWLINE for simple statements, DEDENT (or NEWLINE for inline suites) for
// compound ones.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.AT:
		return p.parseDecorated()
	case token.DEF:
		return p.parseFunctionDef(nil)
	case token.CLASS:
		return p.parseClassDef(nil)
	case token.IF, token.ELIF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.PASS:
		stmt := &ast.PassStatement{Token: p.curToken}
		if !p.endSimpleStatement() {
			return nil
		}
		return stmt
	case token.IMPORT:
		return p.parseImportStatement()
	case token.FROM:
		p.errorf(diagnostics.ErrP001, p.curToken, "from-imports are not supported; use import ... as ...")
		return nil
	case token.INDENT:
		p.errorf(diagnostics.ErrL002, p.curToken, "unexpected indent")
		return nil
	}
	return p.parseSimpleStatement()
}

func (p *Parser) endSimpleStatement() bool {
	if p.peekTokenIs(token.EOF) {
		p.nextToken()
		return true
	}
	return p.expectPeek(token.NEWLINE)
}

func (p *Parser) parseDecorated() ast.Statement {
	var decorators []ast.Expression
	for p.curTokenIs(token.AT) {
		p.nextToken()
		dec := p.parseExpression(LOWEST)
		if dec == nil || !p.expectPeek(token.NEWLINE) {
			return nil
		}
		decorators = append(decorators, dec)
		p.nextToken()
	}
	switch p.curToken.Type {
	case token.DEF:
		return p.parseFunctionDef(decorators)
	case token.CLASS:
		return p.parseClassDef(decorators)
	}
	p.errorf(diagnostics.ErrP001, p.curToken, "decorator must precede def or class, got %s", describe(p.curToken))
	return nil
}

func (p *Parser) parseFunctionDef(decorators []ast.Expression) ast.Statement {
	fd := &ast.FunctionDef{Token: p.curToken, Decorators: decorators}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	fd.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	fd.Parameters = params
	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		if p.parseExpression(LOWEST) == nil {
			return nil
		}
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	fd.Body = body
	return fd
}

// parseParameters is entered on '(' and leaves curToken on ')'.
func (p *Parser) parseParameters() ([]*ast.Parameter, bool) {
	var params []*ast.Parameter
	for !p.peekTokenIs(token.RPAREN) {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		param := &ast.Parameter{Token: p.curToken, Name: p.curToken.Lexeme}
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			param.Annotation = p.parseExpression(LOWEST)
			if param.Annotation == nil {
				return nil, false
			}
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
			if param.Default == nil {
				return nil, false
			}
		}
		params = append(params, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseClassDef(decorators []ast.Expression) ast.Statement {
	cd := &ast.ClassDef{Token: p.curToken, Decorators: decorators}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	cd.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		if !p.expectPeek(token.RPAREN) {
			p.errorf(diagnostics.ErrP001, p.curToken, "class bases are not supported")
			return nil
		}
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	cd.Body = body
	return cd
}

// parseBlock expects ':' as the next token and parses either an indented
// suite or a single inline simple statement.
func (p *Parser) parseBlock() (ast.Block, bool) {
	if !p.expectPeek(token.COLON) {
		return nil, false
	}
	if !p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
		stmt := p.parseSimpleOrPass()
		if stmt == nil {
			return nil, false
		}
		return ast.Block{stmt}, true
	}
	p.nextToken()
	if !p.expectPeek(token.INDENT) {
		return nil, false
	}
	p.nextToken()

	var block ast.Block
	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil, false
		}
		block = append(block, stmt)
		p.nextToken()
	}
	return block, true
}

func (p *Parser) parseSimpleOrPass() ast.Statement {
	switch p.curToken.Type {
	case token.PASS, token.RETURN:
		return p.parseStatement()
	}
	return p.parseSimpleStatement()
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	stmt.Consequence = body

	switch {
	case p.peekTokenIs(token.ELIF):
		p.nextToken()
		elif := p.parseIfStatement()
		if elif == nil {
			return nil
		}
		stmt.Alternative = ast.Block{elif}
	case p.peekTokenIs(token.ELSE):
		p.nextToken()
		alt, ok := p.parseBlock()
		if !ok {
			return nil
		}
		stmt.Alternative = alt
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Target = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	stmt.Body = body
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	stmt.Body = body
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		stmt.Value = p.parseExpressionList()
		if stmt.Value == nil {
			return nil
		}
	}
	if !p.endSimpleStatement() {
		return nil
	}
	return stmt
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	parts := []string{p.curToken.Lexeme}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		parts = append(parts, p.curToken.Lexeme)
	}
	stmt.Path = strings.Join(parts, ".")
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Alias = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	}
	if !p.endSimpleStatement() {
		return nil
	}
	return stmt
}

var augAssignOps = map[token.TokenType]string{
	token.PLUS_ASSIGN:  "+",
	token.MINUS_ASSIGN: "-",
	token.MUL_ASSIGN:   "*",
}

func (p *Parser) parseSimpleStatement() ast.Statement {
	start := p.curToken
	expr := p.parseExpressionList()
	if expr == nil {
		return nil
	}

	var stmt ast.Statement
	switch {
	case p.peekTokenIs(token.COLON):
		p.nextToken()
		assign := &ast.AssignStatement{Token: p.curToken, Target: expr}
		if !p.validTarget(expr, false) {
			return nil
		}
		p.nextToken()
		assign.Annotation = p.parseExpression(LOWEST)
		if assign.Annotation == nil {
			return nil
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			assign.Value = p.parseExpressionList()
			if assign.Value == nil {
				return nil
			}
		}
		stmt = assign
	case p.peekTokenIs(token.ASSIGN):
		p.nextToken()
		assign := &ast.AssignStatement{Token: p.curToken, Target: expr}
		if !p.validTarget(expr, true) {
			return nil
		}
		p.nextToken()
		assign.Value = p.parseExpressionList()
		if assign.Value == nil {
			return nil
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.errorf(diagnostics.ErrP002, p.peekToken, "chained assignment is not supported")
			return nil
		}
		stmt = assign
	default:
		if op, ok := augAssignOps[p.peekToken.Type]; ok {
			p.nextToken()
			aug := &ast.AugAssignStatement{Token: p.curToken, Target: expr, Operator: op}
			if !p.validTarget(expr, false) {
				return nil
			}
			p.nextToken()
			aug.Value = p.parseExpression(LOWEST)
			if aug.Value == nil {
				return nil
			}
			stmt = aug
		} else {
			stmt = &ast.ExpressionStatement{Token: start, Expression: expr}
		}
	}

	if !p.endSimpleStatement() {
		return nil
	}
	return stmt
}

func (p *Parser) validTarget(expr ast.Expression, allowTuple bool) bool {
	switch e := expr.(type) {
	case *ast.Identifier, *ast.AttributeExpression, *ast.IndexExpression:
		return true
	case *ast.TupleLiteral:
		if allowTuple {
			for _, el := range e.Elements {
				if !p.validTarget(el, true) {
					return false
				}
			}
			return true
		}
	}
	p.errorf(diagnostics.ErrP002, expr.GetToken(), "invalid assignment target")
	return false
}
