package parser

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errorf(diagnostics.ErrP004, p.curToken, "expression too complex: recursion depth limit exceeded")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(diagnostics.ErrP001, p.curToken, "unexpected %s", describe(p.curToken))
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

// parseExpressionList parses a, b, c as a TupleLiteral; a single expression
// without a trailing comma is returned unchanged.
func (p *Parser) parseExpressionList() ast.Expression {
	first := p.parseExpression(LOWEST)
	if first == nil || !p.peekTokenIs(token.COMMA) {
		return first
	}
	tuple := &ast.TupleLiteral{Token: first.GetToken(), Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if isListTerminator(p.peekToken.Type) {
			break
		}
		p.nextToken()
		el := p.parseExpression(LOWEST)
		if el == nil {
			return nil
		}
		tuple.Elements = append(tuple.Elements, el)
	}
	return tuple
}

func isListTerminator(t token.TokenType) bool {
	switch t {
	case token.NEWLINE, token.EOF, token.ASSIGN, token.COLON, token.RPAREN, token.RBRACKET:
		return true
	}
	return false
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	v, ok := p.curToken.Literal.(int64)
	if !ok {
		p.errorf(diagnostics.ErrP003, p.curToken, "invalid integer literal %q", p.curToken.Lexeme)
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	v, ok := p.curToken.Literal.(float64)
	if !ok {
		p.errorf(diagnostics.ErrP003, p.curToken, "invalid float literal %q", p.curToken.Lexeme)
		return nil
	}
	return &ast.FloatLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	s, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: s}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNoneLiteral() ast.Expression {
	return &ast.NoneLiteral{Token: p.curToken}
}

// parseGroupedExpression handles (e), () and (a, b).
func (p *Parser) parseGroupedExpression() ast.Expression {
	open := p.curToken
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: open}
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if !p.peekTokenIs(token.COMMA) {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return first
	}
	tuple := &ast.TupleLiteral{Token: open, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(token.RPAREN) {
			break
		}
		p.nextToken()
		el := p.parseExpression(LOWEST)
		if el == nil {
			return nil
		}
		tuple.Elements = append(tuple.Elements, el)
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return tuple
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}
	elements, ok := p.parseExpressionSequence(token.RBRACKET)
	if !ok {
		return nil
	}
	list.Elements = elements
	return list
}

// parseExpressionSequence parses comma separated expressions up to end.
func (p *Parser) parseExpressionSequence(end token.TokenType) ([]ast.Expression, bool) {
	var list []ast.Expression
	for !p.peekTokenIs(end) {
		p.nextToken()
		el := p.parseExpression(LOWEST)
		if el == nil {
			return nil, false
		}
		list = append(list, el)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	prec := PREFIX
	if p.curTokenIs(token.NOT) {
		prec = NOT
	}
	p.nextToken()
	expression.Right = p.parseExpression(prec)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseAttributeExpression(left ast.Expression) ast.Expression {
	expr := &ast.AttributeExpression{Token: p.curToken, Object: left}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expr.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	return expr
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpressionList()
	if expr.Index == nil || !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Function: function}
	for !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
			kw := &ast.KeywordArgument{Token: p.curToken, Name: p.curToken.Lexeme}
			p.nextToken()
			p.nextToken()
			kw.Value = p.parseExpression(LOWEST)
			if kw.Value == nil {
				return nil
			}
			call.Keywords = append(call.Keywords, kw)
		} else {
			if len(call.Keywords) > 0 {
				p.errorf(diagnostics.ErrP001, p.curToken, "positional argument follows keyword argument")
				return nil
			}
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			call.Arguments = append(call.Arguments, arg)
		}
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}
