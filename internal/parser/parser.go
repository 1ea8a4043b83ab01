package parser

import (
	"errors"
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/lexer"
	"github.com/funvibe/kerntrace/internal/token"
	"path/filepath"
	"strings"
)

// MaxRecursionDepth bounds expression nesting.
const MaxRecursionDepth = 256

const (
	_ int = iota
	LOWEST
	OR
	AND
	NOT
	COMPARE
	SUM
	PRODUCT
	PREFIX
	CALL
)

var precedences = map[token.TokenType]int{
	token.OR:        OR,
	token.AND:       AND,
	token.EQ:        COMPARE,
	token.NOT_EQ:    COMPARE,
	token.LT:        COMPARE,
	token.GT:        COMPARE,
	token.LTE:       COMPARE,
	token.GTE:       COMPARE,
	token.PLUS:      SUM,
	token.MINUS:     SUM,
	token.ASTERISK:  PRODUCT,
	token.SLASH:     PRODUCT,
	token.FLOOR_DIV: PRODUCT,
	token.PERCENT:   PRODUCT,
	token.LPAREN:    CALL,
	token.LBRACKET:  CALL,
	token.DOT:       CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokens []token.Token
	pos    int

	curToken  token.Token
	peekToken token.Token

	errors []*diagnostics.DiagnosticError
	depth  int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.INT:      p.parseIntegerLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.TRUE:     p.parseBooleanLiteral,
		token.FALSE:    p.parseBooleanLiteral,
		token.NONE:     p.parseNoneLiteral,
		token.LPAREN:   p.parseGroupedExpression,
		token.LBRACKET: p.parseListLiteral,
		token.MINUS:    p.parsePrefixExpression,
		token.NOT:      p.parsePrefixExpression,
	}
	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.LPAREN:   p.parseCallExpression,
		token.LBRACKET: p.parseIndexExpression,
		token.DOT:      p.parseAttributeExpression,
	}
	for tt, prec := range precedences {
		if prec >= SUM && prec <= PRODUCT || prec == COMPARE || prec == AND || prec == OR {
			p.infixParseFns[tt] = p.parseInfixExpression
		}
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

// ParseString lexes and parses src. The module name is the file stem.
func ParseString(file, src string) (*ast.Module, error) {
	p := New(lexer.Tokenize(src))
	mod := p.ParseModule()
	mod.File = file
	mod.Name = ModuleName(file)
	if errs := p.Errors(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			e.File = file
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}
	return mod, nil
}

// ModuleName derives the module name used in qualified names from a path.
func ModuleName(file string) string {
	base := filepath.Base(file)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "main"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (p *Parser) Errors() []*diagnostics.DiagnosticError {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = token.Token{Type: token.EOF}
	}
	if p.curToken.Type == token.ILLEGAL {
		msg, _ := p.curToken.Literal.(string)
		if msg == "" {
			msg = fmt.Sprintf("illegal token %q", p.curToken.Lexeme)
		}
		p.errors = append(p.errors, diagnostics.NewError(diagnostics.ErrL001, p.curToken, msg))
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", t, describe(p.peekToken))
	p.errors = append(p.errors, diagnostics.NewError(diagnostics.ErrP001, p.peekToken, msg))
}

func (p *Parser) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, diagnostics.NewError(code, tok, fmt.Sprintf(format, args...)))
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// skipToStatementBoundary drops tokens up to the end of the logical line.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.NEWLINE:
		return "end of line"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	case token.EOF:
		return "end of file"
	}
	if tok.Lexeme != "" {
		return fmt.Sprintf("%q", tok.Lexeme)
	}
	return string(tok.Type)
}
