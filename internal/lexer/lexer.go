package lexer

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabWidth = 4

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	indents     []int         // indentation stack, bottom is always 0
	pending     []token.Token // INDENT/DEDENT tokens queued at line start
	parenDepth  int           // newlines inside brackets are insignificant
	atLineStart bool
	last        token.TokenType
	eofDone     bool
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, indents: []int{0}, atLineStart: true, last: token.NEWLINE}
	l.readChar()
	return l
}

// Tokenize lexes the whole input, up to and including EOF.
func Tokenize(input string) []token.Token {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	tok := l.next()
	l.last = tok.Type
	return tok
}

func (l *Lexer) next() token.Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	if l.atLineStart && l.parenDepth == 0 {
		l.atLineStart = false
		if tok, ok := l.handleIndentation(); ok {
			return tok
		}
	}

	l.skipWhitespace()

	switch l.ch {
	case 0:
		return l.finish()
	case '#':
		l.skipComment()
		return l.next()
	case '\n':
		line, col := l.line, l.column
		l.readChar()
		if l.parenDepth > 0 {
			return l.next()
		}
		l.atLineStart = true
		if l.last == token.NEWLINE {
			return l.next()
		}
		return token.Token{Type: token.NEWLINE, Lexeme: "\n", Line: line, Column: col}
	}

	line, col := l.line, l.column
	switch l.ch {
	case '(', '[':
		l.parenDepth++
		return l.single(token.TokenType(string(l.ch)))
	case ')', ']':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return l.single(token.TokenType(string(l.ch)))
	case ',', ':', '.', '@', '%':
		if l.ch == '.' && isDigit(l.peekChar()) {
			return l.readNumber()
		}
		return l.single(token.TokenType(string(l.ch)))
	case '=', '<', '>', '!', '+', '*':
		return l.operator()
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.ARROW, Lexeme: "->", Line: line, Column: col}
		}
		return l.operator()
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.FLOOR_DIV, Lexeme: "//", Line: line, Column: col}
		}
		return l.single(token.SLASH)
	case '"', '\'':
		return l.readString()
	}

	if isLetter(l.ch) {
		ident := l.readIdentifier()
		tt := token.LookupIdent(ident)
		var lit interface{} = ident
		return token.Token{Type: tt, Lexeme: ident, Literal: lit, Line: line, Column: col}
	}
	if isDigit(l.ch) {
		return l.readNumber()
	}

	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Literal: fmt.Sprintf("illegal character %q", ch), Line: line, Column: col}
}

// handleIndentation measures the indentation of a new logical line and
// queues INDENT or DEDENT tokens. Blank and comment-only lines are skipped.
func (l *Lexer) handleIndentation() (token.Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' {
			if l.ch == '\t' {
				width += tabWidth - width%tabWidth
			} else {
				width++
			}
			l.readChar()
		}
		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch == '\n' {
			l.readChar()
			continue
		}
		if l.ch == 0 {
			return token.Token{}, false
		}

		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			return token.Token{Type: token.INDENT, Line: l.line, Column: 1}, true
		case width < top:
			for len(l.indents) > 1 && width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, token.Token{Type: token.DEDENT, Line: l.line, Column: 1})
			}
			if width != l.indents[len(l.indents)-1] {
				l.pending = append(l.pending, token.Token{
					Type:    token.ILLEGAL,
					Literal: "unindent does not match any outer indentation level",
					Line:    l.line,
					Column:  1,
				})
			}
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok, true
		}
		return token.Token{}, false
	}
}

// finish closes the last logical line and all open indentation levels.
func (l *Lexer) finish() token.Token {
	if !l.eofDone {
		l.eofDone = true
		if l.last != token.NEWLINE && l.last != token.DEDENT && l.last != token.INDENT {
			l.pending = append(l.pending, token.Token{Type: token.NEWLINE, Line: l.line, Column: l.column})
		}
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, token.Token{Type: token.DEDENT, Line: l.line, Column: l.column})
		}
		if len(l.pending) > 0 {
			return l.next()
		}
	}
	return token.Token{Type: token.EOF, Line: l.line, Column: l.column}
}

func (l *Lexer) single(tt token.TokenType) token.Token {
	tok := token.Token{Type: tt, Lexeme: string(l.ch), Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

func (l *Lexer) operator() token.Token {
	line, col := l.line, l.column
	first := l.ch
	l.readChar()
	if l.ch == '=' {
		l.readChar()
		lexeme := string(first) + "="
		switch first {
		case '=':
			return token.Token{Type: token.EQ, Lexeme: lexeme, Line: line, Column: col}
		case '!':
			return token.Token{Type: token.NOT_EQ, Lexeme: lexeme, Line: line, Column: col}
		case '<':
			return token.Token{Type: token.LTE, Lexeme: lexeme, Line: line, Column: col}
		case '>':
			return token.Token{Type: token.GTE, Lexeme: lexeme, Line: line, Column: col}
		case '+':
			return token.Token{Type: token.PLUS_ASSIGN, Lexeme: lexeme, Line: line, Column: col}
		case '-':
			return token.Token{Type: token.MINUS_ASSIGN, Lexeme: lexeme, Line: line, Column: col}
		case '*':
			return token.Token{Type: token.MUL_ASSIGN, Lexeme: lexeme, Line: line, Column: col}
		}
	}
	switch first {
	case '=':
		return token.Token{Type: token.ASSIGN, Lexeme: "=", Line: line, Column: col}
	case '<':
		return token.Token{Type: token.LT, Lexeme: "<", Line: line, Column: col}
	case '>':
		return token.Token{Type: token.GT, Lexeme: ">", Line: line, Column: col}
	case '+':
		return token.Token{Type: token.PLUS, Lexeme: "+", Line: line, Column: col}
	case '-':
		return token.Token{Type: token.MINUS, Lexeme: "-", Line: line, Column: col}
	case '*':
		return token.Token{Type: token.ASTERISK, Lexeme: "*", Line: line, Column: col}
	}
	return token.Token{Type: token.ILLEGAL, Lexeme: string(first), Literal: fmt.Sprintf("illegal character %q", first), Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	position := l.position
	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && l.peekChar() != '.' {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lexeme := l.input[position:l.position]
	clean := strings.ReplaceAll(lexeme, "_", "")
	if isFloat {
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: fmt.Sprintf("invalid float literal %q", lexeme), Line: line, Column: col}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: v, Line: line, Column: col}
	}
	v, err := strconv.ParseInt(clean, 0, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: fmt.Sprintf("invalid integer literal %q", lexeme), Line: line, Column: col}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: v, Line: line, Column: col}
}

func (l *Lexer) readString() token.Token {
	line, col := l.line, l.column
	quote := l.ch
	start := l.position
	l.readChar()
	var sb strings.Builder
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: "unterminated string literal", Line: line, Column: col}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()
	return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: sb.String(), Line: line, Column: col}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
