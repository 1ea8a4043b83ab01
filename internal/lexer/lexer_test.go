package lexer

import (
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestIndentation(t *testing.T) {
	input := `def f(x):
    if x:
        return 1

    # comment only
    return 2
`
	expected := []token.TokenType{
		token.DEF, token.IDENT, token.LPAREN, token.IDENT, token.RPAREN, token.COLON, token.NEWLINE,
		token.INDENT, token.IF, token.IDENT, token.COLON, token.NEWLINE,
		token.INDENT, token.RETURN, token.INT, token.NEWLINE,
		token.DEDENT, token.RETURN, token.INT, token.NEWLINE,
		token.DEDENT, token.EOF,
	}
	assert.Equal(t, expected, types(Tokenize(input)))
}

func TestMissingTrailingNewline(t *testing.T) {
	toks := Tokenize("while x:\n    x = x - 1")
	got := types(toks)
	assert.Equal(t, []token.TokenType{token.NEWLINE, token.DEDENT, token.EOF}, got[len(got)-3:])
}

func TestNewlinesInsideBrackets(t *testing.T) {
	toks := Tokenize("f(a,\n  b)\n")
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.LPAREN, token.IDENT, token.COMMA, token.IDENT, token.RPAREN, token.NEWLINE, token.EOF,
	}, types(toks))
}

func TestOperatorsAndLiterals(t *testing.T) {
	toks := Tokenize("a //= 1\nb += 1_000 -> 1.5e3 .5 != 'x\\ty'\n")
	tests := []struct {
		typ     token.TokenType
		literal interface{}
	}{
		{token.IDENT, "a"},
		{token.FLOOR_DIV, nil},
		{token.ASSIGN, nil},
		{token.INT, int64(1)},
		{token.NEWLINE, nil},
		{token.IDENT, "b"},
		{token.PLUS_ASSIGN, nil},
		{token.INT, int64(1000)},
		{token.ARROW, nil},
		{token.FLOAT, 1500.0},
		{token.FLOAT, 0.5},
		{token.NOT_EQ, nil},
		{token.STRING, "x\ty"},
		{token.NEWLINE, nil},
		{token.EOF, nil},
	}
	require.Len(t, toks, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.typ, toks[i].Type, "token %d", i)
		if tt.literal != nil {
			assert.Equal(t, tt.literal, toks[i].Literal, "token %d", i)
		}
	}
}

func TestPositions(t *testing.T) {
	toks := Tokenize("x = 1\n  \ny = 2\n")
	var y token.Token
	for _, tok := range toks {
		if tok.Lexeme == "y" {
			y = tok
		}
	}
	assert.Equal(t, 3, y.Line)
	assert.Equal(t, 1, y.Column)
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"x = $\n", `illegal character '$'`},
		{"s = 'open\n", "unterminated string literal"},
		{"if x:\n        a\n    b\n", "unindent does not match any outer indentation level"},
		{"n = 99999999999999999999\n", `invalid integer literal "99999999999999999999"`},
	}
	for _, tt := range tests {
		var found bool
		for _, tok := range Tokenize(tt.input) {
			if tok.Type == token.ILLEGAL {
				assert.Equal(t, tt.msg, tok.Literal, tt.input)
				found = true
				break
			}
		}
		assert.True(t, found, "no ILLEGAL token in %q", tt.input)
	}
}
