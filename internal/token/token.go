package token

import "fmt"

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	NEWLINE TokenType = "NEWLINE"
	INDENT  TokenType = "INDENT"
	DEDENT  TokenType = "DEDENT"

	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"

	// Operators
	ASSIGN       TokenType = "="
	PLUS         TokenType = "+"
	MINUS        TokenType = "-"
	ASTERISK     TokenType = "*"
	SLASH        TokenType = "/"
	FLOOR_DIV    TokenType = "//"
	PERCENT      TokenType = "%"
	PLUS_ASSIGN  TokenType = "+="
	MINUS_ASSIGN TokenType = "-="
	MUL_ASSIGN   TokenType = "*="
	LT           TokenType = "<"
	GT           TokenType = ">"
	LTE          TokenType = "<="
	GTE          TokenType = ">="
	EQ           TokenType = "=="
	NOT_EQ       TokenType = "!="

	// Delimiters
	COMMA    TokenType = ","
	COLON    TokenType = ":"
	DOT      TokenType = "."
	AT       TokenType = "@"
	ARROW    TokenType = "->"
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"

	// Keywords
	DEF    TokenType = "def"
	CLASS  TokenType = "class"
	IF     TokenType = "if"
	ELIF   TokenType = "elif"
	ELSE   TokenType = "else"
	FOR    TokenType = "for"
	IN     TokenType = "in"
	WHILE  TokenType = "while"
	RETURN TokenType = "return"
	PASS   TokenType = "pass"
	IMPORT TokenType = "import"
	FROM   TokenType = "from"
	AS     TokenType = "as"
	AND    TokenType = "and"
	OR     TokenType = "or"
	NOT    TokenType = "not"
	TRUE   TokenType = "True"
	FALSE  TokenType = "False"
	NONE   TokenType = "None"
)

var keywords = map[string]TokenType{
	"def":    DEF,
	"class":  CLASS,
	"if":     IF,
	"elif":   ELIF,
	"else":   ELSE,
	"for":    FOR,
	"in":     IN,
	"while":  WHILE,
	"return": RETURN,
	"pass":   PASS,
	"import": IMPORT,
	"from":   FROM,
	"as":     AS,
	"and":    AND,
	"or":     OR,
	"not":    NOT,
	"True":   TRUE,
	"False":  FALSE,
	"None":   NONE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Position is a location in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	switch {
	case !p.IsValid() && p.File == "":
		return "<unknown>"
	case !p.IsValid():
		return p.File
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

// Pos returns the token position; the file is filled in by the parser.
func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}
