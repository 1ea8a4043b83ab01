// Package diagnostics defines the errors reported while lexing, parsing and
// tracing a kernel module. Every tracing error is fatal to the compilation unit.
package diagnostics

import (
	"errors"
	"fmt"
	"github.com/funvibe/kerntrace/internal/token"
)

type ErrorCode string

const (
	ErrL001 ErrorCode = "L001" // lexer: illegal character
	ErrL002 ErrorCode = "L002" // lexer: inconsistent indentation
	ErrP001 ErrorCode = "P001" // parser: unexpected token
	ErrP002 ErrorCode = "P002" // parser: invalid assignment target
	ErrP003 ErrorCode = "P003" // parser: invalid literal
	ErrP004 ErrorCode = "P004" // parser: expression too complex

	ErrE001 ErrorCode = "E001" // unbound name
	ErrE002 ErrorCode = "E002" // not a compile-time constant
	ErrE003 ErrorCode = "E003" // type error
	ErrE004 ErrorCode = "E004" // specialization cycle
	ErrE005 ErrorCode = "E005" // unsupported construct
	ErrE999 ErrorCode = "E999" // unclassified
)

// DiagnosticError is a lexer or parser error attached to a token.
type DiagnosticError struct {
	Code  ErrorCode
	Token token.Token
	File  string
	Msg   string
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: msg}
}

func (e *DiagnosticError) Position() token.Position {
	return token.Position{File: e.File, Line: e.Token.Line, Column: e.Token.Column}
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("%s: error [%s]: %s", e.Position(), e.Code, e.Msg)
}

// Positioned is implemented by every error in this package.
type Positioned interface {
	error
	Position() token.Position
}

// Code returns the error code of the first diagnostic found in err's chain.
func Code(err error) ErrorCode {
	var diag *DiagnosticError
	var unbound *UnboundNameError
	var notConst *NotConstantError
	var typeErr *TypeError
	var cycle *SpecializationCycleError
	var unsupported *UnsupportedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &diag):
		return diag.Code
	case errors.As(err, &unbound):
		return ErrE001
	case errors.As(err, &notConst):
		return ErrE002
	case errors.As(err, &typeErr):
		return ErrE003
	case errors.As(err, &cycle):
		return ErrE004
	case errors.As(err, &unsupported):
		return ErrE005
	}
	return ErrE999
}
