package diagnostics

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/token"
	"strings"
)

// UnboundNameError indicates a name was not bound anywhere in the scope chain.
type UnboundNameError struct {
	Pos  token.Position
	Name string
}

func NewUnboundNameError(pos token.Position, name string) *UnboundNameError {
	return &UnboundNameError{Pos: pos, Name: name}
}

func (e *UnboundNameError) Position() token.Position { return e.Pos }

func (e *UnboundNameError) Error() string {
	return fmt.Sprintf("%s: unbound name: %s", e.Pos, e.Name)
}

// NotConstantError indicates a runtime value reached a place that requires
// a compile-time constant.
type NotConstantError struct {
	Pos  token.Position
	What string
}

func NewNotConstantError(pos token.Position, what string) *NotConstantError {
	return &NotConstantError{Pos: pos, What: what}
}

func (e *NotConstantError) Position() token.Position { return e.Pos }

func (e *NotConstantError) Error() string {
	return fmt.Sprintf("%s: not a compile-time constant: %s", e.Pos, e.What)
}

// TypeError covers mismatched aggregate types or field sets across a merge
// and arity or type mismatches at call and return boundaries.
type TypeError struct {
	Pos token.Position
	Msg string
}

func NewTypeError(pos token.Position, format string, args ...interface{}) *TypeError {
	return &TypeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *TypeError) Position() token.Position { return e.Pos }

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: type error: %s", e.Pos, e.Msg)
}

// SpecializationCycleError is raised when a specialization is requested
// again while its body is still being lowered.
type SpecializationCycleError struct {
	Pos   token.Position
	Name  string
	Chain []string
}

func NewSpecializationCycleError(pos token.Position, name string, chain []string) *SpecializationCycleError {
	return &SpecializationCycleError{Pos: pos, Name: name, Chain: chain}
}

func (e *SpecializationCycleError) Position() token.Position { return e.Pos }

func (e *SpecializationCycleError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("%s: recursive specialization of %s", e.Pos, e.Name)
	}
	return fmt.Sprintf("%s: recursive specialization of %s (via %s)", e.Pos, e.Name, strings.Join(e.Chain, " -> "))
}

// UnsupportedError marks a construct outside the traced subset.
type UnsupportedError struct {
	Pos       token.Position
	Construct string
}

func NewUnsupportedError(pos token.Position, construct string) *UnsupportedError {
	return &UnsupportedError{Pos: pos, Construct: construct}
}

func (e *UnsupportedError) Position() token.Position { return e.Pos }

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported: %s", e.Pos, e.Construct)
}
