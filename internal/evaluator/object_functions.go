package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
)

type FunctionKind int

const (
	// HostFunction bodies run in the interpreter at trace time.
	HostFunction FunctionKind = iota
	// JitFunction bodies are lowered into their own specialized IR function.
	JitFunction
	// BuiltinMethod bodies are traced inline into the caller.
	BuiltinMethod
)

type Param struct {
	Name      string
	Constexpr bool
	Default   Object // nil when the parameter has no default
}

type Function struct {
	Name     string
	QualName string
	Module   string
	Def      *ast.FunctionDef
	Params   []Param
	Kind     FunctionKind

	Constexpr bool // declared with tl.constexpr_function
	Static    bool
	Class     *AggregateType

	// Scope resolves free names of the body: the module globals, or a
	// by-value capture of the enclosing locals for nested definitions.
	Scope *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	kind := "function"
	switch {
	case f.Kind == JitFunction:
		kind = "JITFunction"
	case f.Kind == BuiltinMethod:
		kind = "builtin"
	case f.Constexpr:
		kind = "ConstexprFunction"
	}
	return fmt.Sprintf("%s(%s:%s)", kind, f.Module, f.QualName)
}

// CallContext is handed to builtins. Builder is nil when the builtin is
// invoked from host code, where no IR can be emitted.
type CallContext struct {
	Pos     token.Position
	Builder *ir.Builder
}

type BuiltinFunction func(ctx *CallContext, args []Object, kwargs map[string]Object) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<built-in function " + b.Name + ">" }

// BoundMethod is a method looked up through an instance. Receiver is the
// box or instance the method was read from.
type BoundMethod struct {
	Receiver Object
	Method   *Function
}

func (bm *BoundMethod) Type() ObjectType { return BOUND_METHOD_OBJ }
func (bm *BoundMethod) Inspect() string {
	return "<bound method " + bm.Method.QualName + ">"
}
