package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/token"
	"sort"
)

// maxHostLoopIterations bounds while loops executed at trace time.
const maxHostLoopIterations = 1 << 20

// Importer resolves an import path to a namespace object.
type Importer func(path string) (Object, bool)

// Interpreter executes host code at trace time: the module top level and
// the bodies of constexpr functions. It only ever produces constants.
type Interpreter struct {
	Module   string
	File     string
	Globals  *Environment
	MaxDepth int

	importer Importer
	depth    int
}

// frame is the context in which statements execute: the environment,
// the qualified-name prefix for nested definitions and whether the
// frame is a function body whose locals are captured by value.
type frame struct {
	env    *Environment
	prefix string
	local  bool
}

func NewInterpreter(module, file string, universe map[string]Object, importer Importer) *Interpreter {
	builtins := NewEnvironment()
	names := make([]string, 0, len(universe))
	for name := range universe {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		builtins.Set(name, universe[name])
	}
	globals := NewEnclosedEnvironment(builtins)
	globals.root = true
	return &Interpreter{
		Module:   module,
		File:     file,
		Globals:  globals,
		MaxDepth: config.DefaultMaxCallDepth,
		importer: importer,
	}
}

func (in *Interpreter) pos(tok token.Token) token.Position {
	return token.Position{File: in.File, Line: tok.Line, Column: tok.Column}
}

// ExecModule runs every top-level statement of mod.
func (in *Interpreter) ExecModule(mod *ast.Module) error {
	fr := &frame{env: in.Globals}
	for _, stmt := range mod.Statements {
		if _, _, err := in.execStatement(stmt, fr); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) execBlock(block ast.Block, fr *frame) (Object, bool, error) {
	for _, stmt := range block {
		ret, returned, err := in.execStatement(stmt, fr)
		if err != nil || returned {
			return ret, returned, err
		}
	}
	return nil, false, nil
}

func (in *Interpreter) execStatement(stmt ast.Statement, fr *frame) (Object, bool, error) {
	switch s := stmt.(type) {
	case *ast.PassStatement:
		return nil, false, nil

	case *ast.ImportStatement:
		return nil, false, in.execImport(s, fr)

	case *ast.FunctionDef:
		fn, err := in.DefineFunction(s, fr, nil)
		if err != nil {
			return nil, false, err
		}
		fr.env.Set(s.Name.Value, fn)
		return nil, false, nil

	case *ast.ClassDef:
		_, err := in.DefineClass(s, fr)
		return nil, false, err

	case *ast.ExpressionStatement:
		_, err := in.Eval(s.Expression, fr.env)
		return nil, false, err

	case *ast.AssignStatement:
		return nil, false, in.execAssign(s, fr)

	case *ast.AugAssignStatement:
		ident, ok := s.Target.(*ast.Identifier)
		if !ok {
			return nil, false, diagnostics.NewUnsupportedError(in.pos(s.Token), "attribute assignment in host code")
		}
		current, err := fr.env.Lookup(in.pos(ident.Token), ident.Value)
		if err != nil {
			return nil, false, err
		}
		rhs, err := in.Eval(s.Value, fr.env)
		if err != nil {
			return nil, false, err
		}
		result, err := BinaryOp(s.Operator, current, rhs)
		if err != nil {
			return nil, false, diagnostics.NewTypeError(in.pos(s.Token), "%v", err)
		}
		fr.env.Set(ident.Value, result)
		return nil, false, nil

	case *ast.IfStatement:
		cond, err := in.Eval(s.Condition, fr.env)
		if err != nil {
			return nil, false, err
		}
		truth, err := Truthy(cond)
		if err != nil {
			return nil, false, diagnostics.NewNotConstantError(in.pos(s.Token), err.Error())
		}
		if truth {
			return in.execBlock(s.Consequence, fr)
		}
		return in.execBlock(s.Alternative, fr)

	case *ast.ForStatement:
		iterable, err := in.Eval(s.Iterable, fr.env)
		if err != nil {
			return nil, false, err
		}
		items, err := in.iterate(iterable, in.pos(s.Token))
		if err != nil {
			return nil, false, err
		}
		for _, item := range items {
			fr.env.Set(s.Target.Value, item)
			if ret, returned, err := in.execBlock(s.Body, fr); err != nil || returned {
				return ret, returned, err
			}
		}
		return nil, false, nil

	case *ast.WhileStatement:
		for i := 0; ; i++ {
			if i >= maxHostLoopIterations {
				return nil, false, diagnostics.NewUnsupportedError(in.pos(s.Token), "host loop did not terminate")
			}
			cond, err := in.Eval(s.Condition, fr.env)
			if err != nil {
				return nil, false, err
			}
			truth, err := Truthy(cond)
			if err != nil {
				return nil, false, diagnostics.NewNotConstantError(in.pos(s.Token), err.Error())
			}
			if !truth {
				return nil, false, nil
			}
			if ret, returned, err := in.execBlock(s.Body, fr); err != nil || returned {
				return ret, returned, err
			}
		}

	case *ast.ReturnStatement:
		if s.Value == nil {
			return NONE, true, nil
		}
		value, err := in.Eval(s.Value, fr.env)
		return value, true, err
	}
	return nil, false, diagnostics.NewUnsupportedError(in.pos(stmt.GetToken()), fmt.Sprintf("statement %T in host code", stmt))
}

func (in *Interpreter) execImport(s *ast.ImportStatement, fr *frame) error {
	path := s.Path
	if s.Alias == nil {
		path = s.BoundName()
	}
	ns, ok := in.importer(path)
	if !ok {
		return diagnostics.NewUnsupportedError(in.pos(s.Token), "import of unknown module "+s.Path)
	}
	if s.Alias == nil && path != s.Path {
		// "import a.b" binds "a"; a.b must still exist.
		if _, ok := in.importer(s.Path); !ok {
			return diagnostics.NewUnsupportedError(in.pos(s.Token), "import of unknown module "+s.Path)
		}
	}
	fr.env.Set(s.BoundName(), ns)
	return nil
}

func (in *Interpreter) execAssign(s *ast.AssignStatement, fr *frame) error {
	if s.Value == nil {
		return nil
	}
	value, err := in.Eval(s.Value, fr.env)
	if err != nil {
		return err
	}
	return in.bindTarget(s.Target, value, fr)
}

func (in *Interpreter) bindTarget(target ast.Expression, value Object, fr *frame) error {
	switch t := target.(type) {
	case *ast.Identifier:
		fr.env.Set(t.Value, value)
		return nil
	case *ast.TupleLiteral:
		tuple, ok := value.(*Tuple)
		if !ok || len(tuple.Elements) != len(t.Elements) {
			return diagnostics.NewTypeError(in.pos(t.Token), "cannot unpack %s into %d targets", value.Inspect(), len(t.Elements))
		}
		for i, e := range t.Elements {
			if err := in.bindTarget(e, tuple.Elements[i], fr); err != nil {
				return err
			}
		}
		return nil
	}
	return diagnostics.NewUnsupportedError(in.pos(target.GetToken()), "attribute assignment in host code")
}

// Iterate enumerates a constant iterable.
func (in *Interpreter) iterate(obj Object, pos token.Position) ([]Object, error) {
	switch o := obj.(type) {
	case *Tuple:
		return o.Elements, nil
	case *Range:
		values, ok := o.Values()
		if !ok {
			return nil, diagnostics.NewNotConstantError(pos, "range bounds")
		}
		out := make([]Object, len(values))
		for i, v := range values {
			out[i] = &Integer{Value: v}
		}
		return out, nil
	}
	return nil, diagnostics.NewTypeError(pos, "%s is not iterable", obj.Inspect())
}

// CallObject calls a constant callable at trace time.
func (in *Interpreter) CallObject(callee Object, args []Object, kwargs map[string]Object, pos token.Position) (Object, error) {
	switch fn := callee.(type) {
	case *Builtin:
		return fn.Fn(&CallContext{Pos: pos}, args, kwargs)

	case *Marker:
		if fn.Name == config.ConstexprName && len(args) == 1 && len(kwargs) == 0 {
			return args[0], nil
		}
		return nil, diagnostics.NewTypeError(pos, "%s is not callable", fn.Inspect())

	case *Function:
		if fn.Kind != HostFunction {
			return nil, diagnostics.NewUnsupportedError(pos, "calling "+fn.Inspect()+" from host code")
		}
		return in.CallHost(fn, args, kwargs, pos)

	case *AggregateType:
		return nil, diagnostics.NewUnsupportedError(pos, "constructing "+fn.Inspect()+" from host code")
	}
	return nil, diagnostics.NewTypeError(pos, "%s is not callable", callee.Inspect())
}

// CallHost runs a host function. Every argument must be a constant.
func (in *Interpreter) CallHost(fn *Function, args []Object, kwargs map[string]Object, pos token.Position) (Object, error) {
	for _, a := range args {
		if !IsConstexpr(a) {
			return nil, diagnostics.NewNotConstantError(pos, "argument "+a.Inspect()+" to "+fn.QualName)
		}
	}
	for name, a := range kwargs {
		if !IsConstexpr(a) {
			return nil, diagnostics.NewNotConstantError(pos, "argument "+name+" to "+fn.QualName)
		}
	}
	bound, err := BindArguments(fn, args, kwargs, pos)
	if err != nil {
		return nil, err
	}
	if in.depth >= in.MaxDepth {
		return nil, diagnostics.NewUnsupportedError(pos, "host call depth exceeds "+fmt.Sprint(in.MaxDepth))
	}
	in.depth++
	defer func() { in.depth-- }()

	env := NewFrame(fn.Scope, nil)
	for i, p := range fn.Params {
		env.Set(p.Name, bound[i])
	}
	fr := &frame{env: env, prefix: fn.QualName + "." + config.LocalsMarker + ".", local: true}
	ret, returned, err := in.execBlock(fn.Def.Body, fr)
	if err != nil {
		return nil, err
	}
	if !returned {
		return NONE, nil
	}
	return ret, nil
}

// Call invokes a global host function by name with Go-side arguments.
func (in *Interpreter) Call(name string, args ...Object) (Object, error) {
	callee, err := in.Globals.Lookup(token.Position{File: in.File}, name)
	if err != nil {
		return nil, err
	}
	return in.CallObject(callee, args, nil, token.Position{File: in.File})
}

// BindArguments matches positional and keyword arguments to fn's
// parameters, filling in defaults.
func BindArguments(fn *Function, args []Object, kwargs map[string]Object, pos token.Position) ([]Object, error) {
	if len(args) > len(fn.Params) {
		return nil, diagnostics.NewTypeError(pos, "%s takes %d arguments but %d were given", fn.QualName, len(fn.Params), len(args))
	}
	bound := make([]Object, len(fn.Params))
	copy(bound, args)
	used := 0
	for i, p := range fn.Params {
		if v, ok := kwargs[p.Name]; ok {
			if i < len(args) {
				return nil, diagnostics.NewTypeError(pos, "%s got multiple values for argument %s", fn.QualName, p.Name)
			}
			bound[i] = v
			used++
		}
		if bound[i] == nil {
			if p.Default == nil {
				return nil, diagnostics.NewTypeError(pos, "%s missing required argument %s", fn.QualName, p.Name)
			}
			bound[i] = p.Default
		}
	}
	if used != len(kwargs) {
		for name := range kwargs {
			if fn.paramIndex(name) < 0 {
				return nil, diagnostics.NewTypeError(pos, "%s got an unexpected keyword argument %s", fn.QualName, name)
			}
		}
	}
	return bound, nil
}

func (f *Function) paramIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}
