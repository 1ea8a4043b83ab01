// Package compiler traces kernel functions into the SSA IR of package ir.
//
// The module top level runs in the host interpreter first; tracing then
// starts from one public entry and lowers every function it reaches into a
// private specialization keyed by the constant and runtime shape of its
// arguments.
package compiler

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/modules"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/pkg/errors"
	"log"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithOptions replaces the default options.
func WithOptions(opts config.Options) Option {
	return func(c *Compiler) { c.opts = opts }
}

// WithLogger sets the destination of verbose specialization logs.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// Compiler owns one compilation unit: the host interpreter state of a
// loaded module and the specialization table of the current trace.
type Compiler struct {
	opts   config.Options
	logger *log.Logger

	file   string
	interp *evaluator.Interpreter

	module *ir.Module
	specs  map[specKey]*specialization
	names  map[string]specKey
	stack  []string // specializations being lowered, outermost first
	depth  int

	// constructing holds boxes whose __init__ is still running; only
	// these may have constexpr fields assigned.
	constructing map[evaluator.BoxID]bool
}

func New(opts ...Option) *Compiler {
	c := &Compiler{opts: config.DefaultOptions()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Compiler) logf(format string, args ...interface{}) {
	if c.opts.Verbose && c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Compiler) pos(tok token.Token) token.Position {
	return token.Position{File: c.file, Line: tok.Line, Column: tok.Column}
}

// Load executes the top level of mod, binding its functions, aggregates
// and constants.
func (c *Compiler) Load(mod *ast.Module) error {
	name := c.opts.ModuleName
	if name == "" {
		name = mod.Name
	}
	c.file = mod.File
	c.interp = evaluator.NewInterpreter(name, mod.File, modules.Universe(), modules.Import)
	c.interp.MaxDepth = c.opts.MaxCallDepth
	return c.interp.ExecModule(mod)
}

// Interpreter exposes the host state of the loaded module.
func (c *Compiler) Interpreter() *evaluator.Interpreter { return c.interp }

// Trace lowers the jit function entry, whose parameters take runtime values
// of the given types, together with everything it calls. Each call starts
// a fresh IR module and specialization table.
func (c *Compiler) Trace(entry string, params ...typesystem.Type) (*ir.Module, error) {
	if c.interp == nil {
		return nil, fmt.Errorf("compiler: no module loaded")
	}
	pos := token.Position{File: c.file}
	obj, err := c.interp.Globals.Lookup(pos, entry)
	if err != nil {
		return nil, err
	}
	fn, ok := obj.(*evaluator.Function)
	if !ok || fn.Kind != evaluator.JitFunction {
		return nil, diagnostics.NewTypeError(pos, "%s is not a jit function", entry)
	}

	c.module = ir.NewModule()
	c.specs = make(map[specKey]*specialization)
	c.names = make(map[string]specKey)
	c.constructing = make(map[evaluator.BoxID]bool)
	c.stack = nil
	c.depth = 0

	f := c.module.NewFunc(fn.Name, true, params)
	args := make([]evaluator.Object, len(f.Args()))
	for i, a := range f.Args() {
		args[i] = evaluator.NewTensor(a)
	}
	bound, err := evaluator.BindArguments(fn, args, nil, pos)
	if err != nil {
		return nil, err
	}
	sigs, err := c.paramSignatures(fn, fn.Params, bound, nil, pos)
	if err != nil {
		return nil, err
	}
	spec := &specialization{name: fn.Name, fn: f, params: sigs}
	key := specKey{def: fn.Def, scope: fn.Scope, params: evaluator.JoinKeys(sigs)}
	c.specs[key] = spec
	c.names[fn.Name] = key
	f.Pos = c.pos(fn.Def.Token)
	if err := c.lower(fn, spec, nil); err != nil {
		return nil, err
	}
	if err := ir.Verify(c.module); err != nil {
		return nil, err
	}
	return c.module, nil
}

// Compile loads mod and traces opts.Entry.
func Compile(mod *ast.Module, opts config.Options, params ...typesystem.Type) (*ir.Module, error) {
	c := New(WithOptions(opts))
	if err := c.Load(mod); err != nil {
		return nil, err
	}
	return c.Trace(opts.Entry, params...)
}

// lower traces the body of fn into spec.fn. A non-nil class marks fn as
// the jit __init__ of class: self is then a fresh box under construction
// rather than a parameter.
func (c *Compiler) lower(fn *evaluator.Function, spec *specialization, class *evaluator.AggregateType) error {
	c.stack = append(c.stack, spec.name)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	env := evaluator.NewFrame(fn.Scope, nil)
	fb := &funcBuilder{
		c:    c,
		fn:   spec.fn,
		spec: spec,
		b:    ir.NewBuilder(spec.fn.Entry()),
		env:  env,
	}
	fb.b.SetPos(c.pos(fn.Def.Token))

	params := fn.Params
	if class != nil {
		fb.self = env.NewBox(evaluator.NewInstance(class))
		c.constructing[fb.self.ID] = true
		defer delete(c.constructing, fb.self.ID)
		env.Set(params[0].Name, fb.self)
		params = params[1:]
	}
	leaves := spec.fn.Args()
	for i, p := range params {
		var obj evaluator.Object
		obj, leaves = evaluator.Rebuild(spec.params[i], leaves)
		if _, ok := spec.params[i].(*evaluator.AggregateSig); ok {
			ref := env.NewBox(obj.(*evaluator.Instance))
			spec.writeback = append(spec.writeback, writeback{param: i, box: ref.ID})
			obj = ref
		}
		env.Set(p.Name, obj)
	}

	if err := fb.compileBlock(fn.Def.Body); err != nil {
		return errors.Wrapf(err, "while tracing %s", spec.name)
	}
	if !fb.b.Terminated() {
		if err := fb.emitReturn(evaluator.NONE, c.pos(fn.Def.Token)); err != nil {
			return errors.Wrapf(err, "while tracing %s", spec.name)
		}
	}
	spec.fn.Complete = true
	return nil
}
