package compiler

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/pkg/errors"
)

// specKey identifies a specialization: the definition, the scope its
// free names resolve in, and the rendered parameter signatures.
type specKey struct {
	def    *ast.FunctionDef
	scope  *evaluator.Environment
	params string
}

// writeback records an aggregate parameter whose final content is returned
// to the caller after the declared results.
type writeback struct {
	param int
	box   evaluator.BoxID
	sig   evaluator.Signature
}

type specialization struct {
	name      string
	fn        *ir.Func
	params    []evaluator.Signature
	result    evaluator.Signature
	writeback []writeback
	returned  bool
}

func (s *specialization) resultTypes() []typesystem.Type {
	types := evaluator.LeafTypes(s.result)
	for _, w := range s.writeback {
		types = append(types, evaluator.LeafTypes(w.sig)...)
	}
	return types
}

// argument is an actual argument together with the expression it came
// from, which locates the storage to update on writeback.
type argument struct {
	value evaluator.Object
	expr  ast.Expression
}

func values(args []argument) []evaluator.Object {
	out := make([]evaluator.Object, len(args))
	for i, a := range args {
		out[i] = a.value
	}
	return out
}

func kwvalues(kwargs map[string]argument) map[string]evaluator.Object {
	out := make(map[string]evaluator.Object, len(kwargs))
	for k, a := range kwargs {
		out[k] = a.value
	}
	return out
}

// bind matches arguments to params. Defaults come back without an
// expression.
func bind(fn *evaluator.Function, params []evaluator.Param, args []argument, kwargs map[string]argument, pos token.Position) ([]argument, error) {
	shadow := fn
	if len(params) != len(fn.Params) {
		shadow = &evaluator.Function{QualName: fn.QualName, Params: params}
	}
	bound, err := evaluator.BindArguments(shadow, values(args), kwvalues(kwargs), pos)
	if err != nil {
		return nil, err
	}
	out := make([]argument, len(params))
	for i, p := range params {
		out[i].value = bound[i]
		if i < len(args) {
			out[i].expr = args[i].expr
		} else if kw, ok := kwargs[p.Name]; ok {
			out[i].expr = kw.expr
		}
	}
	return out, nil
}

// paramSignatures computes the key contribution of each bound argument.
func (c *Compiler) paramSignatures(fn *evaluator.Function, params []evaluator.Param, bound []evaluator.Object, r evaluator.BoxResolver, pos token.Position) ([]evaluator.Signature, error) {
	sigs := make([]evaluator.Signature, len(params))
	for i, p := range params {
		v := bound[i]
		if p.Constexpr && !evaluator.IsConstexpr(v) {
			return nil, diagnostics.NewNotConstantError(pos, "argument "+p.Name+" of "+fn.QualName)
		}
		sig, err := evaluator.SignatureOf(v, r)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "argument %s of %s: %v", p.Name, fn.QualName, err)
		}
		if cs, ok := sig.(*evaluator.ConstSig); ok && !evaluator.IsConstexpr(cs.Value) {
			return nil, diagnostics.NewTypeError(pos, "cannot pass %s to %s", v.Inspect(), fn.QualName)
		}
		sigs[i] = sig
	}
	return sigs, nil
}

// mangle names a new specialization, suffixing a counter when a different
// key already took the name.
func (c *Compiler) mangle(fn *evaluator.Function, sigs []evaluator.Signature, key specKey) string {
	base := fn.Module + "." + fn.QualName
	if len(sigs) > 0 {
		base += config.MangleParamsSeparator + evaluator.JoinKeys(sigs)
	}
	name := base
	for n := 1; ; n++ {
		other, taken := c.names[name]
		if !taken || other == key {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
	c.names[name] = key
	return name
}

// specialize returns the lowered specialization of fn for bound,
// lowering it on first request. class is set for a jit __init__.
func (c *Compiler) specialize(fn *evaluator.Function, params []evaluator.Param, bound []evaluator.Object, r evaluator.BoxResolver, class *evaluator.AggregateType, pos token.Position) (*specialization, error) {
	sigs, err := c.paramSignatures(fn, params, bound, r, pos)
	if err != nil {
		return nil, err
	}
	key := specKey{def: fn.Def, scope: fn.Scope, params: evaluator.JoinKeys(sigs)}
	if spec, ok := c.specs[key]; ok {
		if !spec.fn.Complete {
			return nil, diagnostics.NewSpecializationCycleError(pos, spec.name, c.chain(spec.name))
		}
		c.logf("reusing %s", spec.name)
		return spec, nil
	}
	// A new key for a function still being lowered is recursion through
	// changing constexpr arguments.
	for k, other := range c.specs {
		if k.def == fn.Def && !other.fn.Complete {
			return nil, diagnostics.NewSpecializationCycleError(pos, other.name, c.chain(other.name))
		}
	}
	if c.depth >= c.opts.MaxCallDepth {
		return nil, diagnostics.NewUnsupportedError(pos, fmt.Sprintf("call depth exceeds %d", c.opts.MaxCallDepth))
	}

	var types []typesystem.Type
	for _, s := range sigs {
		types = append(types, evaluator.LeafTypes(s)...)
	}
	name := c.mangle(fn, sigs, key)
	spec := &specialization{name: name, fn: c.module.NewFunc(name, false, types), params: sigs}
	spec.fn.Pos = c.pos(fn.Def.Token)
	c.specs[key] = spec
	c.logf("specializing %s", name)

	c.depth++
	defer func() { c.depth-- }()
	if err := c.lower(fn, spec, class); err != nil {
		return nil, err
	}
	return spec, nil
}

func (c *Compiler) chain(name string) []string {
	for i, s := range c.stack {
		if s == name {
			return append(append([]string(nil), c.stack[i:]...), name)
		}
	}
	return []string{name}
}

func (fb *funcBuilder) compileCall(e *ast.CallExpression) (evaluator.Object, error) {
	pos := fb.pos(e.Token)
	var recv ast.Expression
	if attr, ok := e.Function.(*ast.AttributeExpression); ok {
		recv = attr.Object
	}
	callee, err := fb.expr(e.Function)
	if err != nil {
		return nil, err
	}
	args := make([]argument, len(e.Arguments))
	for i, a := range e.Arguments {
		v, err := fb.expr(a)
		if err != nil {
			return nil, err
		}
		args[i] = argument{value: v, expr: a}
	}
	kwargs := make(map[string]argument, len(e.Keywords))
	for _, kw := range e.Keywords {
		v, err := fb.expr(kw.Value)
		if err != nil {
			return nil, err
		}
		kwargs[kw.Name] = argument{value: v, expr: kw.Value}
	}
	return fb.call(callee, recv, args, kwargs, pos)
}

func (fb *funcBuilder) call(callee evaluator.Object, recv ast.Expression, args []argument, kwargs map[string]argument, pos token.Position) (evaluator.Object, error) {
	switch f := callee.(type) {
	case *evaluator.Builtin:
		return f.Fn(&evaluator.CallContext{Pos: pos, Builder: fb.b}, values(args), kwvalues(kwargs))
	case *evaluator.Marker:
		if f.Name == config.ConstexprName && len(args) == 1 && len(kwargs) == 0 {
			if !evaluator.IsConstexpr(args[0].value) {
				return nil, diagnostics.NewNotConstantError(pos, "argument to constexpr")
			}
			return args[0].value, nil
		}
	case *evaluator.Function:
		return fb.callFunction(f, nil, args, kwargs, pos)
	case *evaluator.BoundMethod:
		if f.Method.Static {
			return fb.callFunction(f.Method, nil, args, kwargs, pos)
		}
		return fb.callFunction(f.Method, &argument{value: f.Receiver, expr: recv}, args, kwargs, pos)
	case *evaluator.AggregateType:
		return fb.construct(f, args, kwargs, pos)
	}
	return nil, diagnostics.NewTypeError(pos, "%s is not callable", callee.Inspect())
}

func (fb *funcBuilder) callFunction(fn *evaluator.Function, recv *argument, args []argument, kwargs map[string]argument, pos token.Position) (evaluator.Object, error) {
	switch fn.Kind {
	case evaluator.BuiltinMethod:
		return fb.callInline(fn, recv, args, kwargs, pos)
	case evaluator.JitFunction:
		if recv != nil {
			args = append([]argument{*recv}, args...)
		}
		return fb.callJit(fn, fn.Params, args, kwargs, nil, pos)
	}
	hostArgs := values(args)
	if recv != nil {
		hostArgs = append([]evaluator.Object{recv.value}, hostArgs...)
	}
	return fb.c.interp.CallHost(fn, hostArgs, kwvalues(kwargs), pos)
}

// callJit emits tt.call to the specialization of fn for args and rebuilds
// the result. Aggregates the callee leaves modified are stored back into
// the caller's storage they were read from.
func (fb *funcBuilder) callJit(fn *evaluator.Function, params []evaluator.Param, args []argument, kwargs map[string]argument, class *evaluator.AggregateType, pos token.Position) (evaluator.Object, error) {
	bound, err := bind(fn, params, args, kwargs, pos)
	if err != nil {
		return nil, err
	}
	spec, err := fb.c.specialize(fn, params, values(bound), fb.env, class, pos)
	if err != nil {
		return nil, err
	}
	var operands []*ir.Value
	for _, a := range bound {
		leaves, err := evaluator.Flatten(a.value, fb.env)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		operands = append(operands, leaves...)
	}
	op := fb.b.Call(spec.name, operands, spec.resultTypes())
	result, rest := evaluator.Rebuild(spec.result, op.Results)
	for _, w := range spec.writeback {
		var obj evaluator.Object
		obj, rest = evaluator.Rebuild(w.sig, rest)
		if err := fb.store(bound[w.param], obj.(*evaluator.Instance), pos); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// store writes an updated aggregate back to where arg was read from: its
// box, or the field chain it was reached through. Temporaries are dropped.
func (fb *funcBuilder) store(arg argument, inst *evaluator.Instance, pos token.Position) error {
	switch v := arg.value.(type) {
	case *evaluator.BoxRef:
		fb.env.SetBox(v.ID, inst)
	case *evaluator.Instance:
		attr, ok := arg.expr.(*ast.AttributeExpression)
		if !ok {
			return nil
		}
		if _, _, ok := attributePath(attr); !ok {
			return nil
		}
		return fb.assignAttribute(attr, inst, pos)
	}
	return nil
}

// callInline traces a builtin body directly into the caller.
func (fb *funcBuilder) callInline(fn *evaluator.Function, recv *argument, args []argument, kwargs map[string]argument, pos token.Position) (evaluator.Object, error) {
	if fb.c.depth >= fb.c.opts.MaxCallDepth {
		return nil, diagnostics.NewUnsupportedError(pos, fmt.Sprintf("call depth exceeds %d", fb.c.opts.MaxCallDepth))
	}
	fb.c.depth++
	defer func() { fb.c.depth-- }()

	if recv != nil {
		args = append([]argument{*recv}, args...)
	}
	bound, err := bind(fn, fn.Params, args, kwargs, pos)
	if err != nil {
		return nil, err
	}
	type temp struct {
		ref *evaluator.BoxRef
		arg argument
	}
	var temps []temp
	frame := evaluator.NewFrame(fn.Scope, fb.env)
	for i, p := range fn.Params {
		v := bound[i].value
		if inst, ok := v.(*evaluator.Instance); ok {
			ref := frame.NewBox(inst)
			temps = append(temps, temp{ref: ref, arg: bound[i]})
			v = ref
		}
		frame.Set(p.Name, v)
	}

	sub := &funcBuilder{c: fb.c, fn: fb.fn, b: fb.b, env: frame, inline: true}
	if err := sub.compileBlock(fn.Def.Body); err != nil {
		return nil, errors.Wrapf(err, "while tracing %s.%s", fn.Module, fn.QualName)
	}
	fb.env.AbsorbBoxes(frame)
	for _, t := range temps {
		inst, _ := fb.env.Box(t.ref.ID)
		if err := fb.store(t.arg, inst, pos); err != nil {
			return nil, err
		}
	}
	if !sub.returned {
		return evaluator.NONE, nil
	}
	return sub.retVal, nil
}

// construct calls an aggregate type. A builtin __init__ runs inline on a
// box in the caller; a jit __init__ gets its own specialization; a class
// without one takes its fields in declaration order.
func (fb *funcBuilder) construct(class *evaluator.AggregateType, args []argument, kwargs map[string]argument, pos token.Position) (evaluator.Object, error) {
	init := class.Init()
	if init == nil {
		return fb.initFields(class, args, kwargs, pos)
	}
	switch init.Kind {
	case evaluator.BuiltinMethod:
		ref := fb.env.NewBox(evaluator.NewInstance(class))
		fb.c.constructing[ref.ID] = true
		defer delete(fb.c.constructing, ref.ID)
		if _, err := fb.callInline(init, &argument{value: ref}, args, kwargs, pos); err != nil {
			return nil, err
		}
		inst, _ := fb.env.Box(ref.ID)
		if name := inst.Unset(); name != "" {
			return nil, diagnostics.NewTypeError(pos, "field %s.%s is not initialized", class.Name, name)
		}
		return inst, nil
	case evaluator.JitFunction:
		if len(init.Params) == 0 {
			return nil, diagnostics.NewTypeError(pos, "%s.__init__ takes no self", class.Name)
		}
		return fb.callJit(init, init.Params[1:], args, kwargs, class, pos)
	}
	return nil, diagnostics.NewUnsupportedError(pos, "host __init__ of "+class.Name)
}

func (fb *funcBuilder) initFields(class *evaluator.AggregateType, args []argument, kwargs map[string]argument, pos token.Position) (evaluator.Object, error) {
	if len(args) > len(class.Fields) {
		return nil, diagnostics.NewTypeError(pos, "%s takes %d fields but %d were given", class.Name, len(class.Fields), len(args))
	}
	inst := evaluator.NewInstance(class)
	used := 0
	for i, f := range class.Fields {
		var v evaluator.Object
		if i < len(args) {
			v = args[i].value
		}
		if kw, ok := kwargs[f.Name]; ok {
			if v != nil {
				return nil, diagnostics.NewTypeError(pos, "%s got multiple values for field %s", class.Name, f.Name)
			}
			v = kw.value
			used++
		}
		if v == nil {
			return nil, diagnostics.NewTypeError(pos, "%s missing field %s", class.Name, f.Name)
		}
		stored, err := fb.fieldValue(class, i, v, true, pos)
		if err != nil {
			return nil, err
		}
		inst.Values[i] = stored
	}
	if used != len(kwargs) {
		for name := range kwargs {
			if class.FieldIndex(name) < 0 {
				return nil, diagnostics.NewTypeError(pos, "%s has no field %s", class.Name, name)
			}
		}
	}
	return inst, nil
}
