package compiler

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/prettyprinter"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// funcBuilder traces one body into the current insertion block. Statement
// visitors leave their error in err; expression visitors leave their
// result in val.
type funcBuilder struct {
	c    *Compiler
	fn   *ir.Func
	spec *specialization // nil for bodies traced inline
	b    *ir.Builder
	env  *evaluator.Environment

	// self is the box under construction in a jit __init__.
	self *evaluator.BoxRef

	inline bool
	// structured counts the scf regions enclosing the insertion point.
	structured int

	returned bool
	retVal   evaluator.Object

	val evaluator.Object
	err error
}

// nested returns a builder for a region body with its own scope.
func (fb *funcBuilder) nested(env *evaluator.Environment, block *ir.Block) *funcBuilder {
	sub := fb.branch(env, block)
	sub.structured++
	return sub
}

// branch returns a builder for an unstructured successor block.
func (fb *funcBuilder) branch(env *evaluator.Environment, block *ir.Block) *funcBuilder {
	b := ir.NewBuilder(block)
	return &funcBuilder{
		c:          fb.c,
		fn:         fb.fn,
		spec:       fb.spec,
		b:          b,
		env:        env,
		self:       fb.self,
		inline:     fb.inline,
		structured: fb.structured,
	}
}

func (fb *funcBuilder) pos(tok token.Token) token.Position { return fb.c.pos(tok) }

// done reports whether the rest of the current block is unreachable.
func (fb *funcBuilder) done() bool { return fb.returned || fb.b.Terminated() }

func (fb *funcBuilder) compileBlock(block ast.Block) error {
	for _, stmt := range block {
		if fb.done() {
			return nil
		}
		if err := fb.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (fb *funcBuilder) compileStatement(stmt ast.Statement) error {
	fb.b.SetPos(fb.pos(stmt.GetToken()))
	fb.err = nil
	stmt.Accept(fb)
	err := fb.err
	fb.err = nil
	return err
}

func (fb *funcBuilder) expr(e ast.Expression) (evaluator.Object, error) {
	fb.val, fb.err = nil, nil
	e.Accept(fb)
	val, err := fb.val, fb.err
	fb.val, fb.err = nil, nil
	return val, err
}

func (fb *funcBuilder) unsupported(tok token.Token, construct string) error {
	return diagnostics.NewUnsupportedError(fb.pos(tok), construct)
}

func (fb *funcBuilder) VisitModule(m *ast.Module) {
	fb.err = fmt.Errorf("compiler: module %s visited as a statement", m.Name)
}

func (fb *funcBuilder) VisitImportStatement(s *ast.ImportStatement) {
	fb.err = fb.unsupported(s.Token, "import in traced code")
}

func (fb *funcBuilder) VisitFunctionDef(s *ast.FunctionDef) {
	fb.err = fb.unsupported(s.Token, "nested function definition in traced code")
}

func (fb *funcBuilder) VisitClassDef(s *ast.ClassDef) {
	fb.err = fb.unsupported(s.Token, "class definition in traced code")
}

func (fb *funcBuilder) VisitPassStatement(*ast.PassStatement) {}

func (fb *funcBuilder) VisitExpressionStatement(s *ast.ExpressionStatement) {
	_, fb.err = fb.expr(s.Expression)
}

func (fb *funcBuilder) VisitAssignStatement(s *ast.AssignStatement) {
	fb.err = fb.compileAssign(s)
}

func (fb *funcBuilder) VisitAugAssignStatement(s *ast.AugAssignStatement) {
	fb.err = fb.compileAugAssign(s)
}

func (fb *funcBuilder) VisitIfStatement(s *ast.IfStatement) {
	fb.err = fb.compileIf(s)
}

func (fb *funcBuilder) VisitForStatement(s *ast.ForStatement) {
	fb.err = fb.compileFor(s)
}

func (fb *funcBuilder) VisitWhileStatement(s *ast.WhileStatement) {
	fb.err = fb.compileWhile(s)
}

func (fb *funcBuilder) VisitReturnStatement(s *ast.ReturnStatement) {
	fb.err = fb.compileReturn(s)
}

func (fb *funcBuilder) compileAssign(s *ast.AssignStatement) error {
	pos := fb.pos(s.Token)
	if s.Value == nil {
		return fb.unsupported(s.Token, "declaration without a value in traced code")
	}
	value, err := fb.expr(s.Value)
	if err != nil {
		return err
	}
	constexpr := false
	if s.Annotation != nil {
		ann, err := fb.expr(s.Annotation)
		if err != nil {
			return err
		}
		constexpr = evaluator.IsConstexprAnnotation(ann)
	}
	return fb.assign(s.Target, value, constexpr, pos)
}

func (fb *funcBuilder) compileAugAssign(s *ast.AugAssignStatement) error {
	pos := fb.pos(s.Token)
	current, err := fb.expr(s.Target)
	if err != nil {
		return err
	}
	rhs, err := fb.expr(s.Value)
	if err != nil {
		return err
	}
	result, err := fb.binary(s.Operator, current, rhs, pos)
	if err != nil {
		return err
	}
	return fb.assign(s.Target, result, false, pos)
}

func (fb *funcBuilder) assign(target ast.Expression, value evaluator.Object, constexpr bool, pos token.Position) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return fb.bindName(t.Value, value, constexpr, pos)
	case *ast.AttributeExpression:
		return fb.assignAttribute(t, value, pos)
	case *ast.TupleLiteral:
		tuple, ok := value.(*evaluator.Tuple)
		if !ok {
			return diagnostics.NewTypeError(pos, "cannot unpack %s", value.Inspect())
		}
		if len(tuple.Elements) != len(t.Elements) {
			return diagnostics.NewTypeError(pos, "expected %d values to unpack, got %d", len(t.Elements), len(tuple.Elements))
		}
		for i, elem := range t.Elements {
			if err := fb.assign(elem, tuple.Elements[i], constexpr, pos); err != nil {
				return err
			}
		}
		return nil
	}
	return diagnostics.NewUnsupportedError(pos, "assignment to "+prettyprinter.Print(target))
}

// bindName binds a local. Aggregates get a fresh box unless value already
// is one; scalar constants are materialized unless annotated constexpr.
func (fb *funcBuilder) bindName(name string, value evaluator.Object, constexpr bool, pos token.Position) error {
	if constexpr {
		if !evaluator.IsConstexpr(value) {
			return diagnostics.NewNotConstantError(pos, "value assigned to constexpr "+name)
		}
		fb.env.Set(name, value)
		return nil
	}
	switch v := value.(type) {
	case *evaluator.Instance:
		fb.env.Set(name, fb.env.NewBox(v))
		return nil
	case *evaluator.BoxRef:
		fb.env.Set(name, v)
		return nil
	}
	if evaluator.IsScalarConstant(value) {
		t, err := evaluator.ToTensor(fb.b, value)
		if err != nil {
			return diagnostics.NewTypeError(pos, "%v", err)
		}
		value = t
	}
	fb.env.Set(name, value)
	return nil
}

// attributePath splits a.b.c into the root identifier a and the field
// path b, c.
func attributePath(e *ast.AttributeExpression) (*ast.Identifier, []string, bool) {
	var path []string
	var cur ast.Expression = e
	for {
		switch x := cur.(type) {
		case *ast.AttributeExpression:
			path = append([]string{x.Name.Value}, path...)
			cur = x.Object
		case *ast.Identifier:
			return x, path, true
		default:
			return nil, nil, false
		}
	}
}

func (fb *funcBuilder) assignAttribute(target *ast.AttributeExpression, value evaluator.Object, pos token.Position) error {
	root, path, ok := attributePath(target)
	if !ok {
		return diagnostics.NewUnsupportedError(pos, "attribute assignment through "+prettyprinter.Print(target.Object))
	}
	obj, err := fb.env.Lookup(fb.pos(root.Token), root.Value)
	if err != nil {
		return err
	}
	ref, ok := obj.(*evaluator.BoxRef)
	if !ok {
		return diagnostics.NewTypeError(pos, "cannot set attribute %s on %s", path[0], obj.Inspect())
	}
	inst, ok := fb.env.Box(ref.ID)
	if !ok {
		return fmt.Errorf("compiler: dangling box %s", ref.Inspect())
	}
	updated, err := fb.setPath(inst, path, value, fb.c.constructing[ref.ID], pos)
	if err != nil {
		return err
	}
	fb.env.SetBox(ref.ID, updated)
	return nil
}

func (fb *funcBuilder) setPath(inst *evaluator.Instance, path []string, value evaluator.Object, constructing bool, pos token.Position) (*evaluator.Instance, error) {
	idx := inst.Class.FieldIndex(path[0])
	if idx < 0 {
		return nil, diagnostics.NewTypeError(pos, "%s has no field %s", inst.Class.Name, path[0])
	}
	if len(path) == 1 {
		v, err := fb.fieldValue(inst.Class, idx, value, constructing, pos)
		if err != nil {
			return nil, err
		}
		return inst.With(idx, v), nil
	}
	child, ok := inst.Values[idx].(*evaluator.Instance)
	if !ok {
		return nil, diagnostics.NewTypeError(pos, "field %s.%s is not an aggregate", inst.Class.Name, path[0])
	}
	updated, err := fb.setPath(child, path[1:], value, false, pos)
	if err != nil {
		return nil, err
	}
	return inst.With(idx, updated), nil
}

// fieldValue checks value against the declared kind of a field and returns
// what the field stores.
func (fb *funcBuilder) fieldValue(class *evaluator.AggregateType, idx int, value evaluator.Object, constructing bool, pos token.Position) (evaluator.Object, error) {
	field := class.Fields[idx]
	value, err := evaluator.Deref(value, fb.env)
	if err != nil {
		return nil, err
	}
	if field.Constexpr {
		if !constructing {
			return nil, diagnostics.NewTypeError(pos, "constexpr field %s.%s can only be set in __init__", class.Name, field.Name)
		}
		if !evaluator.IsConstexpr(value) {
			return nil, diagnostics.NewNotConstantError(pos, "value of constexpr field "+class.Name+"."+field.Name)
		}
		return value, nil
	}
	if field.Class != nil {
		inst, ok := value.(*evaluator.Instance)
		if !ok || !evaluator.SameClass(inst.Class, field.Class) {
			return nil, diagnostics.NewTypeError(pos, "field %s.%s expects %s, got %s", class.Name, field.Name, field.Class.Name, value.Inspect())
		}
		return inst, nil
	}
	switch v := value.(type) {
	case *evaluator.Tensor, *evaluator.Tuple:
		return v, nil
	}
	if evaluator.IsScalarConstant(value) {
		t, err := evaluator.ToTensor(fb.b, value)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		return t, nil
	}
	return nil, diagnostics.NewTypeError(pos, "field %s.%s expects a runtime value, got %s", class.Name, field.Name, value.Inspect())
}

func (fb *funcBuilder) compileReturn(s *ast.ReturnStatement) error {
	var value evaluator.Object = evaluator.NONE
	if s.Value != nil {
		v, err := fb.expr(s.Value)
		if err != nil {
			return err
		}
		value = v
	}
	if fb.structured > 0 {
		return fb.unsupported(s.Token, "return inside a loop or a branch on a runtime condition")
	}
	if fb.inline {
		fb.returned = true
		fb.retVal = value
		return nil
	}
	return fb.emitReturn(value, fb.pos(s.Token))
}

// emitReturn terminates the current block with tt.return. The first return
// of a specialization fixes its result signature and the signatures of the
// aggregates passed back to the caller.
func (fb *funcBuilder) emitReturn(value evaluator.Object, pos token.Position) error {
	spec := fb.spec
	if fb.self != nil {
		if _, ok := value.(*evaluator.None); !ok {
			return diagnostics.NewTypeError(pos, "__init__ should return None, not %s", value.Inspect())
		}
		inst, _ := fb.env.Box(fb.self.ID)
		if name := inst.Unset(); name != "" {
			return diagnostics.NewTypeError(pos, "field %s.%s is not initialized", inst.Class.Name, name)
		}
		value = inst
	}
	written := make([]evaluator.Object, len(spec.writeback))
	for i, w := range spec.writeback {
		inst, ok := fb.env.Box(w.box)
		if !ok {
			return fmt.Errorf("compiler: dangling argument box")
		}
		written[i] = inst
	}

	if !spec.returned {
		sig, err := evaluator.SignatureOf(value, fb.env)
		if err != nil {
			return diagnostics.NewTypeError(pos, "%v", err)
		}
		spec.result = sig
		results := evaluator.LeafTypes(sig)
		for i := range spec.writeback {
			ws, err := evaluator.SignatureOf(written[i], fb.env)
			if err != nil {
				return diagnostics.NewTypeError(pos, "%v", err)
			}
			spec.writeback[i].sig = ws
			results = append(results, evaluator.LeafTypes(ws)...)
		}
		spec.fn.Type.Results = results
		spec.returned = true
	}

	leaves, err := conform(fb.b, spec.result, value, fb.env, pos)
	if err != nil {
		return err
	}
	for i, w := range spec.writeback {
		l, err := conform(fb.b, w.sig, written[i], fb.env, pos)
		if err != nil {
			return err
		}
		leaves = append(leaves, l...)
	}
	fb.b.Return(leaves)
	return nil
}

// condition lowers a truth test to an i1 scalar.
func (fb *funcBuilder) condition(obj evaluator.Object, pos token.Position) (*ir.Value, error) {
	t, ok := obj.(*evaluator.Tensor)
	if !ok {
		truth, err := evaluator.Truthy(obj)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		return fb.b.Constant(truth, typesystem.Scalar(typesystem.Int1)), nil
	}
	ty := t.IRType()
	if !ty.IsScalar() {
		return nil, diagnostics.NewTypeError(pos, "truth value of a block tensor %s is ambiguous", ty)
	}
	switch {
	case ty.DType.IsBool():
		return t.Value, nil
	case ty.DType.IsInt():
		zero := fb.b.Constant(int64(0), ty)
		return fb.b.Compare(ir.OpCmpI, "ne", t.Value, zero), nil
	case ty.DType.IsFloat():
		zero := fb.b.Constant(float64(0), ty)
		return fb.b.Compare(ir.OpCmpF, "une", t.Value, zero), nil
	}
	return nil, diagnostics.NewTypeError(pos, "cannot test the truth of %s", ty)
}
