package compiler

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/prettyprinter"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

var intOps = map[string]string{
	"+":  "arith.addi",
	"-":  "arith.subi",
	"*":  "arith.muli",
	"//": "arith.divsi",
	"%":  "arith.remsi",
}

var floatOps = map[string]string{
	"+":  "arith.addf",
	"-":  "arith.subf",
	"*":  "arith.mulf",
	"/":  "arith.divf",
	"//": "arith.divf",
	"%":  "arith.remf",
}

var intPredicates = map[string]string{
	"<":  "slt",
	"<=": "sle",
	">":  "sgt",
	">=": "sge",
	"==": "eq",
	"!=": "ne",
}

var floatPredicates = map[string]string{
	"<":  "olt",
	"<=": "ole",
	">":  "ogt",
	">=": "oge",
	"==": "oeq",
	"!=": "une",
}

func (fb *funcBuilder) VisitIdentifier(e *ast.Identifier) {
	fb.val, fb.err = fb.env.Lookup(fb.pos(e.Token), e.Value)
}

func (fb *funcBuilder) VisitIntegerLiteral(e *ast.IntegerLiteral) {
	fb.val = &evaluator.Integer{Value: e.Value}
}

func (fb *funcBuilder) VisitFloatLiteral(e *ast.FloatLiteral) {
	fb.val = &evaluator.Float{Value: e.Value}
}

func (fb *funcBuilder) VisitBooleanLiteral(e *ast.BooleanLiteral) {
	fb.val = evaluator.NativeBool(e.Value)
}

func (fb *funcBuilder) VisitNoneLiteral(*ast.NoneLiteral) { fb.val = evaluator.NONE }

func (fb *funcBuilder) VisitStringLiteral(e *ast.StringLiteral) {
	fb.val = &evaluator.String{Value: e.Value}
}

func (fb *funcBuilder) VisitTupleLiteral(e *ast.TupleLiteral) {
	fb.val, fb.err = fb.sequence(e.Elements)
}

func (fb *funcBuilder) VisitListLiteral(e *ast.ListLiteral) {
	fb.val, fb.err = fb.sequence(e.Elements)
}

func (fb *funcBuilder) VisitAttributeExpression(e *ast.AttributeExpression) {
	fb.val, fb.err = fb.attribute(e)
}

func (fb *funcBuilder) VisitIndexExpression(e *ast.IndexExpression) {
	fb.val, fb.err = fb.index(e)
}

func (fb *funcBuilder) VisitCallExpression(e *ast.CallExpression) {
	fb.val, fb.err = fb.compileCall(e)
}

func (fb *funcBuilder) VisitInfixExpression(e *ast.InfixExpression) {
	fb.val, fb.err = fb.infix(e)
}

func (fb *funcBuilder) VisitPrefixExpression(e *ast.PrefixExpression) {
	fb.val, fb.err = fb.prefix(e)
}

// sequence builds a tuple. Elements keep their boxes so that a tuple of
// aggregates aliases its members.
func (fb *funcBuilder) sequence(exprs []ast.Expression) (evaluator.Object, error) {
	elems := make([]evaluator.Object, len(exprs))
	for i, x := range exprs {
		v, err := fb.expr(x)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &evaluator.Tuple{Elements: elems}, nil
}

func (fb *funcBuilder) attribute(e *ast.AttributeExpression) (evaluator.Object, error) {
	obj, err := fb.expr(e.Object)
	if err != nil {
		return nil, err
	}
	name := e.Name.Value
	pos := fb.pos(e.Name.Token)
	switch o := obj.(type) {
	case *evaluator.BoxRef:
		inst, ok := fb.env.Box(o.ID)
		if !ok {
			return nil, diagnostics.NewTypeError(pos, "dangling aggregate %s", o.Inspect())
		}
		return member(o, inst, name, pos)
	case *evaluator.Instance:
		return member(o, o, name, pos)
	case *evaluator.Tensor:
		switch name {
		case config.ShapeAttrName:
			return o.Extent(), nil
		case config.DTypeAttrName:
			return &evaluator.DType{Value: o.IRType().DType}, nil
		}
		return nil, diagnostics.NewTypeError(pos, "tensor has no attribute %s", name)
	}
	return evaluator.HostAttribute(obj, name, pos)
}

// member reads a field or binds a method of inst; recv is what the method
// receives as self.
func member(recv evaluator.Object, inst *evaluator.Instance, name string, pos token.Position) (evaluator.Object, error) {
	if idx := inst.Class.FieldIndex(name); idx >= 0 {
		v := inst.Values[idx]
		if v == nil {
			return nil, diagnostics.NewTypeError(pos, "field %s.%s read before it is assigned", inst.Class.Name, name)
		}
		return v, nil
	}
	if m, ok := inst.Class.Methods[name]; ok {
		return &evaluator.BoundMethod{Receiver: recv, Method: m}, nil
	}
	return nil, diagnostics.NewTypeError(pos, "%s has no attribute %s", inst.Class.Name, name)
}

func (fb *funcBuilder) index(e *ast.IndexExpression) (evaluator.Object, error) {
	left, err := fb.expr(e.Left)
	if err != nil {
		return nil, err
	}
	idx, err := fb.expr(e.Index)
	if err != nil {
		return nil, err
	}
	if _, ok := left.(*evaluator.Tensor); ok {
		return nil, diagnostics.NewUnsupportedError(fb.pos(e.Token), "tensor indexing "+prettyprinter.Print(e))
	}
	return evaluator.IndexObject(left, idx, fb.pos(e.Token))
}

func (fb *funcBuilder) infix(e *ast.InfixExpression) (evaluator.Object, error) {
	pos := fb.pos(e.Token)
	left, err := fb.expr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Operator == "and" || e.Operator == "or" {
		return fb.logical(e, left, pos)
	}
	right, err := fb.expr(e.Right)
	if err != nil {
		return nil, err
	}
	return fb.binary(e.Operator, left, right, pos)
}

func (fb *funcBuilder) logical(e *ast.InfixExpression, left evaluator.Object, pos token.Position) (evaluator.Object, error) {
	if evaluator.IsConstexpr(left) {
		truth, err := evaluator.Truthy(left)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		if (e.Operator == "and") != truth {
			return left, nil
		}
		return fb.expr(e.Right)
	}
	right, err := fb.expr(e.Right)
	if err != nil {
		return nil, err
	}
	lc, err := fb.condition(left, pos)
	if err != nil {
		return nil, err
	}
	rc, err := fb.condition(right, pos)
	if err != nil {
		return nil, err
	}
	name := "arith.andi"
	if e.Operator == "or" {
		name = "arith.ori"
	}
	return evaluator.NewTensor(fb.b.Binary(name, lc, rc)), nil
}

// binary applies an infix operator. Two constants fold on the host; any
// runtime operand turns the operation into IR.
func (fb *funcBuilder) binary(op string, left, right evaluator.Object, pos token.Position) (evaluator.Object, error) {
	if evaluator.IsConstexpr(left) && evaluator.IsConstexpr(right) {
		result, err := evaluator.BinaryOp(op, left, right)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		return result, nil
	}
	lt, rt, err := fb.operands(left, right, pos)
	if err != nil {
		return nil, err
	}
	dtype := lt.IRType().DType
	if pred, ok := intPredicates[op]; ok {
		if dtype.IsFloat() {
			return evaluator.NewTensor(fb.b.Compare(ir.OpCmpF, floatPredicates[op], lt.Value, rt.Value)), nil
		}
		return evaluator.NewTensor(fb.b.Compare(ir.OpCmpI, pred, lt.Value, rt.Value)), nil
	}
	table := intOps
	if dtype.IsFloat() {
		table = floatOps
	}
	name, ok := table[op]
	if !ok {
		return nil, diagnostics.NewTypeError(pos, "unsupported operator %s for %s", op, lt.IRType())
	}
	return evaluator.NewTensor(fb.b.Binary(name, lt.Value, rt.Value)), nil
}

// operands brings both sides of a runtime operation to one type. A constant
// takes the type of the other side; a scalar is splatted to a block.
func (fb *funcBuilder) operands(left, right evaluator.Object, pos token.Position) (*evaluator.Tensor, *evaluator.Tensor, error) {
	lt, lok := left.(*evaluator.Tensor)
	rt, rok := right.(*evaluator.Tensor)
	var err error
	switch {
	case lok && !rok:
		rt, err = fb.constantLike(right, lt.IRType(), pos)
	case rok && !lok:
		lt, err = fb.constantLike(left, rt.IRType(), pos)
	case !lok && !rok:
		return nil, nil, diagnostics.NewTypeError(pos, "unsupported operands %s and %s", left.Inspect(), right.Inspect())
	}
	if err != nil {
		return nil, nil, err
	}
	ty, err := typesystem.Broadcast(lt.IRType(), rt.IRType())
	if err != nil {
		return nil, nil, diagnostics.NewTypeError(pos, "%v", err)
	}
	if !lt.IRType().Equal(ty) {
		lt = evaluator.NewTensor(fb.b.Splat(lt.Value, ty))
	}
	if !rt.IRType().Equal(ty) {
		rt = evaluator.NewTensor(fb.b.Splat(rt.Value, ty))
	}
	return lt, rt, nil
}

func (fb *funcBuilder) constantLike(obj evaluator.Object, t typesystem.Type, pos token.Position) (*evaluator.Tensor, error) {
	if !evaluator.IsScalarConstant(obj) {
		return nil, diagnostics.NewTypeError(pos, "unsupported operand %s", obj.Inspect())
	}
	if _, isFloat := obj.(*evaluator.Float); isFloat && !t.DType.IsFloat() {
		return nil, diagnostics.NewTypeError(pos, "cannot combine %s with %s", obj.Inspect(), t)
	}
	v, err := evaluator.Materialize(fb.b, obj, t)
	if err != nil {
		return nil, diagnostics.NewTypeError(pos, "%v", err)
	}
	return v, nil
}

func (fb *funcBuilder) prefix(e *ast.PrefixExpression) (evaluator.Object, error) {
	pos := fb.pos(e.Token)
	operand, err := fb.expr(e.Right)
	if err != nil {
		return nil, err
	}
	if evaluator.IsConstexpr(operand) {
		result, err := evaluator.UnaryOp(e.Operator, operand)
		if err != nil {
			return nil, diagnostics.NewTypeError(pos, "%v", err)
		}
		return result, nil
	}
	switch e.Operator {
	case "not":
		c, err := fb.condition(operand, pos)
		if err != nil {
			return nil, err
		}
		one := fb.b.Constant(true, c.Type)
		return evaluator.NewTensor(fb.b.Binary("arith.xori", c, one)), nil
	case "-":
		t, ok := operand.(*evaluator.Tensor)
		if !ok {
			return nil, diagnostics.NewTypeError(pos, "bad operand for unary -: %s", operand.Inspect())
		}
		return fb.binary("-", &evaluator.Integer{Value: 0}, t, pos)
	}
	return nil, diagnostics.NewTypeError(pos, "unsupported unary operator %s", e.Operator)
}
