package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/token"
)

// Eval evaluates a host expression in env.
func (in *Interpreter) Eval(expr ast.Expression, env *Environment) (Object, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: e.Value}, nil
	case *ast.FloatLiteral:
		return &Float{Value: e.Value}, nil
	case *ast.BooleanLiteral:
		return NativeBool(e.Value), nil
	case *ast.NoneLiteral:
		return NONE, nil
	case *ast.StringLiteral:
		return &String{Value: e.Value}, nil

	case *ast.Identifier:
		return env.Lookup(in.pos(e.Token), e.Value)

	case *ast.TupleLiteral:
		return in.evalSequence(e.Elements, env)
	case *ast.ListLiteral:
		return in.evalSequence(e.Elements, env)

	case *ast.AttributeExpression:
		obj, err := in.Eval(e.Object, env)
		if err != nil {
			return nil, err
		}
		return HostAttribute(obj, e.Name.Value, in.pos(e.Name.Token))

	case *ast.IndexExpression:
		left, err := in.Eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		index, err := in.Eval(e.Index, env)
		if err != nil {
			return nil, err
		}
		return IndexObject(left, index, in.pos(e.Token))

	case *ast.CallExpression:
		callee, err := in.Eval(e.Function, env)
		if err != nil {
			return nil, err
		}
		args := make([]Object, len(e.Arguments))
		for i, a := range e.Arguments {
			if args[i], err = in.Eval(a, env); err != nil {
				return nil, err
			}
		}
		kwargs := make(map[string]Object, len(e.Keywords))
		for _, kw := range e.Keywords {
			if kwargs[kw.Name], err = in.Eval(kw.Value, env); err != nil {
				return nil, err
			}
		}
		return in.CallObject(callee, args, kwargs, in.pos(e.Token))

	case *ast.InfixExpression:
		left, err := in.Eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		if e.Operator == "and" || e.Operator == "or" {
			truth, err := Truthy(left)
			if err != nil {
				return nil, diagnostics.NewNotConstantError(in.pos(e.Token), err.Error())
			}
			if (e.Operator == "and") != truth {
				return left, nil
			}
			return in.Eval(e.Right, env)
		}
		right, err := in.Eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		result, err := BinaryOp(e.Operator, left, right)
		if err != nil {
			return nil, diagnostics.NewTypeError(in.pos(e.Token), "%v", err)
		}
		return result, nil

	case *ast.PrefixExpression:
		operand, err := in.Eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		result, err := UnaryOp(e.Operator, operand)
		if err != nil {
			return nil, diagnostics.NewTypeError(in.pos(e.Token), "%v", err)
		}
		return result, nil
	}
	return nil, diagnostics.NewUnsupportedError(in.pos(expr.GetToken()), fmt.Sprintf("expression %T in host code", expr))
}

func (in *Interpreter) evalSequence(exprs []ast.Expression, env *Environment) (Object, error) {
	elems := make([]Object, len(exprs))
	for i, x := range exprs {
		v, err := in.Eval(x, env)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &Tuple{Elements: elems}, nil
}

// HostAttribute resolves attributes that never depend on runtime state:
// namespace members and members of aggregate types.
func HostAttribute(obj Object, name string, pos token.Position) (Object, error) {
	switch o := obj.(type) {
	case *Namespace:
		if member, ok := o.Get(name); ok {
			return member, nil
		}
		return nil, diagnostics.NewTypeError(pos, "module %s has no attribute %s", o.Name, name)
	case *AggregateType:
		if m, ok := o.Methods[name]; ok {
			return m, nil
		}
		return nil, diagnostics.NewTypeError(pos, "type %s has no attribute %s", o.Name, name)
	case *Range:
		switch name {
		case "start":
			return o.Start, nil
		case "stop":
			return o.Stop, nil
		case "step":
			return o.Step, nil
		}
	}
	return nil, diagnostics.NewTypeError(pos, "%s has no attribute %s", obj.Inspect(), name)
}

// IndexObject subscripts a constant tuple or string with a constant index.
func IndexObject(left, index Object, pos token.Position) (Object, error) {
	idx, ok := index.(*Integer)
	if !ok {
		if IsConstexpr(index) {
			return nil, diagnostics.NewTypeError(pos, "indices must be integers, not %s", index.Inspect())
		}
		return nil, diagnostics.NewNotConstantError(pos, "index")
	}
	var n int64
	switch l := left.(type) {
	case *Tuple:
		n = int64(len(l.Elements))
	case *String:
		n = int64(len(l.Value))
	default:
		return nil, diagnostics.NewTypeError(pos, "%s is not subscriptable", left.Inspect())
	}
	i := idx.Value
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, diagnostics.NewTypeError(pos, "index %d out of range", idx.Value)
	}
	if s, ok := left.(*String); ok {
		return &String{Value: s.Value[i : i+1]}, nil
	}
	return left.(*Tuple).Elements[i], nil
}
