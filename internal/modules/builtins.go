package modules

import (
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// argument returns the i-th positional argument or the keyword of the same
// name. The tracer-internal _semantic keyword is ignored.
func argument(args []evaluator.Object, kwargs map[string]evaluator.Object, i int, name string) (evaluator.Object, bool) {
	if i < len(args) {
		return args[i], true
	}
	obj, ok := kwargs[name]
	return obj, ok
}

func checkArity(ctx *evaluator.CallContext, fn string, args []evaluator.Object, kwargs map[string]evaluator.Object, names ...string) error {
	if len(args) > len(names) {
		return diagnostics.NewTypeError(ctx.Pos, "%s() takes %d positional arguments but %d were given", fn, len(names), len(args))
	}
	for k := range kwargs {
		if k == "_semantic" {
			continue
		}
		found := false
		for i, n := range names {
			if n == k {
				if i < len(args) {
					return diagnostics.NewTypeError(ctx.Pos, "%s() got multiple values for argument '%s'", fn, k)
				}
				found = true
			}
		}
		if !found {
			return diagnostics.NewTypeError(ctx.Pos, "%s() got an unexpected keyword argument '%s'", fn, k)
		}
	}
	return nil
}

func requireBuilder(ctx *evaluator.CallContext, fn string) error {
	if ctx.Builder == nil {
		return diagnostics.NewUnsupportedError(ctx.Pos, fn+"() outside traced code")
	}
	return nil
}

func constInt(ctx *evaluator.CallContext, fn string, obj evaluator.Object) (int64, error) {
	switch v := obj.(type) {
	case *evaluator.Integer:
		return v.Value, nil
	case *evaluator.Tensor:
		return 0, diagnostics.NewNotConstantError(ctx.Pos, fn+"() argument "+v.Inspect())
	}
	return 0, diagnostics.NewTypeError(ctx.Pos, "%s() expects an integer, got %s", fn, obj.Inspect())
}

// shapeOf accepts an integer or a tuple of integers.
func shapeOf(ctx *evaluator.CallContext, fn string, obj evaluator.Object) ([]int, error) {
	if t, ok := obj.(*evaluator.Tuple); ok {
		shape := make([]int, len(t.Elements))
		for i, e := range t.Elements {
			d, err := constInt(ctx, fn, e)
			if err != nil {
				return nil, err
			}
			if d <= 0 {
				return nil, diagnostics.NewTypeError(ctx.Pos, "%s() shape dimensions must be positive", fn)
			}
			shape[i] = int(d)
		}
		return shape, nil
	}
	d, err := constInt(ctx, fn, obj)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() shape dimensions must be positive", fn)
	}
	return []int{int(d)}, nil
}

func dtypeOf(ctx *evaluator.CallContext, fn string, obj evaluator.Object) (typesystem.DType, error) {
	d, ok := obj.(*evaluator.DType)
	if !ok {
		return typesystem.Invalid, diagnostics.NewTypeError(ctx.Pos, "%s() expects a dtype, got %s", fn, obj.Inspect())
	}
	return d.Value, nil
}

func builtinArange(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.ArangeFuncName
	if err := checkArity(ctx, fn, args, kwargs, "start", "end"); err != nil {
		return nil, err
	}
	startObj, ok1 := argument(args, kwargs, 0, "start")
	endObj, ok2 := argument(args, kwargs, 1, "end")
	if !ok1 || !ok2 {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() requires start and end", fn)
	}
	start, err := constInt(ctx, fn, startObj)
	if err != nil {
		return nil, err
	}
	end, err := constInt(ctx, fn, endObj)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() end must be greater than start", fn)
	}
	if err := requireBuilder(ctx, fn); err != nil {
		return nil, err
	}
	return evaluator.NewTensor(ctx.Builder.MakeRange(start, end)), nil
}

func fill(ctx *evaluator.CallContext, fn string, shapeObj, value, dtypeObj evaluator.Object) (evaluator.Object, error) {
	shape, err := shapeOf(ctx, fn, shapeObj)
	if err != nil {
		return nil, err
	}
	dtype, err := dtypeOf(ctx, fn, dtypeObj)
	if err != nil {
		return nil, err
	}
	if _, ok := value.(*evaluator.Tensor); ok {
		return nil, diagnostics.NewNotConstantError(ctx.Pos, fn+"() fill value")
	}
	if err := requireBuilder(ctx, fn); err != nil {
		return nil, err
	}
	t, err := evaluator.Materialize(ctx.Builder, value, typesystem.Tensor(dtype, shape...))
	if err != nil {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s(): %s", fn, err.Error())
	}
	return t, nil
}

func builtinFull(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.FullFuncName
	if err := checkArity(ctx, fn, args, kwargs, "shape", "value", "dtype"); err != nil {
		return nil, err
	}
	shape, ok1 := argument(args, kwargs, 0, "shape")
	value, ok2 := argument(args, kwargs, 1, "value")
	dtype, ok3 := argument(args, kwargs, 2, "dtype")
	if !ok1 || !ok2 || !ok3 {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() requires shape, value and dtype", fn)
	}
	return fill(ctx, fn, shape, value, dtype)
}

func builtinZeros(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.ZerosFuncName
	if err := checkArity(ctx, fn, args, kwargs, "shape", "dtype"); err != nil {
		return nil, err
	}
	shape, ok1 := argument(args, kwargs, 0, "shape")
	dtype, ok2 := argument(args, kwargs, 1, "dtype")
	if !ok1 || !ok2 {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() requires shape and dtype", fn)
	}
	return fill(ctx, fn, shape, &evaluator.Integer{Value: 0}, dtype)
}

func builtinToTensor(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.ToTensorFuncName
	if err := checkArity(ctx, fn, args, kwargs, "x"); err != nil {
		return nil, err
	}
	x, ok := argument(args, kwargs, 0, "x")
	if !ok {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() requires an argument", fn)
	}
	if t, ok := x.(*evaluator.Tensor); ok {
		return t, nil
	}
	if err := requireBuilder(ctx, fn); err != nil {
		return nil, err
	}
	t, err := evaluator.ToTensor(ctx.Builder, x)
	if err != nil {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s(): %s", fn, err.Error())
	}
	return t, nil
}

// rangeArgs normalizes the one, two and three argument forms.
func rangeArgs(ctx *evaluator.CallContext, fn string, args []evaluator.Object, kwargs map[string]evaluator.Object) (start, stop, step evaluator.Object, err error) {
	for k := range kwargs {
		if k != "_semantic" {
			return nil, nil, nil, diagnostics.NewTypeError(ctx.Pos, "%s() got an unexpected keyword argument '%s'", fn, k)
		}
	}
	start, step = &evaluator.Integer{Value: 0}, &evaluator.Integer{Value: 1}
	switch len(args) {
	case 1:
		stop = args[0]
	case 2:
		start, stop = args[0], args[1]
	case 3:
		start, stop, step = args[0], args[1], args[2]
	default:
		return nil, nil, nil, diagnostics.NewTypeError(ctx.Pos, "%s() expects 1 to 3 arguments, got %d", fn, len(args))
	}
	if s, ok := step.(*evaluator.Integer); ok && s.Value == 0 {
		return nil, nil, nil, diagnostics.NewTypeError(ctx.Pos, "%s() step must not be zero", fn)
	}
	return start, stop, step, nil
}

func builtinStaticRange(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.StaticRangeFuncName
	start, stop, step, err := rangeArgs(ctx, fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	for _, b := range []evaluator.Object{start, stop, step} {
		if _, err := constInt(ctx, fn, b); err != nil {
			return nil, err
		}
	}
	return &evaluator.Range{Start: start, Stop: stop, Step: step, Static: true}, nil
}

// builtinRange accepts integers or scalar integer tensors as bounds.
func builtinRange(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.RangeFuncName
	start, stop, step, err := rangeArgs(ctx, fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	for _, b := range []evaluator.Object{start, stop, step} {
		switch v := b.(type) {
		case *evaluator.Integer:
		case *evaluator.Tensor:
			if t := v.IRType(); !t.IsScalar() || !t.DType.IsInt() || t.DType.IsBool() {
				return nil, diagnostics.NewTypeError(ctx.Pos, "%s() bound must be a scalar integer, got %s", fn, t)
			}
		default:
			return nil, diagnostics.NewTypeError(ctx.Pos, "%s() bound must be an integer, got %s", fn, b.Inspect())
		}
	}
	return &evaluator.Range{Start: start, Stop: stop, Step: step}, nil
}

func builtinLen(ctx *evaluator.CallContext, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	fn := config.LenFuncName
	if err := checkArity(ctx, fn, args, kwargs, "obj"); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, diagnostics.NewTypeError(ctx.Pos, "%s() takes exactly one argument", fn)
	}
	switch v := args[0].(type) {
	case *evaluator.Tuple:
		return &evaluator.Integer{Value: int64(len(v.Elements))}, nil
	case *evaluator.String:
		return &evaluator.Integer{Value: int64(len(v.Value))}, nil
	case *evaluator.Range:
		if values, ok := v.Values(); ok {
			return &evaluator.Integer{Value: int64(len(values))}, nil
		}
		return nil, diagnostics.NewNotConstantError(ctx.Pos, "len() of a runtime range")
	case *evaluator.Tensor:
		shape := v.IRType().Shape
		if len(shape) == 0 {
			return nil, diagnostics.NewTypeError(ctx.Pos, "len() of a scalar tensor")
		}
		return &evaluator.Integer{Value: int64(shape[0])}, nil
	}
	return nil, diagnostics.NewTypeError(ctx.Pos, "object of type %s has no len()", args[0].Type())
}
