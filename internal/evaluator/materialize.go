package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"math"
)

// IsScalarConstant reports whether obj can be materialized as arith.constant.
func IsScalarConstant(obj Object) bool {
	switch obj.(type) {
	case *Integer, *Float, *Boolean:
		return true
	}
	return false
}

// DefaultType is the type a scalar constant takes when nothing else
// constrains it.
func DefaultType(obj Object) (typesystem.Type, bool) {
	switch v := obj.(type) {
	case *Boolean:
		return typesystem.Scalar(typesystem.Int1), true
	case *Integer:
		if v.Value < math.MinInt32 || v.Value > math.MaxInt32 {
			return typesystem.Scalar(typesystem.Int64), true
		}
		return typesystem.Scalar(typesystem.Int32), true
	case *Float:
		return typesystem.Scalar(typesystem.Float32), true
	}
	return typesystem.Type{}, false
}

// Materialize emits a scalar constant with type t; a block type produces a
// dense splat.
func Materialize(b *ir.Builder, obj Object, t typesystem.Type) (*Tensor, error) {
	var value interface{}
	switch {
	case t.DType.IsBool():
		truth, err := Truthy(obj)
		if err != nil || !IsScalarConstant(obj) {
			return nil, fmt.Errorf("cannot materialize %s as %s", obj.Inspect(), t)
		}
		value = truth
	case t.DType.IsInt():
		switch v := obj.(type) {
		case *Integer, *Boolean:
			value = intValue(v)
		default:
			return nil, fmt.Errorf("cannot materialize %s as %s", obj.Inspect(), t)
		}
	case t.DType.IsFloat():
		f, ok := numeric(obj)
		if !ok {
			return nil, fmt.Errorf("cannot materialize %s as %s", obj.Inspect(), t)
		}
		value = f
	default:
		return nil, fmt.Errorf("cannot materialize %s as %s", obj.Inspect(), t)
	}
	return NewTensor(b.Constant(value, t)), nil
}

// ToTensor passes tensors through and materializes scalar constants with
// their default type.
func ToTensor(b *ir.Builder, obj Object) (*Tensor, error) {
	if t, ok := obj.(*Tensor); ok {
		return t, nil
	}
	t, ok := DefaultType(obj)
	if !ok {
		return nil, fmt.Errorf("cannot convert %s to a tensor", obj.Inspect())
	}
	return Materialize(b, obj, t)
}
