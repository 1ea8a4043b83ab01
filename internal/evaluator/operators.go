package evaluator

import (
	"fmt"
	"math"
)

// BinaryOp folds an infix operator over two constants. "and" and "or"
// short-circuit and are handled by the callers.
func BinaryOp(op string, left, right Object) (Object, error) {
	switch op {
	case "==":
		return NativeBool(ObjectsEqual(left, right)), nil
	case "!=":
		return NativeBool(!ObjectsEqual(left, right)), nil
	}

	if isNumber(left) && isNumber(right) {
		if left.Type() == FLOAT_OBJ || right.Type() == FLOAT_OBJ || op == "/" {
			x, _ := numeric(left)
			y, _ := numeric(right)
			return floatOp(op, x, y)
		}
		return intOp(op, intValue(left), intValue(right))
	}

	switch l := left.(type) {
	case *String:
		if r, ok := right.(*String); ok {
			switch op {
			case "+":
				return &String{Value: l.Value + r.Value}, nil
			case "<":
				return NativeBool(l.Value < r.Value), nil
			case ">":
				return NativeBool(l.Value > r.Value), nil
			}
		}
	case *Tuple:
		if r, ok := right.(*Tuple); ok && op == "+" {
			elems := append(append([]Object(nil), l.Elements...), r.Elements...)
			return &Tuple{Elements: elems}, nil
		}
	}
	return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, left.Inspect(), right.Inspect())
}

func isNumber(o Object) bool {
	_, ok := numeric(o)
	return ok
}

func intValue(o Object) int64 {
	switch v := o.(type) {
	case *Integer:
		return v.Value
	case *Boolean:
		if v.Value {
			return 1
		}
	}
	return 0
}

func intOp(op string, x, y int64) (Object, error) {
	switch op {
	case "+":
		return &Integer{Value: x + y}, nil
	case "-":
		return &Integer{Value: x - y}, nil
	case "*":
		return &Integer{Value: x * y}, nil
	case "//", "%":
		if y == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		q, m := x/y, x%y
		// Floor semantics: the remainder takes the sign of the divisor.
		if m != 0 && (m < 0) != (y < 0) {
			q--
			m += y
		}
		if op == "//" {
			return &Integer{Value: q}, nil
		}
		return &Integer{Value: m}, nil
	case "<":
		return NativeBool(x < y), nil
	case "<=":
		return NativeBool(x <= y), nil
	case ">":
		return NativeBool(x > y), nil
	case ">=":
		return NativeBool(x >= y), nil
	}
	return nil, fmt.Errorf("unsupported operator %s for integers", op)
}

func floatOp(op string, x, y float64) (Object, error) {
	switch op {
	case "+":
		return &Float{Value: x + y}, nil
	case "-":
		return &Float{Value: x - y}, nil
	case "*":
		return &Float{Value: x * y}, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return &Float{Value: x / y}, nil
	case "//":
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return &Float{Value: math.Floor(x / y)}, nil
	case "%":
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return &Float{Value: m}, nil
	case "<":
		return NativeBool(x < y), nil
	case "<=":
		return NativeBool(x <= y), nil
	case ">":
		return NativeBool(x > y), nil
	case ">=":
		return NativeBool(x >= y), nil
	}
	return nil, fmt.Errorf("unsupported operator %s for floats", op)
}

// UnaryOp folds a prefix operator over a constant.
func UnaryOp(op string, operand Object) (Object, error) {
	switch op {
	case "not":
		t, err := Truthy(operand)
		if err != nil {
			return nil, err
		}
		return NativeBool(!t), nil
	case "-":
		switch v := operand.(type) {
		case *Integer:
			return &Integer{Value: -v.Value}, nil
		case *Boolean:
			return &Integer{Value: -intValue(v)}, nil
		case *Float:
			return &Float{Value: -v.Value}, nil
		}
	}
	return nil, fmt.Errorf("bad operand type for unary %s: %s", op, operand.Inspect())
}

// Truthy is the host truth value of a constant.
func Truthy(obj Object) (bool, error) {
	switch v := obj.(type) {
	case *Boolean:
		return v.Value, nil
	case *Integer:
		return v.Value != 0, nil
	case *Float:
		return v.Value != 0, nil
	case *None:
		return false, nil
	case *String:
		return v.Value != "", nil
	case *Tuple:
		return len(v.Elements) > 0, nil
	case *Range:
		values, ok := v.Values()
		if !ok {
			return false, fmt.Errorf("truth value of a runtime range is not known at compile time")
		}
		return len(values) > 0, nil
	case *Tensor, *BoxRef, *Instance:
		return false, fmt.Errorf("truth value of %s is not known at compile time", obj.Inspect())
	}
	return true, nil
}
