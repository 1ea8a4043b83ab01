package evaluator

// ObjectsEqual is host-value equality between compile-time constants.
// Numbers compare across Integer, Float and Boolean like the host language.
func ObjectsEqual(a, b Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x == y
		}
		return false
	}
	if a.Type() != b.Type() {
		return false
	}

	switch aVal := a.(type) {
	case *None:
		return true
	case *String:
		return aVal.Value == b.(*String).Value
	case *DType:
		return aVal.Value == b.(*DType).Value
	case *Marker:
		return aVal.Name == b.(*Marker).Name
	case *Tuple:
		bVal := b.(*Tuple)
		if len(aVal.Elements) != len(bVal.Elements) {
			return false
		}
		for i := range aVal.Elements {
			if !ObjectsEqual(aVal.Elements[i], bVal.Elements[i]) {
				return false
			}
		}
		return true
	case *Range:
		bVal := b.(*Range)
		return aVal.Static == bVal.Static && ObjectsEqual(aVal.Start, bVal.Start) &&
			ObjectsEqual(aVal.Stop, bVal.Stop) && ObjectsEqual(aVal.Step, bVal.Step)
	}
	// Functions, types, namespaces and builtins compare by identity.
	return false
}

func numeric(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	case *Boolean:
		if v.Value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// SameObject reports whether two bindings are indistinguishable: the same
// SSA definition for tensors, the same box for boxes, field-wise sameness
// for instances and type-strict equality for constants. A merge is only
// needed where SameObject is false.
func SameObject(a, b Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch aVal := a.(type) {
	case *Tensor:
		bVal, ok := b.(*Tensor)
		return ok && aVal.Value == bVal.Value
	case *BoxRef:
		bVal, ok := b.(*BoxRef)
		return ok && aVal.ID == bVal.ID
	case *Instance:
		bVal, ok := b.(*Instance)
		if !ok || aVal.Class != bVal.Class {
			return false
		}
		for i := range aVal.Values {
			if !SameObject(aVal.Values[i], bVal.Values[i]) {
				return false
			}
		}
		return true
	case *Tuple:
		bVal, ok := b.(*Tuple)
		if !ok || len(aVal.Elements) != len(bVal.Elements) {
			return false
		}
		for i := range aVal.Elements {
			if !SameObject(aVal.Elements[i], bVal.Elements[i]) {
				return false
			}
		}
		return true
	}
	return a.Type() == b.Type() && ObjectsEqual(a, b)
}

// IsConstexpr reports whether obj is fully known at compile time.
func IsConstexpr(obj Object) bool {
	switch o := obj.(type) {
	case *Tensor, *BoxRef, *Instance, *BoundMethod:
		return false
	case *Tuple:
		for _, e := range o.Elements {
			if !IsConstexpr(e) {
				return false
			}
		}
		return true
	case *Range:
		return IsConstexpr(o.Start) && IsConstexpr(o.Stop) && IsConstexpr(o.Step)
	}
	return obj != nil
}
