package compiler

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// bindings is satisfied by both live environments and snapshots.
type bindings interface {
	Get(name string) (evaluator.Object, bool)
	Box(id evaluator.BoxID) (*evaluator.Instance, bool)
}

// itemKey names a storage location that control flow may update: a local
// name, or the content of a box reachable from one.
type itemKey struct {
	name  string
	box   evaluator.BoxID
	isBox bool
}

func (k itemKey) String() string {
	if k.isBox {
		return "aggregate <box " + k.box.String()[:8] + ">"
	}
	return k.name
}

func (k itemKey) value(b bindings) (evaluator.Object, bool) {
	if k.isBox {
		inst, ok := b.Box(k.box)
		if !ok {
			return nil, false
		}
		return inst, true
	}
	return b.Get(k.name)
}

// mergeItem is one location carried across a region boundary. A direct
// item has the same value on every incoming path and carries no SSA
// values.
type mergeItem struct {
	key    itemKey
	sig    evaluator.Signature
	direct evaluator.Object
}

// changedKeys adds to into every location bound in pre whose value differs
// between before and after.
func changedKeys(before, after, pre *evaluator.Snapshot, into map[itemKey]bool) {
	for _, name := range evaluator.Diff(before, after) {
		if _, ok := pre.Get(name); !ok {
			continue
		}
		vb, _ := before.Get(name)
		va, ok := after.Get(name)
		if !ok || !evaluator.SameObject(vb, va) {
			into[itemKey{name: name}] = true
			continue
		}
		for _, id := range evaluator.ReachableBoxes(va) {
			if _, ok := pre.Box(id); !ok {
				continue
			}
			ib, okB := before.Box(id)
			ia, okA := after.Box(id)
			if okA && okB && evaluator.SameObject(ib, ia) {
				continue
			}
			into[itemKey{box: id, isBox: true}] = true
		}
	}
}

// orderKeys lists keys in the binding order of pre, each name followed by
// the boxes it reaches, then the names in extra.
func orderKeys(pre *evaluator.Snapshot, keys map[itemKey]bool, extra []string) []itemKey {
	var out []itemKey
	seen := make(map[itemKey]bool)
	add := func(k itemKey) {
		if keys[k] && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, name := range pre.Names() {
		add(itemKey{name: name})
		v, _ := pre.Get(name)
		for _, id := range evaluator.ReachableBoxes(v) {
			add(itemKey{box: id, isBox: true})
		}
	}
	for _, name := range extra {
		k := itemKey{name: name}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// mergeSigs returns the signature covering both a and b. A scalar constant
// meeting a runtime value widens to the runtime type; differing constants
// cannot be merged.
func mergeSigs(a, b evaluator.Signature) (evaluator.Signature, error) {
	switch x := a.(type) {
	case *evaluator.RuntimeSig:
		switch y := b.(type) {
		case *evaluator.RuntimeSig:
			if !x.Type.Equal(y.Type) {
				return nil, fmt.Errorf("type changes from %s to %s", x.Type, y.Type)
			}
			return x, nil
		case *evaluator.ConstSig:
			if evaluator.IsScalarConstant(y.Value) {
				return x, nil
			}
		}
	case *evaluator.ConstSig:
		switch y := b.(type) {
		case *evaluator.RuntimeSig:
			if evaluator.IsScalarConstant(x.Value) {
				return y, nil
			}
		case *evaluator.ConstSig:
			if evaluator.SignaturesEqual(x, y) {
				return x, nil
			}
			return nil, fmt.Errorf("constexpr value changes from %s to %s", x.Value.Inspect(), y.Value.Inspect())
		}
	case *evaluator.TupleSig:
		y, ok := b.(*evaluator.TupleSig)
		if !ok || len(x.Elements) != len(y.Elements) {
			break
		}
		elems := make([]evaluator.Signature, len(x.Elements))
		for i := range x.Elements {
			s, err := mergeSigs(x.Elements[i], y.Elements[i])
			if err != nil {
				return nil, err
			}
			elems[i] = s
		}
		return &evaluator.TupleSig{Elements: elems}, nil
	case *evaluator.AggregateSig:
		y, ok := b.(*evaluator.AggregateSig)
		if !ok || !evaluator.SameClass(x.Class, y.Class) {
			break
		}
		fields := make([]evaluator.Signature, len(x.Fields))
		for i := range x.Fields {
			s, err := mergeSigs(x.Fields[i], y.Fields[i])
			if err != nil {
				return nil, fmt.Errorf("field %s: %v", x.Class.Fields[i].Name, err)
			}
			fields[i] = s
		}
		return &evaluator.AggregateSig{Class: x.Class, Fields: fields}, nil
	}
	return nil, fmt.Errorf("%s and %s are incompatible", a.Key(), b.Key())
}

// conform flattens obj to the leaves of sig, materializing scalar constants
// where sig expects a runtime value.
func conform(b *ir.Builder, sig evaluator.Signature, obj evaluator.Object, r evaluator.BoxResolver, pos token.Position) ([]*ir.Value, error) {
	switch s := sig.(type) {
	case *evaluator.RuntimeSig:
		if t, ok := obj.(*evaluator.Tensor); ok {
			if !t.IRType().Equal(s.Type) {
				return nil, diagnostics.NewTypeError(pos, "expected %s, got %s", s.Type, t.IRType())
			}
			return []*ir.Value{t.Value}, nil
		}
		if evaluator.IsScalarConstant(obj) {
			t, err := evaluator.Materialize(b, obj, s.Type)
			if err != nil {
				return nil, diagnostics.NewTypeError(pos, "%v", err)
			}
			return []*ir.Value{t.Value}, nil
		}
		return nil, diagnostics.NewTypeError(pos, "expected %s, got %s", s.Type, obj.Inspect())

	case *evaluator.ConstSig:
		if !evaluator.IsConstexpr(obj) || !evaluator.SignaturesEqual(s, &evaluator.ConstSig{Value: obj}) {
			return nil, diagnostics.NewTypeError(pos, "expected constexpr %s, got %s", s.Value.Inspect(), obj.Inspect())
		}
		return nil, nil

	case *evaluator.TupleSig:
		d, err := evaluator.Deref(obj, r)
		if err != nil {
			return nil, err
		}
		t, ok := d.(*evaluator.Tuple)
		if !ok || len(t.Elements) != len(s.Elements) {
			return nil, diagnostics.NewTypeError(pos, "expected a tuple of %d, got %s", len(s.Elements), obj.Inspect())
		}
		var out []*ir.Value
		for i, e := range s.Elements {
			l, err := conform(b, e, t.Elements[i], r, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, l...)
		}
		return out, nil

	case *evaluator.AggregateSig:
		d, err := evaluator.Deref(obj, r)
		if err != nil {
			return nil, err
		}
		inst, ok := d.(*evaluator.Instance)
		if !ok || !evaluator.SameClass(inst.Class, s.Class) {
			return nil, diagnostics.NewTypeError(pos, "expected %s, got %s", s.Class.Name, obj.Inspect())
		}
		var out []*ir.Value
		for i, f := range s.Fields {
			if inst.Values[i] == nil {
				return nil, diagnostics.NewTypeError(pos, "field %s.%s is not initialized", s.Class.Name, s.Class.Fields[i].Name)
			}
			l, err := conform(b, f, inst.Values[i], r, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, l...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("compiler: unknown signature %T", sig)
}

// conformItems flattens the current value of every carried item in src.
func conformItems(b *ir.Builder, items []mergeItem, src bindings, pos token.Position) ([]*ir.Value, error) {
	var out []*ir.Value
	for _, it := range items {
		if it.direct != nil {
			continue
		}
		v, ok := it.key.value(src)
		if !ok {
			return nil, diagnostics.NewTypeError(pos, "%s is not defined on every path", it.key)
		}
		l, err := conform(b, it.sig, v, src, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, l...)
	}
	return out, nil
}

func itemTypes(items []mergeItem) []typesystem.Type {
	var out []typesystem.Type
	for _, it := range items {
		if it.direct == nil {
			out = append(out, evaluator.LeafTypes(it.sig)...)
		}
	}
	return out
}

// rebind binds every item in env, rebuilding carried ones from leaves.
func rebind(env *evaluator.Environment, items []mergeItem, leaves []*ir.Value) {
	for _, it := range items {
		obj := it.direct
		if obj == nil {
			obj, leaves = evaluator.Rebuild(it.sig, leaves)
		}
		if it.key.isBox {
			env.SetBox(it.key.box, obj.(*evaluator.Instance))
			continue
		}
		if inst, ok := obj.(*evaluator.Instance); ok {
			obj = env.NewBox(inst)
		}
		env.Set(it.key.name, obj)
	}
}

// mergeSignature merges the value of k on two incoming paths.
func mergeSignature(k itemKey, a evaluator.Object, ra bindings, b evaluator.Object, rb bindings, pos token.Position) (evaluator.Signature, error) {
	sa, err := evaluator.SignatureOf(a, ra)
	if err != nil {
		return nil, diagnostics.NewTypeError(pos, "%s: %v", k, err)
	}
	sb, err := evaluator.SignatureOf(b, rb)
	if err != nil {
		return nil, diagnostics.NewTypeError(pos, "%s: %v", k, err)
	}
	sig, err := mergeSigs(sa, sb)
	if err != nil {
		return nil, diagnostics.NewTypeError(pos, "%s: %v", k, err)
	}
	return sig, nil
}
