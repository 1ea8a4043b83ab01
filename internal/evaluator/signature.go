package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"strings"
)

// Signature describes the shape of a value at a call, return or merge
// boundary: which parts are runtime leaves passed as SSA values and which
// are constants folded into the specialization key.
type Signature interface {
	// Key renders the signature for name mangling.
	Key() string
	// Leaves is the number of runtime values the signature flattens to.
	Leaves() int
	render(inAggregate bool) string
}

type RuntimeSig struct {
	Type typesystem.Type
}

type ConstSig struct {
	Value Object
}

type TupleSig struct {
	Elements []Signature
}

type AggregateSig struct {
	Class  *AggregateType
	Fields []Signature
}

func (s *RuntimeSig) Key() string                    { return s.render(false) }
func (s *RuntimeSig) Leaves() int                    { return 1 }
func (s *RuntimeSig) render(inAggregate bool) string { return s.Type.Mangle() }

func (s *ConstSig) Key() string { return s.render(false) }
func (s *ConstSig) Leaves() int { return 0 }
func (s *ConstSig) render(inAggregate bool) string {
	if inAggregate {
		return "constexpr[" + s.Value.Inspect() + "]"
	}
	return config.MangleConstexprPrefix + s.Value.Inspect()
}

func (s *TupleSig) Key() string { return s.render(false) }
func (s *TupleSig) Leaves() int {
	n := 0
	for _, e := range s.Elements {
		n += e.Leaves()
	}
	return n
}
func (s *TupleSig) render(inAggregate bool) string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.render(inAggregate)
	}
	return config.MangleTupleDelimiter + strings.Join(parts, config.MangleParamSeparator) + config.MangleTupleDelimiter
}

func (s *AggregateSig) Key() string { return s.render(false) }
func (s *AggregateSig) Leaves() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Leaves()
	}
	return n
}
func (s *AggregateSig) render(inAggregate bool) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.render(true)
	}
	return s.Class.Inspect() + "<" + strings.Join(parts, ", ") + ">"
}

// JoinKeys renders a parameter list for a mangled name.
func JoinKeys(sigs []Signature) string {
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		parts[i] = s.Key()
	}
	return strings.Join(parts, config.MangleParamSeparator)
}

// SignatureOf computes the signature of obj. Boxes are dereferenced.
func SignatureOf(obj Object, r BoxResolver) (Signature, error) {
	switch o := obj.(type) {
	case *Tensor:
		return &RuntimeSig{Type: o.IRType()}, nil
	case *BoxRef:
		inst, err := Deref(o, r)
		if err != nil {
			return nil, err
		}
		return SignatureOf(inst, r)
	case *Instance:
		fields := make([]Signature, len(o.Values))
		for i, v := range o.Values {
			if v == nil {
				return nil, fmt.Errorf("field %s.%s is not initialized", o.Class.Name, o.Class.Fields[i].Name)
			}
			s, err := SignatureOf(v, r)
			if err != nil {
				return nil, err
			}
			fields[i] = s
		}
		return &AggregateSig{Class: o.Class, Fields: fields}, nil
	case *Tuple:
		elems := make([]Signature, len(o.Elements))
		for i, e := range o.Elements {
			s, err := SignatureOf(e, r)
			if err != nil {
				return nil, err
			}
			elems[i] = s
		}
		return &TupleSig{Elements: elems}, nil
	case nil:
		return nil, fmt.Errorf("missing value")
	}
	return &ConstSig{Value: obj}, nil
}

// Flatten returns the runtime leaves of obj in declaration order.
func Flatten(obj Object, r BoxResolver) ([]*ir.Value, error) {
	var out []*ir.Value
	var walk func(Object) error
	walk = func(o Object) error {
		switch v := o.(type) {
		case *Tensor:
			out = append(out, v.Value)
		case *BoxRef:
			inst, err := Deref(v, r)
			if err != nil {
				return err
			}
			return walk(inst)
		case *Instance:
			for i, f := range v.Values {
				if f == nil {
					return fmt.Errorf("field %s.%s is not initialized", v.Class.Name, v.Class.Fields[i].Name)
				}
				if err := walk(f); err != nil {
					return err
				}
			}
		case *Tuple:
			for _, e := range v.Elements {
				if err := walk(e); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(obj); err != nil {
		return nil, err
	}
	return out, nil
}

// Rebuild reassembles a value of signature sig from leading leaves and
// returns the unconsumed rest. Aggregates come back as fresh instances
// without a box.
func Rebuild(sig Signature, leaves []*ir.Value) (Object, []*ir.Value) {
	switch s := sig.(type) {
	case *RuntimeSig:
		return NewTensor(leaves[0]), leaves[1:]
	case *ConstSig:
		return s.Value, leaves
	case *TupleSig:
		elems := make([]Object, len(s.Elements))
		for i, e := range s.Elements {
			elems[i], leaves = Rebuild(e, leaves)
		}
		return &Tuple{Elements: elems}, leaves
	case *AggregateSig:
		inst := NewInstance(s.Class)
		for i, f := range s.Fields {
			inst.Values[i], leaves = Rebuild(f, leaves)
		}
		return inst, leaves
	}
	panic(fmt.Sprintf("unknown signature %T", sig))
}

// LeafTypes lists the IR types of the runtime leaves of sig.
func LeafTypes(sig Signature) []typesystem.Type {
	var out []typesystem.Type
	var walk func(Signature)
	walk = func(s Signature) {
		switch v := s.(type) {
		case *RuntimeSig:
			out = append(out, v.Type)
		case *TupleSig:
			for _, e := range v.Elements {
				walk(e)
			}
		case *AggregateSig:
			for _, f := range v.Fields {
				walk(f)
			}
		}
	}
	walk(sig)
	return out
}

// SameClass reports structural compatibility of two aggregate types:
// the same qualified name and the same field names and kinds.
func SameClass(a, b *AggregateType) bool {
	if a == b {
		return true
	}
	if a.Module != b.Module || a.QualName != b.QualName || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		fa, fb := a.Fields[i], b.Fields[i]
		if fa.Name != fb.Name || fa.Constexpr != fb.Constexpr {
			return false
		}
	}
	return true
}

// SignaturesEqual compares two signatures structurally; constants compare
// by rendering so that 1 and True stay distinct.
func SignaturesEqual(a, b Signature) bool {
	switch x := a.(type) {
	case *RuntimeSig:
		y, ok := b.(*RuntimeSig)
		return ok && x.Type.Equal(y.Type)
	case *ConstSig:
		y, ok := b.(*ConstSig)
		return ok && x.Value.Type() == y.Value.Type() && x.Key() == y.Key()
	case *TupleSig:
		y, ok := b.(*TupleSig)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !SignaturesEqual(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *AggregateSig:
		y, ok := b.(*AggregateSig)
		if !ok || !SameClass(x.Class, y.Class) {
			return false
		}
		for i := range x.Fields {
			if !SignaturesEqual(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	}
	return false
}
