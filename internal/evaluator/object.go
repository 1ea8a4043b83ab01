package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"strconv"
	"strings"
)

type ObjectType string

const (
	INTEGER_OBJ        = "INTEGER"
	FLOAT_OBJ          = "FLOAT"
	BOOLEAN_OBJ        = "BOOLEAN"
	NONE_OBJ           = "NONE"
	STRING_OBJ         = "STRING"
	TUPLE_OBJ          = "TUPLE"
	DTYPE_OBJ          = "DTYPE"
	TENSOR_OBJ         = "TENSOR"
	AGGREGATE_TYPE_OBJ = "AGGREGATE_TYPE"
	INSTANCE_OBJ       = "INSTANCE"
	BOX_OBJ            = "BOX"
	FUNCTION_OBJ       = "FUNCTION"
	BUILTIN_OBJ        = "BUILTIN"
	BOUND_METHOD_OBJ   = "BOUND_METHOD"
	MARKER_OBJ         = "MARKER"
	NAMESPACE_OBJ      = "NAMESPACE"
	RANGE_OBJ          = "RANGE"
)

// Object is every value the tracer and the host interpreter manipulate.
// Tensors are runtime values; everything else except boxes and instances
// holding tensors is a compile-time constant.
type Object interface {
	Type() ObjectType
	Inspect() string
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string {
	s := strconv.FormatFloat(f.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NONE  = &None{}
)

func NativeBool(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

type None struct{}

func (n *None) Type() ObjectType { return NONE_OBJ }
func (n *None) Inspect() string  { return "None" }

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return "'" + s.Value + "'" }

// Tuple is immutable; list literals also evaluate to tuples.
type Tuple struct {
	Elements []Object
}

func (t *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (t *Tuple) Inspect() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Inspect()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type DType struct {
	Value typesystem.DType
}

func (d *DType) Type() ObjectType { return DTYPE_OBJ }
func (d *DType) Inspect() string  { return d.Value.String() }

// Tensor is a runtime value: a handle to an SSA definition.
type Tensor struct {
	Value *ir.Value
}

func NewTensor(v *ir.Value) *Tensor { return &Tensor{Value: v} }

func (t *Tensor) Type() ObjectType { return TENSOR_OBJ }
func (t *Tensor) Inspect() string  { return fmt.Sprintf("tensor<%s>", t.Value.Type) }

func (t *Tensor) IRType() typesystem.Type { return t.Value.Type }

// Extent returns the static shape as a constexpr tuple.
func (t *Tensor) Extent() *Tuple {
	shape := t.Value.Type.Shape
	elems := make([]Object, len(shape))
	for i, d := range shape {
		elems[i] = &Integer{Value: int64(d)}
	}
	return &Tuple{Elements: elems}
}

// Range is produced by range() and static_range(). Bounds are Integers or
// scalar Tensors; Static ranges always have Integer bounds.
type Range struct {
	Start, Stop, Step Object
	Static            bool
}

func (r *Range) Type() ObjectType { return RANGE_OBJ }
func (r *Range) Inspect() string {
	name := "range"
	if r.Static {
		name = "static_range"
	}
	return fmt.Sprintf("%s(%s, %s, %s)", name, r.Start.Inspect(), r.Stop.Inspect(), r.Step.Inspect())
}

// Bounds returns the integer bounds of a constant range.
func (r *Range) Bounds() (start, stop, step int64, ok bool) {
	s, ok1 := r.Start.(*Integer)
	e, ok2 := r.Stop.(*Integer)
	st, ok3 := r.Step.(*Integer)
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, false
	}
	return s.Value, e.Value, st.Value, true
}

// Values enumerates a constant range.
func (r *Range) Values() ([]int64, bool) {
	start, stop, step, ok := r.Bounds()
	if !ok || step == 0 {
		return nil, false
	}
	var out []int64
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, true
}

// Marker is an opaque name from the virtual namespaces: decorators and
// annotation markers such as tl.tensor and tl.constexpr.
type Marker struct {
	Name string
}

func (m *Marker) Type() ObjectType { return MARKER_OBJ }
func (m *Marker) Inspect() string  { return m.Name }

type Namespace struct {
	Name    string
	Members map[string]Object
}

func (n *Namespace) Type() ObjectType { return NAMESPACE_OBJ }
func (n *Namespace) Inspect() string  { return "<module '" + n.Name + "'>" }

func (n *Namespace) Get(name string) (Object, bool) {
	obj, ok := n.Members[name]
	return obj, ok
}
