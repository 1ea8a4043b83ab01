// Package typesystem describes the static type of runtime values: an element
// dtype plus an optional block shape. Arithmetic lowering rules beyond
// shape and dtype agreement are owned by the code generator.
package typesystem

import (
	"fmt"
	"strconv"
	"strings"
)

type DType int

const (
	Invalid DType = iota
	Int1
	Int8
	Int16
	Int32
	Int64
	Float16
	BFloat16
	Float32
	Float64
)

var dtypeInfo = map[DType]struct {
	name   string // language-level name, e.g. int32
	ir     string // IR spelling, e.g. i32
	mangle string // specialization key spelling
}{
	Int1:     {"int1", "i1", "i1"},
	Int8:     {"int8", "i8", "i8"},
	Int16:    {"int16", "i16", "i16"},
	Int32:    {"int32", "i32", "i32"},
	Int64:    {"int64", "i64", "i64"},
	Float16:  {"float16", "f16", "fp16"},
	BFloat16: {"bfloat16", "bf16", "bf16"},
	Float32:  {"float32", "f32", "fp32"},
	Float64:  {"float64", "f64", "fp64"},
}

// DTypes lists every supported dtype in declaration order.
func DTypes() []DType {
	return []DType{Int1, Int8, Int16, Int32, Int64, Float16, BFloat16, Float32, Float64}
}

func (d DType) String() string {
	if info, ok := dtypeInfo[d]; ok {
		return info.name
	}
	return "invalid"
}

func (d DType) IR() string {
	if info, ok := dtypeInfo[d]; ok {
		return info.ir
	}
	return "<invalid>"
}

func (d DType) Mangle() string {
	if info, ok := dtypeInfo[d]; ok {
		return info.mangle
	}
	return "?"
}

func (d DType) IsInt() bool   { return d >= Int1 && d <= Int64 }
func (d DType) IsFloat() bool { return d >= Float16 && d <= Float64 }
func (d DType) IsBool() bool  { return d == Int1 }

// Type is a scalar (empty Shape) or a block of Shape elements.
type Type struct {
	DType DType
	Shape []int
}

func Scalar(d DType) Type { return Type{DType: d} }

func Tensor(d DType, shape ...int) Type {
	s := make([]int, len(shape))
	copy(s, shape)
	return Type{DType: d, Shape: s}
}

func (t Type) IsScalar() bool { return len(t.Shape) == 0 }
func (t Type) IsValid() bool  { return t.DType != Invalid }

func (t Type) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

func (t Type) Equal(o Type) bool {
	if t.DType != o.DType || len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// WithDType keeps the shape and replaces the element type.
func (t Type) WithDType(d DType) Type {
	return Tensor(d, t.Shape...)
}

// String renders the IR spelling: i32 or tensor<4x8xi32>.
func (t Type) String() string {
	if t.IsScalar() {
		return t.DType.IR()
	}
	var sb strings.Builder
	sb.WriteString("tensor<")
	for _, d := range t.Shape {
		sb.WriteString(strconv.Itoa(d))
		sb.WriteByte('x')
	}
	sb.WriteString(t.DType.IR())
	sb.WriteByte('>')
	return sb.String()
}

// Mangle renders the specialization key spelling: i32 or i32S4_8S.
func (t Type) Mangle() string {
	if t.IsScalar() {
		return t.DType.Mangle()
	}
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = strconv.Itoa(d)
	}
	return t.DType.Mangle() + "S" + strings.Join(dims, "_") + "S"
}

// Broadcast returns the common type of two operands with the same dtype.
// A scalar broadcasts to any block shape; blocks must agree exactly.
func Broadcast(a, b Type) (Type, error) {
	if a.DType != b.DType {
		return Type{}, fmt.Errorf("dtype mismatch: %s vs %s", a.DType, b.DType)
	}
	switch {
	case a.IsScalar():
		return b, nil
	case b.IsScalar():
		return a, nil
	case a.Equal(b):
		return a, nil
	}
	return Type{}, fmt.Errorf("shape mismatch: %s vs %s", a, b)
}

// LookupDType resolves a language-level dtype name.
func LookupDType(name string) (DType, bool) {
	for d, info := range dtypeInfo {
		if info.name == name {
			return d, true
		}
	}
	return Invalid, false
}

// ParseType reads the IR spelling produced by String.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if inner, ok := strings.CutPrefix(s, "tensor<"); ok {
		inner, ok = strings.CutSuffix(inner, ">")
		parts := strings.Split(inner, "x")
		if !ok || len(parts) < 2 {
			return Type{}, fmt.Errorf("malformed tensor type %q", s)
		}
		shape := make([]int, len(parts)-1)
		for i, p := range parts[:len(parts)-1] {
			n, err := strconv.Atoi(p)
			if err != nil || n <= 0 {
				return Type{}, fmt.Errorf("bad dimension %q in %q", p, s)
			}
			shape[i] = n
		}
		elem, err := ParseType(parts[len(parts)-1])
		if err != nil || !elem.IsScalar() {
			return Type{}, fmt.Errorf("bad element type in %q", s)
		}
		return Tensor(elem.DType, shape...), nil
	}
	for _, d := range DTypes() {
		if d.IR() == s {
			return Scalar(d), nil
		}
	}
	return Type{}, fmt.Errorf("unknown type %q", s)
}
