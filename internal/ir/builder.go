package ir

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// Builder appends ops at the end of its current block.
type Builder struct {
	block *Block
	pos   token.Position
}

func NewBuilder(block *Block) *Builder {
	return &Builder{block: block}
}

func (b *Builder) Block() *Block { return b.block }

func (b *Builder) SetInsertionPoint(block *Block) { b.block = block }

// SetPos sets the source position stamped on subsequently created ops.
func (b *Builder) SetPos(pos token.Position) { b.pos = pos }

// Terminated reports whether the current block already ends in a terminator.
func (b *Builder) Terminated() bool { return b.block.Terminator() != nil }

func (b *Builder) create(name string, operands []*Value, resultTypes []typesystem.Type) *Op {
	if b.block == nil {
		panic(fmt.Sprintf("ir: no insertion block for %s", name))
	}
	op := &Op{
		Name:     name,
		Operands: operands,
		Attrs:    make(map[string]Attribute),
		Pos:      b.pos,
	}
	op.addResults(resultTypes)
	b.block.append(op)
	return op
}

func (b *Builder) addRegion(op *Op, argTypes ...typesystem.Type) *Block {
	r := &Region{parent: op}
	op.Regions = append(op.Regions, r)
	return r.AddBlock(argTypes...)
}

// Constant materializes a host scalar. A non-scalar type produces a dense splat.
func (b *Builder) Constant(value interface{}, t typesystem.Type) *Value {
	switch v := value.(type) {
	case int:
		value = int64(v)
	case float32:
		value = float64(v)
	}
	op := b.create(OpConstant, nil, []typesystem.Type{t})
	op.Attrs["value"] = ConstantAttr{Value: value, Type: t}
	return op.Results[0]
}

// MakeRange builds tensor<(end-start)xi32> holding start..end-1.
func (b *Builder) MakeRange(start, end int64) *Value {
	t := typesystem.Tensor(typesystem.Int32, int(end-start))
	op := b.create(OpMakeRange, nil, []typesystem.Type{t})
	op.Attrs["start"] = IntegerAttr{Value: start, DType: typesystem.Int32}
	op.Attrs["end"] = IntegerAttr{Value: end, DType: typesystem.Int32}
	return op.Results[0]
}

func (b *Builder) Splat(v *Value, t typesystem.Type) *Value {
	return b.create(OpSplat, []*Value{v}, []typesystem.Type{t}).Results[0]
}

// Binary emits an elementwise op whose result has the lhs type.
func (b *Builder) Binary(name string, lhs, rhs *Value) *Value {
	return b.create(name, []*Value{lhs, rhs}, []typesystem.Type{lhs.Type}).Results[0]
}

// Compare emits arith.cmpi or arith.cmpf with an i1 result of the operand shape.
func (b *Builder) Compare(name, predicate string, lhs, rhs *Value) *Value {
	op := b.create(name, []*Value{lhs, rhs}, []typesystem.Type{lhs.Type.WithDType(typesystem.Int1)})
	op.Attrs["predicate"] = StringAttr(predicate)
	return op.Results[0]
}

func (b *Builder) Call(callee string, args []*Value, results []typesystem.Type) *Op {
	op := b.create(OpCall, args, results)
	op.Callee = callee
	return op
}

func (b *Builder) Return(values []*Value) *Op {
	return b.create(OpReturn, values, nil)
}

func (b *Builder) Yield(values []*Value) *Op {
	return b.create(OpYield, values, nil)
}

// If creates scf.if with then and else blocks. The caller fills both and
// terminates them with Yield.
func (b *Builder) If(cond *Value, results []typesystem.Type) (op *Op, then, els *Block) {
	op = b.create(OpIf, []*Value{cond}, results)
	then = b.addRegion(op)
	els = b.addRegion(op)
	return op, then, els
}

// For creates scf.for. The body block's first argument is the induction
// variable; the rest mirror inits.
func (b *Builder) For(lower, upper, step *Value, inits []*Value) (op *Op, body *Block) {
	operands := append([]*Value{lower, upper, step}, inits...)
	types := valueTypes(inits)
	op = b.create(OpFor, operands, types)
	body = b.addRegion(op, append([]typesystem.Type{lower.Type}, types...)...)
	return op, body
}

// While creates scf.while. The before block receives inits and must end in
// Condition; the after block receives the forwarded values and must Yield
// values matching inits.
func (b *Builder) While(inits []*Value) (op *Op, before, after *Block) {
	types := valueTypes(inits)
	op = b.create(OpWhile, inits, types)
	before = b.addRegion(op, types...)
	after = b.addRegion(op, types...)
	return op, before, after
}

func (b *Builder) Condition(cond *Value, forwarded []*Value) *Op {
	return b.create(OpCondition, append([]*Value{cond}, forwarded...), nil)
}

func (b *Builder) CondBr(cond *Value, then, els *Block) *Op {
	op := b.create(OpCondBr, []*Value{cond}, nil)
	op.Successors = []*Block{then, els}
	op.SuccessorArgs = [][]*Value{nil, nil}
	return op
}

func (b *Builder) Br(dest *Block, args []*Value) *Op {
	op := b.create(OpBr, nil, nil)
	op.Successors = []*Block{dest}
	op.SuccessorArgs = [][]*Value{args}
	return op
}

func valueTypes(values []*Value) []typesystem.Type {
	types := make([]typesystem.Type, len(values))
	for i, v := range values {
		types[i] = v.Type
	}
	return types
}
