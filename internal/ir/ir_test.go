package ir

import (
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

var i32 = typesystem.Scalar(typesystem.Int32)

func TestPrintConstantsAndCall(t *testing.T) {
	m := NewModule()
	callee := m.NewFunc("test_frontend.anchor__i32S4S_i32", false, []typesystem.Type{typesystem.Tensor(typesystem.Int32, 4), i32})
	NewBuilder(callee.Entry()).Return(nil)

	entry := m.NewFunc("test_assign_attribute", true, nil)
	b := NewBuilder(entry.Entry())
	b.Constant(11, i32)
	rng := b.MakeRange(0, 4)
	c42 := b.Constant(int64(42), i32)
	b.Call(callee.Name, []*Value{rng, c42}, nil)
	b.Return(nil)
	require.NoError(t, Verify(m))

	out := Print(m)
	assert.Contains(t, out, "%c11_i32 = arith.constant 11 : i32")
	assert.Contains(t, out, "%0 = tt.make_range {end = 4 : i32, start = 0 : i32} : tensor<4xi32>")
	assert.Contains(t, out, "tt.call @test_frontend.anchor__i32S4S_i32(%0, %c42_i32) : (tensor<4xi32>, i32) -> ()")
	assert.Contains(t, out, "tt.func public @test_assign_attribute() attributes {noinline = false} {")
}

func TestPrintQuotesSymbols(t *testing.T) {
	assert.Equal(t, "@a.b_c", SymbolName("a.b_c"))
	assert.Equal(t, `@"m.f__m.Agg<i32S4S, constexpr[42]>"`, SymbolName("m.f__m.Agg<i32S4S, constexpr[42]>"))
}

func TestConstantNamesAreUnique(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("f", true, nil)
	b := NewBuilder(f.Entry())
	b.Constant(true, typesystem.Scalar(typesystem.Int1))
	b.Constant(true, typesystem.Scalar(typesystem.Int1))
	b.Constant(int64(1), i32)
	b.Constant(int64(1), i32)
	b.Constant(int64(42), typesystem.Tensor(typesystem.Int32, 4))
	b.Constant(int64(42), typesystem.Tensor(typesystem.Int32, 4))
	b.Return(nil)

	out := Print(m)
	for _, name := range []string{"%true =", "%true_0 =", "%c1_i32 =", "%c1_i32_0 =", "%cst =", "%cst_0 ="} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "arith.constant dense<42> : tensor<4xi32>")
}

func TestMultiResultNaming(t *testing.T) {
	m := NewModule()
	callee := m.NewFunc("pair", false, nil)
	callee.Type.Results = []typesystem.Type{i32, i32}
	cb := NewBuilder(callee.Entry())
	one := cb.Constant(int64(1), i32)
	cb.Return([]*Value{one, one})

	f := m.NewFunc("f", true, nil)
	b := NewBuilder(f.Entry())
	call := b.Call("pair", nil, callee.Type.Results)
	b.Binary("arith.addi", call.Result(0), call.Result(1))
	b.Return(nil)
	require.NoError(t, Verify(m))

	out := Print(m)
	assert.Contains(t, out, "%0:2 = tt.call @pair() : () -> (i32, i32)")
	assert.Contains(t, out, "%1 = arith.addi %0#0, %0#1 : i32")
}

func TestStructuredOps(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("loops", true, []typesystem.Type{i32})
	b := NewBuilder(f.Entry())
	arg := f.Args()[0]

	lb := b.Constant(int64(0), i32)
	ub := b.Constant(int64(10), i32)
	step := b.Constant(int64(1), i32)
	loop, body := b.For(lb, ub, step, []*Value{arg})
	b.SetInsertionPoint(body)
	sum := b.Binary("arith.addi", body.Args[1], body.Args[0])
	b.Yield([]*Value{sum})
	b.SetInsertionPoint(f.Entry())

	cond := b.Compare(OpCmpI, "slt", loop.Result(0), ub)
	ifOp, then, els := b.If(cond, []typesystem.Type{i32})
	b.SetInsertionPoint(then)
	b.Yield([]*Value{loop.Result(0)})
	b.SetInsertionPoint(els)
	b.Yield([]*Value{arg})
	b.SetInsertionPoint(f.Entry())

	while, before, after := b.While([]*Value{ifOp.Result(0)})
	b.SetInsertionPoint(before)
	b.Condition(b.Compare(OpCmpI, "ne", before.Args[0], ub), before.Args)
	b.SetInsertionPoint(after)
	b.Yield([]*Value{b.Binary("arith.addi", after.Args[0], step)})
	b.SetInsertionPoint(f.Entry())
	f.Type.Results = []typesystem.Type{i32}
	b.Return([]*Value{while.Result(0)})

	require.NoError(t, Verify(m))
	out := Print(m)
	assert.Contains(t, out, "%0 = scf.for %arg1 = %c0_i32 to %c10_i32 step %c1_i32 iter_args(%arg2 = %arg0) -> (i32) : i32 {")
	assert.Contains(t, out, "scf.yield %1 : i32")
	assert.Contains(t, out, "%2 = arith.cmpi slt, %0, %c10_i32 : i32")
	assert.Contains(t, out, "%3 = scf.if %2 -> (i32) {")
	assert.Contains(t, out, "} else {")
	assert.Contains(t, out, "%4 = scf.while (%arg3 = %3) : (i32) -> (i32) {")
	assert.Contains(t, out, "scf.condition(%5) %arg3 : i32")
	assert.Contains(t, out, "^bb0(%arg4: i32):")
	assert.Contains(t, out, "tt.return %4 : i32")
}

func TestUnstructuredBranches(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("early", true, []typesystem.Type{typesystem.Scalar(typesystem.Int1)})
	b := NewBuilder(f.Entry())
	then := f.Body.AddBlock()
	els := f.Body.AddBlock()
	merge := f.Body.AddBlock(i32)
	b.CondBr(f.Args()[0], then, els)

	b.SetInsertionPoint(then)
	b.Br(merge, []*Value{b.Constant(int64(1), i32)})
	b.SetInsertionPoint(els)
	b.Return(nil)
	b.SetInsertionPoint(merge)
	b.Return(nil)

	require.NoError(t, Verify(m))
	out := Print(m)
	assert.Contains(t, out, "cf.cond_br %arg0, ^bb1, ^bb2")
	assert.Contains(t, out, "cf.br ^bb3(%c1_i32 : i32)")
	assert.Contains(t, out, "^bb3(%0: i32):")
}

func TestPrintFuncWithBranchBlocks(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("early", true, []typesystem.Type{typesystem.Scalar(typesystem.Int1)})
	b := NewBuilder(f.Entry())
	then := f.Body.AddBlock()
	merge := f.Body.AddBlock(i32)
	b.CondBr(f.Args()[0], then, merge)
	b.SetInsertionPoint(then)
	b.Br(merge, []*Value{b.Constant(int64(1), i32)})
	b.SetInsertionPoint(merge)
	b.Return(nil)

	out := NewPrinter().PrintFunc(f)
	lines := strings.Split(out, "\n")
	require.True(t, strings.HasPrefix(lines[0], "tt.func public @early("), out)
	assert.Contains(t, lines, "^bb1:")
	assert.Contains(t, lines, "  cf.br ^bb2(%c1_i32 : i32)")
	assert.Contains(t, lines, "^bb2(%0: i32):")
	assert.Contains(t, lines, "  tt.return")
}

func TestVerifyRejectsBrokenValues(t *testing.T) {
	build := func(operand func(b *Builder) *Value) *Module {
		m := NewModule()
		f := m.NewFunc("f", true, nil)
		b := NewBuilder(f.Entry())
		one := b.Constant(int64(1), i32)
		b.Binary("arith.addi", operand(b), one)
		b.Return(nil)
		return m
	}

	m := build(func(b *Builder) *Value { return &Value{Type: i32} })
	require.ErrorContains(t, Verify(m), "has no definition")

	m = build(func(b *Builder) *Value {
		op, then, els := b.If(b.Constant(true, typesystem.Scalar(typesystem.Int1)), []typesystem.Type{i32})
		NewBuilder(then).Yield([]*Value{NewBuilder(then).Constant(int64(2), i32)})
		NewBuilder(els).Yield([]*Value{NewBuilder(els).Constant(int64(3), i32)})
		stale := op.Result(0)
		op.SetResultTypes([]typesystem.Type{i32})
		return stale
	})
	require.ErrorContains(t, Verify(m), "stale result of scf.if")

	m = build(func(b *Builder) *Value {
		other := NewBlock(i32)
		v := other.Args[0]
		other.Args = nil
		return v
	})
	require.ErrorContains(t, Verify(m), "stale block argument")
}

func TestVerifyRejectsForeignRegion(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("f", true, nil)
	b := NewBuilder(f.Entry())
	c := b.Constant(true, typesystem.Scalar(typesystem.Int1))
	first, then, els := b.If(c, nil)
	NewBuilder(then).Yield(nil)
	NewBuilder(els).Yield(nil)
	second, then2, els2 := b.If(c, nil)
	NewBuilder(then2).Yield(nil)
	NewBuilder(els2).Yield(nil)
	b.Return(nil)
	require.NoError(t, Verify(m))

	second.Regions[0] = first.Regions[0]
	require.ErrorContains(t, Verify(m), "region 0 belongs to another op")
}

func TestVerifyRejectsMismatchedCall(t *testing.T) {
	m := NewModule()
	callee := m.NewFunc("g", false, []typesystem.Type{i32})
	NewBuilder(callee.Entry()).Return(nil)
	f := m.NewFunc("f", true, nil)
	b := NewBuilder(f.Entry())
	b.Call("g", nil, nil)
	b.Return(nil)

	err := Verify(m)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "call to g passes"))
}

func TestVerifyRejectsUnterminatedBlock(t *testing.T) {
	m := NewModule()
	m.NewFunc("f", true, nil)
	require.ErrorContains(t, Verify(m), "not terminated")
}

func TestDetachedBlockIsNotPrinted(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("f", true, nil)
	b := NewBuilder(NewBlock())
	b.MakeRange(0, 8)
	b.SetInsertionPoint(f.Entry())
	b.Return(nil)
	assert.NotContains(t, Print(m), "make_range")
}

func TestLineInfo(t *testing.T) {
	m := NewModule()
	f := m.NewFunc("f", true, nil)
	b := NewBuilder(f.Entry())
	b.Return(nil)
	f.Entry().Ops[0].Pos.File = "k.py"
	f.Entry().Ops[0].Pos.Line = 3
	f.Entry().Ops[0].Pos.Column = 5

	p := NewPrinter()
	p.LineInfo = true
	assert.Contains(t, p.Print(m), `tt.return loc("k.py":3:5)`)
	assert.NotContains(t, Print(m), "loc(")
}
