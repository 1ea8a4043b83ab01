package backend

import (
	"bytes"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"testing"
)

var i32 = typesystem.Scalar(typesystem.Int32)

func sampleModule() *ir.Module {
	m := ir.NewModule()
	f := m.NewFunc("kernel", true, []typesystem.Type{i32})
	b := ir.NewBuilder(f.Entry())
	b.SetPos(token.Position{File: "k.py", Line: 3, Column: 5})
	one := b.Constant(int64(1), i32)
	cond := b.Compare(ir.OpCmpI, "slt", f.Entry().Args[0], one)
	_, then, els := b.If(cond, nil)
	ir.NewBuilder(then).Yield(nil)
	ir.NewBuilder(els).Yield(nil)
	b.Return(nil)
	f.Complete = true
	return m
}

func TestForOptions(t *testing.T) {
	opts := config.DefaultOptions()
	b, err := ForOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, "text", b.Name())
	assert.False(t, b.(*TextBackend).LineInfo)

	opts.Emit = config.EmitYAML
	b, err = ForOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, "yaml", b.Name())

	opts.Emit = "llvm"
	_, err = ForOptions(opts)
	assert.Error(t, err)
}

func TestTextBackend(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewText(false).Emit(sampleModule(), &out))
	assert.Contains(t, out.String(), "tt.func public @kernel(")
	assert.Contains(t, out.String(), "scf.if")
	assert.NotContains(t, out.String(), "loc(")

	out.Reset()
	require.NoError(t, NewText(true).Emit(sampleModule(), &out))
	assert.Contains(t, out.String(), `loc("k.py":3:5)`)
}

func TestYAMLBackend(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewYAML().Emit(sampleModule(), &out))

	var shape moduleShape
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &shape))
	require.Len(t, shape.Functions, 1)
	fn := shape.Functions[0]
	assert.Equal(t, "kernel", fn.Name)
	assert.True(t, fn.Public)
	assert.Equal(t, []string{"i32"}, fn.Params)

	ops := fn.Blocks[0].Ops
	require.Len(t, ops, 4)
	assert.Equal(t, ir.OpConstant, ops[0].Name)
	assert.Equal(t, "1 : i32", ops[0].Attrs["value"])
	assert.Equal(t, 2, ops[1].Operands)
	assert.Equal(t, ir.OpIf, ops[2].Name)
	require.Len(t, ops[2].Regions, 2)
	assert.Equal(t, ir.OpYield, ops[2].Regions[0][0].Ops[0].Name)
	assert.Equal(t, ir.OpReturn, ops[3].Name)
}

func TestEmitProcessorSkipsFailedContext(t *testing.T) {
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext("")
	ctx.Module = sampleModule()
	ctx.AddError(assert.AnError)
	NewEmitProcessor(NewText(false), &out).Process(ctx)
	assert.Empty(t, out.String())

	ctx = pipeline.NewPipelineContext("")
	ctx.Module = sampleModule()
	NewEmitProcessor(NewText(false), &out).Process(ctx)
	assert.Contains(t, out.String(), "module {")
}
