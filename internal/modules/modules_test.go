package modules

import (
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func tracingContext() *evaluator.CallContext {
	m := ir.NewModule()
	f := m.NewFunc("k", true, nil)
	return &evaluator.CallContext{Builder: ir.NewBuilder(f.Entry())}
}

func languageMember(t *testing.T, name string) evaluator.Object {
	t.Helper()
	tl, ok := Import("triton.language")
	require.True(t, ok)
	obj, ok := tl.(*evaluator.Namespace).Get(name)
	require.True(t, ok, name)
	return obj
}

func call(t *testing.T, ctx *evaluator.CallContext, name string, args []evaluator.Object, kwargs map[string]evaluator.Object) (evaluator.Object, error) {
	t.Helper()
	b, ok := languageMember(t, name).(*evaluator.Builtin)
	require.True(t, ok, name)
	return b.Fn(ctx, args, kwargs)
}

func TestImportResolvesNestedNamespaces(t *testing.T) {
	triton, ok := Import("triton")
	require.True(t, ok)
	lang, ok := triton.(*evaluator.Namespace).Get("language")
	require.True(t, ok)

	tl, ok := Import("triton.language")
	require.True(t, ok)
	assert.Same(t, tl, lang)

	core, ok := tl.(*evaluator.Namespace).Get("core")
	require.True(t, ok)
	direct, ok := Import("triton.language.core")
	require.True(t, ok)
	assert.Same(t, direct, core)

	_, ok = Import("numpy")
	assert.False(t, ok)
	assert.False(t, IsVirtualPackage("numpy"))
}

func TestLanguageExposesDTypesAndMarkers(t *testing.T) {
	d, ok := languageMember(t, "int32").(*evaluator.DType)
	require.True(t, ok)
	assert.Equal(t, typesystem.Int32, d.Value)
	_, ok = languageMember(t, "float16").(*evaluator.DType)
	assert.True(t, ok)

	c, ok := languageMember(t, "constexpr").(*evaluator.Marker)
	require.True(t, ok)
	assert.Equal(t, "constexpr", c.Name)

	core, _ := Import("triton.language.core")
	coreConstexpr, _ := core.(*evaluator.Namespace).Get("constexpr")
	assert.Same(t, c, coreConstexpr)
}

func TestArange(t *testing.T) {
	ctx := tracingContext()
	obj, err := call(t, ctx, "arange", []evaluator.Object{&evaluator.Integer{Value: 0}, &evaluator.Integer{Value: 4}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tensor<4xi32>", obj.(*evaluator.Tensor).IRType().String())

	_, err = call(t, ctx, "arange", []evaluator.Object{&evaluator.Integer{Value: 4}, &evaluator.Integer{Value: 4}}, nil)
	assert.Equal(t, diagnostics.ErrE003, diagnostics.Code(err))

	_, err = call(t, &evaluator.CallContext{}, "arange", []evaluator.Object{&evaluator.Integer{Value: 0}, &evaluator.Integer{Value: 4}}, nil)
	assert.Equal(t, diagnostics.ErrE005, diagnostics.Code(err))

	runtime := evaluator.NewTensor(ctx.Builder.Constant(int64(3), typesystem.Scalar(typesystem.Int32)))
	_, err = call(t, ctx, "arange", []evaluator.Object{&evaluator.Integer{Value: 0}, runtime}, nil)
	assert.Equal(t, diagnostics.ErrE002, diagnostics.Code(err))
}

func TestFullAndZeros(t *testing.T) {
	ctx := tracingContext()
	f32 := languageMember(t, "float32")
	obj, err := call(t, ctx, "full", []evaluator.Object{
		&evaluator.Tuple{Elements: []evaluator.Object{&evaluator.Integer{Value: 2}, &evaluator.Integer{Value: 8}}},
		&evaluator.Integer{Value: 1},
	}, map[string]evaluator.Object{"dtype": f32, "_semantic": evaluator.NONE})
	require.NoError(t, err)
	assert.Equal(t, "tensor<2x8xf32>", obj.(*evaluator.Tensor).IRType().String())

	obj, err = call(t, ctx, "zeros", []evaluator.Object{&evaluator.Integer{Value: 4}, languageMember(t, "int64")}, nil)
	require.NoError(t, err)
	v, ok := obj.(*evaluator.Tensor).Value.ConstantValue()
	require.True(t, ok)
	assert.Equal(t, int64(0), v)

	_, err = call(t, ctx, "zeros", []evaluator.Object{&evaluator.Integer{Value: 4}}, map[string]evaluator.Object{"dtpye": f32})
	assert.Equal(t, diagnostics.ErrE003, diagnostics.Code(err))
}

func TestToTensor(t *testing.T) {
	ctx := tracingContext()
	obj, err := call(t, ctx, "to_tensor", []evaluator.Object{evaluator.TRUE}, nil)
	require.NoError(t, err)
	assert.Equal(t, "i1", obj.(*evaluator.Tensor).IRType().String())

	same, err := call(t, ctx, "to_tensor", []evaluator.Object{obj}, nil)
	require.NoError(t, err)
	assert.Same(t, obj, same)

	_, err = call(t, ctx, "to_tensor", []evaluator.Object{&evaluator.String{Value: "x"}}, nil)
	assert.Equal(t, diagnostics.ErrE003, diagnostics.Code(err))
}

func TestStaticRange(t *testing.T) {
	obj, err := call(t, &evaluator.CallContext{}, "static_range", []evaluator.Object{&evaluator.Integer{Value: 1}, &evaluator.Integer{Value: 7}, &evaluator.Integer{Value: 3}}, nil)
	require.NoError(t, err)
	r := obj.(*evaluator.Range)
	assert.True(t, r.Static)
	values, ok := r.Values()
	require.True(t, ok)
	assert.Equal(t, []int64{1, 4}, values)

	_, err = call(t, &evaluator.CallContext{}, "static_range", []evaluator.Object{&evaluator.Integer{Value: 1}, &evaluator.Integer{Value: 7}, &evaluator.Integer{Value: 0}}, nil)
	assert.Equal(t, diagnostics.ErrE003, diagnostics.Code(err))
}

func TestUniverse(t *testing.T) {
	u := Universe()
	ctx := tracingContext()
	n := evaluator.NewTensor(ctx.Builder.Constant(int64(8), typesystem.Scalar(typesystem.Int32)))

	r, err := u["range"].(*evaluator.Builtin).Fn(ctx, []evaluator.Object{n}, nil)
	require.NoError(t, err)
	rng := r.(*evaluator.Range)
	assert.False(t, rng.Static)
	_, ok := rng.Values()
	assert.False(t, ok)

	f := evaluator.NewTensor(ctx.Builder.Constant(1.0, typesystem.Scalar(typesystem.Float32)))
	_, err = u["range"].(*evaluator.Builtin).Fn(ctx, []evaluator.Object{f}, nil)
	assert.Equal(t, diagnostics.ErrE003, diagnostics.Code(err))

	l, err := u["len"].(*evaluator.Builtin).Fn(ctx, []evaluator.Object{&evaluator.Tuple{Elements: []evaluator.Object{evaluator.NONE, evaluator.NONE}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), l.(*evaluator.Integer).Value)

	_, ok = u["staticmethod"].(*evaluator.Marker)
	assert.True(t, ok)
}
