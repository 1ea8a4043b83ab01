package compiler

import (
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/parser"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log"
	"strings"
	"testing"
)

const prelude = `
import triton
import triton.language as tl


@triton.jit
def anchor(v):
    pass


@tl.aggregate
class Pair:
    first: tl.tensor
    second: tl.tensor

    @tl.core.builtin
    def __init__(self, first, second, _semantic=None):
        self.first = first
        self.second = second

    def get_first(self):
        return self.first

    @tl.core.builtin
    def get_second(self, _semantic=None):
        return self.second

    def unpack(self):
        return self.get_first(), self.get_second()

    def mutate_first(self, value):
        self.first = value

    def mutate_second(self, value):
        self.second = value


@tl.aggregate
class TypeWithBuiltinInitializer:
    value: tl.tensor

    @tl.core.builtin
    def __init__(self, _semantic=None):
        self.value = tl.arange(0, 4, _semantic=_semantic)

    @tl.core.builtin
    def modify(self, value, _semantic=None):
        self.value = value


@tl.aggregate
class AggregateWithConstexpr:
    a: tl.tensor
    b: tl.constexpr

    @tl.core.builtin
    def __init__(self, a, b, _semantic=None):
        self.a = a
        self.b = b

    @staticmethod
    def create(a):
        return AggregateWithConstexpr(a, 42)

    def modify(self, a):
        self.a = a


@tl.constexpr_function
def Box(T):

    @tl.aggregate
    class BoxImpl:
        value: T

        def create(value):
            return BoxImpl(value)

        @tl.core.builtin
        def __init__(self, value, _semantic=None):
            self.value = value

    return BoxImpl


@triton.jit
def swap(p):
    tmp = p.first
    p.mutate_first(p.second)
    p.mutate_second(tmp)
`

func load(t *testing.T, src string) *Compiler {
	t.Helper()
	mod, err := parser.ParseString("test_frontend.py", prelude+src)
	require.NoError(t, err)
	c := New()
	require.NoError(t, c.Load(mod))
	return c
}

func trace(t *testing.T, src, entry string, params ...typesystem.Type) *ir.Module {
	t.Helper()
	m, err := load(t, src).Trace(entry, params...)
	require.NoError(t, err)
	return m
}

func traceErr(t *testing.T, src, entry string, params ...typesystem.Type) error {
	t.Helper()
	_, err := load(t, src).Trace(entry, params...)
	require.Error(t, err)
	return err
}

// funcText prints the first function whose name contains fragment.
func funcText(t *testing.T, m *ir.Module, fragment string) string {
	t.Helper()
	for _, f := range m.Funcs {
		if strings.Contains(f.Name, fragment) {
			return ir.NewPrinter().PrintFunc(f)
		}
	}
	require.Failf(t, "function not found", "no function matching %q", fragment)
	return ""
}

// requireInOrder asserts that each fragment occurs after the previous one.
func requireInOrder(t *testing.T, text string, fragments ...string) {
	t.Helper()
	rest := text
	for _, f := range fragments {
		idx := strings.Index(rest, f)
		require.GreaterOrEqualf(t, idx, 0, "missing %q in order within:\n%s", f, text)
		rest = rest[idx+len(f):]
	}
}

func countOps(f *ir.Func, name string) int {
	n := 0
	f.Body.Walk(func(op *ir.Op) bool {
		if op.Name == name {
			n++
		}
		return true
	})
	return n
}

func TestAssignAttribute(t *testing.T) {
	m := trace(t, `
@triton.jit
def assign_attribute():
    scalar = 11
    pair = Pair(tl.arange(0, 4), scalar)
    pair.second = 42
    anchor(pair)
`, "assign_attribute")
	requireInOrder(t, funcText(t, m, "assign_attribute"),
		"%c11_i32 = arith.constant 11 : i32",
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"%c42_i32 = arith.constant 42 : i32",
		`tt.call @"test_frontend.anchor__test_frontend.Pair<i32S4S, i32>"(%0, %c42_i32)`,
	)
}

func TestAugAssignAttribute(t *testing.T) {
	m := trace(t, `
@triton.jit
def augassign_attribute():
    scalar = 11
    pair = Pair(tl.arange(0, 4), scalar)
    pair.second += 42
    anchor(pair)
`, "augassign_attribute")
	requireInOrder(t, funcText(t, m, "augassign_attribute"),
		"%c11_i32 = arith.constant 11 : i32",
		"%0 = tt.make_range",
		"%c42_i32 = arith.constant 42 : i32",
		"%1 = arith.addi %c11_i32, %c42_i32 : i32",
		"anchor",
		"(%0, %1)",
	)
}

func TestJitMethod(t *testing.T) {
	m := trace(t, `
@triton.jit
def jit_method():
    scalar = 11
    pair = Pair(tl.arange(0, 4), scalar)
    a, b = pair.unpack()
    anchor(a)
    anchor(b)
`, "jit_method")
	requireInOrder(t, funcText(t, m, "jit_method"),
		"%c11_i32 = arith.constant 11 : i32",
		"%0 = tt.make_range",
		"%1:4 = tt.call @",
		"unpack",
		"(%0, %c11_i32)",
		"tt.call @test_frontend.anchor__i32S4S(%1#0)",
		"tt.call @test_frontend.anchor__i32(%1#1)",
	)
	// unpack returns its two results followed by the written-back receiver.
	unpack := m.Lookup(`test_frontend.Pair.unpack__test_frontend.Pair<i32S4S, i32>`)
	require.NotNil(t, unpack)
	assert.Len(t, unpack.Type.Results, 4)
}

func TestAggregateInitializers(t *testing.T) {
	m := trace(t, `
@triton.jit
def aggregate_initializers():
    value = TypeWithBuiltinInitializer()
    anchor(value)
    value.modify(tl.arange(4, 8))
    anchor(value)
`, "aggregate_initializers")
	requireInOrder(t, funcText(t, m, "aggregate_initializers"),
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"anchor", "(%0)",
		"%2 = tt.make_range {end = 8 : i32, start = 4 : i32}",
		"anchor", "(%2)",
	)
}

func TestAggregateModificationInForLoop(t *testing.T) {
	m := trace(t, `
@triton.jit
def modification_in_for_loop():
    value = TypeWithBuiltinInitializer()
    for i in range(0, 2):
        value.modify(tl.arange(4, 8))
    anchor(value)
`, "modification_in_for_loop")
	requireInOrder(t, funcText(t, m, "modification_in_for_loop"),
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"%1 = scf.for %arg0 = %c0_i32 to %c2_i32 step %c1_i32 iter_args(%arg1 = %0) -> (tensor<4xi32>) : i32",
		"%2 = tt.make_range {end = 8 : i32, start = 4 : i32}",
		"scf.yield %2 : tensor<4xi32>",
		"anchor", "(%1)",
	)
}

func TestAggregateModificationInWhileLoop(t *testing.T) {
	m := trace(t, `
@triton.jit
def modification_in_while_loop():
    value = TypeWithBuiltinInitializer()
    i = 0
    while i < 1:
        i = 1
        value.modify(tl.arange(4, 8))
    anchor(value)
`, "modification_in_while_loop")
	requireInOrder(t, funcText(t, m, "modification_in_while_loop"),
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"%c0_i32 = arith.constant 0 : i32",
		"%1:2 = scf.while (%arg0 = %0, %arg1 = %c0_i32) : (tensor<4xi32>, i32) -> (tensor<4xi32>, i32)",
		"scf.condition(",
		"} do {",
		"%c1_i32_0 = arith.constant 1 : i32",
		"tt.make_range {end = 8 : i32, start = 4 : i32}",
		"scf.yield",
		"anchor", "(%1#0)",
	)
}

func TestListOfFunctions(t *testing.T) {
	m := trace(t, `
@triton.jit
def forward(arg):
    return arg


@triton.jit
def list_of_functions_constexpr(arg, fns: tl.constexpr):
    for i in tl.static_range(len(fns)):
        fns[i](arg)


@triton.jit
def list_of_functions():
    list_of_functions_constexpr(tl.arange(0, 4), [anchor, forward])
`, "list_of_functions")
	requireInOrder(t, funcText(t, m, "list_of_functions"),
		"tt.call @", "list_of_functions_constexpr",
		"cJITFunction(test_frontend:anchor)", "cJITFunction(test_frontend:forward)",
	)
	requireInOrder(t, funcText(t, m, "list_of_functions_constexpr"),
		"tt.func private @",
		"tt.call @test_frontend.anchor__i32S4S(%arg0)",
		"tt.call @test_frontend.forward__i32S4S(%arg0)",
	)
}

func TestCallInLoop(t *testing.T) {
	m := trace(t, `
@triton.jit
def accumulate(a, b):
    return a + b


@triton.jit
def call_in_loop():
    acc = 0
    for i in range(10):
        acc = accumulate(acc, i)
`, "call_in_loop")
	requireInOrder(t, funcText(t, m, "call_in_loop"),
		"scf.for",
		"tt.call @test_frontend.accumulate__i32_i32(%arg1, %arg0)",
		"scf.yield",
	)
}

func TestFunctionNameMangling(t *testing.T) {
	m := trace(t, `
@tl.aggregate
class FunctionParent:

    @triton.jit
    def function_with_name():
        pass


@triton.jit
def function_with_name():
    pass


@triton.jit
def function_name_mangling():
    function_with_name()
    FunctionParent.function_with_name()
`, "function_name_mangling")
	requireInOrder(t, funcText(t, m, "function_name_mangling"),
		"tt.call @test_frontend.function_with_name()",
		"tt.call @test_frontend.FunctionParent.function_with_name()",
	)
}

func TestAggregateWithConstexpr(t *testing.T) {
	m := trace(t, `
@triton.jit
def add_rhs_constexpr(agg):
    _ = agg.a + agg.b


@triton.jit
def aggregate_with_constexpr():
    agg = AggregateWithConstexpr.create(tl.arange(0, 4))
    add_rhs_constexpr(agg)
`, "aggregate_with_constexpr")
	name := "test_frontend.add_rhs_constexpr__test_frontend.AggregateWithConstexpr<i32S4S, constexpr[42]>"
	assert.Contains(t, funcText(t, m, "aggregate_with_constexpr"), `tt.call @"`+name+`"`)
	callee := m.Lookup(name)
	require.NotNil(t, callee)
	requireInOrder(t, ir.NewPrinter().PrintFunc(callee),
		"%cst = arith.constant dense<42> : tensor<4xi32>",
		"arith.addi %arg0, %cst : tensor<4xi32>",
	)
}

func TestConstexprFunctionFromJit(t *testing.T) {
	m := trace(t, `
@tl.constexpr_function
def constexpr_function(x):
    return x + 1


@triton.jit
def constexpr_function_from_jit():
    x: tl.constexpr = constexpr_function(7)
    tl.arange(0, x)
`, "constexpr_function_from_jit")
	assert.Contains(t, funcText(t, m, "constexpr_function_from_jit"), "tt.make_range {end = 8 : i32, start = 0 : i32}")
}

func TestAssignTupleAttrs(t *testing.T) {
	m := trace(t, `
@triton.jit
def assign_tuple_attrs():
    p = Pair(tl.arange(0, 4), tl.arange(4, 8))
    swap(p)
    anchor(p.first)
    anchor(p.second)
`, "assign_tuple_attrs")
	requireInOrder(t, funcText(t, m, "assign_tuple_attrs"),
		"%2:2 = tt.call @", "swap",
		"anchor", "(%2#0)",
		"anchor", "(%2#1)",
	)
}

func TestReassignAggregateWithConstexpr(t *testing.T) {
	m := trace(t, `
@triton.jit
def reassign_aggregate_with_constexpr():
    agg = AggregateWithConstexpr.create(tl.arange(0, 4))
    var = 1
    if var == 0:
        agg.modify(tl.arange(4, 8))
    else:
        agg.modify(tl.arange(8, 12))
    anchor(agg)
`, "reassign_aggregate_with_constexpr")
	text := funcText(t, m, "reassign_aggregate_with_constexpr")
	requireInOrder(t, text,
		"= scf.if", "-> (tensor<4xi32>) {",
		"tt.call", "modify",
		"scf.yield",
		"} else {",
		"tt.call", "modify",
		"scf.yield",
		"anchor",
	)
}

func TestConstexprGetitem(t *testing.T) {
	m := trace(t, `
@tl.constexpr_function
def make_shape(m, n):
    return (m, n)


@tl.constexpr_function
def add_shape_dims(m, n):
    return m + n


@triton.jit
def constexpr_getitem():
    shape: tl.constexpr = make_shape(4, 8)
    sum: tl.constexpr = add_shape_dims(shape[0], shape[1])
    tl.arange(4, sum)
`, "constexpr_getitem")
	assert.Contains(t, funcText(t, m, "constexpr_getitem"), "tt.make_range {end = 12 : i32, start = 4 : i32}")
}

func TestConstexprClosure(t *testing.T) {
	m := trace(t, `
@tl.constexpr_function
def make_constexpr_closure(x):
    x = tl.constexpr(x)

    @triton.jit
    def inner(shape: tl.constexpr):
        return tl.full(shape, x, dtype=tl.int32)

    return inner


@triton.jit
def constexpr_closure():
    closure: tl.constexpr = make_constexpr_closure(42)
    closure((128, 128))
`, "constexpr_closure")
	assert.Contains(t, ir.Print(m), "arith.constant dense<42> : tensor<128x128xi32>")
}

func TestConstexprGenerator(t *testing.T) {
	m := trace(t, `
@tl.constexpr_function
def make_constexpr_generator(f):
    f = tl.constexpr(f)

    @triton.jit
    def inner(lhs):
        return lhs + f(lhs.shape, lhs.dtype)

    return inner


@triton.jit
def inner_function(shape: tl.constexpr, dtype: tl.constexpr):
    return tl.full(shape, 42, dtype)


@triton.jit
def constexpr_generator():
    generator: tl.constexpr = make_constexpr_generator(inner_function)
    lhs = tl.arange(0, 128)
    generator(lhs)
`, "constexpr_generator")
	require.Len(t, m.Funcs, 3)
	assert.Equal(t, "constexpr_generator", m.Funcs[0].Name)
	assert.True(t, strings.HasPrefix(m.Funcs[1].Name, "test_frontend.make_constexpr_generator.<locals>.inner"))
	assert.True(t, strings.HasPrefix(m.Funcs[2].Name, "test_frontend.inner_function"))

	requireInOrder(t, funcText(t, m, "constexpr_generator"),
		"%0 = tt.make_range {end = 128 : i32, start = 0 : i32}",
		"inner", "(%0)",
	)
	requireInOrder(t, ir.NewPrinter().PrintFunc(m.Funcs[1]),
		"%0 = tt.call @", "inner_function",
		"%1 = arith.addi %arg0, %0",
		"tt.return %1",
	)
	requireInOrder(t, ir.NewPrinter().PrintFunc(m.Funcs[2]),
		"%cst = arith.constant dense<42> : tensor<128xi32>",
		"tt.return %cst",
	)
}

func TestLateBoundClassReference(t *testing.T) {
	m := trace(t, `
TensorBox = Box(tl.tensor)


@triton.jit
def kernel():
    value = TensorBox(tl.arange(0, 4))
    anchor(value)
`, "kernel")
	requireInOrder(t, funcText(t, m, "kernel"),
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"anchor", "(%0)",
	)
}

func TestMutableArgument(t *testing.T) {
	m := trace(t, `
@triton.jit
def mutate_and_produce(x):
    return tl.arange(0, 16)


@triton.jit
def mutate_and_produce_tuple(x):
    return tl.arange(0, 16), tl.arange(16, 32)


@triton.jit
def mutable_argument():
    p = Pair(tl.arange(0, 4), tl.arange(4, 8))
    swap(p)

    box = Box(Pair)(p)
    box.value.mutate_first(tl.arange(8, 12))
    box.value.mutate_second(tl.arange(12, 20))
    swap(box.value)

    anchor(box)

    a = mutate_and_produce(p)
    b, c = mutate_and_produce_tuple(p)
    anchor(a)
    anchor(b)
    anchor(c)
    anchor(p)
`, "mutable_argument")
	requireInOrder(t, funcText(t, m, "mutable_argument"),
		"%0 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"%1 = tt.make_range {end = 8 : i32, start = 4 : i32}",
		"%2:2 = tt.call @", "swap", "(%0, %1)",
		"%3 = tt.make_range {end = 12 : i32, start = 8 : i32}",
		"%4:2 = tt.call @", "mutate_first", "(%2#0, %2#1, %3)",
		"%5 = tt.make_range {end = 20 : i32, start = 12 : i32}",
		"%6:2 = tt.call @", "mutate_second", "(%4#0, %4#1, %5)",
		"%7:2 = tt.call @", "swap", "(%6#0, %6#1)",
		"anchor", "(%7#0, %7#1)",
		"%9:3 = tt.call @", "mutate_and_produce", "(%2#0, %2#1)",
		"%10:4 = tt.call @", "mutate_and_produce_tuple", "(%9#1, %9#2)",
		"anchor", "(%9#0)",
		"anchor", "(%10#0)",
		"anchor", "(%10#1)",
		"anchor", "(%10#2, %10#3)",
	)
	requireInOrder(t, funcText(t, m, "test_frontend.swap"),
		"%0:2 = tt.call @", "mutate_first", "(%arg0, %arg1, %arg1)",
		"%1:2 = tt.call @", "mutate_second", "(%0#0, %0#1, %arg0)",
		"tt.return %1#0, %1#1",
	)
	assert.Contains(t, funcText(t, m, "Pair.mutate_first"), "tt.return %arg2, %arg1")
	assert.Contains(t, funcText(t, m, "Pair.mutate_second"), "tt.return %arg0, %arg2")
	assert.Contains(t, funcText(t, m, "mutate_and_produce__"), "tt.return %0, %arg0, %arg1")
	assert.Contains(t, funcText(t, m, "mutate_and_produce_tuple"), "tt.return %0, %1, %arg0, %arg1")
}

func TestJitInit(t *testing.T) {
	m := trace(t, `
@tl.aggregate
class JITInitializer:
    x: tl.tensor
    y: tl.constexpr

    def __init__(self, a, b, y: tl.constexpr):
        self.y: tl.constexpr = y
        self.x = a + b + tl.arange(0, self.y)

    def double(self):
        self.x *= 2


@triton.jit
def jit_init():
    p = JITInitializer(tl.arange(4, 8), tl.arange(8, 12), 4)
    anchor(p)
    tl.arange(0, p.y)
`, "jit_init")
	requireInOrder(t, funcText(t, m, "jit_init"),
		"%0 = tt.make_range {end = 8 : i32, start = 4 : i32}",
		"%1 = tt.make_range {end = 12 : i32, start = 8 : i32}",
		"%2 = tt.call @test_frontend.JITInitializer.__init____i32S4S_i32S4S_c4(%0, %1)",
		"anchor", "(%2)",
		"tt.make_range {end = 4 : i32, start = 0 : i32}",
	)
	requireInOrder(t, funcText(t, m, "JITInitializer.__init__"),
		"%0 = arith.addi %arg0, %arg1",
		"%1 = tt.make_range {end = 4 : i32, start = 0 : i32}",
		"%2 = arith.addi %0, %1",
		"tt.return %2",
	)
}

func TestModifyIfLivein(t *testing.T) {
	m := trace(t, `
@triton.jit
def modify_if_livein():
    none_livein = None
    box = Box(tl.tensor)(tl.core.to_tensor(True))
    for i in range(10):
        if box.value:
            box.value = False
    anchor(box.value)
`, "modify_if_livein")
	requireInOrder(t, funcText(t, m, "modify_if_livein"),
		"%0 = scf.for", "iter_args(%arg1 = %true)",
		"%1 = scf.if %arg1 -> (i1) {",
		"scf.yield %false",
		"} else {",
		"scf.yield %arg1",
		"scf.yield %1",
		"anchor", "(%0)",
	)
}

const mutateObjectBody = `
    TBox: tl.constexpr = Box(tl.tensor)
    box = TBox(tl.core.to_tensor(0))
    a = box
    b = box
    box.value = tl.core.to_tensor(100)
`

func TestMutateObjectScfIf(t *testing.T) {
	m := trace(t, `
@triton.jit
def mutate_object_scf_if():`+mutateObjectBody+`
    if tl.core.to_tensor(True):
        anchor((box, a, b))
        b.value = tl.core.to_tensor(1)
        a = TBox(tl.core.to_tensor(10))
        anchor((box, a, b))
    else:
        anchor((box, a, b))
        b.value = tl.core.to_tensor(2)
        a = TBox(tl.core.to_tensor(20))
        anchor((box, a, b))
    anchor((box, a, b))
`, "mutate_object_scf_if")
	requireInOrder(t, funcText(t, m, "mutate_object_scf_if"),
		"%0:2 = scf.if %true -> (i32, i32) {",
		"scf.yield %c1_i32, %c10_i32",
		"} else {",
		"scf.yield %c2_i32, %c20_i32",
		"anchor", "(%0#0, %0#1, %0#0)",
	)
}

func TestMutateObjectIfToplevel(t *testing.T) {
	m := trace(t, `
@triton.jit
def mutate_object_if_toplevel():`+mutateObjectBody+`
    if tl.core.to_tensor(True):
        anchor((box, a, b))
        b.value = tl.core.to_tensor(1)
        a = TBox(tl.core.to_tensor(10))
        anchor((box, a, b))
    else:
        anchor((box, a, b))
        b.value = tl.core.to_tensor(2)
        a = TBox(tl.core.to_tensor(20))
        anchor((box, a, b))
        return
    anchor((box, a, b))
`, "mutate_object_if_toplevel")
	f := m.Lookup("mutate_object_if_toplevel")
	require.NotNil(t, f)
	assert.Len(t, f.Body.Blocks, 4)
	assert.Equal(t, 1, countOps(f, ir.OpCondBr))
	assert.Equal(t, 1, countOps(f, ir.OpBr))
	assert.Equal(t, 2, countOps(f, ir.OpReturn))
	requireInOrder(t, funcText(t, m, "mutate_object_if_toplevel"),
		"cf.cond_br %true, ^bb1, ^bb2",
		"^bb1:", "cf.br ^bb3",
		"^bb2:", "tt.return",
		"^bb3:", "anchor", "(%c1_i32, %c10_i32, %c1_i32)",
	)
}

func TestMutateObjectFor(t *testing.T) {
	m := trace(t, `
@triton.jit
def mutate_object_for():`+mutateObjectBody+`
    for i in range(0):
        anchor((box, a, b))
        b.value = tl.core.to_tensor(1)
        a = TBox(tl.core.to_tensor(20))
        anchor((box, a, b))
    anchor((box, a, b))
`, "mutate_object_for")
	f := m.Lookup("mutate_object_for")
	require.NotNil(t, f)
	assert.Zero(t, countOps(f, ir.OpFor))
	assert.Contains(t, funcText(t, m, "mutate_object_for"), "(%c100_i32, %c100_i32, %c100_i32)")
}

func TestMutateObjectWhile(t *testing.T) {
	m := trace(t, `
@triton.jit
def mutate_object_while():`+mutateObjectBody+`
    while box.value != 10:
        anchor((box, a, b))
        b.value = tl.core.to_tensor(1)
        a = TBox(tl.core.to_tensor(20))
        anchor((box, a, b))
    anchor((box, a, b))
`, "mutate_object_while")
	requireInOrder(t, funcText(t, m, "mutate_object_while"),
		"%0:2 = scf.while (%arg0 = %c100_i32, %arg1 = %c100_i32) : (i32, i32) -> (i32, i32) {",
		"arith.cmpi ne, %arg0,",
		"scf.condition(",
		"} do {",
		"anchor", "(%arg2, %arg3, %arg2)",
		"scf.yield",
		"anchor", "(%0#0, %0#1, %0#0)",
	)
}

func TestEntryParameters(t *testing.T) {
	m := trace(t, `
@triton.jit
def scale(x, n):
    y = x * 2.0
    if n > 0:
        y = -y
    return y
`, "scale", typesystem.Tensor(typesystem.Float32, 8), typesystem.Scalar(typesystem.Int32))
	text := funcText(t, m, "scale")
	requireInOrder(t, text,
		"tt.func public @scale(%arg0: tensor<8xf32>, %arg1: i32) -> tensor<8xf32>",
		"%cst = arith.constant dense<2.000000e+00> : tensor<8xf32>",
		"arith.mulf %arg0, %cst : tensor<8xf32>",
		"arith.cmpi sgt, %arg1, %c0_i32 : i32",
		"scf.if", "-> (tensor<8xf32>)",
		"arith.subf",
		"scf.yield",
		"tt.return",
	)
	require.NoError(t, ir.Verify(m))
}

func TestLogicalOperators(t *testing.T) {
	m := trace(t, `
@triton.jit
def logical(x, y):
    c = (x < y) and not (x == 0)
    d = True or x
    return c, d
`, "logical", typesystem.Scalar(typesystem.Int32), typesystem.Scalar(typesystem.Int32))
	text := funcText(t, m, "logical")
	requireInOrder(t, text,
		"arith.cmpi slt, %arg0, %arg1",
		"arith.cmpi eq, %arg0,",
		"arith.xori",
		"arith.andi",
		"tt.return",
	)
	f := m.Lookup("logical")
	assert.Len(t, f.Type.Results, 2)
}

func TestSpecializationsAreMemoized(t *testing.T) {
	m := trace(t, `
@triton.jit
def add(a, b):
    return a + b


@triton.jit
def twice(x):
    y = add(x, x)
    z = add(y, x)
    w = add(x, 1)
    return z + w
`, "twice", typesystem.Tensor(typesystem.Int32, 4))
	var adds []string
	for _, f := range m.Funcs {
		if strings.HasPrefix(f.Name, "test_frontend.add") {
			adds = append(adds, f.Name)
		}
	}
	assert.Equal(t, []string{"test_frontend.add__i32S4S_i32S4S", "test_frontend.add__i32S4S_c1"}, adds)
}

func TestVerboseLogsSpecializations(t *testing.T) {
	var sb strings.Builder
	mod, err := parser.ParseString("test_frontend.py", prelude+`
@triton.jit
def kernel():
    swap(Pair(tl.arange(0, 4), tl.arange(0, 4)))
`)
	require.NoError(t, err)
	opts := config.DefaultOptions()
	opts.Verbose = true
	c := New(WithOptions(opts), WithLogger(log.New(&sb, "", 0)))
	require.NoError(t, c.Load(mod))
	_, err = c.Trace("kernel")
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "specializing test_frontend.swap")
}

func TestTraceErrors(t *testing.T) {
	t.Run("constexpr field outside init", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def kernel():
    agg = AggregateWithConstexpr(tl.arange(0, 4), 1)
    agg.b = 2
`, "kernel")
		var te *diagnostics.TypeError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("runtime value for constexpr parameter", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def takes_constexpr(n: tl.constexpr):
    pass


@triton.jit
def kernel(x):
    takes_constexpr(x)
`, "kernel", typesystem.Scalar(typesystem.Int32))
		var ne *diagnostics.NotConstantError
		assert.ErrorAs(t, err, &ne)
	})

	t.Run("return inside loop", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def kernel():
    for i in range(4):
        return
`, "kernel")
		var ue *diagnostics.UnsupportedError
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("loop changes type", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def kernel():
    acc = 0
    for i in range(4):
        acc = tl.arange(0, 4)
`, "kernel")
		var te *diagnostics.TypeError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("branches disagree on constexpr", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def kernel(x):
    n: tl.constexpr = 1
    if x > 0:
        n: tl.constexpr = 2
    tl.arange(0, n)
`, "kernel", typesystem.Scalar(typesystem.Int32))
		var te *diagnostics.TypeError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("recursion", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def rec(x):
    return rec(x)


@triton.jit
def kernel(x):
    rec(x)
`, "kernel", typesystem.Scalar(typesystem.Int32))
		var ce *diagnostics.SpecializationCycleError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, []string{"test_frontend.rec__i32", "test_frontend.rec__i32"}, ce.Chain)
	})

	t.Run("recursion with growing constexpr", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def grow(x, n: tl.constexpr):
    return grow(x, n + 1)


@triton.jit
def kernel(x):
    grow(x, 0)
`, "kernel", typesystem.Scalar(typesystem.Int32))
		var ce *diagnostics.SpecializationCycleError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "test_frontend.grow__i32_c0", ce.Name)
		assert.Equal(t, []string{"test_frontend.grow__i32_c0", "test_frontend.grow__i32_c0"}, ce.Chain)
		assert.LessOrEqual(t, strings.Count(err.Error(), "while tracing"), 3)
	})

	t.Run("unbound name", func(t *testing.T) {
		err := traceErr(t, `
@triton.jit
def kernel():
    anchor(missing)
`, "kernel")
		var ue *diagnostics.UnboundNameError
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("entry is not jit", func(t *testing.T) {
		err := traceErr(t, ``, "Box")
		var te *diagnostics.TypeError
		assert.ErrorAs(t, err, &te)
	})
}
