package prettyprinter

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const kernel = `import triton
import triton.language as tl


@tl.aggregate
class Pair:
    first: tl.tensor
    second: tl.constexpr

    def swap(self):
        self.first, self.second = self.second, self.first


@triton.jit
def kernel(x, n: tl.constexpr, scale=2.5):
    acc = tl.zeros((4,), dtype=tl.float32)
    for i in range(0, n):
        if i % 2 == 0 and not x < 0:
            acc += x * (i - 1)
        elif i > 3:
            acc = -acc
        else:
            pass
    while x < 10:
        x = x + 1
    return acc, 'done\n'
`

func TestPrintRoundTrip(t *testing.T) {
	mod, err := parser.ParseString("k.py", kernel)
	require.NoError(t, err)
	out := Print(mod)
	assert.Equal(t, kernel, out+"\n")

	again, err := parser.ParseString("k.py", out)
	require.NoError(t, err)
	assert.Equal(t, out, Print(again))
}

func TestPrintExpressionParentheses(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = (a + b) * c", "(a + b) * c"},
		{"x = a - (b - c)", "a - (b - c)"},
		{"x = (a - b) - c", "a - b - c"},
		{"x = -(a + b)", "-(a + b)"},
		{"x = (not a) and b", "not a and b"},
		{"x = not (a and b)", "not (a and b)"},
		{"x = (a < b) == c", "(a < b) == c"},
		{"x = f(a, k=1).shape[0]", "f(a, k=1).shape[0]"},
		{"x = (a,)", "(a,)"},
		{"x = [1, 2.0, None, True]", "[1, 2.0, None, True]"},
	}
	for _, tt := range tests {
		mod, err := parser.ParseString("e.py", tt.src+"\n")
		require.NoError(t, err, tt.src)
		assign := mod.Statements[0].(*ast.AssignStatement)
		assert.Equal(t, tt.want, Print(assign.Value), tt.src)
	}
}

func TestPrintStatement(t *testing.T) {
	mod, err := parser.ParseString("s.py", "a, b = b, a\n")
	require.NoError(t, err)
	assert.Equal(t, "a, b = b, a", Print(mod.Statements[0]))
}
