package pipeline_test

import (
	"bytes"
	"github.com/funvibe/kerntrace/internal/backend"
	"github.com/funvibe/kerntrace/internal/compiler"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/lexer"
	"github.com/funvibe/kerntrace/internal/parser"
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const kernel = `import triton


@triton.jit
def scale(x, n):
    y = x * 2.0
    if n > 0:
        y = -y
    return y
`

func run(src string, out *bytes.Buffer) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(src)
	ctx.FilePath = "scale.py"
	ctx.Options.Entry = "scale"
	ctx.Options.Params = []string{"tensor<8xf32>", "i32"}
	p := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&compiler.TraceProcessor{},
		backend.NewEmitProcessor(backend.NewText(false), out),
	)
	return p.Run(ctx)
}

func TestPipelineEmitsEntry(t *testing.T) {
	var out bytes.Buffer
	ctx := run(kernel, &out)
	require.Empty(t, ctx.Errors)
	require.NotNil(t, ctx.Module)
	assert.Contains(t, out.String(), "tt.func public @scale(%arg0: tensor<8xf32>, %arg1: i32) -> tensor<8xf32>")
}

func TestPipelineStopsAtParseErrors(t *testing.T) {
	var out bytes.Buffer
	ctx := run("def scale(:\n", &out)
	require.NotEmpty(t, ctx.Errors)
	assert.Nil(t, ctx.AstRoot)
	assert.Nil(t, ctx.Module)
	assert.Empty(t, out.String())
	assert.Equal(t, diagnostics.ErrP001, diagnostics.Code(ctx.Errors[0]))
}

func TestPipelineReportsBadParams(t *testing.T) {
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext(kernel)
	ctx.FilePath = "scale.py"
	ctx.Options.Entry = "scale"
	ctx.Options.Params = []string{"tensor<8xq7>"}
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&compiler.TraceProcessor{},
		backend.NewEmitProcessor(backend.NewText(false), &out),
	).Run(ctx)
	require.Len(t, ctx.Errors, 1)
	assert.Contains(t, ctx.Errors[0].Error(), "parameter 0 of scale")
	assert.Empty(t, out.String())
}
