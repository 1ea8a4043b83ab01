package backend

import (
	"github.com/funvibe/kerntrace/internal/pipeline"
	"io"
)

// EmitProcessor implements pipeline.Processor to run a Backend
type EmitProcessor struct {
	Backend Backend
	Out     io.Writer
}

// NewEmitProcessor creates a new pipeline step for the given backend
func NewEmitProcessor(b Backend, out io.Writer) *EmitProcessor {
	return &EmitProcessor{Backend: b, Out: out}
}

func (p *EmitProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, there is nothing to emit
	if ctx.Module == nil || ctx.Failed() {
		return ctx
	}
	if err := p.Backend.Emit(ctx.Module, p.Out); err != nil {
		ctx.AddError(err)
	}
	return ctx
}
