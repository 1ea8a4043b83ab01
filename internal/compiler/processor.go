package compiler

import (
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/pkg/errors"
	"log"
)

// TraceProcessor loads the parsed module and traces ctx.Options.Entry
// with the runtime parameter types in ctx.Options.Params.
type TraceProcessor struct {
	Logger *log.Logger
}

func (tp *TraceProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil || ctx.Failed() {
		return ctx
	}
	if ctx.Options.Entry == "" {
		ctx.AddError(errors.New("no entry kernel given"))
		return ctx
	}
	params := make([]typesystem.Type, len(ctx.Options.Params))
	for i, s := range ctx.Options.Params {
		t, err := typesystem.ParseType(s)
		if err != nil {
			ctx.AddError(errors.Wrapf(err, "parameter %d of %s", i, ctx.Options.Entry))
			return ctx
		}
		params[i] = t
	}

	c := New(WithOptions(ctx.Options), WithLogger(tp.Logger))
	if err := c.Load(ctx.AstRoot); err != nil {
		ctx.AddError(err)
		return ctx
	}
	m, err := c.Trace(ctx.Options.Entry, params...)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Module = m
	return ctx
}
