package parser

import (
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/funvibe/kerntrace/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		err := diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "parser: token stream is nil")
		err.File = ctx.FilePath
		ctx.AddError(err)
		return ctx
	}

	p := New(ctx.TokenStream)
	mod := p.ParseModule()
	mod.File = ctx.FilePath
	mod.Name = ModuleName(ctx.FilePath)

	errs := p.Errors()
	for _, err := range errs {
		err.File = ctx.FilePath
		ctx.AddError(err)
	}
	if len(errs) == 0 {
		ctx.AstRoot = mod
	}
	return ctx
}
