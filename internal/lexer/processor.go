package lexer

import (
	"github.com/funvibe/kerntrace/internal/pipeline"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.TokenStream = Tokenize(ctx.SourceCode)
	return ctx
}
