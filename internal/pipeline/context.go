package pipeline

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
)

// PipelineContext carries the artifacts of one compilation unit from stage
// to stage.
type PipelineContext struct {
	SourceCode string
	FilePath   string
	Options    config.Options

	TokenStream []token.Token
	AstRoot     *ast.Module
	Module      *ir.Module

	Errors []error
}

func NewPipelineContext(sourceCode string) *PipelineContext {
	return &PipelineContext{
		SourceCode: sourceCode,
		Options:    config.DefaultOptions(),
	}
}

func (ctx *PipelineContext) AddError(err error) {
	ctx.Errors = append(ctx.Errors, err)
}

func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}
