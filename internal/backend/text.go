package backend

import (
	"github.com/funvibe/kerntrace/internal/ir"
	"io"
)

// TextBackend prints MLIR-like text.
type TextBackend struct {
	LineInfo bool
}

func NewText(lineInfo bool) *TextBackend {
	return &TextBackend{LineInfo: lineInfo}
}

func (b *TextBackend) Name() string { return "text" }

func (b *TextBackend) Emit(m *ir.Module, w io.Writer) error {
	p := ir.NewPrinter()
	p.LineInfo = b.LineInfo
	_, err := io.WriteString(w, p.Print(m))
	return err
}
