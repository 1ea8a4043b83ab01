// Package backend provides the consumers of a traced IR module.
// This allows switching between the textual printer and the YAML shape dump.
package backend

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/ir"
	"io"
)

// Backend is the interface for IR emitters
type Backend interface {
	// Emit writes m to w
	Emit(m *ir.Module, w io.Writer) error

	// Name returns the backend name for display
	Name() string
}

// ForOptions picks the backend selected by opts.Emit.
func ForOptions(opts config.Options) (Backend, error) {
	switch opts.Emit {
	case config.EmitText:
		return NewText(!opts.DisableLineInfo), nil
	case config.EmitYAML:
		return NewYAML(), nil
	}
	return nil, fmt.Errorf("backend: unknown emit format %q", opts.Emit)
}
