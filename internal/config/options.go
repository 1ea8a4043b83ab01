package config

import (
	"bytes"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
)

// Emit formats understood by the backends.
const (
	EmitText = "text"
	EmitYAML = "yaml"
)

// Options controls a single compilation unit.
type Options struct {
	// ModuleName prefixes every mangled name. Defaults to the source file stem.
	ModuleName string `yaml:"module"`
	// Entry is the public kernel to trace.
	Entry string `yaml:"entry"`
	// Params lists the IR types of the entry's runtime parameters, e.g. i32
	// or tensor<4xf32>.
	Params []string `yaml:"params"`
	// Emit selects the backend: "text" or "yaml".
	Emit string `yaml:"emit"`
	// MaxCallDepth bounds nested specialization requests.
	MaxCallDepth int `yaml:"max_call_depth"`
	// Verbose logs specialization events.
	Verbose bool `yaml:"verbose"`
	// DisableLineInfo strips source locations from emitted IR.
	DisableLineInfo bool `yaml:"disable_line_info"`
}

func DefaultOptions() Options {
	return Options{
		Emit:            EmitText,
		MaxCallDepth:    DefaultMaxCallDepth,
		DisableLineInfo: true,
	}
}

// ParseOptions decodes YAML on top of DefaultOptions. Unknown keys are rejected.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return Options{}, fmt.Errorf("config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: %w", err)
	}
	return ParseOptions(data)
}

func (o Options) Validate() error {
	switch o.Emit {
	case EmitText, EmitYAML:
	default:
		return fmt.Errorf("config: unknown emit format %q", o.Emit)
	}
	if o.MaxCallDepth <= 0 {
		return fmt.Errorf("config: max_call_depth must be positive, got %d", o.MaxCallDepth)
	}
	return nil
}
