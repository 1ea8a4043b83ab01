package backend

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"gopkg.in/yaml.v3"
	"io"
	"sort"
)

// YAMLBackend dumps the shape of a module: functions, blocks and ops with
// their result types and nested regions. Value identities are omitted.
type YAMLBackend struct{}

func NewYAML() *YAMLBackend {
	return &YAMLBackend{}
}

func (b *YAMLBackend) Name() string { return "yaml" }

type moduleShape struct {
	Functions []funcShape `yaml:"functions"`
}

type funcShape struct {
	Name    string       `yaml:"name"`
	Public  bool         `yaml:"public,omitempty"`
	Params  []string     `yaml:"params,flow"`
	Results []string     `yaml:"results,flow"`
	Blocks  []blockShape `yaml:"blocks"`
}

type blockShape struct {
	Args []string  `yaml:"args,flow,omitempty"`
	Ops  []opShape `yaml:"ops"`
}

type opShape struct {
	Name     string            `yaml:"name"`
	Callee   string            `yaml:"callee,omitempty"`
	Operands int               `yaml:"operands,omitempty"`
	Results  []string          `yaml:"results,flow,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty"`
	Regions  [][]blockShape    `yaml:"regions,omitempty"`
}

func (b *YAMLBackend) Emit(m *ir.Module, w io.Writer) error {
	shape := moduleShape{Functions: make([]funcShape, 0, len(m.Funcs))}
	for _, f := range m.Funcs {
		shape.Functions = append(shape.Functions, funcShape{
			Name:    f.Name,
			Public:  f.Public,
			Params:  typeNames(f.Type.Params),
			Results: typeNames(f.Type.Results),
			Blocks:  regionShape(f.Body),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(shape); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	return enc.Close()
}

func regionShape(r *ir.Region) []blockShape {
	blocks := make([]blockShape, len(r.Blocks))
	for i, blk := range r.Blocks {
		args := make([]typesystem.Type, len(blk.Args))
		for j, a := range blk.Args {
			args[j] = a.Type
		}
		blocks[i].Args = typeNames(args)
		blocks[i].Ops = make([]opShape, len(blk.Ops))
		for j, op := range blk.Ops {
			blocks[i].Ops[j] = opShapeOf(op)
		}
	}
	return blocks
}

func opShapeOf(op *ir.Op) opShape {
	s := opShape{
		Name:     op.Name,
		Callee:   op.Callee,
		Operands: len(op.Operands),
		Results:  typeNames(op.ResultTypes()),
	}
	if len(op.Attrs) > 0 {
		s.Attrs = make(map[string]string, len(op.Attrs))
		keys := make([]string, 0, len(op.Attrs))
		for k := range op.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.Attrs[k] = attrString(op.Attrs[k])
		}
	}
	for _, r := range op.Regions {
		s.Regions = append(s.Regions, regionShape(r))
	}
	return s
}

func attrString(a ir.Attribute) string {
	switch v := a.(type) {
	case ir.IntegerAttr:
		return fmt.Sprintf("%d : %s", v.Value, v.DType.IR())
	case ir.ConstantAttr:
		return fmt.Sprintf("%v : %s", v.Value, v.Type)
	case ir.StringAttr:
		return string(v)
	}
	return fmt.Sprintf("%v", a)
}

func typeNames(types []typesystem.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
