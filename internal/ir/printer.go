package ir

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/typesystem"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var bareSymbol = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$.]*$`)

// Printer renders a Module as MLIR-like text.
type Printer struct {
	// LineInfo appends loc("file":line:col) to every op with a known position.
	LineInfo bool

	sb     strings.Builder
	indent int

	names   map[*Value]string
	decls   map[*Op]string
	labels  map[*Block]string
	next    int
	nextArg int
	used    map[string]int
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Print renders m without line information.
func Print(m *Module) string {
	return NewPrinter().Print(m)
}

func (p *Printer) Print(m *Module) string {
	p.sb.Reset()
	p.sb.WriteString("module {\n")
	p.indent = 1
	for _, f := range m.Funcs {
		p.printFunc(f)
	}
	p.sb.WriteString("}\n")
	return p.sb.String()
}

// PrintFunc renders a single function.
func (p *Printer) PrintFunc(f *Func) string {
	p.sb.Reset()
	p.indent = 0
	p.printFunc(f)
	return p.sb.String()
}

// SymbolName quotes a symbol when it is not a bare identifier.
func SymbolName(name string) string {
	if bareSymbol.MatchString(name) {
		return "@" + name
	}
	return "@" + strconv.Quote(name)
}

func (p *Printer) line(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) printFunc(f *Func) {
	p.nameFunc(f)

	visibility := "private"
	if f.Public {
		visibility = "public"
	}
	params := make([]string, len(f.Args()))
	for i, a := range f.Args() {
		params[i] = p.names[a] + ": " + a.Type.String()
	}
	header := fmt.Sprintf("tt.func %s %s(%s)", visibility, SymbolName(f.Name), strings.Join(params, ", "))
	switch len(f.Type.Results) {
	case 0:
	case 1:
		header += " -> " + f.Type.Results[0].String()
	default:
		header += " -> (" + typeList(f.Type.Results) + ")"
	}
	p.line("%s attributes {noinline = false} {", header)
	p.printRegionBlocks(f.Body, true)
	p.line("}")
}

func (p *Printer) printRegionBlocks(r *Region, skipEntryLabel bool) {
	for i, b := range r.Blocks {
		if i > 0 || (!skipEntryLabel && len(b.Args) > 0) {
			// Labels sit one level left of the block body.
			body := p.indent
			p.indent = max(body-1, 0)
			p.line("%s", p.blockHeader(b))
			p.indent = body
		}
		p.indent++
		for _, op := range b.Ops {
			p.printOp(op)
		}
		p.indent--
	}
}

func (p *Printer) blockHeader(b *Block) string {
	if len(b.Args) == 0 {
		return p.labels[b] + ":"
	}
	args := make([]string, len(b.Args))
	for i, a := range b.Args {
		args[i] = p.names[a] + ": " + a.Type.String()
	}
	return fmt.Sprintf("%s(%s):", p.labels[b], strings.Join(args, ", "))
}

func (p *Printer) printOp(op *Op) {
	prefix := ""
	if d, ok := p.decls[op]; ok {
		prefix = d + " = "
	}
	loc := ""
	if p.LineInfo && op.Pos.IsValid() {
		loc = fmt.Sprintf(" loc(%q:%d:%d)", op.Pos.File, op.Pos.Line, op.Pos.Column)
	}

	switch op.Name {
	case OpIf:
		head := fmt.Sprintf("scf.if %s", p.ref(op.Operands[0]))
		if len(op.Results) > 0 {
			head += " -> (" + typeList(op.ResultTypes()) + ")"
		}
		p.line("%s%s {", prefix, head)
		p.printRegionBlocks(op.Regions[0], true)
		if els := op.Regions[1]; !emptyYieldRegion(els) {
			p.line("} else {")
			p.printRegionBlocks(els, true)
		}
		p.line("}%s", loc)
		return

	case OpFor:
		body := op.Regions[0].Entry()
		head := fmt.Sprintf("scf.for %s = %s to %s step %s", p.names[body.Args[0]],
			p.ref(op.Operands[0]), p.ref(op.Operands[1]), p.ref(op.Operands[2]))
		if len(op.Operands) > 3 {
			iters := make([]string, 0, len(op.Operands)-3)
			for i, init := range op.Operands[3:] {
				iters = append(iters, p.names[body.Args[i+1]]+" = "+p.ref(init))
			}
			head += fmt.Sprintf(" iter_args(%s) -> (%s)", strings.Join(iters, ", "), typeList(op.ResultTypes()))
		}
		head += " : " + op.Operands[0].Type.String()
		p.line("%s%s {", prefix, head)
		p.printRegionBlocks(op.Regions[0], true)
		p.line("}%s", loc)
		return

	case OpWhile:
		before := op.Regions[0].Entry()
		inits := make([]string, len(op.Operands))
		for i, init := range op.Operands {
			inits[i] = p.names[before.Args[i]] + " = " + p.ref(init)
		}
		types := typeList(op.ResultTypes())
		p.line("%sscf.while (%s) : (%s) -> (%s) {", prefix, strings.Join(inits, ", "), types, types)
		p.printRegionBlocks(op.Regions[0], true)
		p.line("} do {")
		p.printRegionBlocks(op.Regions[1], false)
		p.line("}%s", loc)
		return
	}

	p.line("%s%s%s", prefix, p.opBody(op), loc)
}

func (p *Printer) opBody(op *Op) string {
	switch op.Name {
	case OpConstant:
		return "arith.constant " + constantLiteral(op.Attrs["value"].(ConstantAttr))

	case OpMakeRange:
		return fmt.Sprintf("tt.make_range %s : %s", attrDict(op.Attrs), op.Results[0].Type)

	case OpSplat:
		return fmt.Sprintf("tt.splat %s : %s -> %s", p.ref(op.Operands[0]), op.Operands[0].Type, op.Results[0].Type)

	case OpCmpI, OpCmpF:
		pred := op.Attrs["predicate"].(StringAttr)
		return fmt.Sprintf("%s %s, %s, %s : %s", op.Name, pred, p.ref(op.Operands[0]), p.ref(op.Operands[1]), op.Operands[0].Type)

	case OpCall:
		var results string
		switch len(op.Results) {
		case 0:
			results = "()"
		case 1:
			results = op.Results[0].Type.String()
		default:
			results = "(" + typeList(op.ResultTypes()) + ")"
		}
		return fmt.Sprintf("tt.call %s(%s) : (%s) -> %s", SymbolName(op.Callee), p.refs(op.Operands),
			typeList(valueTypes(op.Operands)), results)

	case OpReturn, OpYield:
		if len(op.Operands) == 0 {
			return op.Name
		}
		return fmt.Sprintf("%s %s : %s", op.Name, p.refs(op.Operands), typeList(valueTypes(op.Operands)))

	case OpCondition:
		s := fmt.Sprintf("scf.condition(%s)", p.ref(op.Operands[0]))
		if rest := op.Operands[1:]; len(rest) > 0 {
			s += fmt.Sprintf(" %s : %s", p.refs(rest), typeList(valueTypes(rest)))
		}
		return s

	case OpCondBr:
		return fmt.Sprintf("cf.cond_br %s, %s, %s", p.ref(op.Operands[0]),
			p.successor(op.Successors[0], op.SuccessorArgs[0]), p.successor(op.Successors[1], op.SuccessorArgs[1]))

	case OpBr:
		return "cf.br " + p.successor(op.Successors[0], op.SuccessorArgs[0])
	}

	if len(op.Operands) == 0 {
		return op.Name
	}
	return fmt.Sprintf("%s %s : %s", op.Name, p.refs(op.Operands), op.Operands[0].Type)
}

func (p *Printer) successor(b *Block, args []*Value) string {
	if len(args) == 0 {
		return p.labels[b]
	}
	return fmt.Sprintf("%s(%s : %s)", p.labels[b], p.refs(args), typeList(valueTypes(args)))
}

func (p *Printer) ref(v *Value) string {
	if n, ok := p.names[v]; ok {
		return n
	}
	return "<<UNKNOWN>>"
}

func (p *Printer) refs(values []*Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = p.ref(v)
	}
	return strings.Join(parts, ", ")
}

// nameFunc assigns SSA names in print order.
func (p *Printer) nameFunc(f *Func) {
	p.names = make(map[*Value]string)
	p.decls = make(map[*Op]string)
	p.labels = make(map[*Block]string)
	p.used = make(map[string]int)
	p.next = 0
	p.nextArg = 0
	p.nameRegion(f.Body)
}

func (p *Printer) nameRegion(r *Region) {
	for i, b := range r.Blocks {
		p.labels[b] = fmt.Sprintf("^bb%d", i)
		for _, a := range b.Args {
			if i == 0 {
				p.names[a] = fmt.Sprintf("%%arg%d", p.nextArg)
				p.nextArg++
			} else {
				p.names[a] = fmt.Sprintf("%%%d", p.next)
				p.next++
			}
		}
	}
	for _, b := range r.Blocks {
		for _, op := range b.Ops {
			p.nameOp(op)
			for _, nested := range op.Regions {
				p.nameRegion(nested)
			}
		}
	}
}

func (p *Printer) nameOp(op *Op) {
	switch len(op.Results) {
	case 0:
		return
	case 1:
		name := p.constantName(op)
		if name == "" {
			name = fmt.Sprintf("%%%d", p.next)
			p.next++
		}
		p.names[op.Results[0]] = name
		p.decls[op] = name
	default:
		base := fmt.Sprintf("%%%d", p.next)
		p.next++
		for i, r := range op.Results {
			p.names[r] = fmt.Sprintf("%s#%d", base, i)
		}
		p.decls[op] = fmt.Sprintf("%s:%d", base, len(op.Results))
	}
}

func (p *Printer) constantName(op *Op) string {
	if op.Name != OpConstant {
		return ""
	}
	c := op.Attrs["value"].(ConstantAttr)
	hint := "cst"
	if c.Type.IsScalar() {
		switch v := c.Value.(type) {
		case bool:
			hint = strconv.FormatBool(v)
		case int64:
			hint = fmt.Sprintf("c%d_%s", v, c.Type.DType.IR())
		}
	}
	n, seen := p.used[hint]
	p.used[hint] = n + 1
	if !seen {
		return "%" + hint
	}
	return fmt.Sprintf("%%%s_%d", hint, n-1)
}

func constantLiteral(c ConstantAttr) string {
	scalar := scalarLiteral(c.Value)
	if !c.Type.IsScalar() {
		return fmt.Sprintf("dense<%s> : %s", scalar, c.Type)
	}
	if _, ok := c.Value.(bool); ok {
		return scalar
	}
	return scalar + " : " + c.Type.String()
}

func scalarLiteral(v interface{}) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'e', 6, 64)
	}
	return fmt.Sprint(v)
}

func attrDict(attrs map[string]Attribute) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = " + attrString(attrs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func attrString(a Attribute) string {
	switch x := a.(type) {
	case IntegerAttr:
		return fmt.Sprintf("%d : %s", x.Value, x.DType.IR())
	case ConstantAttr:
		return constantLiteral(x)
	case StringAttr:
		return strconv.Quote(string(x))
	}
	return "?"
}

func typeList(types []typesystem.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func emptyYieldRegion(r *Region) bool {
	entry := r.Entry()
	return len(r.Blocks) == 1 && len(entry.Ops) == 1 && entry.Ops[0].Name == OpYield && len(entry.Ops[0].Operands) == 0
}
