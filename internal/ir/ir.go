// Package ir is the block-structured SSA representation produced by the
// tracer. A Module holds functions; a function body is a Region of Blocks;
// structured control flow ops (scf.if, scf.for, scf.while) own nested
// Regions and carry values explicitly through block arguments and yields.
package ir

import (
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// Op names emitted by the tracer.
const (
	OpConstant  = "arith.constant"
	OpMakeRange = "tt.make_range"
	OpSplat     = "tt.splat"
	OpCall      = "tt.call"
	OpReturn    = "tt.return"
	OpIf        = "scf.if"
	OpFor       = "scf.for"
	OpWhile     = "scf.while"
	OpCondition = "scf.condition"
	OpYield     = "scf.yield"
	OpCondBr    = "cf.cond_br"
	OpBr        = "cf.br"
	OpCmpI      = "arith.cmpi"
	OpCmpF      = "arith.cmpf"
)

var terminators = map[string]bool{
	OpReturn:    true,
	OpYield:     true,
	OpCondition: true,
	OpCondBr:    true,
	OpBr:        true,
}

func IsTerminator(name string) bool { return terminators[name] }

// Value is an SSA value: either the result of an Op or a Block argument.
type Value struct {
	Type typesystem.Type

	owner *Op
	block *Block
	index int
}

// DefiningOp returns the op producing v, or nil for block arguments.
func (v *Value) DefiningOp() *Op { return v.owner }

// OwnerBlock returns the block declaring v as an argument, or nil.
func (v *Value) OwnerBlock() *Block { return v.block }

// Index is the result number or the argument number.
func (v *Value) Index() int { return v.index }

func (v *Value) IsBlockArg() bool { return v.block != nil }

// ConstantValue reports the host value of an arith.constant result.
func (v *Value) ConstantValue() (interface{}, bool) {
	if v.owner == nil || v.owner.Name != OpConstant {
		return nil, false
	}
	c, ok := v.owner.Attrs["value"].(ConstantAttr)
	if !ok {
		return nil, false
	}
	return c.Value, true
}

// Attribute is a compile-time property attached to an Op.
type Attribute interface {
	attribute()
}

// IntegerAttr renders as "4 : i32".
type IntegerAttr struct {
	Value int64
	DType typesystem.DType
}

// ConstantAttr holds the payload of arith.constant. Value is int64,
// float64 or bool; a non-scalar Type makes it a dense splat.
type ConstantAttr struct {
	Value interface{}
	Type  typesystem.Type
}

// StringAttr is used for predicates and symbol references.
type StringAttr string

func (IntegerAttr) attribute()  {}
func (ConstantAttr) attribute() {}
func (StringAttr) attribute()   {}

type Op struct {
	Name     string
	Operands []*Value
	Results  []*Value
	Attrs    map[string]Attribute
	Regions  []*Region

	// Successors and their block operands, for cf.* terminators.
	Successors    []*Block
	SuccessorArgs [][]*Value

	// Callee is the symbol name targeted by tt.call.
	Callee string

	Pos token.Position

	parent *Block
}

func (o *Op) Parent() *Block { return o.parent }

func (o *Op) Result(i int) *Value { return o.Results[i] }

func (o *Op) ResultTypes() []typesystem.Type {
	types := make([]typesystem.Type, len(o.Results))
	for i, r := range o.Results {
		types[i] = r.Type
	}
	return types
}

// SetResultTypes replaces the results of an op whose result types are only
// known after its regions are built. Earlier result values are invalidated.
func (o *Op) SetResultTypes(types []typesystem.Type) {
	o.addResults(types)
}

func (o *Op) addResults(types []typesystem.Type) {
	o.Results = make([]*Value, len(types))
	for i, t := range types {
		o.Results[i] = &Value{Type: t, owner: o, index: i}
	}
}

type Block struct {
	Args []*Value
	Ops  []*Op

	region *Region
}

// NewBlock creates a block that is not attached to any region. Ops built
// into a detached block are never printed.
func NewBlock(argTypes ...typesystem.Type) *Block {
	b := &Block{}
	for _, t := range argTypes {
		b.AddArg(t)
	}
	return b
}

func (b *Block) Region() *Region { return b.region }

func (b *Block) AddArg(t typesystem.Type) *Value {
	v := &Value{Type: t, block: b, index: len(b.Args)}
	b.Args = append(b.Args, v)
	return v
}

// Terminator returns the block's last op when it is a terminator.
func (b *Block) Terminator() *Op {
	if len(b.Ops) == 0 {
		return nil
	}
	last := b.Ops[len(b.Ops)-1]
	if IsTerminator(last.Name) {
		return last
	}
	return nil
}

func (b *Block) append(op *Op) {
	op.parent = b
	b.Ops = append(b.Ops, op)
}

type Region struct {
	Blocks []*Block

	parent *Op
}

func (r *Region) Parent() *Op { return r.parent }

func (r *Region) Entry() *Block {
	if len(r.Blocks) == 0 {
		return nil
	}
	return r.Blocks[0]
}

// AddBlock appends a new block with the given argument types.
func (r *Region) AddBlock(argTypes ...typesystem.Type) *Block {
	b := NewBlock(argTypes...)
	b.region = r
	r.Blocks = append(r.Blocks, b)
	return b
}

// FuncType is the flattened signature of a lowered function.
type FuncType struct {
	Params  []typesystem.Type
	Results []typesystem.Type
}

type Func struct {
	Name   string
	Public bool
	Type   FuncType
	Body   *Region
	Pos    token.Position

	// Complete is false while the body is still being lowered.
	Complete bool
}

func (f *Func) Entry() *Block { return f.Body.Entry() }

func (f *Func) Args() []*Value { return f.Entry().Args }

// Module is an ordered collection of functions.
type Module struct {
	Funcs []*Func

	byName map[string]*Func
}

func NewModule() *Module {
	return &Module{byName: make(map[string]*Func)}
}

// NewFunc appends a function with an entry block holding one argument per
// parameter type. Funcs are kept in creation order.
func (m *Module) NewFunc(name string, public bool, params []typesystem.Type) *Func {
	f := &Func{
		Name:   name,
		Public: public,
		Type:   FuncType{Params: append([]typesystem.Type(nil), params...)},
		Body:   &Region{},
	}
	f.Body.AddBlock(params...)
	m.Funcs = append(m.Funcs, f)
	m.byName[name] = f
	return f
}

func (m *Module) Lookup(name string) *Func {
	return m.byName[name]
}

// Walk visits every op of the region in program order, nested regions
// included. Returning false from fn skips the op's regions.
func (r *Region) Walk(fn func(*Op) bool) {
	for _, b := range r.Blocks {
		b.Walk(fn)
	}
}

func (b *Block) Walk(fn func(*Op) bool) {
	for _, op := range b.Ops {
		if !fn(op) {
			continue
		}
		for _, r := range op.Regions {
			r.Walk(fn)
		}
	}
}
