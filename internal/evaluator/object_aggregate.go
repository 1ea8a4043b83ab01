package evaluator

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/google/uuid"
	"strings"
)

// Field is one declared member of an aggregate. A runtime field holds a
// Tensor, or an Instance of Class when Class is set.
type Field struct {
	Name      string
	Constexpr bool
	Class     *AggregateType
}

// AggregateType is a structurally typed record declared with tl.aggregate.
type AggregateType struct {
	Name     string
	QualName string
	Module   string
	Fields   []Field
	Methods  map[string]*Function
}

func (a *AggregateType) Type() ObjectType { return AGGREGATE_TYPE_OBJ }
func (a *AggregateType) Inspect() string  { return a.Module + "." + a.QualName }

func (a *AggregateType) FieldIndex(name string) int {
	for i, f := range a.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (a *AggregateType) Init() *Function {
	return a.Methods[config.InitMethodName]
}

// Instance is an immutable aggregate value. Mutation builds a replacement
// with With and stores it back into the owning box. A nil entry marks a
// field that has not been assigned yet.
type Instance struct {
	Class  *AggregateType
	Values []Object
}

// NewInstance returns an instance with every field unassigned.
func NewInstance(class *AggregateType) *Instance {
	return &Instance{Class: class, Values: make([]Object, len(class.Fields))}
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string {
	parts := make([]string, len(i.Values))
	for idx, f := range i.Class.Fields {
		v := "<unset>"
		if i.Values[idx] != nil {
			v = i.Values[idx].Inspect()
		}
		parts[idx] = f.Name + "=" + v
	}
	return fmt.Sprintf("%s(%s)", i.Class.Name, strings.Join(parts, ", "))
}

// Get returns the current value of a field; the bool reports whether the
// field exists.
func (i *Instance) Get(name string) (Object, bool) {
	idx := i.Class.FieldIndex(name)
	if idx < 0 {
		return nil, false
	}
	return i.Values[idx], true
}

// With returns a copy with field idx replaced.
func (i *Instance) With(idx int, v Object) *Instance {
	values := make([]Object, len(i.Values))
	copy(values, i.Values)
	values[idx] = v
	return &Instance{Class: i.Class, Values: values}
}

// Unset returns the name of the first unassigned field, or "".
func (i *Instance) Unset() string {
	for idx, v := range i.Values {
		if v == nil {
			return i.Class.Fields[idx].Name
		}
	}
	return ""
}

// BoxID is the identity of a box: shared by aliases, never by contents.
type BoxID uuid.UUID

func NewBoxID() BoxID { return BoxID(uuid.New()) }

func (id BoxID) String() string { return uuid.UUID(id).String() }

// BoxRef is what a name holds when it is bound to an aggregate. The current
// instance lives in the environment's box table under ID.
type BoxRef struct {
	ID BoxID
}

func (b *BoxRef) Type() ObjectType { return BOX_OBJ }
func (b *BoxRef) Inspect() string  { return "<box " + b.ID.String()[:8] + ">" }

// BoxResolver looks up the current instance held by a box.
type BoxResolver interface {
	Box(id BoxID) (*Instance, bool)
}

// Deref replaces every box reachable from obj through tuples with the
// instance it currently holds.
func Deref(obj Object, r BoxResolver) (Object, error) {
	switch o := obj.(type) {
	case *BoxRef:
		inst, ok := r.Box(o.ID)
		if !ok {
			return nil, fmt.Errorf("dangling box %s", o.Inspect())
		}
		return inst, nil
	case *Tuple:
		var elems []Object
		for i, e := range o.Elements {
			d, err := Deref(e, r)
			if err != nil {
				return nil, err
			}
			if d != e && elems == nil {
				elems = make([]Object, len(o.Elements))
				copy(elems, o.Elements[:i])
			}
			if elems != nil {
				elems[i] = d
			}
		}
		if elems == nil {
			return o, nil
		}
		return &Tuple{Elements: elems}, nil
	}
	return obj, nil
}

// ReachableBoxes lists, in first-seen order, every box referenced by obj.
func ReachableBoxes(obj Object) []BoxID {
	var out []BoxID
	var walk func(Object)
	walk = func(o Object) {
		switch v := o.(type) {
		case *BoxRef:
			out = append(out, v.ID)
		case *Tuple:
			for _, e := range v.Elements {
				walk(e)
			}
		}
	}
	walk(obj)
	return out
}
