package evaluator

import (
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/token"
)

// Environment is one lexical frame. Names resolve through outer; box
// contents resolve through a separate parent chain so that a body traced
// inline can see and update its caller's boxes. Frames marked root bound
// the local chain captured by Snapshot.
type Environment struct {
	store map[string]Object
	order []string
	boxes map[BoxID]*Instance

	outer     *Environment
	boxParent *Environment
	root      bool
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

// NewEnclosedEnvironment creates a child scope of outer for a branch or
// loop body. It is discarded after its final bindings are read.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	env.boxParent = outer
	return env
}

// NewFrame creates the root frame of a function invocation. Free names
// resolve in scope; boxes not created by the callee resolve in caller,
// which may be nil.
func NewFrame(scope, caller *Environment) *Environment {
	env := NewEnvironment()
	env.outer = scope
	env.boxParent = caller
	env.root = true
	return env
}

func (e *Environment) Outer() *Environment { return e.outer }

func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.outer {
		if obj, ok := env.store[name]; ok {
			return obj, true
		}
	}
	return nil, false
}

// Lookup is Get failing with UnboundNameError.
func (e *Environment) Lookup(pos token.Position, name string) (Object, error) {
	obj, ok := e.Get(name)
	if !ok {
		return nil, diagnostics.NewUnboundNameError(pos, name)
	}
	return obj, nil
}

// Set binds name in this frame, shadowing outer frames.
func (e *Environment) Set(name string, val Object) Object {
	if _, ok := e.store[name]; !ok {
		e.order = append(e.order, name)
	}
	e.store[name] = val
	return val
}

// Names returns the names bound in this frame in binding order.
func (e *Environment) Names() []string {
	return append([]string(nil), e.order...)
}

func (e *Environment) Box(id BoxID) (*Instance, bool) {
	for env := e; env != nil; env = env.boxParent {
		if inst, ok := env.boxes[id]; ok {
			return inst, true
		}
	}
	return nil, false
}

// SetBox replaces the content of a box. The write lands in this frame, so
// it is visible to every alias until the frame is discarded or absorbed.
func (e *Environment) SetBox(id BoxID, inst *Instance) {
	if e.boxes == nil {
		e.boxes = make(map[BoxID]*Instance)
	}
	e.boxes[id] = inst
}

// NewBox allocates a fresh identity holding inst.
func (e *Environment) NewBox(inst *Instance) *BoxRef {
	ref := &BoxRef{ID: NewBoxID()}
	e.SetBox(ref.ID, inst)
	return ref
}

// Absorb promotes the bindings and box writes of child's own frame into e.
func (e *Environment) Absorb(child *Environment) {
	for _, name := range child.order {
		e.Set(name, child.store[name])
	}
	e.AbsorbBoxes(child)
}

// AbsorbBoxes promotes only the box writes of frame into e.
func (e *Environment) AbsorbBoxes(frame *Environment) {
	for id, inst := range frame.boxes {
		e.SetBox(id, inst)
	}
}

// localFrames lists the frames from the enclosing root down to e.
func (e *Environment) localFrames() []*Environment {
	var frames []*Environment
	for env := e; env != nil; env = env.outer {
		frames = append(frames, env)
		if env.root {
			break
		}
	}
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}

// Snapshot captures the current local bindings, excluding globals and
// captured closure scope, together with the content of every box they
// reach.
func (e *Environment) Snapshot() *Snapshot {
	s := &Snapshot{
		names: make(map[string]Object),
		boxes: make(map[BoxID]*Instance),
	}
	for _, frame := range e.localFrames() {
		for _, name := range frame.order {
			if _, seen := s.names[name]; !seen {
				s.order = append(s.order, name)
			}
			s.names[name] = frame.store[name]
		}
	}
	for _, name := range s.order {
		for _, id := range ReachableBoxes(s.names[name]) {
			if _, seen := s.boxes[id]; seen {
				continue
			}
			if inst, ok := e.Box(id); ok {
				s.boxes[id] = inst
			}
		}
	}
	return s
}

// Snapshot is an immutable view of local bindings at a program point.
type Snapshot struct {
	names map[string]Object
	order []string
	boxes map[BoxID]*Instance
}

func (s *Snapshot) Get(name string) (Object, bool) {
	obj, ok := s.names[name]
	return obj, ok
}

// Names returns bound names, outermost frame first, in binding order.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *Snapshot) Box(id BoxID) (*Instance, bool) {
	inst, ok := s.boxes[id]
	return inst, ok
}

// Diff returns the names whose bound value differs between a and b, in a's
// order followed by names only bound in b. A name still bound to the same
// box differs when the box content does.
func Diff(a, b *Snapshot) []string {
	var out []string
	changed := func(name string) bool {
		va, okA := a.Get(name)
		vb, okB := b.Get(name)
		if okA != okB || !SameObject(va, vb) {
			return true
		}
		for _, id := range ReachableBoxes(va) {
			ia, okA := a.Box(id)
			ib, okB := b.Box(id)
			if okA != okB || (okA && !SameObject(ia, ib)) {
				return true
			}
		}
		return false
	}
	for _, name := range a.order {
		if changed(name) {
			out = append(out, name)
		}
	}
	for _, name := range b.order {
		if _, ok := a.names[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
