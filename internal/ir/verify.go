package ir

import (
	"github.com/funvibe/kerntrace/internal/typesystem"
	"github.com/pkg/errors"
)

// Verify checks the structural contract downstream consumers rely on:
// every block is terminated, call sites match their callee's arity and
// types, and every structured op yields what it declares.
func Verify(m *Module) error {
	for _, f := range m.Funcs {
		if err := verifyFunc(m, f); err != nil {
			return errors.Wrapf(err, "func %s", f.Name)
		}
	}
	return nil
}

func verifyFunc(m *Module, f *Func) error {
	for i, b := range f.Body.Blocks {
		term := b.Terminator()
		if term == nil {
			return errors.Errorf("block %d is not terminated", i)
		}
		if term.Name == OpReturn && !typesEqual(valueTypes(term.Operands), f.Type.Results) {
			return errors.Errorf("return of (%s) does not match results (%s)",
				typeList(valueTypes(term.Operands)), typeList(f.Type.Results))
		}
		for si, succ := range term.Successors {
			if succ.region != f.Body {
				return errors.Errorf("branch to a block outside the function body")
			}
			if !typesEqual(valueTypes(term.SuccessorArgs[si]), valueTypes(succ.Args)) {
				return errors.Errorf("branch operands do not match block arguments")
			}
		}
	}
	var err error
	f.Body.Walk(func(op *Op) bool {
		if err == nil {
			err = verifyOp(m, op)
		}
		return err == nil
	})
	return err
}

func verifyOp(m *Module, op *Op) error {
	if op.Parent() == nil || op.Parent().Region() == nil {
		return errors.Errorf("%s: op is not attached to a region", op.Name)
	}
	for i, r := range op.Regions {
		if r.Parent() != op {
			return errors.Errorf("%s: region %d belongs to another op", op.Name, i)
		}
	}
	for i, v := range op.Operands {
		if err := verifyOperand(v); err != nil {
			return errors.Wrapf(err, "%s: operand %d", op.Name, i)
		}
	}
	results := op.ResultTypes()
	switch op.Name {
	case OpCall:
		callee := m.Lookup(op.Callee)
		if callee == nil {
			return errors.Errorf("call to unknown function %s", op.Callee)
		}
		if !typesEqual(valueTypes(op.Operands), callee.Type.Params) {
			return errors.Errorf("call to %s passes (%s), want (%s)", op.Callee,
				typeList(valueTypes(op.Operands)), typeList(callee.Type.Params))
		}
		if !typesEqual(results, callee.Type.Results) {
			return errors.Errorf("call to %s expects %d results, callee returns %d", op.Callee,
				len(results), len(callee.Type.Results))
		}
	case OpIf:
		for _, r := range op.Regions {
			if err := expectTerminator(r, OpYield, results); err != nil {
				return errors.Wrap(err, "scf.if")
			}
		}
	case OpFor:
		if !typesEqual(valueTypes(op.Operands[3:]), results) {
			return errors.New("scf.for: iter_args do not match results")
		}
		if err := expectTerminator(op.Regions[0], OpYield, results); err != nil {
			return errors.Wrap(err, "scf.for")
		}
	case OpWhile:
		before := op.Regions[0].Entry()
		cond := before.Terminator()
		if cond == nil || cond.Name != OpCondition {
			return errors.New("scf.while: before region must end in scf.condition")
		}
		if !typesEqual(valueTypes(cond.Operands[1:]), results) {
			return errors.New("scf.while: forwarded values do not match results")
		}
		if err := expectTerminator(op.Regions[1], OpYield, valueTypes(op.Operands)); err != nil {
			return errors.Wrap(err, "scf.while")
		}
	}
	return nil
}

// verifyOperand checks that v is still the value its definition exposes.
// Results replaced by SetResultTypes fail here.
func verifyOperand(v *Value) error {
	switch {
	case v == nil:
		return errors.New("nil value")
	case v.IsBlockArg():
		args := v.OwnerBlock().Args
		if v.Index() >= len(args) || args[v.Index()] != v {
			return errors.New("stale block argument")
		}
	case v.DefiningOp() == nil:
		return errors.New("value has no definition")
	default:
		results := v.DefiningOp().Results
		if v.Index() >= len(results) || results[v.Index()] != v {
			return errors.Errorf("stale result of %s", v.DefiningOp().Name)
		}
	}
	return nil
}

func expectTerminator(r *Region, name string, types []typesystem.Type) error {
	if len(r.Blocks) != 1 {
		return errors.Errorf("expected a single block, got %d", len(r.Blocks))
	}
	term := r.Entry().Terminator()
	if term == nil || term.Name != name {
		return errors.Errorf("block must end in %s", name)
	}
	if !typesEqual(valueTypes(term.Operands), types) {
		return errors.Errorf("%s of (%s), want (%s)", name, typeList(valueTypes(term.Operands)), typeList(types))
	}
	return nil
}

func typesEqual(a, b []typesystem.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
