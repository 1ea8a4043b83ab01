package compiler

import (
	"fmt"
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
	"github.com/funvibe/kerntrace/internal/typesystem"
)

// maxLoopRounds bounds the dry runs needed for loop-carried signatures to
// settle. Each round can only widen a constant to a runtime value.
const maxLoopRounds = 16

// loopItems dry-runs a loop body into a detached block until the set of
// carried locations and their signatures stop changing. prologue runs
// before the body is observed; it binds the induction variable.
func (fb *funcBuilder) loopItems(pre *evaluator.Snapshot, prologue, body func(*funcBuilder) error, pos token.Position) ([]mergeItem, error) {
	var items []mergeItem
	for round := 0; round < maxLoopRounds; round++ {
		scratch := ir.NewBlock()
		env := evaluator.NewEnclosedEnvironment(fb.env)
		sub := fb.nested(env, scratch)
		var args []*ir.Value
		for _, t := range itemTypes(items) {
			args = append(args, scratch.AddArg(t))
		}
		rebind(env, items, args)
		if prologue != nil {
			if err := prologue(sub); err != nil {
				return nil, err
			}
		}
		before := env.Snapshot()
		if err := body(sub); err != nil {
			return nil, err
		}
		after := env.Snapshot()

		keys := make(map[itemKey]bool)
		for _, it := range items {
			keys[it.key] = true
		}
		changedKeys(before, after, pre, keys)

		next := make([]mergeItem, 0, len(keys))
		for _, k := range orderKeys(pre, keys, nil) {
			start := startSignature(items, k)
			if start == nil {
				v, _ := k.value(pre)
				s, err := evaluator.SignatureOf(v, pre)
				if err != nil {
					return nil, diagnostics.NewTypeError(pos, "%s: %v", k, err)
				}
				start = s
			}
			end, ok := k.value(after)
			if !ok {
				return nil, diagnostics.NewTypeError(pos, "%s is not defined after the loop body", k)
			}
			es, err := evaluator.SignatureOf(end, after)
			if err != nil {
				return nil, diagnostics.NewTypeError(pos, "%s: %v", k, err)
			}
			sig, err := mergeSigs(start, es)
			if err != nil {
				return nil, diagnostics.NewTypeError(pos, "loop-carried %s: %v", k, err)
			}
			next = append(next, mergeItem{key: k, sig: sig})
		}
		if sameItems(items, next) {
			return items, nil
		}
		items = next
	}
	return nil, diagnostics.NewUnsupportedError(pos, fmt.Sprintf("loop whose carried values do not settle in %d rounds", maxLoopRounds))
}

func startSignature(items []mergeItem, k itemKey) evaluator.Signature {
	for _, it := range items {
		if it.key == k {
			return it.sig
		}
	}
	return nil
}

func sameItems(a, b []mergeItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key != b[i].key || !evaluator.SignaturesEqual(a[i].sig, b[i].sig) {
			return false
		}
	}
	return true
}

func (fb *funcBuilder) compileFor(s *ast.ForStatement) error {
	pos := fb.pos(s.Token)
	iter, err := fb.expr(s.Iterable)
	if err != nil {
		return err
	}
	switch it := iter.(type) {
	case *evaluator.Tuple:
		return fb.unroll(s, it.Elements)
	case *evaluator.Range:
		if !it.Static {
			return fb.rangeLoop(s, it, pos)
		}
		vals, ok := it.Values()
		if !ok {
			return diagnostics.NewNotConstantError(pos, "static_range bounds")
		}
		elems := make([]evaluator.Object, len(vals))
		for i, v := range vals {
			elems[i] = &evaluator.Integer{Value: v}
		}
		return fb.unroll(s, elems)
	}
	return diagnostics.NewTypeError(pos, "%s is not iterable", iter.Inspect())
}

// unroll traces the body once per element in the current scope.
func (fb *funcBuilder) unroll(s *ast.ForStatement, elems []evaluator.Object) error {
	for _, e := range elems {
		if fb.done() {
			return nil
		}
		if inst, ok := e.(*evaluator.Instance); ok {
			e = fb.env.NewBox(inst)
		}
		fb.env.Set(s.Target.Value, e)
		if err := fb.compileBlock(s.Body); err != nil {
			return err
		}
	}
	return nil
}

// boundType picks the induction variable type: the type of any runtime
// bound, else i32, widened to i64 for constants that do not fit.
func boundType(r *evaluator.Range, pos token.Position) (typesystem.Type, error) {
	var runtime *typesystem.Type
	ty := typesystem.Scalar(typesystem.Int32)
	for _, b := range []evaluator.Object{r.Start, r.Stop, r.Step} {
		switch v := b.(type) {
		case *evaluator.Tensor:
			t := v.IRType()
			if runtime != nil && !runtime.Equal(t) {
				return typesystem.Type{}, diagnostics.NewTypeError(pos, "range bounds have types %s and %s", *runtime, t)
			}
			runtime = &t
		default:
			if dt, ok := evaluator.DefaultType(v); ok && dt.DType == typesystem.Int64 {
				ty = dt
			}
		}
	}
	if runtime != nil {
		return *runtime, nil
	}
	return ty, nil
}

func (fb *funcBuilder) rangeLoop(s *ast.ForStatement, r *evaluator.Range, pos token.Position) error {
	if vals, ok := r.Values(); ok && len(vals) == 0 {
		return nil
	}
	ty, err := boundType(r, pos)
	if err != nil {
		return err
	}
	bounds := make([]*ir.Value, 3)
	for i, b := range []evaluator.Object{r.Start, r.Stop, r.Step} {
		l, err := conform(fb.b, &evaluator.RuntimeSig{Type: ty}, b, fb.env, pos)
		if err != nil {
			return err
		}
		bounds[i] = l[0]
	}

	iv := s.Target.Value
	pre := fb.env.Snapshot()
	items, err := fb.loopItems(pre,
		func(sub *funcBuilder) error {
			sub.env.Set(iv, evaluator.NewTensor(sub.b.Block().AddArg(ty)))
			return nil
		},
		func(sub *funcBuilder) error { return sub.compileBlock(s.Body) },
		pos)
	if err != nil {
		return err
	}

	inits, err := conformItems(fb.b, items, fb.env, pos)
	if err != nil {
		return err
	}
	op, body := fb.b.For(bounds[0], bounds[1], bounds[2], inits)
	env := evaluator.NewEnclosedEnvironment(fb.env)
	sub := fb.nested(env, body)
	rebind(env, items, body.Args[1:])
	env.Set(iv, evaluator.NewTensor(body.Args[0]))
	if err := sub.compileBlock(s.Body); err != nil {
		return err
	}
	leaves, err := conformItems(sub.b, items, env, pos)
	if err != nil {
		return err
	}
	sub.b.Yield(leaves)
	rebind(fb.env, items, op.Results)
	return nil
}

func (fb *funcBuilder) compileWhile(s *ast.WhileStatement) error {
	pos := fb.pos(s.Token)
	probe := fb.nested(evaluator.NewEnclosedEnvironment(fb.env), ir.NewBlock())
	first, err := probe.expr(s.Condition)
	if err != nil {
		return err
	}
	if evaluator.IsConstexpr(first) {
		truth, err := evaluator.Truthy(first)
		if err != nil {
			return diagnostics.NewTypeError(pos, "%v", err)
		}
		if !truth {
			return nil
		}
		return diagnostics.NewUnsupportedError(pos, "while loop on a constant true condition")
	}

	pre := fb.env.Snapshot()
	items, err := fb.loopItems(pre, nil, func(sub *funcBuilder) error {
		c, err := sub.expr(s.Condition)
		if err != nil {
			return err
		}
		if _, err := sub.condition(c, pos); err != nil {
			return err
		}
		return sub.compileBlock(s.Body)
	}, pos)
	if err != nil {
		return err
	}

	inits, err := conformItems(fb.b, items, fb.env, pos)
	if err != nil {
		return err
	}
	op, before, after := fb.b.While(inits)

	benv := evaluator.NewEnclosedEnvironment(fb.env)
	bsub := fb.nested(benv, before)
	rebind(benv, items, before.Args)
	c, err := bsub.expr(s.Condition)
	if err != nil {
		return err
	}
	cv, err := bsub.condition(c, pos)
	if err != nil {
		return err
	}
	forwarded, err := conformItems(bsub.b, items, benv, pos)
	if err != nil {
		return err
	}
	bsub.b.Condition(cv, forwarded)

	aenv := evaluator.NewEnclosedEnvironment(fb.env)
	asub := fb.nested(aenv, after)
	rebind(aenv, items, after.Args)
	if err := asub.compileBlock(s.Body); err != nil {
		return err
	}
	leaves, err := conformItems(asub.b, items, aenv, pos)
	if err != nil {
		return err
	}
	asub.b.Yield(leaves)
	rebind(fb.env, items, op.Results)
	return nil
}
