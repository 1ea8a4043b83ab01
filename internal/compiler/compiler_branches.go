package compiler

import (
	"github.com/funvibe/kerntrace/internal/ast"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/evaluator"
	"github.com/funvibe/kerntrace/internal/ir"
	"github.com/funvibe/kerntrace/internal/token"
)

func containsReturn(block ast.Block) bool {
	found := false
	for _, s := range block {
		ast.Inspect(s, func(n ast.Node) bool {
			if _, ok := n.(*ast.ReturnStatement); ok {
				found = true
			}
			return !found
		})
	}
	return found
}

func (fb *funcBuilder) compileIf(s *ast.IfStatement) error {
	pos := fb.pos(s.Token)
	cond, err := fb.expr(s.Condition)
	if err != nil {
		return err
	}
	if evaluator.IsConstexpr(cond) {
		truth, err := evaluator.Truthy(cond)
		if err != nil {
			return diagnostics.NewTypeError(pos, "%v", err)
		}
		if truth {
			return fb.compileBlock(s.Consequence)
		}
		return fb.compileBlock(s.Alternative)
	}
	c, err := fb.condition(cond, pos)
	if err != nil {
		return err
	}
	if containsReturn(s.Consequence) || containsReturn(s.Alternative) {
		if fb.inline || fb.structured > 0 {
			return diagnostics.NewUnsupportedError(pos, "return inside a branch on a runtime condition")
		}
		return fb.unstructuredIf(s, c, pos)
	}
	return fb.structuredIf(s, c, pos)
}

// branchItems plans the merge of two branch snapshots against pre. Names
// introduced by both branches survive the merge.
func branchItems(pre, left, right *evaluator.Snapshot, pos token.Position) ([]mergeItem, error) {
	keys := make(map[itemKey]bool)
	changedKeys(pre, left, pre, keys)
	changedKeys(pre, right, pre, keys)
	var extra []string
	for _, name := range left.Names() {
		if _, ok := pre.Get(name); ok {
			continue
		}
		if _, ok := right.Get(name); ok {
			extra = append(extra, name)
		}
	}
	var items []mergeItem
	for _, k := range orderKeys(pre, keys, extra) {
		vl, okL := k.value(left)
		vr, okR := k.value(right)
		if !okL || !okR {
			return nil, diagnostics.NewTypeError(pos, "%s is not defined on every path", k)
		}
		if evaluator.SameObject(vl, vr) {
			items = append(items, mergeItem{key: k, direct: vl})
			continue
		}
		sig, err := mergeSignature(k, vl, left, vr, right, pos)
		if err != nil {
			return nil, err
		}
		items = append(items, mergeItem{key: k, sig: sig})
	}
	return items, nil
}

// structuredIf lowers to scf.if yielding every location either branch
// changes.
func (fb *funcBuilder) structuredIf(s *ast.IfStatement, c *ir.Value, pos token.Position) error {
	pre := fb.env.Snapshot()
	op, thenBlock, elseBlock := fb.b.If(c, nil)

	thenEnv := evaluator.NewEnclosedEnvironment(fb.env)
	thenB := fb.nested(thenEnv, thenBlock)
	if err := thenB.compileBlock(s.Consequence); err != nil {
		return err
	}
	elseEnv := evaluator.NewEnclosedEnvironment(fb.env)
	elseB := fb.nested(elseEnv, elseBlock)
	if err := elseB.compileBlock(s.Alternative); err != nil {
		return err
	}

	thenSnap, elseSnap := thenEnv.Snapshot(), elseEnv.Snapshot()
	items, err := branchItems(pre, thenSnap, elseSnap, pos)
	if err != nil {
		return err
	}
	thenLeaves, err := conformItems(thenB.b, items, thenEnv, pos)
	if err != nil {
		return err
	}
	thenB.b.Yield(thenLeaves)
	elseLeaves, err := conformItems(elseB.b, items, elseEnv, pos)
	if err != nil {
		return err
	}
	elseB.b.Yield(elseLeaves)

	op.SetResultTypes(itemTypes(items))
	rebind(fb.env, items, op.Results)
	return nil
}

// unstructuredIf lowers a branch containing a return with cf.cond_br. The
// paths that fall through meet in a merge block.
func (fb *funcBuilder) unstructuredIf(s *ast.IfStatement, c *ir.Value, pos token.Position) error {
	body := fb.fn.Body
	pre := fb.env.Snapshot()
	thenBlock := body.AddBlock()
	elseBlock := body.AddBlock()
	fb.b.CondBr(c, thenBlock, elseBlock)

	thenEnv := evaluator.NewEnclosedEnvironment(fb.env)
	thenB := fb.branch(thenEnv, thenBlock)
	if err := thenB.compileBlock(s.Consequence); err != nil {
		return err
	}
	elseEnv := evaluator.NewEnclosedEnvironment(fb.env)
	elseB := fb.branch(elseEnv, elseBlock)
	if err := elseB.compileBlock(s.Alternative); err != nil {
		return err
	}

	thenFalls, elseFalls := !thenB.b.Terminated(), !elseB.b.Terminated()
	switch {
	case !thenFalls && !elseFalls:
		// fb.b stays on the terminated block, so the rest is skipped.
		return nil
	case thenFalls && !elseFalls:
		merge := body.AddBlock()
		thenB.b.Br(merge, nil)
		fb.env.Absorb(thenEnv)
		fb.b.SetInsertionPoint(merge)
		return nil
	case elseFalls && !thenFalls:
		merge := body.AddBlock()
		elseB.b.Br(merge, nil)
		fb.env.Absorb(elseEnv)
		fb.b.SetInsertionPoint(merge)
		return nil
	}

	items, err := branchItems(pre, thenEnv.Snapshot(), elseEnv.Snapshot(), pos)
	if err != nil {
		return err
	}
	merge := body.AddBlock(itemTypes(items)...)
	thenLeaves, err := conformItems(thenB.b, items, thenEnv, pos)
	if err != nil {
		return err
	}
	thenB.b.Br(merge, thenLeaves)
	elseLeaves, err := conformItems(elseB.b, items, elseEnv, pos)
	if err != nil {
		return err
	}
	elseB.b.Br(merge, elseLeaves)
	fb.b.SetInsertionPoint(merge)
	rebind(fb.env, items, merge.Args)
	return nil
}
