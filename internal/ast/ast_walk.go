package ast

// Inspect traverses the tree rooted at node in depth-first order, calling f
// for each node. If f returns false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil {
		return
	}
	node.Accept(&inspector{f: f})
}

type inspector struct {
	f func(Node) bool
}

func (in *inspector) expr(e Expression) {
	if e != nil {
		e.Accept(in)
	}
}

func (in *inspector) block(b Block) {
	for _, s := range b {
		s.Accept(in)
	}
}

func (in *inspector) VisitModule(n *Module) {
	if in.f(n) {
		in.block(n.Statements)
	}
}

func (in *inspector) VisitImportStatement(n *ImportStatement) { in.f(n) }

func (in *inspector) VisitFunctionDef(n *FunctionDef) {
	if !in.f(n) {
		return
	}
	for _, d := range n.Decorators {
		in.expr(d)
	}
	for _, p := range n.Parameters {
		in.expr(p.Annotation)
		in.expr(p.Default)
	}
	in.block(n.Body)
}

func (in *inspector) VisitClassDef(n *ClassDef) {
	if !in.f(n) {
		return
	}
	for _, d := range n.Decorators {
		in.expr(d)
	}
	in.block(n.Body)
}

func (in *inspector) VisitAssignStatement(n *AssignStatement) {
	if in.f(n) {
		in.expr(n.Target)
		in.expr(n.Annotation)
		in.expr(n.Value)
	}
}

func (in *inspector) VisitAugAssignStatement(n *AugAssignStatement) {
	if in.f(n) {
		in.expr(n.Target)
		in.expr(n.Value)
	}
}

func (in *inspector) VisitExpressionStatement(n *ExpressionStatement) {
	if in.f(n) {
		in.expr(n.Expression)
	}
}

func (in *inspector) VisitIfStatement(n *IfStatement) {
	if in.f(n) {
		in.expr(n.Condition)
		in.block(n.Consequence)
		in.block(n.Alternative)
	}
}

func (in *inspector) VisitForStatement(n *ForStatement) {
	if in.f(n) {
		in.expr(n.Target)
		in.expr(n.Iterable)
		in.block(n.Body)
	}
}

func (in *inspector) VisitWhileStatement(n *WhileStatement) {
	if in.f(n) {
		in.expr(n.Condition)
		in.block(n.Body)
	}
}

func (in *inspector) VisitReturnStatement(n *ReturnStatement) {
	if in.f(n) {
		in.expr(n.Value)
	}
}

func (in *inspector) VisitPassStatement(n *PassStatement) { in.f(n) }

func (in *inspector) VisitIdentifier(n *Identifier)         { in.f(n) }
func (in *inspector) VisitIntegerLiteral(n *IntegerLiteral) { in.f(n) }
func (in *inspector) VisitFloatLiteral(n *FloatLiteral)     { in.f(n) }
func (in *inspector) VisitBooleanLiteral(n *BooleanLiteral) { in.f(n) }
func (in *inspector) VisitNoneLiteral(n *NoneLiteral)       { in.f(n) }
func (in *inspector) VisitStringLiteral(n *StringLiteral)   { in.f(n) }

func (in *inspector) VisitTupleLiteral(n *TupleLiteral) {
	if in.f(n) {
		for _, e := range n.Elements {
			in.expr(e)
		}
	}
}

func (in *inspector) VisitListLiteral(n *ListLiteral) {
	if in.f(n) {
		for _, e := range n.Elements {
			in.expr(e)
		}
	}
}

func (in *inspector) VisitAttributeExpression(n *AttributeExpression) {
	if in.f(n) {
		in.expr(n.Object)
	}
}

func (in *inspector) VisitIndexExpression(n *IndexExpression) {
	if in.f(n) {
		in.expr(n.Left)
		in.expr(n.Index)
	}
}

func (in *inspector) VisitCallExpression(n *CallExpression) {
	if !in.f(n) {
		return
	}
	in.expr(n.Function)
	for _, a := range n.Arguments {
		in.expr(a)
	}
	for _, kw := range n.Keywords {
		in.expr(kw.Value)
	}
}

func (in *inspector) VisitInfixExpression(n *InfixExpression) {
	if in.f(n) {
		in.expr(n.Left)
		in.expr(n.Right)
	}
}

func (in *inspector) VisitPrefixExpression(n *PrefixExpression) {
	if in.f(n) {
		in.expr(n.Right)
	}
}
