package ast

import "github.com/funvibe/kerntrace/internal/token"

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
	GetToken() token.Token
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Visitor receives one callback per node kind.
type Visitor interface {
	VisitModule(*Module)
	VisitImportStatement(*ImportStatement)
	VisitFunctionDef(*FunctionDef)
	VisitClassDef(*ClassDef)
	VisitAssignStatement(*AssignStatement)
	VisitAugAssignStatement(*AugAssignStatement)
	VisitExpressionStatement(*ExpressionStatement)
	VisitIfStatement(*IfStatement)
	VisitForStatement(*ForStatement)
	VisitWhileStatement(*WhileStatement)
	VisitReturnStatement(*ReturnStatement)
	VisitPassStatement(*PassStatement)

	VisitIdentifier(*Identifier)
	VisitIntegerLiteral(*IntegerLiteral)
	VisitFloatLiteral(*FloatLiteral)
	VisitBooleanLiteral(*BooleanLiteral)
	VisitNoneLiteral(*NoneLiteral)
	VisitStringLiteral(*StringLiteral)
	VisitTupleLiteral(*TupleLiteral)
	VisitListLiteral(*ListLiteral)
	VisitAttributeExpression(*AttributeExpression)
	VisitIndexExpression(*IndexExpression)
	VisitCallExpression(*CallExpression)
	VisitInfixExpression(*InfixExpression)
	VisitPrefixExpression(*PrefixExpression)
}

// Module is the root node of every AST our parser produces.
type Module struct {
	File       string // Source file path
	Name       string // Module name used for qualified names
	Statements []Statement
}

func (m *Module) Accept(v Visitor) { v.VisitModule(m) }
func (m *Module) TokenLiteral() string {
	if len(m.Statements) > 0 {
		return m.Statements[0].TokenLiteral()
	}
	return ""
}

// Block is a sequence of statements forming a suite.
type Block []Statement

// Walk visits every statement in the block with v.
func (b Block) Walk(v Visitor) {
	for _, stmt := range b {
		stmt.Accept(v)
	}
}
