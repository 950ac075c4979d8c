// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/jsarm/pkg/token"
)

// Node is implemented by every AST variant. Nodes are immutable once built.
type Node interface {
	Pos() token.Token
	Accept(v Visitor) error
}

// Visitor has one method per variant. Adding a variant breaks every visitor
// until it handles the new case.
type Visitor interface {
	VisitNumber(n *Number) error
	VisitBoolean(n *Boolean) error
	VisitNull(n *Null) error
	VisitUndefined(n *Undefined) error
	VisitId(n *Id) error
	VisitNot(n *Not) error
	VisitBinary(n *Binary) error
	VisitArrayLiteral(n *ArrayLiteral) error
	VisitArrayLookup(n *ArrayLookup) error
	VisitArrayLength(n *ArrayLength) error
	VisitBlock(n *Block) error
	VisitIf(n *If) error
	VisitWhile(n *While) error
	VisitReturn(n *Return) error
	VisitVar(n *Var) error
	VisitAssign(n *Assign) error
	VisitCall(n *Call) error
	VisitFunction(n *Function) error
	VisitAssert(n *Assert) error
	VisitPrint(n *Print) error
}

// BinaryOp identifies the infix operator of a Binary node
type BinaryOp int

const (
	Equal BinaryOp = iota
	NotEqual
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
	Add
	Subtract
	Multiply
	Divide
)

var binaryOpStrings = [...]string{
	Equal:            "==",
	NotEqual:         "!=",
	LessThan:         "<",
	LessThanEqual:    "<=",
	GreaterThan:      ">",
	GreaterThanEqual: ">=",
	Add:              "+",
	Subtract:         "-",
	Multiply:         "*",
	Divide:           "/",
}

func (op BinaryOp) String() string {
	if op >= 0 && int(op) < len(binaryOpStrings) {
		return binaryOpStrings[op]
	}
	return "?"
}

// IsComparison reports whether op yields a 0/1 truth value
func (op BinaryOp) IsComparison() bool { return op >= Equal && op <= GreaterThanEqual }

type base struct{ Tok token.Token }

func (b base) Pos() token.Token { return b.Tok }

type (
	Number struct {
		base
		Value uint64
	}
	Boolean struct {
		base
		Value bool
	}
	Null      struct{ base }
	Undefined struct{ base }
	Id        struct {
		base
		Name string
	}
	Not struct {
		base
		Term Node
	}
	Binary struct {
		base
		Op          BinaryOp
		Left, Right Node
	}
	ArrayLiteral struct {
		base
		Items []Node
	}
	ArrayLookup struct {
		base
		Array, Index Node
	}
	ArrayLength struct {
		base
		Array Node
	}
	Block struct {
		base
		Statements []Node
	}
	// If always has an Alternative; a missing else branch is an empty Block.
	If struct {
		base
		Conditional, Consequence, Alternative Node
	}
	While struct {
		base
		Conditional, Body Node
	}
	Return struct {
		base
		Term Node
	}
	Var struct {
		base
		Name  string
		Value Node
	}
	Assign struct {
		base
		Name  string
		Value Node
	}
	Call struct {
		base
		Callee string
		Args   []Node
	}
	Function struct {
		base
		Name       string
		Parameters []string
		Body       Node
	}
	Assert struct {
		base
		Condition Node
	}
	Print struct {
		base
		Value Node
	}
)

func (n *Number) Accept(v Visitor) error       { return v.VisitNumber(n) }
func (n *Boolean) Accept(v Visitor) error      { return v.VisitBoolean(n) }
func (n *Null) Accept(v Visitor) error         { return v.VisitNull(n) }
func (n *Undefined) Accept(v Visitor) error    { return v.VisitUndefined(n) }
func (n *Id) Accept(v Visitor) error           { return v.VisitId(n) }
func (n *Not) Accept(v Visitor) error          { return v.VisitNot(n) }
func (n *Binary) Accept(v Visitor) error       { return v.VisitBinary(n) }
func (n *ArrayLiteral) Accept(v Visitor) error { return v.VisitArrayLiteral(n) }
func (n *ArrayLookup) Accept(v Visitor) error  { return v.VisitArrayLookup(n) }
func (n *ArrayLength) Accept(v Visitor) error  { return v.VisitArrayLength(n) }
func (n *Block) Accept(v Visitor) error        { return v.VisitBlock(n) }
func (n *If) Accept(v Visitor) error           { return v.VisitIf(n) }
func (n *While) Accept(v Visitor) error        { return v.VisitWhile(n) }
func (n *Return) Accept(v Visitor) error       { return v.VisitReturn(n) }
func (n *Var) Accept(v Visitor) error          { return v.VisitVar(n) }
func (n *Assign) Accept(v Visitor) error       { return v.VisitAssign(n) }
func (n *Call) Accept(v Visitor) error         { return v.VisitCall(n) }
func (n *Function) Accept(v Visitor) error     { return v.VisitFunction(n) }
func (n *Assert) Accept(v Visitor) error       { return v.VisitAssert(n) }
func (n *Print) Accept(v Visitor) error        { return v.VisitPrint(n) }

func NewNumber(tok token.Token, value uint64) *Number { return &Number{base{tok}, value} }
func NewBoolean(tok token.Token, value bool) *Boolean { return &Boolean{base{tok}, value} }
func NewNull(tok token.Token) *Null                   { return &Null{base{tok}} }
func NewUndefined(tok token.Token) *Undefined         { return &Undefined{base{tok}} }
func NewId(tok token.Token, name string) *Id          { return &Id{base{tok}, name} }
func NewNot(tok token.Token, term Node) *Not          { return &Not{base{tok}, term} }
func NewBinary(tok token.Token, op BinaryOp, left, right Node) *Binary {
	return &Binary{base{tok}, op, left, right}
}
func NewArrayLiteral(tok token.Token, items []Node) *ArrayLiteral {
	return &ArrayLiteral{base{tok}, items}
}
func NewArrayLookup(tok token.Token, array, index Node) *ArrayLookup {
	return &ArrayLookup{base{tok}, array, index}
}
func NewArrayLength(tok token.Token, array Node) *ArrayLength {
	return &ArrayLength{base{tok}, array}
}
func NewBlock(tok token.Token, stmts []Node) *Block { return &Block{base{tok}, stmts} }

// NewIf substitutes an empty Block for a nil alternative.
func NewIf(tok token.Token, cond, cons, alt Node) *If {
	if alt == nil {
		alt = NewBlock(tok, nil)
	}
	return &If{base{tok}, cond, cons, alt}
}
func NewWhile(tok token.Token, cond, body Node) *While { return &While{base{tok}, cond, body} }
func NewReturn(tok token.Token, term Node) *Return     { return &Return{base{tok}, term} }
func NewVar(tok token.Token, name string, value Node) *Var {
	return &Var{base{tok}, name, value}
}
func NewAssign(tok token.Token, name string, value Node) *Assign {
	return &Assign{base{tok}, name, value}
}
func NewCall(tok token.Token, callee string, args []Node) *Call {
	return &Call{base{tok}, callee, args}
}
func NewFunction(tok token.Token, name string, params []string, body Node) *Function {
	return &Function{base{tok}, name, params, body}
}
func NewAssert(tok token.Token, cond Node) *Assert { return &Assert{base{tok}, cond} }
func NewPrint(tok token.Token, value Node) *Print  { return &Print{base{tok}, value} }
