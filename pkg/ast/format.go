package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders n as source-like text. Binary expressions are always fully
// parenthesized so the tree shape is visible, and blocks are indented by four
// spaces per level.
func Format(n Node) string {
	var sb strings.Builder
	f := &formatter{sb: &sb}
	f.node(n)
	return sb.String()
}

type formatter struct {
	sb    *strings.Builder
	depth int
}

func (f *formatter) node(n Node) {
	switch n := n.(type) {
	case nil:
		f.sb.WriteString("<nil>")
	case *Number:
		f.sb.WriteString(strconv.FormatUint(n.Value, 10))
	case *Boolean:
		f.sb.WriteString(strconv.FormatBool(n.Value))
	case *Null:
		f.sb.WriteString("null")
	case *Undefined:
		f.sb.WriteString("undefined")
	case *Id:
		f.sb.WriteString(n.Name)
	case *Not:
		f.sb.WriteByte('!')
		f.node(n.Term)
	case *Binary:
		f.sb.WriteByte('(')
		f.node(n.Left)
		fmt.Fprintf(f.sb, " %s ", n.Op)
		f.node(n.Right)
		f.sb.WriteByte(')')
	case *ArrayLiteral:
		f.sb.WriteByte('[')
		f.list(n.Items)
		f.sb.WriteByte(']')
	case *ArrayLookup:
		f.node(n.Array)
		f.sb.WriteByte('[')
		f.node(n.Index)
		f.sb.WriteByte(']')
	case *ArrayLength:
		f.call("length", n.Array)
	case *Assert:
		f.call("assert", n.Condition)
	case *Print:
		f.call("print", n.Value)
	case *Call:
		f.sb.WriteString(n.Callee)
		f.sb.WriteByte('(')
		f.list(n.Args)
		f.sb.WriteByte(')')
	case *Var:
		fmt.Fprintf(f.sb, "var %s = ", n.Name)
		f.node(n.Value)
	case *Assign:
		fmt.Fprintf(f.sb, "%s = ", n.Name)
		f.node(n.Value)
	case *Return:
		f.sb.WriteString("return ")
		f.node(n.Term)
	case *Block:
		f.block(n)
	case *If:
		f.sb.WriteString("if (")
		f.node(n.Conditional)
		f.sb.WriteString(") ")
		f.node(n.Consequence)
		f.sb.WriteString(" else ")
		f.node(n.Alternative)
	case *While:
		f.sb.WriteString("while (")
		f.node(n.Conditional)
		f.sb.WriteString(") ")
		f.node(n.Body)
	case *Function:
		fmt.Fprintf(f.sb, "function %s(%s) ", n.Name, strings.Join(n.Parameters, ", "))
		f.node(n.Body)
	default:
		fmt.Fprintf(f.sb, "<%T>", n)
	}
}

func (f *formatter) call(name string, arg Node) {
	f.sb.WriteString(name)
	f.sb.WriteByte('(')
	f.node(arg)
	f.sb.WriteByte(')')
}

func (f *formatter) list(nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			f.sb.WriteString(", ")
		}
		f.node(n)
	}
}

func (f *formatter) block(b *Block) {
	if len(b.Statements) == 0 {
		f.sb.WriteString("{}")
		return
	}
	f.sb.WriteString("{\n")
	f.depth++
	for _, stmt := range b.Statements {
		f.sb.WriteString(strings.Repeat("    ", f.depth))
		f.node(stmt)
		if !isCompound(stmt) {
			f.sb.WriteByte(';')
		}
		f.sb.WriteByte('\n')
	}
	f.depth--
	f.sb.WriteString(strings.Repeat("    ", f.depth))
	f.sb.WriteByte('}')
}

func isCompound(n Node) bool {
	switch n.(type) {
	case *Block, *If, *While, *Function:
		return true
	}
	return false
}
