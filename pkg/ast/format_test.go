package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xplshn/jsarm/pkg/token"
)

var tok = token.Token{Line: 1, Column: 1}

func num(v uint64) Node { return NewNumber(tok, v) }

func TestFormatNested(t *testing.T) {
	fn := NewFunction(tok, "f", []string{"a", "b"}, NewBlock(tok, []Node{
		NewVar(tok, "c", NewBinary(tok, Multiply, NewId(tok, "a"), NewBinary(tok, Add, NewId(tok, "b"), num(1)))),
		NewIf(tok, NewNot(tok, NewId(tok, "c")), NewBlock(tok, []Node{NewReturn(tok, num(0))}), nil),
		NewWhile(tok, NewBoolean(tok, true), NewBlock(tok, []Node{
			NewAssign(tok, "c", NewArrayLookup(tok, NewArrayLiteral(tok, []Node{num(1), NewNull(tok)}), num(0))),
		})),
		NewAssert(tok, NewBinary(tok, Equal, NewArrayLength(tok, NewId(tok, "c")), NewUndefined(tok))),
		NewPrint(tok, NewCall(tok, "g", []Node{num(1), num(2)})),
	}))

	want := `function f(a, b) {
    var c = (a * (b + 1));
    if (!c) {
        return 0;
    } else {}
    while (true) {
        c = [1, null][0];
    }
    assert((length(c) == undefined));
    print(g(1, 2));
}`
	require.Equal(t, want, Format(fn))
}

func TestFormatNil(t *testing.T) {
	require.Equal(t, "<nil>", Format(nil))
	require.Equal(t, "return <nil>", Format(NewReturn(tok, nil)))
}

func TestNewIfFillsAlternative(t *testing.T) {
	n := NewIf(tok, num(1), NewBlock(tok, nil), nil)
	alt, ok := n.Alternative.(*Block)
	require.True(t, ok)
	require.Empty(t, alt.Statements)
}

func TestBinaryOp(t *testing.T) {
	for _, op := range []BinaryOp{Equal, NotEqual, LessThan, LessThanEqual, GreaterThan, GreaterThanEqual} {
		require.True(t, op.IsComparison(), op.String())
	}
	for _, op := range []BinaryOp{Add, Subtract, Multiply, Divide} {
		require.False(t, op.IsComparison(), op.String())
	}
	require.Equal(t, "<=", LessThanEqual.String())
	require.Equal(t, "?", BinaryOp(99).String())
}

func TestPos(t *testing.T) {
	at := token.Token{Type: token.Ident, Value: "x", Line: 3, Column: 7}
	require.Equal(t, at, NewId(at, "x").Pos())
}
