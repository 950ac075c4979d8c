package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xplshn/jsarm/pkg/ast"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/lexer"
	"github.com/xplshn/jsarm/pkg/util"
)

func parse(t *testing.T, src string, cfg *config.Config) (*ast.Block, error) {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0, cfg)
	require.NoError(t, err)
	return NewParser(toks, cfg).Parse()
}

// topLevel parses src without wrapping it in an implicit main.
func topLevel(t *testing.T, src string) []ast.Node {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatImplicitMain, false)
	root, err := parse(t, src, cfg)
	require.NoError(t, err)
	return root.Statements
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"4 / 2 * 3", "((4 / 2) * 3)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a + 1 <= b * 2", "((a + 1) <= (b * 2))"},
		{"a != b", "(a != b)"},
		{"!a == b", "(!a == b)"},
		{"!!a", "!!a"},
		{"a[1][i + 1]", "a[1][(i + 1)]"},
		{"[1, [2], x]", "[1, [2], x]"},
		{"[]", "[]"},
		{"f()", "f()"},
		{"f(1, 2 + 3)", "f(1, (2 + 3))"},
		{"length([1, 2])", "length([1, 2])"},
		{"print(0x10)", "print(16)"},
		{"true == false", "(true == false)"},
		{"null != undefined", "(null != undefined)"},
		{"42 == 4 + 2 * (12 - 2) + 3 * (5 + 1)", "(42 == ((4 + (2 * (12 - 2))) + (3 * (5 + 1))))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			stmts := topLevel(t, tt.src+";")
			require.Len(t, stmts, 1)
			require.Equal(t, tt.want, ast.Format(stmts[0]))
		})
	}
}

func TestBuiltinCallForms(t *testing.T) {
	stmts := topLevel(t, "assert(x); assert(x, y); length(a); length(a, b); print(1); print();")
	require.Len(t, stmts, 6)

	require.IsType(t, &ast.Assert{}, stmts[0])
	require.IsType(t, &ast.Call{}, stmts[1])
	require.IsType(t, &ast.ArrayLength{}, stmts[2])
	require.IsType(t, &ast.Call{}, stmts[3])
	require.IsType(t, &ast.Print{}, stmts[4])
	require.IsType(t, &ast.Call{}, stmts[5])
	require.Equal(t, "print", stmts[5].(*ast.Call).Callee)
}

func TestStatements(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"var a = 1;", "var a = 1"},
		{"a = a + 1;", "a = (a + 1)"},
		{";", "{}"},
		{"{ a; b; }", "{\n    a;\n    b;\n}"},
		{"if (a) b; else c;", "if (a) b else c"},
		{"if (a) { b; }", "if (a) {\n    b;\n} else {}"},
		{"if (a) b; else if (c) d;", "if (a) b else if (c) d else {}"},
		{"while (i < 3) i = i + 1;", "while ((i < 3)) i = (i + 1)"},
		{"function f() { return; }", "function f() {\n    return undefined;\n}"},
		{"function add(a, b) { return a + b; }", "function add(a, b) {\n    return (a + b);\n}"},
		{"function g(a) { while (a) { a = a - 1; } }", "function g(a) {\n    while (a) {\n        a = (a - 1);\n    }\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			stmts := topLevel(t, tt.src)
			require.Len(t, stmts, 1)
			require.Equal(t, tt.want, ast.Format(stmts[0]))
		})
	}
}

func TestDanglingElseBindsToInnerIf(t *testing.T) {
	stmts := topLevel(t, "if (a) if (b) c; else d;")
	outer := stmts[0].(*ast.If)
	inner, ok := outer.Consequence.(*ast.If)
	require.True(t, ok)
	require.Equal(t, "d", ast.Format(inner.Alternative))
	require.Equal(t, "{}", ast.Format(outer.Alternative))
}

func TestImplicitMain(t *testing.T) {
	root, err := parse(t, "var x = 1;\nfunction f(a) { return a; }\nprint(f(x));", config.NewConfig())
	require.NoError(t, err)
	require.Len(t, root.Statements, 2)

	f := root.Statements[0].(*ast.Function)
	require.Equal(t, "f", f.Name)

	main := root.Statements[1].(*ast.Function)
	require.Equal(t, "main", main.Name)
	require.Empty(t, main.Parameters)
	require.Equal(t, "function main() {\n    var x = 1;\n    print(f(x));\n}", ast.Format(main))
	require.Equal(t, 1, main.Pos().Line)
}

func TestImplicitMainWithExplicitMain(t *testing.T) {
	_, err := parse(t, "function main() { }\nprint(1);", config.NewConfig())
	require.Error(t, err)

	var diag *util.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Contains(t, diag.Msg, "Function 'main' is defined")
	require.Equal(t, 1, diag.Tok.Line)
}

func TestOnlyFunctionsNeedsNoMain(t *testing.T) {
	root, err := parse(t, "function main() { assert(1); }", config.NewConfig())
	require.NoError(t, err)
	require.Len(t, root.Statements, 1)
	require.Equal(t, "main", root.Statements[0].(*ast.Function).Name)
}

func TestNilConfigEnablesImplicitMain(t *testing.T) {
	toks, err := lexer.Tokenize([]rune("print(1);"), 0, config.NewConfig())
	require.NoError(t, err)
	root, err := NewParser(toks, nil).Parse()
	require.NoError(t, err)
	require.Len(t, root.Statements, 1)
	require.Equal(t, "main", root.Statements[0].(*ast.Function).Name)
}

func TestEmptyProgram(t *testing.T) {
	root, err := NewParser(nil, nil).Parse()
	require.NoError(t, err)
	require.Empty(t, root.Statements)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		msg  string
		line int
		col  int
	}{
		{"var = 3;", "Expected variable name after 'var'. Found '='.", 1, 5},
		{"var a = 1", "Expected ';' after variable declaration. Found end of file.", 1, 10},
		{"f(1, 2", "Expected ')' after function arguments. Found end of file.", 1, 7},
		{"1 +;", "Expected an expression. Found ';'.", 1, 4},
		{"if a) b;", "Expected '(' after 'if'. Found identifier 'a'.", 1, 4},
		{"function (a) {}", "Expected function name after 'function'. Found '('.", 1, 10},
		{"function f(a, 1) {}", "Expected parameter name. Found number '1'.", 1, 15},
		{"{ a;", "Expected '}' after block. Found end of file.", 1, 5},
		{"x[1;", "Expected ']' after array index. Found ';'.", 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parse(t, tt.src, config.NewConfig())
			require.Error(t, err)

			var diag *util.Diagnostic
			require.ErrorAs(t, err, &diag)
			require.Equal(t, tt.msg, diag.Msg)
			require.Equal(t, tt.line, diag.Tok.Line)
			require.Equal(t, tt.col, diag.Tok.Column)
		})
	}
}
