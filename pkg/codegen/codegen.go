package codegen

import (
	"io"

	"github.com/xplshn/jsarm/pkg/ast"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/util"
)

const printFormatLabel = ".Lprint_fmt"

// Generator walks the AST and writes ARM32 assembly in GNU as syntax.
// Expression results are left in r0, r1 holds the left operand of infix
// operators and every temporary lives in an 8-byte stack slot.
//
// A Generator belongs to a single compilation and is not safe for
// concurrent use.
type Generator struct {
	cfg       *config.Config
	out       *emitter
	env       *Environment
	labels    labelCounter
	fnDepth   int
	condDepth int
	usedPrint bool
	defined   map[string]bool
	calls     []*ast.Call
}

// libcFunctions are the C library routines programs may call directly.
var libcFunctions = map[string]bool{
	"putchar": true,
	"malloc":  true,
	"rand":    true,
	"printf":  true,
}

func New(cfg *config.Config) *Generator {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Generator{cfg: cfg}
}

// Emit writes the code for node to w, resolving names against env. A nil
// env is replaced by an empty seed environment.
func (g *Generator) Emit(node ast.Node, env *Environment, w io.Writer) error {
	if env == nil {
		env = NewEnvironment()
	}
	prevOut, prevEnv := g.out, g.env
	g.out, g.env = newEmitter(w), env
	defer func() { g.out, g.env = prevOut, prevEnv }()

	if err := g.emit(node); err != nil {
		return err
	}
	return g.out.flush()
}

// Generate emits a whole program followed by any data it refers to.
func (g *Generator) Generate(root ast.Node, w io.Writer) error {
	out := newEmitter(w)
	g.out, g.env = out, NewEnvironment()
	g.defined, g.calls = make(map[string]bool), nil
	defer func() { g.out, g.env, g.defined, g.calls = nil, nil, nil, nil }()

	if err := g.emit(root); err != nil {
		return err
	}
	for _, call := range g.calls {
		if !g.defined[call.Callee] && !libcFunctions[call.Callee] {
			util.Warn(g.cfg, config.WarnExtra, call.Pos(), "Call to '%s', which is not defined in this program", call.Callee)
		}
	}
	if g.usedPrint {
		out.ins(".section .rodata")
		out.label(printFormatLabel)
		out.ins(`.asciz "%%d\n"`)
	}
	return out.flush()
}

func (g *Generator) emit(n ast.Node) error {
	if err := n.Accept(g); err != nil {
		return err
	}
	return g.out.err
}

func (g *Generator) VisitNumber(n *ast.Number) error {
	v := n.Value
	if v > 0xFFFFFFFF {
		util.Warn(g.cfg, config.WarnOverflow, n.Pos(), "Integer constant %d does not fit in 32 bits, truncated to %d", v, uint32(v))
	}
	g.out.ins("ldr r0, =%d", uint32(v))
	return nil
}

func (g *Generator) VisitBoolean(n *ast.Boolean) error {
	if n.Value {
		g.out.ins("mov r0, #1")
	} else {
		g.out.ins("mov r0, #0")
	}
	return nil
}

func (g *Generator) VisitNull(*ast.Null) error {
	g.out.ins("mov r0, #0")
	return nil
}

func (g *Generator) VisitUndefined(*ast.Undefined) error {
	g.out.ins("mov r0, #0")
	return nil
}

func (g *Generator) VisitId(n *ast.Id) error {
	off, ok := g.env.Lookup(n.Name)
	if !ok {
		return &Error{Tok: n.Pos(), Err: ErrUndefinedVariable, Name: n.Name}
	}
	g.out.ins("ldr r0, [fp, #%d]", off)
	return nil
}

func (g *Generator) VisitNot(n *ast.Not) error {
	if err := g.emit(n.Term); err != nil {
		return err
	}
	g.out.ins("cmp r0, #0")
	g.out.ins("moveq r0, #1")
	g.out.ins("movne r0, #0")
	return nil
}

// conditionCodes maps a comparison to its condition and the inverse condition
var conditionCodes = map[ast.BinaryOp][2]string{
	ast.Equal:            {"eq", "ne"},
	ast.NotEqual:         {"ne", "eq"},
	ast.LessThan:         {"lt", "ge"},
	ast.LessThanEqual:    {"le", "gt"},
	ast.GreaterThan:      {"gt", "le"},
	ast.GreaterThanEqual: {"ge", "lt"},
}

func (g *Generator) VisitBinary(n *ast.Binary) error {
	if n.Op == ast.Divide {
		if num, ok := n.Right.(*ast.Number); ok && num.Value == 0 {
			util.Warn(g.cfg, config.WarnDivByZero, n.Pos(), "Division by zero")
		}
	}

	if err := g.infixOperands(n.Left, n.Right); err != nil {
		return err
	}

	switch n.Op {
	case ast.Add:
		g.out.ins("add r0, r1, r0")
	case ast.Subtract:
		g.out.ins("sub r0, r1, r0")
	case ast.Multiply:
		g.out.ins("mul r0, r1, r0")
	case ast.Divide:
		g.out.ins("udiv r0, r1, r0")
	case ast.Equal, ast.NotEqual, ast.LessThan, ast.LessThanEqual, ast.GreaterThan, ast.GreaterThanEqual:
		cc := conditionCodes[n.Op]
		g.out.ins("cmp r1, r0")
		g.out.ins("mov%s r0, #1", cc[0])
		g.out.ins("mov%s r0, #0", cc[1])
	default:
		return util.Errorf(n.Pos(), "internal error: unknown binary operator %d", int(n.Op))
	}
	return nil
}

// infixOperands leaves the left value in r1 and the right value in r0. The
// left value is parked on the stack while the right side is evaluated, so
// nested expressions cannot clobber it.
func (g *Generator) infixOperands(left, right ast.Node) error {
	if err := g.emit(left); err != nil {
		return err
	}
	g.out.ins("push {r0, ip}")
	if err := g.emit(right); err != nil {
		return err
	}
	g.out.ins("pop {r1, ip}")
	return nil
}

func (g *Generator) VisitArrayLiteral(n *ast.ArrayLiteral) error {
	length := len(n.Items)
	g.out.ins("ldr r0, =%d", 4*(length+1))
	g.out.ins("bl malloc")
	g.out.ins("push {r4, ip}")
	g.out.ins("mov r4, r0")
	g.out.ins("ldr r0, =%d", length)
	g.out.ins("str r0, [r4]")
	for i, item := range n.Items {
		if err := g.emit(item); err != nil {
			return err
		}
		g.out.ins("str r0, [r4, #%d]", 4*(i+1))
	}
	g.out.ins("mov r0, r4")
	g.out.ins("pop {r4, ip}")
	return nil
}

// VisitArrayLookup yields 0 for an index at or past the stored length. The
// comparison is unsigned, so negative indices are out of range too.
func (g *Generator) VisitArrayLookup(n *ast.ArrayLookup) error {
	if err := g.infixOperands(n.Array, n.Index); err != nil {
		return err
	}
	if !g.cfg.IsFeatureEnabled(config.FeatBoundsCheck) {
		g.out.ins("add r1, r1, r0, lsl #2")
		g.out.ins("ldr r0, [r1, #4]")
		return nil
	}
	g.out.ins("ldr r2, [r1]")
	g.out.ins("cmp r0, r2")
	g.out.ins("movhs r0, #0")
	g.out.ins("addlo r1, r1, r0, lsl #2")
	g.out.ins("ldrlo r0, [r1, #4]")
	return nil
}

func (g *Generator) VisitArrayLength(n *ast.ArrayLength) error {
	if err := g.emit(n.Array); err != nil {
		return err
	}
	g.out.ins("ldr r0, [r0]")
	return nil
}

func (g *Generator) VisitBlock(n *ast.Block) error {
	returned := false
	for _, stmt := range n.Statements {
		if returned {
			util.Warn(g.cfg, config.WarnUnreachableCode, stmt.Pos(), "Unreachable code")
			returned = false
		}
		if err := g.emit(stmt); err != nil {
			return err
		}
		if _, ok := stmt.(*ast.Return); ok {
			returned = true
		}
	}
	return nil
}

func (g *Generator) VisitIf(n *ast.If) error {
	elseLabel, endLabel := g.labels.next(), g.labels.next()
	if err := g.emit(n.Conditional); err != nil {
		return err
	}
	g.out.ins("cmp r0, #0")
	g.out.ins("beq %s", elseLabel)

	g.condDepth++
	defer func() { g.condDepth-- }()
	if err := g.emit(n.Consequence); err != nil {
		return err
	}
	g.out.ins("b %s", endLabel)
	g.out.label(elseLabel)
	if err := g.emit(n.Alternative); err != nil {
		return err
	}
	g.out.label(endLabel)
	return nil
}

func (g *Generator) VisitWhile(n *ast.While) error {
	startLabel, endLabel := g.labels.next(), g.labels.next()
	g.out.label(startLabel)
	if err := g.emit(n.Conditional); err != nil {
		return err
	}
	g.out.ins("cmp r0, #0")
	g.out.ins("beq %s", endLabel)

	g.condDepth++
	defer func() { g.condDepth-- }()
	if err := g.emit(n.Body); err != nil {
		return err
	}
	g.out.ins("b %s", startLabel)
	g.out.label(endLabel)
	return nil
}

func (g *Generator) VisitReturn(n *ast.Return) error {
	if err := g.emit(n.Term); err != nil {
		return err
	}
	g.out.ins("mov sp, fp")
	g.out.ins("pop {fp, pc}")
	return nil
}

func (g *Generator) VisitVar(n *ast.Var) error {
	if err := g.emit(n.Value); err != nil {
		return err
	}
	g.out.ins("push {r0, ip}")
	if _, exists := g.env.Lookup(n.Name); exists {
		util.Warn(g.cfg, config.WarnRedeclared, n.Pos(), "Redeclaration of '%s' allocates a new slot", n.Name)
	}
	if g.condDepth > 0 {
		util.Warn(g.cfg, config.WarnConditionalVar, n.Pos(), "'var %s' inside a conditional body; its stack slot is only valid when the body runs exactly once, and later locals read the wrong slot otherwise", n.Name)
	}
	g.env.Declare(n.Name)
	return nil
}

func (g *Generator) VisitAssign(n *ast.Assign) error {
	if err := g.emit(n.Value); err != nil {
		return err
	}
	off, ok := g.env.Lookup(n.Name)
	if !ok {
		return &Error{Tok: n.Pos(), Err: ErrUndefinedVariable, Name: n.Name}
	}
	g.out.ins("str r0, [fp, #%d]", off)
	return nil
}

// maxArgs is the configured arity limit, never more than the argument
// registers the prologue spills.
func (g *Generator) maxArgs() int {
	if n := g.cfg.MaxRegisterArgs; n > 0 && n < argRegisters {
		return n
	}
	return argRegisters
}

func (g *Generator) VisitCall(n *ast.Call) error {
	if g.defined != nil {
		g.calls = append(g.calls, n)
	}
	limit := g.maxArgs()
	switch count := len(n.Args); {
	case count == 0:
	case count == 1:
		if err := g.emit(n.Args[0]); err != nil {
			return err
		}
	case count <= limit:
		g.out.ins("sub sp, sp, #16")
		for i, arg := range n.Args {
			if err := g.emit(arg); err != nil {
				return err
			}
			g.out.ins("str r0, [sp, #%d]", 4*i)
		}
		g.out.ins("pop {r0, r1, r2, r3}")
	default:
		return &Error{Tok: n.Pos(), Err: ErrTooManyArguments, Name: n.Callee, Limit: limit}
	}
	g.out.ins("bl %s", n.Callee)
	return nil
}

// VisitFunction emits a function with a fresh environment. Function bodies
// never see the names of an enclosing function. A function nested inside
// another is jumped over so the outer body does not fall into it.
func (g *Generator) VisitFunction(n *ast.Function) error {
	if limit := g.maxArgs(); len(n.Parameters) > limit {
		return &Error{Tok: n.Pos(), Err: ErrTooManyParameters, Name: n.Name, Limit: limit}
	}
	if g.defined != nil {
		g.defined[n.Name] = true
	}

	skipLabel := ""
	if g.fnDepth > 0 {
		skipLabel = g.labels.next()
		g.out.ins("b %s", skipLabel)
	}

	g.out.printf("\n")
	g.out.printf(".global %s\n", n.Name)
	g.out.label(n.Name)
	g.out.ins("push {fp, lr}")
	g.out.ins("mov fp, sp")
	g.out.ins("push {r0, r1, r2, r3}")

	prevEnv, prevCond := g.env, g.condDepth
	g.env, g.condDepth = newFunctionEnvironment(n.Parameters), 0
	g.fnDepth++
	err := g.emit(n.Body)
	g.fnDepth--
	g.env, g.condDepth = prevEnv, prevCond
	if err != nil {
		return err
	}

	g.out.ins("mov sp, fp")
	g.out.ins("mov r0, #0")
	g.out.ins("pop {fp, pc}")
	if skipLabel != "" {
		g.out.label(skipLabel)
	}
	return nil
}

func (g *Generator) VisitAssert(n *ast.Assert) error {
	if err := g.emit(n.Condition); err != nil {
		return err
	}
	g.out.ins("cmp r0, #1")
	g.out.ins("moveq r0, #'T'")
	g.out.ins("movne r0, #'F'")
	g.out.ins("bl putchar")
	return nil
}

func (g *Generator) VisitPrint(n *ast.Print) error {
	if err := g.emit(n.Value); err != nil {
		return err
	}
	g.usedPrint = true
	g.out.ins("mov r1, r0")
	g.out.ins("ldr r0, =%s", printFormatLabel)
	g.out.ins("bl printf")
	return nil
}
