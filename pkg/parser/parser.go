package parser

import (
	"strconv"

	"github.com/xplshn/jsarm/pkg/ast"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/token"
	"github.com/xplshn/jsarm/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], cfg: cfg}
}

// bailout carries the first syntax error out of the recursive descent
type bailout struct{ diag *util.Diagnostic }

func (p *Parser) fail(tok token.Token, format string, args ...any) {
	panic(bailout{util.Errorf(tok, format, args...)})
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) {
	if p.check(tokType) {
		p.advance()
		return
	}
	p.fail(p.current, "%s Found %s.", message, describe(p.current))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.Ident, token.Number:
		return tok.Type.String() + " '" + tok.Value + "'"
	case token.EOF:
		return "end of file"
	default:
		return "'" + tok.Type.String() + "'"
	}
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 4
	case token.Plus, token.Minus:
		return 3
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 2
	case token.EqEq, token.Neq:
		return 1
	default:
		return -1
	}
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.EqEq:  ast.Equal,
	token.Neq:   ast.NotEqual,
	token.Lt:    ast.LessThan,
	token.Lte:   ast.LessThanEqual,
	token.Gt:    ast.GreaterThan,
	token.Gte:   ast.GreaterThanEqual,
	token.Plus:  ast.Add,
	token.Minus: ast.Subtract,
	token.Star:  ast.Multiply,
	token.Slash: ast.Divide,
}

func (p *Parser) parsePrimaryExpr() ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseUint(p.previous.Value, 10, 64)
		if err != nil {
			p.fail(tok, "Invalid number literal: %s", p.previous.Value)
		}
		return ast.NewNumber(tok, val)
	case p.match(token.True):
		return ast.NewBoolean(tok, true)
	case p.match(token.False):
		return ast.NewBoolean(tok, false)
	case p.match(token.Null):
		return ast.NewNull(tok)
	case p.match(token.Undefined):
		return ast.NewUndefined(tok)
	case p.match(token.Ident):
		if p.check(token.LParen) {
			return p.parseCall(tok)
		}
		return ast.NewId(tok, tok.Value)
	case p.match(token.LBracket):
		items := p.parseExprList(token.RBracket, "Expected ']' after array elements.")
		return ast.NewArrayLiteral(tok, items)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return expr
	}
	p.fail(tok, "Expected an expression. Found %s.", describe(tok))
	return nil
}

// parseCall turns the single-argument forms of assert, length and print into
// their dedicated nodes. Any other arity is an ordinary call.
func (p *Parser) parseCall(nameTok token.Token) ast.Node {
	p.expect(token.LParen, "Expected '(' after function name.")
	args := p.parseExprList(token.RParen, "Expected ')' after function arguments.")
	if len(args) == 1 {
		switch nameTok.Value {
		case "assert":
			return ast.NewAssert(nameTok, args[0])
		case "length":
			return ast.NewArrayLength(nameTok, args[0])
		case "print":
			return ast.NewPrint(nameTok, args[0])
		}
	}
	return ast.NewCall(nameTok, nameTok.Value, args)
}

func (p *Parser) parseExprList(closing token.Type, message string) []ast.Node {
	var items []ast.Node
	if !p.check(closing) {
		for {
			items = append(items, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(closing, message)
	return items
}

func (p *Parser) parsePostfixExpr() ast.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.current
		if !p.match(token.LBracket) {
			return expr
		}
		index := p.parseExpr()
		p.expect(token.RBracket, "Expected ']' after array index.")
		expr = ast.NewArrayLookup(tok, expr, index)
	}
}

func (p *Parser) parseUnaryExpr() ast.Node {
	tok := p.current
	if p.match(token.Not) {
		return ast.NewNot(tok, p.parseUnaryExpr())
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parseBinaryExpr(minPrec int) ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewBinary(opTok, binaryOps[op], left, right)
	}
	return left
}

func (p *Parser) parseExpr() ast.Node {
	return p.parseBinaryExpr(1)
}

// Statement Parsing
func (p *Parser) parseBlockStmt() *ast.Block {
	tok := p.current
	p.expect(token.LBrace, "Expected '{' to start a block.")
	var stmts []ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' after block.")
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseFunction() *ast.Function {
	tok := p.previous
	p.expect(token.Ident, "Expected function name after 'function'.")
	name := p.previous.Value
	p.expect(token.LParen, "Expected '(' after function name.")
	var params []string
	if !p.check(token.RParen) {
		for {
			p.expect(token.Ident, "Expected parameter name.")
			params = append(params, p.previous.Value)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")
	body := p.parseBlockStmt()
	return ast.NewFunction(tok, name, params, body)
}

func (p *Parser) parseStmt() ast.Node {
	tok := p.current
	switch {
	case p.match(token.Function):
		return p.parseFunction()
	case p.match(token.If):
		p.expect(token.LParen, "Expected '(' after 'if'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after if condition.")
		thenBody := p.parseStmt()
		var elseBody ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	case p.match(token.While):
		p.expect(token.LParen, "Expected '(' after 'while'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after while condition.")
		body := p.parseStmt()
		return ast.NewWhile(tok, cond, body)
	case p.check(token.LBrace):
		return p.parseBlockStmt()
	case p.match(token.Var):
		p.expect(token.Ident, "Expected variable name after 'var'.")
		name := p.previous.Value
		p.expect(token.Eq, "Expected '=' after variable name.")
		value := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after variable declaration.")
		return ast.NewVar(tok, name, value)
	case p.match(token.Return):
		var term ast.Node
		if p.check(token.Semi) {
			term = ast.NewUndefined(p.current)
		} else {
			term = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after return statement.")
		return ast.NewReturn(tok, term)
	case p.match(token.Semi):
		return ast.NewBlock(tok, nil)
	case p.check(token.Ident) && p.peek().Type == token.Eq:
		p.advance()
		p.advance()
		value := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return ast.NewAssign(tok, tok.Value, value)
	default:
		expr := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after expression statement.")
		return expr
	}
}

// Top-Level Parsing

// Parse returns the root block of the program. With implicit-main enabled,
// top-level statements that are not function declarations are gathered into
// a synthesized 'main' appended after the declared functions.
func (p *Parser) Parse() (root *ast.Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.diag
		}
	}()

	tok := p.current
	implicit := p.cfg == nil || p.cfg.IsFeatureEnabled(config.FeatImplicitMain)
	var stmts, mainStmts []ast.Node
	var explicitMain *ast.Function
	for !p.check(token.EOF) {
		stmt := p.parseStmt()
		fn, isFunc := stmt.(*ast.Function)
		if isFunc && fn.Name == "main" {
			explicitMain = fn
		}
		if isFunc || !implicit {
			stmts = append(stmts, stmt)
			continue
		}
		mainStmts = append(mainStmts, stmt)
	}

	if len(mainStmts) > 0 {
		if explicitMain != nil {
			p.fail(explicitMain.Pos(), "Function 'main' is defined but top-level statements also form an implicit 'main'.")
		}
		mainTok := mainStmts[0].Pos()
		body := ast.NewBlock(mainTok, mainStmts)
		stmts = append(stmts, ast.NewFunction(mainTok, "main", nil, body))
	}
	return ast.NewBlock(tok, stmts), nil
}
