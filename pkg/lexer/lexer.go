package lexer

import (
	"errors"
	"strconv"
	"unicode"

	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/token"
	"github.com/xplshn/jsarm/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	err       error
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Err returns the first lexical error. Once set, Next only yields EOF.
func (l *Lexer) Err() error { return l.err }

// Tokenize lexes the whole source, the returned slice always ends in EOF.
func Tokenize(source []rune, fileIndex int, cfg *config.Config) ([]token.Token, error) {
	l := NewLexer(source, fileIndex, cfg)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, l.err
		}
	}
}

func (l *Lexer) Next() token.Token {
	if l.err != nil {
		return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	}
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() || l.err != nil {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' || ch == '$' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
	case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
	case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
	case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
	case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
	case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
	case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
	case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
	case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
	case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
	case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
	case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
	case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine)
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	l.fail(tok, "Unexpected character: '%c'", ch)
	return tok
}

func (l *Lexer) fail(tok token.Token, format string, args ...any) {
	if l.err == nil {
		l.err = util.Errorf(tok, format, args...)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) matchThen(expected rune, then, otherwise token.Type, startPos, startCol, startLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(then, "", startPos, startCol, startLine)
	}
	return l.makeToken(otherwise, "", startPos, startCol, startLine)
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	comments := l.cfg == nil || l.cfg.IsFeatureEnabled(config.FeatCComments)
	for l.err == nil {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			switch {
			case comments && l.peekNext() == '/':
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
			case comments && l.peekNext() == '*':
				l.blockComment()
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	startTok := l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	startTok.Len = 2
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.fail(startTok, "Unterminated block comment")
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' || l.peek() == '$' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

// numberLiteral accepts decimal and 0x-prefixed hexadecimal integers. The
// token value is always the decimal rendering of the parsed value.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	isHex := l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X')
	if isHex {
		l.advance()
		l.advance()
	}
	for isDigit(l.peek(), isHex) {
		l.advance()
	}
	if unicode.IsLetter(l.peek()) || l.peek() == '_' {
		for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}

	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
	digits, base := valueStr, 10
	if isHex {
		digits, base = valueStr[2:], 16
	}
	val, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			l.fail(tok, "Integer constant does not fit in 64 bits: %s", valueStr)
		} else {
			l.fail(tok, "Invalid number literal: %s", valueStr)
		}
		tok.Value = "0"
		return tok
	}
	tok.Value = strconv.FormatUint(val, 10)
	return tok
}

func isDigit(r rune, hex bool) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	return hex && ((r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'))
}
