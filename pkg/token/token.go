package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	Function
	Var
	If
	Else
	While
	Return
	True
	False
	Null
	Undefined
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Eq
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	Plus
	Minus
	Star
	Slash
	Not
)

var KeywordMap = map[string]Type{
	"function":  Function,
	"var":       Var,
	"if":        If,
	"else":      Else,
	"while":     While,
	"return":    Return,
	"true":      True,
	"false":     False,
	"null":      Null,
	"undefined": Undefined,
}

// Reverse mapping from Type to the keyword string
var TypeStrings = map[Type]string{
	EOF:      "end of file",
	Ident:    "identifier",
	Number:   "number",
	LParen:   "(",
	RParen:   ")",
	LBrace:   "{",
	RBrace:   "}",
	LBracket: "[",
	RBracket: "]",
	Semi:     ";",
	Comma:    ",",
	Eq:       "=",
	EqEq:     "==",
	Neq:      "!=",
	Lt:       "<",
	Gt:       ">",
	Lte:      "<=",
	Gte:      ">=",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	Not:      "!",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
