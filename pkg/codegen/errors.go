package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/jsarm/pkg/token"
)

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrTooManyParameters = errors.New("too many parameters")
	ErrTooManyArguments  = errors.New("too many arguments")
)

// Error is a code generation failure tied to a source position. Err is one
// of the sentinels above. Limit is the arity limit that was exceeded.
type Error struct {
	Tok   token.Token
	Err   error
	Name  string
	Limit int
}

func (e *Error) Error() string {
	switch e.Err {
	case ErrUndefinedVariable:
		return fmt.Sprintf("undefined variable '%s'", e.Name)
	case ErrTooManyParameters:
		return fmt.Sprintf("function '%s' declares more than %d parameters", e.Name, e.Limit)
	case ErrTooManyArguments:
		return fmt.Sprintf("call to '%s' passes more than %d arguments", e.Name, e.Limit)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Name)
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) Position() token.Token { return e.Tok }
