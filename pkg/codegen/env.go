package codegen

// Frame layout of an emitted function, relative to fp:
//
//	fp+4    saved lr
//	fp+0    saved fp
//	fp-4    r3  (parameter 3)
//	fp-8    r2  (parameter 2)
//	fp-12   r1  (parameter 1)
//	fp-16   r0  (parameter 0)
//	fp-24   first local; each 'push {r0, ip}' drops sp by 8 and r0 lands at the lower word
const (
	slotSize       = 8
	firstLocalSlot = -20
	paramBase      = -16
	argRegisters   = 4
)

// Environment maps names visible in one function to fp-relative offsets.
// Scoping is flat: a declaration anywhere in the function, including nested
// blocks, stays visible until the function ends.
type Environment struct {
	locals map[string]int
	next   int
}

// NewEnvironment returns the empty seed environment used for code outside
// any function.
func NewEnvironment() *Environment {
	return &Environment{locals: make(map[string]int)}
}

func newFunctionEnvironment(params []string) *Environment {
	env := &Environment{locals: make(map[string]int, len(params)), next: firstLocalSlot}
	for i, name := range params {
		env.locals[name] = 4*i + paramBase
	}
	return env
}

// Declare binds name to the slot just pushed and returns its offset. A
// redeclaration rebinds the name to the new, deeper slot.
func (e *Environment) Declare(name string) int {
	off := e.next - 4
	e.locals[name] = off
	e.next -= slotSize
	return off
}

func (e *Environment) Lookup(name string) (int, bool) {
	off, ok := e.locals[name]
	return off, ok
}

// Next is the cursor the following Declare will allocate below.
func (e *Environment) Next() int { return e.next }
