package codegen

import (
	"bufio"
	"fmt"
	"io"
)

// emitter buffers assembly text and remembers the first write error; every
// later write is dropped.
type emitter struct {
	w   *bufio.Writer
	err error
}

func newEmitter(w io.Writer) *emitter { return &emitter{w: bufio.NewWriter(w)} }

func (e *emitter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.w, format, args...); err != nil {
		e.err = fmt.Errorf("write assembly: %w", err)
	}
}

// ins writes one tab-indented instruction
func (e *emitter) ins(format string, args ...any) { e.printf("\t"+format+"\n", args...) }

func (e *emitter) label(name string) { e.printf("%s:\n", name) }

func (e *emitter) flush() error {
	if e.err == nil {
		if err := e.w.Flush(); err != nil {
			e.err = fmt.Errorf("write assembly: %w", err)
		}
	}
	return e.err
}
