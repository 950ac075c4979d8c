package codegen

import "fmt"

// labelCounter hands out assembler-local labels. It is never reset, so labels
// stay unique across every function of one compilation.
type labelCounter struct{ n int }

func (c *labelCounter) next() string {
	c.n++
	return fmt.Sprintf(".L%d", c.n)
}
