package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionEnvironment(t *testing.T) {
	env := newFunctionEnvironment([]string{"a", "b", "c", "d"})
	for i, name := range []string{"a", "b", "c", "d"} {
		off, ok := env.Lookup(name)
		require.True(t, ok, name)
		require.Equal(t, 4*i-16, off, name)
	}

	require.Equal(t, -24, env.Declare("x"))
	require.Equal(t, -32, env.Declare("y"))
	require.Equal(t, -36, env.Next())

	_, ok := env.Lookup("z")
	require.False(t, ok)
}

func TestDeclareShadowsParameter(t *testing.T) {
	env := newFunctionEnvironment([]string{"a"})
	require.Equal(t, -24, env.Declare("a"))
	off, _ := env.Lookup("a")
	require.Equal(t, -24, off)
}

func TestSeedEnvironment(t *testing.T) {
	env := NewEnvironment()
	require.Equal(t, 0, env.Next())
	require.Equal(t, -4, env.Declare("a"))
	require.Equal(t, -12, env.Declare("b"))
}
