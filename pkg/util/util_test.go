package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/token"
)

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	var buf bytes.Buffer
	prevOut, prevVerbose := Stderr, Verbose
	Stderr = &buf
	SetSourceFiles([]SourceFileRecord{
		{Name: "a.js", Content: []rune("var a = 1;\nassert(a == 2);\n")},
	})
	t.Cleanup(func() {
		Stderr, Verbose = prevOut, prevVerbose
		SetSourceFiles(nil)
	})
	return &buf
}

func TestReportPositioned(t *testing.T) {
	buf := setup(t)
	err := Errorf(token.Token{Line: 2, Column: 8, Len: 6}, "Bad thing: %d", 3)
	Report(buf, fmt.Errorf("wrapped: %w", err))

	want := "a.js:2:8: error: wrapped: Bad thing: 3\n" +
		"  assert(a == 2);\n" +
		"         ^~~~~~\n"
	require.Equal(t, want, buf.String())
}

func TestReportPlain(t *testing.T) {
	buf := setup(t)
	Report(buf, errors.New("no input files specified"))
	require.Equal(t, "error: no input files specified\n", buf.String())

	buf.Reset()
	Report(buf, nil)
	require.Empty(t, buf.String())
}

func TestReportUnknownFile(t *testing.T) {
	buf := setup(t)
	Report(buf, Errorf(token.Token{FileIndex: 4, Line: 1, Column: 1}, "oops"))
	require.Equal(t, "unknown:1:1: error: oops\n", buf.String())
}

func TestWarn(t *testing.T) {
	buf := setup(t)
	cfg := config.NewConfig()
	tok := token.Token{Line: 1, Column: 5, Len: 1}

	require.True(t, Warn(cfg, config.WarnRedeclared, tok, "Redeclaration of '%s'", "a"))
	want := "a.js:1:5: warning: Redeclaration of 'a' [-Wredeclared]\n" +
		"  var a = 1;\n" +
		"      ^\n"
	require.Equal(t, want, buf.String())

	buf.Reset()
	cfg.SetWarning(config.WarnRedeclared, false)
	require.False(t, Warn(cfg, config.WarnRedeclared, tok, "ignored"))
	require.False(t, Warn(nil, config.WarnRedeclared, tok, "ignored"))
	require.Empty(t, buf.String())
}

func TestInfo(t *testing.T) {
	buf := setup(t)
	Info("quiet %d", 1)
	require.Empty(t, buf.String())

	Verbose = true
	Info("parsing %s", "a.js")
	require.Equal(t, "jsarm: parsing a.js\n", buf.String())
}

func TestDiagnostic(t *testing.T) {
	tok := token.Token{Line: 3, Column: 2}
	d := Errorf(tok, "Expected %s.", "';'")
	require.EqualError(t, d, "Expected ';'.")

	var pos Positioned
	require.ErrorAs(t, fmt.Errorf("ctx: %w", d), &pos)
	require.Equal(t, tok, pos.Position())
}
