package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testFlags struct {
	out     string
	target  string
	run     bool
	wall    bool
	args    []string
	enabled bool
	disable bool
}

func newTestSet(f *testFlags) *FlagSet {
	fs := NewFlagSet("test")
	fs.String(&f.out, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&f.target, "target", "t", "arm", "Set the target architecture.", "arch")
	fs.Bool(&f.run, "run", "r", false, "Run the program.")
	fs.Bool(&f.wall, "Wall", "", false, "Enable all warnings.")
	fs.List(&f.args, "compiler-args", "", nil, "Extra arguments.", "arg")
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "overflow", Prefix: "W", Usage: "Warn about overflow.", Enabled: &f.enabled, Disabled: &f.disable, Default: true},
	})
	return fs
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want testFlags
		rest []string
	}{
		{"long with value", []string{"--output", "a.out", "x.js"}, testFlags{out: "a.out", target: "arm"}, []string{"x.js"}},
		{"long with equals", []string{"--target=armv7"}, testFlags{target: "armv7"}, nil},
		{"short with value", []string{"-o", "bin", "-r"}, testFlags{out: "bin", target: "arm", run: true}, nil},
		{"short attached", []string{"-obin"}, testFlags{out: "bin", target: "arm"}, nil},
		{"multi-letter single dash", []string{"-Wall", "-Wno-overflow"}, testFlags{target: "arm", wall: true, disable: true}, nil},
		{"group enable", []string{"-Woverflow"}, testFlags{target: "arm", enabled: true}, nil},
		{"list repeats", []string{"--compiler-args", "-a", "--compiler-args=-b"}, testFlags{target: "arm", args: []string{"-a", "-b"}}, nil},
		{"double dash", []string{"-r", "--", "-o", "x"}, testFlags{target: "arm", run: true}, []string{"-o", "x"}},
		{"bool with value", []string{"--run=false"}, testFlags{target: "arm"}, nil},
		{"lone dash", []string{"-"}, testFlags{target: "arm"}, []string{"-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testFlags
			fs := newTestSet(&got)
			require.NoError(t, fs.Parse(tt.args))
			require.Equal(t, tt.rest, fs.Args())
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		msg  string
	}{
		{[]string{"--nope"}, "unknown flag: --nope"},
		{[]string{"-x"}, "unknown flag: -x"},
		{[]string{"-rx"}, "unknown flag: -rx"},
		{[]string{"-o"}, "flag needs an argument: -o"},
		{[]string{"--run=maybe"}, "--run: invalid boolean value 'maybe'"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			var f testFlags
			require.ErrorContains(t, newTestSet(&f).Parse(tt.args), tt.msg)
		})
	}
}

func TestAppRun(t *testing.T) {
	var f testFlags
	app := NewApp("jsarm")
	app.FlagSet = newTestSet(&f)
	var got []string
	app.Action = func(args []string) error {
		got = args
		return nil
	}
	require.NoError(t, app.Run([]string{"-o", "out", "a.js", "b.js"}))
	require.Equal(t, []string{"a.js", "b.js"}, got)
	require.Equal(t, "out", f.out)
}

func TestAppHelp(t *testing.T) {
	var f testFlags
	var stdout bytes.Buffer
	app := NewApp("jsarm")
	app.Synopsis = "[options] <input.js> ..."
	app.Description = "A small compiler."
	app.Stdout = &stdout
	app.FlagSet = newTestSet(&f)
	app.Action = func([]string) error { return errors.New("action must not run") }

	err := app.Run([]string{"--help"})
	require.ErrorIs(t, err, ErrHelp)

	help := stdout.String()
	require.Contains(t, help, "Usage: jsarm [options] <input.js> ...")
	require.Contains(t, help, "A small compiler.")
	require.Contains(t, help, "-o, --output <file>")
	require.Contains(t, help, "|arm|")
	require.Contains(t, help, "Warning Flags")
	require.Contains(t, help, "-Wno-<warning>")
	require.Contains(t, help, "overflow")
	require.Contains(t, help, "|x|")
	require.NotContains(t, help, "--Woverflow")
}

func TestAppUsageOnError(t *testing.T) {
	var stderr bytes.Buffer
	app := NewApp("jsarm")
	app.Stderr = &stderr
	require.Error(t, app.Run([]string{"--bogus"}))
	require.Contains(t, stderr.String(), "Run 'jsarm --help'")
}

func TestWrapText(t *testing.T) {
	require.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	require.Empty(t, wrapText("", 10))
}

func TestRedefinitionPanics(t *testing.T) {
	var s string
	fs := NewFlagSet("test")
	fs.String(&s, "output", "o", "", "", "")
	require.Panics(t, func() { fs.String(&s, "output", "", "", "", "") })
	require.Panics(t, func() { fs.String(&s, "other", "o", "", "", "") })
}
