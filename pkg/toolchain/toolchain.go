// Package toolchain drives the external cross compiler that assembles and
// links generated code, and runs the resulting binaries.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/xplshn/jsarm/pkg/config"
)

// AssembleError reports a failed assembler/linker invocation.
type AssembleError struct {
	Cmd    []string
	Output string
	Err    error
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("%s failed: %v\n%s", e.Cmd[0], e.Err, e.Output)
}

func (e *AssembleError) Unwrap() error { return e.Err }

// RuntimeError reports a program that exited non-zero or timed out.
type RuntimeError struct {
	Result *Result
}

func (e *RuntimeError) Error() string {
	if e.Result.TimedOut {
		return fmt.Sprintf("program timed out after %s", e.Result.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("program exited with code %d", e.Result.ExitCode)
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Available reports whether the configured compiler, and the runner if any,
// can be found in PATH.
func Available(tc config.Toolchain) bool {
	if _, err := exec.LookPath(tc.CC); err != nil {
		return false
	}
	if len(tc.Runner) > 0 {
		if _, err := exec.LookPath(tc.Runner[0]); err != nil {
			return false
		}
	}
	return true
}

// Assemble writes asm to a temporary .s file and builds the executable out
// from it.
func Assemble(ctx context.Context, tc config.Toolchain, asm, out string) error {
	asmFile, err := os.CreateTemp("", "jsarm-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for assembly: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write assembly: %w", err)
	}
	if err := asmFile.Close(); err != nil {
		return fmt.Errorf("failed to write assembly: %w", err)
	}

	args := append(append([]string{}, tc.CFlags...), "-o", out, asmFile.Name())
	cmd := exec.CommandContext(ctx, tc.CC, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return &AssembleError{Cmd: append([]string{tc.CC}, args...), Output: string(output), Err: err}
	}
	return nil
}

// Run executes bin, through tc.Runner when set, feeding it stdin. A result
// is returned even when the program fails; the error is then a
// *RuntimeError.
func Run(ctx context.Context, tc config.Toolchain, bin string, stdin io.Reader) (*Result, error) {
	name, args := bin, []string(nil)
	if len(tc.Runner) > 0 {
		name, args = tc.Runner[0], append(append([]string{}, tc.Runner[1:]...), bin)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr, cmd.Stdin = &stdout, &stderr, stdin
	cmd.WaitDelay = time.Second
	err := cmd.Run()

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut, res.ExitCode = true, -1
		return res, &RuntimeError{Result: res}
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, &RuntimeError{Result: res}
	case err != nil:
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return res, nil
}
