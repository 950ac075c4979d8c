// Package util holds the diagnostics plumbing shared by every compiler stage:
// source file records, positioned errors, warnings and progress output.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/token"
	"golang.org/x/term"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	infoLabel  = color.New(color.FgCyan)
	caretColor = color.New(color.FgGreen)
)

// Stderr receives errors, warnings and progress lines.
var Stderr io.Writer = os.Stderr

// Verbose enables Info output.
var Verbose bool

func init() {
	color.NoColor = os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd()))
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// Positioned is implemented by errors that know where in the source they happened.
type Positioned interface {
	Position() token.Token
}

// Diagnostic is a lexer or parser error anchored at a token.
type Diagnostic struct {
	Tok token.Token
	Msg string
}

func Errorf(tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) Error() string         { return d.Msg }
func (d *Diagnostic) Position() token.Token { return d.Tok }

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	col := tok.Column
	if col < 1 {
		col = 1
	}
	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), caretColor.Sprint(caret))
}

// Report prints err to w. Errors that carry a source position get the
// file:line:col prefix and the offending line with a caret under it.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	var pos Positioned
	if !errors.As(err, &pos) || pos.Position().Line == 0 {
		fmt.Fprintf(w, "%s %v\n", errorLabel.Sprint("error:"), err)
		return
	}
	tok := pos.Position()
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(w, "%s:%d:%d: %s %v\n", filename, line, col, errorLabel.Sprint("error:"), err)
	printErrorLine(w, tok)
}

// Warn prints a formatted warning message if the corresponding warning is
// enabled and reports whether it did.
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) bool {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return false
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: %s ", filename, line, col, warnLabel.Sprint("warning:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(Stderr, tok)
	return true
}

// Info prints a progress line when running verbosely.
func Info(format string, args ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(Stderr, "%s ", infoLabel.Sprint("jsarm:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintln(Stderr)
}
