package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xplshn/jsarm/pkg/ast"
	"github.com/xplshn/jsarm/pkg/cli"
	"github.com/xplshn/jsarm/pkg/codegen"
	"github.com/xplshn/jsarm/pkg/config"
	"github.com/xplshn/jsarm/pkg/lexer"
	"github.com/xplshn/jsarm/pkg/parser"
	"github.com/xplshn/jsarm/pkg/token"
	"github.com/xplshn/jsarm/pkg/toolchain"
	"github.com/xplshn/jsarm/pkg/util"
)

// exitError carries the exit status of a program started with --run
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	app := cli.NewApp("jsarm")
	app.Synopsis = "[options] <input.js> ..."
	app.Description = "A compiler for a small JavaScript subset that emits 32-bit ARM assembly and links it with a cross toolchain."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/jsarm>"

	var (
		outFile    string
		target     string
		configPath string
		emitAsm    bool
		dumpAST    bool
		dumpTokens bool
		run        bool
		verbose    bool
		wall       bool
		timeout    string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "", "Set the target architecture (default 'arm', or the config file's target).", "arch")
	fs.String(&configPath, "config", "c", "", "Read toolchain and diagnostic settings from a TOML file.", "file")
	fs.String(&timeout, "timeout", "", "10s", "Time limit for assembling and for --run.", "duration")
	fs.Bool(&emitAsm, "asm", "S", false, "Stop after generating assembly.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the parsed program and exit.")
	fs.Bool(&dumpTokens, "dump-tokens", "", false, "Print the token stream and exit.")
	fs.Bool(&run, "run", "r", false, "Run the program after linking, through the configured runner.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		util.Verbose = verbose
		if err := loadSettings(cfg, configPath, target); err != nil {
			return err
		}
		if wall {
			_ = cfg.ApplyFlag("-Wall")
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		limit, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		if len(inputFiles) == 0 {
			return errors.New("no input files specified")
		}

		util.Info("tokenizing %d source file(s)", len(inputFiles))
		records, tokens, err := readAndTokenizeFiles(inputFiles, cfg)
		util.SetSourceFiles(records)
		if err != nil {
			return err
		}
		if dumpTokens {
			for _, tok := range tokens {
				fmt.Printf("%d:%d\t%-12s %s\n", tok.Line, tok.Column, tok.Type, tok.Value)
			}
			return nil
		}

		util.Info("parsing")
		root, err := parser.NewParser(tokens, cfg).Parse()
		if err != nil {
			return err
		}
		if dumpAST {
			for _, stmt := range root.Statements {
				fmt.Println(ast.Format(stmt))
			}
			return nil
		}

		backend, err := codegen.SelectBackend(cfg)
		if err != nil {
			return err
		}
		util.Info("generating code with '%s' backend", backend.Name())
		var asm bytes.Buffer
		if err := backend.Generate(root, cfg, &asm); err != nil {
			return err
		}

		if emitAsm {
			if outFile == "" {
				outFile = strings.TrimSuffix(filepath.Base(inputFiles[0]), filepath.Ext(inputFiles[0])) + ".s"
			}
			if outFile == "-" {
				_, err := os.Stdout.Write(asm.Bytes())
				return err
			}
			util.Info("writing '%s'", outFile)
			return writeAtomically(outFile, func(tmp string) error {
				return os.WriteFile(tmp, asm.Bytes(), 0o644)
			})
		}

		binary := outFile
		if binary == "" && run {
			dir, err := os.MkdirTemp("", "jsarm-run-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)
			binary = filepath.Join(dir, "a.out")
		} else if binary == "" {
			binary = "a.out"
		}

		ctx, cancel := context.WithTimeout(context.Background(), limit)
		defer cancel()
		util.Info("assembling and linking '%s' with %s", binary, cfg.Toolchain.CC)
		if err := writeAtomically(binary, func(tmp string) error {
			return toolchain.Assemble(ctx, cfg.Toolchain, asm.String(), tmp)
		}); err != nil {
			return err
		}
		if !run {
			return nil
		}

		runCtx, runCancel := context.WithTimeout(context.Background(), limit)
		defer runCancel()
		util.Info("running '%s'", binary)
		res, err := toolchain.Run(runCtx, cfg.Toolchain, binary, os.Stdin)
		if res != nil {
			io.WriteString(os.Stdout, res.Stdout)
			io.WriteString(os.Stderr, res.Stderr)
		}
		var rtErr *toolchain.RuntimeError
		if errors.As(err, &rtErr) && !rtErr.Result.TimedOut {
			return exitError{rtErr.Result.ExitCode}
		}
		return err
	}

	err := app.Run(os.Args[1:])
	var exit exitError
	switch {
	case err == nil, errors.Is(err, cli.ErrHelp):
	case errors.As(err, &exit):
		os.Exit(exit.code)
	default:
		util.Report(util.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings applies the config file and then the --target flag. An empty
// target leaves the one from the file, or the default, in place.
func loadSettings(cfg *config.Config, path, target string) error {
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return err
		}
	}
	if target == "" {
		return nil
	}
	return cfg.SetTarget(target)
}

// writeAtomically lets produce write a temporary file next to path and renames
// it into place only when produce succeeds.
func writeAtomically(path string, produce func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmp := f.Name()
	f.Close()
	if err := produce(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func readAndTokenizeFiles(paths []string, cfg *config.Config) ([]util.SourceFileRecord, []token.Token, error) {
	var records []util.SourceFileRecord
	var allTokens []token.Token

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return records, nil, fmt.Errorf("could not read file '%s': %w", path, err)
		}
		runeContent := []rune(string(content))
		records = append(records, util.SourceFileRecord{Name: path, Content: runeContent})
		toks, err := lexer.Tokenize(runeContent, i, cfg)
		if err != nil {
			return records, nil, err
		}
		allTokens = append(allTokens, toks[:len(toks)-1]...)
	}
	allTokens = append(allTokens, token.Token{Type: token.EOF, FileIndex: max(len(paths)-1, 0)})
	return records, allTokens, nil
}
