// jstest compiles and runs every test program with jsarm and compares the
// program output with the .expected file next to it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/jsarm/pkg/cli"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Key     string     `json:"key,omitempty"`
	Run     *Execution `json:"run,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

type options struct {
	compiler     string
	compilerArgs string
	testFiles    string
	skipFiles    string
	outputJSON   string
	timeout      string
	jobs         string
	verbose      bool
	useCache     bool
	update       bool
}

var (
	passLabel = color.New(color.FgGreen).SprintFunc()
	failLabel = color.New(color.FgRed).SprintFunc()
	skipLabel = color.New(color.FgYellow).SprintFunc()
	fileLabel = color.New(color.FgCyan).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
)

func main() {
	app := cli.NewApp("jstest")
	app.Synopsis = "[options]"
	app.Description = "Golden output test runner for jsarm. Each <name>.js is compiled and run with 'jsarm --run' and its stdout compared with <name>.expected."
	app.Authors = []string{"xplshn"}

	var opts options
	fs := app.FlagSet
	fs.String(&opts.compiler, "compiler", "", "./jsarm", "Path to the jsarm binary under test.", "path")
	fs.String(&opts.compilerArgs, "compiler-args", "", "", "Extra arguments for jsarm (space-separated).", "args")
	fs.String(&opts.testFiles, "test-files", "", "tests/*.js", "Glob pattern(s) for files to test (space-separated).", "glob")
	fs.String(&opts.skipFiles, "skip-files", "", "", "Files to skip (space-separated).", "files")
	fs.String(&opts.outputJSON, "output", "o", ".jstest_results.json", "Output file for the JSON test report.", "file")
	fs.String(&opts.timeout, "timeout", "", "20s", "Timeout for each compile-and-run.", "duration")
	fs.String(&opts.jobs, "jobs", "j", "4", "Number of parallel test jobs.", "n")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Show timings for passing tests.")
	fs.Bool(&opts.useCache, "cached", "", false, "Reuse passing results whose source, expectation and compiler are unchanged.")
	fs.Bool(&opts.update, "update", "u", false, "Rewrite .expected files from the actual output.")

	app.Action = func([]string) error { return runSuite(opts) }

	err := app.Run(os.Args[1:])
	switch {
	case err == nil, errors.Is(err, cli.ErrHelp):
	case errors.Is(err, errFailures):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "%s %v\n", failLabel("[ERROR]"), err)
		os.Exit(1)
	}
}

var errFailures = errors.New("test failures")

func runSuite(opts options) error {
	timeout, err := time.ParseDuration(opts.timeout)
	if err != nil {
		return fmt.Errorf("invalid --timeout: %w", err)
	}
	jobs, err := strconv.Atoi(opts.jobs)
	if err != nil || jobs < 1 {
		return fmt.Errorf("invalid --jobs value '%s'", opts.jobs)
	}
	compiler, err := exec.LookPath(opts.compiler)
	if err != nil {
		return fmt.Errorf("compiler '%s' not found: %w", opts.compiler, err)
	}
	compilerHash, err := hashFile(compiler)
	if err != nil {
		return err
	}

	files, err := expandGlobPatterns(opts.testFiles)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No test files found matching the pattern(s).")
		return nil
	}

	tempDir, err := os.MkdirTemp("", "jstest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	previous := make(TestSuiteResults)
	if data, err := os.ReadFile(opts.outputJSON); err == nil {
		if json.Unmarshal(data, &previous) != nil {
			fmt.Printf("%s Could not parse previous results file %s. Cache will not be used.\n", skipLabel("[WARN]"), opts.outputJSON)
			previous = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(opts.skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	r := &runner{
		opts:     opts,
		compiler: compiler,
		args:     strings.Fields(opts.compilerArgs),
		tempDir:  tempDir,
		timeout:  timeout,
	}

	tasks := make(chan string, len(files))
	results := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- r.testFile(file, compilerHash, previous)
			}
		}()
	}
	for _, file := range files {
		if skipList[file] {
			results <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileTestResult
	for res := range results {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	printSummary(all, opts.verbose)
	report := writeJSONReport(all, opts.outputJSON)
	if hasFailures(report) {
		return errFailures
	}
	return nil
}

type runner struct {
	opts     options
	compiler string
	args     []string
	tempDir  string
	timeout  time.Duration
}

func expectedPath(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".expected"
}

func (r *runner) testFile(file, compilerHash string, previous TestSuiteResults) *FileTestResult {
	srcHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}
	want, err := os.ReadFile(expectedPath(file))
	if err != nil && !r.opts.update {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No .expected file"}
	}
	key := fmt.Sprintf("%s-%x-%s", srcHash, xxhash.Sum64(want), compilerHash)

	if prev, ok := previous[file]; r.opts.useCache && !r.opts.update && ok && prev.Key == key && prev.Status == "PASS" {
		prev.Message = "All output matched (cached)"
		return prev
	}

	binary := filepath.Join(r.tempDir, fmt.Sprintf("%x.bin", xxhash.Sum64String(file)))
	args := append(append([]string{}, r.args...), "--run", "-o", binary, file)
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	exe := executeCommand(ctx, r.compiler, args...)

	res := &FileTestResult{File: file, Key: key, Run: &exe}
	switch {
	case exe.TimedOut:
		res.Status, res.Message = "FAIL", fmt.Sprintf("Timed out after %s", r.timeout)
		return res
	case exe.ExitCode != 0:
		res.Status, res.Message = "FAIL", fmt.Sprintf("jsarm exited with code %d", exe.ExitCode)
		res.Diff = "STDERR:\n" + exe.Stderr
		return res
	}

	if r.opts.update {
		if err := os.WriteFile(expectedPath(file), []byte(exe.Stdout), 0o644); err != nil {
			res.Status, res.Message = "ERROR", fmt.Sprintf("Failed to update expectation: %v", err)
			return res
		}
		res.Status, res.Message = "PASS", "Expectation updated"
		res.Key = fmt.Sprintf("%s-%x-%s", srcHash, xxhash.Sum64String(exe.Stdout), compilerHash)
		return res
	}

	if diff := cmp.Diff(string(want), exe.Stdout); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "Output mismatch (-expected +actual)", diff
		return res
	}
	res.Status, res.Message = "PASS", "All output matched"
	return res
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	exe := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		exe.TimedOut, exe.ExitCode = true, -1
	case errors.As(err, &exitErr):
		exe.ExitCode = exitErr.ExitCode()
	case err != nil:
		exe.ExitCode = -2
		exe.Stderr += "\nExecution error: " + err.Error()
	}
	return exe
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s Test run cancelled. Cleaning up...\n", skipLabel("[INTERRUPT]"))
		os.Exit(1)
	}()
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func printSummary(results []*FileTestResult, verbose bool) {
	var passed, failed, skipped, errored int
	var total time.Duration
	for _, res := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s...\n", fileLabel(res.File))
		switch res.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%s] %s\n", passLabel("PASS"), res.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%s] %s\n", failLabel("FAIL"), res.Message)
			fmt.Print(formatDiff(res.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%s] %s\n", skipLabel("SKIP"), res.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%s] %s\n", failLabel("ERROR"), res.Message)
		}
		if res.Run != nil {
			total += res.Run.Duration
			if verbose {
				fmt.Printf("  compile+run: %s\n", res.Run.Duration.Round(time.Millisecond))
			}
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%s %s, %s, %s, %s, %d Total (%s)\n", bold("Test Summary:"),
		passLabel(fmt.Sprintf("%d Passed", passed)), failLabel(fmt.Sprintf("%d Failed", failed)),
		skipLabel(fmt.Sprintf("%d Skipped", skipped)), failLabel(fmt.Sprintf("%d Errored", errored)),
		len(results), total.Round(time.Millisecond))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			line = failLabel(line)
		case strings.HasPrefix(trimmed, "+"):
			line = passLabel(line)
		}
		sb.WriteString("    " + line + "\n")
	}
	return sb.String()
}

func writeJSONReport(results []*FileTestResult, path string) TestSuiteResults {
	report := make(TestSuiteResults, len(results))
	for _, res := range results {
		report[res.File] = res
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Printf("%s Failed to marshal results to JSON: %v\n", failLabel("[ERROR]"), err)
		return report
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("%s Failed to write JSON report to %s: %v\n", failLabel("[ERROR]"), path, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", path)
	}
	return report
}

func hasFailures(results TestSuiteResults) bool {
	for _, res := range results {
		if res.Status == "FAIL" || res.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}
