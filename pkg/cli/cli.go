package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrHelp is returned by Run when -h/--help was given and the help page
// has been printed.
var ErrHelp = errors.New("help requested")

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

type FlagGroup struct {
	Name        string
	Description string
	GroupType   string
	Header      string
	Flags       []FlagGroupEntry
}

// FlagGroupEntry is one member of a -W/-F style group. Parsing
// -<Prefix><Name> sets *Enabled and -<Prefix>no-<Name> sets *Disabled.
// Default is only used for the help page.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
	Default  bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	groups     []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, strings.Join(value, ","), expectedType)
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, header string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", false, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", false, "Disable '"+e.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{
		Name: name, Description: description, GroupType: groupType, Header: header, Flags: entries,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// Parse accepts --name, --name=value, -name (for multi-letter names such as
// -Wall), -x value, -xvalue and "--" terminating flag processing.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		dashes := "-"
		body := arg[1:]
		if strings.HasPrefix(arg, "--") {
			dashes, body = "--", arg[2:]
		}
		name, value, hasValue := strings.Cut(body, "=")

		flag, ok := f.flags[name]
		if !ok && dashes == "-" && name != "" {
			if flag, ok = f.shorthands[name[:1]]; ok && len(name) > 1 && !flag.isBool() {
				value, hasValue = body[1:], true
			} else if ok && len(name) > 1 {
				ok = false
			}
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s%s", dashes, name)
		}

		switch {
		case hasValue:
			if err := flag.Value.Set(value); err != nil {
				return fmt.Errorf("%s%s: %w", dashes, name, err)
			}
		case flag.isBool():
			_ = flag.Value.Set("")
		default:
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s%s", dashes, name)
			}
			i++
			if err := flag.Value.Set(arguments[i]); err != nil {
				return fmt.Errorf("%s%s: %w", dashes, name, err)
			}
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprintf(a.Stderr, "Usage: %s %s\nRun '%s --help' for all available options and flags.\n", a.Name, a.Synopsis, a.Name)
		return err
	}
	if help {
		a.WriteHelp(a.Stdout)
		return ErrHelp
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// WriteHelp renders the full help page, wrapping usage text to the width of
// the terminal attached to stdout.
func (a *App) WriteHelp(w io.Writer) {
	var sb strings.Builder
	width := terminalWidth()

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		sb.WriteString("\n")
		for _, line := range wrapText(a.Description, width-4) {
			fmt.Fprintf(&sb, "    %s\n", line)
		}
	}
	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n    Authors: %s\n", strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "    For more details refer to %s\n", a.Repository)
	}

	options := a.optionFlags()
	left := make([]string, len(options))
	leftWidth := 0
	for i, flag := range options {
		left[i] = flagString(flag)
		leftWidth = max(leftWidth, len(left[i]))
	}
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Flags {
			leftWidth = max(leftWidth, len(e.Name), len(e.Prefix)+len("no-<>")+len(g.GroupType))
		}
	}

	if len(options) > 0 {
		sb.WriteString("\nOptions\n")
		for i, flag := range options {
			right := ""
			if !flag.isBool() && flag.DefValue != "" {
				right = "|" + flag.DefValue + "|"
			}
			writeEntry(&sb, width, leftWidth, left[i], flag.Usage, right)
		}
	}

	for _, g := range a.FlagSet.groups {
		if len(g.Flags) == 0 {
			continue
		}
		prefix := g.Flags[0].Prefix
		fmt.Fprintf(&sb, "\n%s\n", g.Name)
		writeEntry(&sb, width, leftWidth, fmt.Sprintf("-%s<%s>", prefix, g.GroupType), "Enable a specific "+g.GroupType, "")
		writeEntry(&sb, width, leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, g.GroupType), "Disable a specific "+g.GroupType, "")
		if g.Header != "" {
			fmt.Fprintf(&sb, "  %s\n", g.Header)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Default {
				mark = "|x|"
			}
			writeEntry(&sb, width, leftWidth, e.Name, e.Usage, mark)
		}
	}
	fmt.Fprint(w, sb.String())
}

func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func flagString(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, width, leftWidth int, left, usage, right string) {
	const indent = "  "
	avail := max(width-len(indent)-leftWidth-1-len(right)-2, 10)
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, leftWidth, left, avail, first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, leftWidth, left, first)
	}
	pad := strings.Repeat(" ", len(indent)+leftWidth+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s\n", pad, line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 40)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		if len(words) == 0 {
			return nil
		}
		return []string{text}
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+1+len(word) > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
