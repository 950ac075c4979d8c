package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/naoina/toml"
	"github.com/xplshn/jsarm/pkg/cli"
)

type Feature int

const (
	FeatBoundsCheck Feature = iota
	FeatImplicitMain
	FeatCComments
	FeatCount
)

type Warning int

const (
	WarnUnreachableCode Warning = iota
	WarnRedeclared
	WarnConditionalVar
	WarnDivByZero
	WarnOverflow
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Toolchain describes the external assembler/linker and the optional
// emulator used to execute cross-compiled programs.
type Toolchain struct {
	CC     string   `toml:"cc"`
	CFlags []string `toml:"cflags"`
	Runner []string `toml:"runner"`
}

type Config struct {
	Features        map[Feature]Info
	Warnings        map[Warning]Info
	FeatureMap      map[string]Feature
	WarningMap      map[string]Warning
	TargetArch      string
	// MaxRegisterArgs caps the arity of calls and function definitions. The
	// code generator never uses more than r0-r3, whatever the value.
	MaxRegisterArgs int
	Toolchain       Toolchain
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Toolchain: Toolchain{
			CC:     "arm-linux-gnueabihf-gcc",
			CFlags: []string{"-march=armv8-a", "-static"},
		},
	}

	features := map[Feature]Info{
		FeatBoundsCheck:  {"bounds-check", true, "Check array indices against the stored length; out of range reads yield 0."},
		FeatImplicitMain: {"implicit-main", true, "Collect top-level statements into an implicit 'main' function."},
		FeatCComments:    {"c-comments", true, "Recognize '//' and '/* */' comments."},
	}

	warnings := map[Warning]Info{
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements following a 'return' in the same block."},
		WarnRedeclared:      {"redeclared", true, "Warn when 'var' redeclares a name already visible in the function."},
		WarnConditionalVar:  {"conditional-var", true, "Warn about 'var' inside 'if' or 'while' bodies. Each run of the body pushes a slot, so later locals read stale pushes: 'while (i < 3) { var t = i; i = i + 1; } var y = 5;' leaves 'y' reading one of the slots of 't'."},
		WarnDivByZero:       {"div-by-zero", true, "Warn about division by a literal zero."},
		WarnOverflow:        {"overflow", true, "Warn when an integer constant does not fit in a machine word."},
		WarnExtra:           {"extra", true, "Warn about calls to functions that are neither defined in the program nor provided by the C library (putchar, malloc, rand, printf)."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	if err := cfg.SetTarget("arm"); err != nil {
		panic(err)
	}
	return cfg
}

// SetTarget selects the backend and resets the argument register limit.
func (c *Config) SetTarget(target string) error {
	switch target {
	case "arm", "armv7", "armv8-a", "arm32":
		c.TargetArch = "arm"
		c.MaxRegisterArgs = 4
	default:
		return fmt.Errorf("unsupported target '%s'. Supported: 'arm'", target)
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag applies a single -W/-F style flag such as "-Wno-redeclared" or
// "-Fbounds-check". Unknown names are reported as errors.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// tomlSettings rejects keys that no field accepts instead of ignoring them
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return strings.ReplaceAll(strings.ToLower(key), "_", "")
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return strings.ToLower(field)
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type fileConfig struct {
	Target          string
	MaxRegisterArgs int
	Toolchain       *Toolchain
	Diagnostics     struct {
		Warnings []string
		Features []string
	}
}

// LoadFile merges the settings of a TOML configuration file into c:
//
//	target = "arm"
//	max_register_args = 4
//
//	[toolchain]
//	cc = "arm-linux-gnueabihf-gcc"
//	cflags = ["-march=armv8-a", "-static"]
//	runner = ["qemu-arm", "-L", "/usr/arm-linux-gnueabihf"]
//
//	[diagnostics]
//	warnings = ["all", "no-unreachable-code"]
//	features = ["no-bounds-check"]
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.Load(data)
}

// Load is LoadFile on an in-memory document.
func (c *Config) Load(data []byte) error {
	var fc fileConfig
	if err := tomlSettings.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if fc.Target != "" {
		if err := c.SetTarget(fc.Target); err != nil {
			return err
		}
	}
	if n := fc.MaxRegisterArgs; n != 0 {
		if n < 0 || n > 4 {
			return fmt.Errorf("max_register_args must be between 1 and 4, got %d", n)
		}
		c.MaxRegisterArgs = n
	}
	if tc := fc.Toolchain; tc != nil {
		if tc.CC != "" {
			c.Toolchain.CC = tc.CC
		}
		if tc.CFlags != nil {
			c.Toolchain.CFlags = tc.CFlags
		}
		if tc.Runner != nil {
			c.Toolchain.Runner = tc.Runner
		}
	}
	for _, w := range fc.Diagnostics.Warnings {
		if err := c.ApplyFlag("-W" + w); err != nil {
			return fmt.Errorf("config diagnostics: %w", err)
		}
	}
	for _, f := range fc.Diagnostics.Features {
		if err := c.ApplyFlag("-F" + f); err != nil {
			return fmt.Errorf("config diagnostics: %w", err)
		}
	}
	return nil
}

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name>
// flags on fs. The returned entries are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warnings)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", features)
	return warnings, features
}

// ApplyFlagGroups copies the state of the flag group entries returned by
// SetupFlagGroups back into c, after -Wall has been handled by the caller.
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	for i, entry := range warnings {
		if *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
