package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/tirc/pkg/cli"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatWrapImm
	FeatWordSumAdvance
	FeatCount
)

type Warning int

const (
	WarnUnreachable Warning = iota
	WarnEmptyFn
	WarnDanglingGlobal
	WarnRedundantGlobal
	WarnClobberedOperand
	WarnTruncatedImm
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features     map[Feature]Info
	Warnings     map[Warning]Info
	FeatureMap   map[string]Feature
	WarningMap   map[string]Warning
	OutputFormat string
	Verbose      bool
	DumpAST      bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:     make(map[Feature]Info),
		Warnings:     make(map[Warning]Info),
		FeatureMap:   make(map[string]Feature),
		WarningMap:   make(map[string]Warning),
		OutputFormat: "elf",
	}

	features := map[Feature]Info{
		FeatComments:       {"comments", true, "Recognize '//' line comments."},
		FeatWrapImm:        {"wrap-imm", false, "Truncate add immediates to 12 bits instead of rejecting them."},
		FeatWordSumAdvance: {"word-sum-advance", false, "Advance the program counter by a full word per deferred @sum operand."},
	}

	warnings := map[Warning]Info{
		WarnUnreachable:      {"unreachable", true, "Warn about instructions after @ret or @go in the same function."},
		WarnEmptyFn:          {"empty-fn", true, "Warn about functions with no instructions."},
		WarnDanglingGlobal:   {"dangling-global", true, "Warn when $global is not followed by a function."},
		WarnRedundantGlobal:  {"redundant-global", true, "Warn when $global is repeated for the same function."},
		WarnClobberedOperand: {"clobbered-operand", true, "Warn when a @sum destination is also one of its register operands."},
		WarnTruncatedImm:     {"truncated-imm", true, "Warn when an immediate is truncated to 12 bits (-Fwrap-imm)."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
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

// SetAllWarnings backs -Wall and -Wno-all.
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}

// ApplyFlag applies a single -W/-F style flag such as "-Wno-empty-fn".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		c.SetAllWarnings(enable)
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

// SetupFlagGroups registers -W<name>/-Wno-<name>, -F<name>/-Fno-<name> and
// -Wall/-Wno-all on fs. The returned entries are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	var wall, wnoall bool
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoall, "Wno-all", "", false, "Disable all warnings.")

	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the flags the user actually passed back into c.
// -Wall/-Wno-all apply first so individual flags can refine them.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet, warningFlags, featureFlags []cli.FlagGroupEntry) {
	if fs.Changed("Wall") {
		c.SetAllWarnings(true)
	}
	if fs.Changed("Wno-all") {
		c.SetAllWarnings(false)
	}
	for i, entry := range warningFlags {
		if fs.Changed(entry.Prefix + entry.Name) {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if fs.Changed(entry.Prefix+"no-"+entry.Name) && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if fs.Changed(entry.Prefix + entry.Name) {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if fs.Changed(entry.Prefix+"no-"+entry.Name) && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
