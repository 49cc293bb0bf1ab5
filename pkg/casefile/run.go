package casefile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/compiler"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/riscv"
	"github.com/xplshn/tirc/pkg/util"
)

// Failure is one assertion that did not hold.
type Failure struct {
	Assertion Assertion
	Message   string
}

func (f Failure) String() string {
	return fmt.Sprintf("line %d: %s assertion failed: %s", f.Assertion.Line, f.Assertion.Type, f.Message)
}

// Result is what a case compiled to.
type Result struct {
	Symbols     []codegen.Symbol
	Addresses   []string
	Warnings    []string
	Err         error
	Diagnostics string
}

// Compile builds c.Input with c.Flags applied on top of the default config.
func Compile(c Case) (Result, error) {
	cfg := config.NewConfig()
	for _, flag := range c.Flags {
		if err := cfg.ApplyFlag(flag); err != nil {
			return Result{}, fmt.Errorf("test '%s': %w", c.Name, err)
		}
	}
	var diags bytes.Buffer
	rep := util.NewReporter(&diags, cfg)
	opts := compiler.Options{Config: cfg, Reporter: rep, Filename: c.Name}

	syms, unit, err := compiler.Assemble(c.Input, opts)
	if err != nil {
		compiler.Report(rep, err)
	}
	res := Result{Symbols: syms, Err: err, Diagnostics: diags.String()}
	for _, d := range rep.Warnings() {
		res.Warnings = append(res.Warnings, d.String())
	}
	if unit != nil {
		for _, name := range unit.Addresses.Names() {
			res.Addresses = append(res.Addresses, fmt.Sprintf("%s %d", name, unit.Addresses[name]))
		}
	}
	return res, nil
}

// Run compiles c and checks every assertion. A non-nil error means the
// case itself could not be run.
func Run(c Case) ([]Failure, error) {
	res, err := Compile(c)
	if err != nil {
		return nil, err
	}
	var fails []Failure
	for _, a := range c.Assertions {
		if msg := check(a, res); msg != "" {
			fails = append(fails, Failure{Assertion: a, Message: msg})
		}
	}
	return fails, nil
}

func check(a Assertion, res Result) string {
	if a.Type == AssertCompileError {
		if res.Err == nil {
			return "compiled successfully, expected an error"
		}
		text := res.Err.Error() + "\n" + res.Diagnostics
		for _, want := range lines(a.Content) {
			if !strings.Contains(text, want) {
				return fmt.Sprintf("error %q does not mention %q", text, want)
			}
		}
		return ""
	}

	if res.Err != nil {
		return fmt.Sprintf("unexpected error: %v", res.Err)
	}
	var got []string
	switch a.Type {
	case AssertWords:
		got = Words(res.Symbols)
	case AssertAsm:
		got = Asm(res.Symbols)
	case AssertAddresses:
		got = res.Addresses
	case AssertWarnings:
		got = res.Warnings
	}
	if diff := cmp.Diff(lines(a.Content), got); diff != "" {
		return "(-want +got):\n" + diff
	}
	return ""
}

// Words renders one line per function: "name: w0 w1 ...".
func Words(syms []codegen.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		parts := []string{s.Name + ":"}
		for _, w := range s.Words() {
			parts = append(parts, w.String())
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// Asm renders a label line per function followed by its disassembly.
func Asm(syms []codegen.Symbol) []string {
	var out []string
	for _, s := range syms {
		out = append(out, s.Name+":")
		for _, in := range riscv.DecodeBytes(s.Bytes) {
			out = append(out, in.String())
		}
	}
	return out
}

// lines splits content into trimmed, non-empty lines with runs of blanks
// collapsed, so fences can be indented freely.
func lines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		if f := strings.Fields(l); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return out
}
