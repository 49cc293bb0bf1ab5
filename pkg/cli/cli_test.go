package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParse(t *testing.T) {
	var out, format string
	var verbose bool

	fs := NewFlagSet("tirc")
	fs.String(&out, "output", "o", "", "Output file.", "file")
	fs.String(&format, "format", "f", "elf", "Output format.", "format")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")

	err := fs.Parse([]string{"-o", "a.o", "--format=hex", "-v", "in.tir", "--", "-not-a-flag"})
	be.Err(t, err, nil)
	be.Equal(t, out, "a.o")
	be.Equal(t, format, "hex")
	be.True(t, verbose)
	be.Equal(t, fs.Args(), []string{"in.tir", "-not-a-flag"})

	be.True(t, fs.Changed("output"))
	be.True(t, fs.Changed("format"))
	be.True(t, fs.Changed("verbose"))
	be.True(t, !fs.Changed("help"))
}

func TestParseValueForms(t *testing.T) {
	var out string
	var verbose bool
	fs := NewFlagSet("tirc")
	fs.String(&out, "output", "o", "", "Output file.", "file")
	fs.Bool(&verbose, "verbose", "v", true, "Verbose.")

	be.Err(t, fs.Parse([]string{"-ox.o"}), nil)
	be.Equal(t, out, "x.o")
	be.Err(t, fs.Parse([]string{"-output=y.o", "--verbose=false"}), nil)
	be.Equal(t, out, "y.o")
	be.True(t, !verbose)
}

func TestChangedOnlyWhenGiven(t *testing.T) {
	on, off := true, false
	fs := NewFlagSet("tirc")
	fs.AddFlagGroup("Warning Flags", "", "warning", "", []FlagGroupEntry{
		{Name: "unreachable", Prefix: "W", Enabled: &on, Disabled: &off},
	})
	be.Err(t, fs.Parse([]string{"-Wno-unreachable"}), nil)
	be.True(t, !fs.Changed("Wunreachable"))
	be.True(t, fs.Changed("Wno-unreachable"))
	be.True(t, off)
}

func TestParseErrors(t *testing.T) {
	var out string
	var verbose bool
	fs := NewFlagSet("tirc")
	fs.String(&out, "output", "o", "", "Output file.", "file")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")

	be.True(t, fs.Parse([]string{"--output"}) != nil)
	be.True(t, fs.Parse([]string{"--nope"}) != nil)
	be.True(t, fs.Parse([]string{"--"}) == nil)
	be.True(t, fs.Parse([]string{"--=x"}) != nil)
	be.True(t, fs.Parse([]string{"-z"}) != nil)
	be.True(t, fs.Parse([]string{"--verbose=maybe"}) != nil)
}

func TestHelp(t *testing.T) {
	var format string
	var wall bool
	on, onOff, off, offOff := true, false, false, false

	app := NewApp("tirc")
	app.Synopsis = "[options] <input.tir>"
	app.Authors = []string{"xplshn"}
	fs := app.FlagSet
	fs.String(&format, "format", "f", "elf", "Output format.", "format")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.AddFlagGroup("Warning Flags", "", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "unreachable", Prefix: "W", Usage: "Dead code.", Enabled: &on, Disabled: &onOff},
		{Name: "empty-fn", Prefix: "W", Usage: "Empty functions.", Enabled: &off, Disabled: &offOff},
	})
	app.Sections = []Section{{Title: "Output Formats", Rows: [][2]string{{"elf", "ELF object."}, {"hex", "Listing."}}}}

	var buf bytes.Buffer
	app.Help(&buf)
	page := buf.String()

	for _, want := range []string{
		"Synopsis\n        tirc <options> <input.tir>\n",
		"-f, --format <format>",
		"|elf|",
		"    -Wall",
		"Output Formats",
		"-W<warning>",
		"-Wno-<warning>",
		"Available Warnings:",
	} {
		be.True(t, strings.Contains(page, want))
	}
	be.True(t, !strings.Contains(page, "--Wall"))
	be.True(t, !strings.Contains(page, "Wno-unreachable"))
	be.True(t, strings.Index(page, "empty-fn") < strings.Index(page, "unreachable"))

	for _, line := range strings.Split(page, "\n") {
		switch {
		case strings.Contains(line, "  unreachable"):
			be.True(t, strings.HasSuffix(line, "|x|"))
		case strings.Contains(line, "  empty-fn"):
			be.True(t, strings.HasSuffix(line, "|-|"))
		}
	}
}

func TestUsage(t *testing.T) {
	var verbose bool
	app := NewApp("tirc")
	app.Synopsis = "[options] <input.tir>"
	app.FlagSet.Bool(&verbose, "verbose", "v", false, "Verbose.")

	var buf bytes.Buffer
	app.Usage(&buf)
	be.True(t, strings.HasPrefix(buf.String(), "Usage: tirc [options] <input.tir>\n"))
	be.True(t, strings.Contains(buf.String(), "-v, --verbose"))
	be.True(t, strings.HasSuffix(buf.String(), "Run 'tirc --help' for all available options and flags.\n"))
}

func TestWrapText(t *testing.T) {
	be.Equal(t, wrapText("one two three", 7), []string{"one two", "three"})
	be.Equal(t, wrapText("unbreakable", 4), []string{"unbreakable"})
	be.Equal(t, len(wrapText("   ", 10)), 0)
}
