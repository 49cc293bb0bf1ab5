// Package cli is a small flag parser that understands GCC-style grouped
// flags (-W<name>, -Wno-<name>) and renders help pages sized to the terminal.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

// boolValue treats a bare flag ("-v", value "") as true.
type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = b
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (fl *Flag) isBool() bool {
	_, ok := fl.Value.(*boolValue)
	return ok
}

// FlagGroupEntry is one name of a -<Prefix><Name> / -<Prefix>no-<Name> pair.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	grouped    map[string]bool
	flagGroups []FlagGroup
	args       []string
	changed    map[string]bool
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		grouped:    make(map[string]bool),
		changed:    make(map[string]bool),
	}
}

// Args returns the positional arguments left after Parse.
func (f *FlagSet) Args() []string { return f.args }

// Changed reports whether the named flag appeared on the command line.
func (f *FlagSet) Changed(name string) bool { return f.changed[name] }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
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
	if shorthand == "" {
		return
	}
	if _, ok := f.shorthands[shorthand]; ok {
		panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
	}
	f.shorthands[shorthand] = flag
}

// AddFlagGroup registers both halves of every entry and keeps the group for
// the help page.
func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
			f.grouped[e.Prefix+e.Name] = true
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
			f.grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) set(flag *Flag, value string) error {
	if err := flag.Value.Set(value); err != nil {
		return err
	}
	f.changed[flag.Name] = true
	return nil
}

// Parse accepts --name[=value], -name[=value] for any registered name
// (so -Wall and -Fwrap-imm work), and -x[value] for shorthands. Everything
// after "--" is positional.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		flag, value, inline, err := f.resolve(arg)
		if err != nil {
			return err
		}
		if !inline && !flag.isBool() {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		if err := f.set(flag, value); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

// resolve finds the flag named by arg. inline reports whether arg already
// carried the value.
func (f *FlagSet) resolve(arg string) (flag *Flag, value string, inline bool, err error) {
	if long, ok := strings.CutPrefix(arg, "--"); ok {
		name, value, inline := strings.Cut(long, "=")
		if name == "" {
			return nil, "", false, errors.New("empty flag name")
		}
		if flag = f.flags[name]; flag == nil {
			return nil, "", false, fmt.Errorf("unknown flag: --%s", name)
		}
		return flag, value, inline, nil
	}

	name, value, inline := strings.Cut(arg[1:], "=")
	if flag = f.flags[name]; flag != nil {
		return flag, value, inline, nil
	}
	short := arg[1:2]
	if flag = f.shorthands[short]; flag == nil {
		return nil, "", false, fmt.Errorf("unknown shorthand flag: -%s", short)
	}
	if flag.isBool() || len(arg) == 2 {
		return flag, "", flag.isBool(), nil
	}
	return flag, arg[2:], true, nil
}

// Section is an extra block of the help page, such as a list of output
// formats.
type Section struct {
	Title string
	Rows  [][2]string
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Sections    []Section
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	var help bool
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information.")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.Name, err)
		a.Usage(os.Stderr)
		return err
	}
	if help {
		a.Help(os.Stdout)
		return nil
	}
	if a.Action == nil {
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

const indentUnit = "    "

type helpRow struct{ left, usage, right string }

// Usage writes the short page shown after a bad command line.
func (a *App) Usage(w io.Writer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	rows := a.optionRows()
	a.writeRows(&sb, "Options", rows, rowWidth(rows), terminalWidth(w))
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, sb.String())
}

// Help writes the full page: options, the extra sections, then one block
// per flag group with the current state of every entry.
func (a *App) Help(w io.Writer) {
	var sb strings.Builder
	width := terminalWidth(w)

	years := strconv.Itoa(time.Now().Year())
	if a.Since > 0 && strconv.Itoa(a.Since) != years {
		years = strconv.Itoa(a.Since) + "-" + years
	}
	fmt.Fprintf(&sb, "\n%sCopyright (c) %s: %s and contributors\n", indentUnit, years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s\n", indentUnit, indentUnit+indentUnit, a.Description)
	}

	options := a.optionRows()
	var sections [][]helpRow
	for _, s := range a.Sections {
		rows := make([]helpRow, len(s.Rows))
		for i, r := range s.Rows {
			rows[i] = helpRow{left: r[0], usage: r[1]}
		}
		sections = append(sections, rows)
	}
	groups := a.groupRows()

	// One left column for the whole page.
	left := rowWidth(options)
	for _, rows := range append(sections, groups...) {
		left = max(left, rowWidth(rows))
	}

	a.writeRows(&sb, "Options", options, left, width)
	for i, s := range a.Sections {
		a.writeRows(&sb, s.Title, sections[i], left, width)
	}
	for i, g := range a.FlagSet.flagGroups {
		a.writeRows(&sb, g.Name, groups[i], left, width)
	}
	io.WriteString(w, sb.String())
}

func (a *App) optionRows() []helpRow {
	var rows []helpRow
	for _, fl := range a.FlagSet.flags {
		if a.FlagSet.grouped[fl.Name] {
			continue
		}
		row := helpRow{left: flagSynopsis(fl), usage: fl.Usage}
		if !fl.isBool() && fl.DefValue != "" {
			row.right = "|" + fl.DefValue + "|"
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return strings.TrimLeft(rows[i].left, "- ") < strings.TrimLeft(rows[j].left, "- ") })
	return rows
}

// groupRows renders each group as its two generic forms, a header line and
// the sorted entries marked |x| (on) or |-| (off).
func (a *App) groupRows() [][]helpRow {
	out := make([][]helpRow, len(a.FlagSet.flagGroups))
	for i, g := range a.FlagSet.flagGroups {
		if len(g.Flags) == 0 {
			continue
		}
		kind := g.GroupType
		if kind == "" {
			kind = "flag"
		}
		prefix := g.Flags[0].Prefix
		rows := []helpRow{
			{left: fmt.Sprintf("-%s<%s>", prefix, kind), usage: "Enable a specific " + kind},
			{left: fmt.Sprintf("-%sno-<%s>", prefix, kind), usage: "Disable a specific " + kind},
		}
		if g.AvailableFlagsHeader != "" {
			rows = append(rows, helpRow{left: g.AvailableFlagsHeader})
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				state = "|x|"
			}
			rows = append(rows, helpRow{left: "  " + e.Name, usage: e.Usage, right: state})
		}
		out[i] = rows
	}
	return out
}

func flagSynopsis(fl *Flag) string {
	arg := ""
	if !fl.isBool() && fl.ExpectedType != "" {
		arg = " <" + fl.ExpectedType + ">"
	}
	if fl.Shorthand == "" {
		// GCC-style names such as Wall are written with a single dash.
		if c := fl.Name[0]; c >= 'A' && c <= 'Z' {
			return "    -" + fl.Name + arg
		}
		return "    --" + fl.Name + arg
	}
	return "-" + fl.Shorthand + ", --" + fl.Name + arg
}

func rowWidth(rows []helpRow) int {
	w := 0
	for _, r := range rows {
		w = max(w, len(r.left))
	}
	return w
}

// writeRows prints a titled block. Usage text wraps under its own column;
// the right marker stays on the first line.
func (a *App) writeRows(sb *strings.Builder, title string, rows []helpRow, left, width int) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s%s\n", indentUnit, title)
	pad := strings.Repeat(" ", len(indentUnit)*2+left+1)
	for _, r := range rows {
		if r.usage == "" && r.right == "" {
			fmt.Fprintf(sb, "%s%s\n", indentUnit, r.left)
			continue
		}
		avail := max(width-len(pad)-len(r.right)-2, 10)
		lines := wrapText(r.usage, avail)
		first := ""
		if len(lines) > 0 {
			first = lines[0]
		}
		if r.right != "" {
			fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indentUnit+indentUnit, left, r.left, avail, first, r.right)
		} else {
			fmt.Fprintf(sb, "%s%-*s %s\n", indentUnit+indentUnit, left, r.left, first)
		}
		for _, l := range lines[min(1, len(lines)):] {
			fmt.Fprintf(sb, "%s%s\n", pad, l)
		}
	}
}

// terminalWidth is the width of w when it is a terminal, else 80.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

// wrapText splits text on spaces into lines no longer than maxWidth, except
// for single words that are longer on their own.
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		if len(words) == 0 {
			return []string{}
		}
		return []string{text}
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
