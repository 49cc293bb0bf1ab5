package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

type Severity int

const (
	SevError Severity = iota
	SevWarning
)

// Diagnostic is one reported message, kept so callers and tests can inspect
// what was printed.
type Diagnostic struct {
	Severity Severity
	Tok      token.Token
	Message  string
	Warning  config.Warning
}

func (d Diagnostic) String() string {
	kind := "error"
	if d.Severity == SevWarning {
		kind = "warning"
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Tok.Line, d.Tok.Column, kind, d.Message)
}

// Reporter prints diagnostics with the offending source line and a caret.
// It never exits; the driver decides what a failure means.
type Reporter struct {
	out         io.Writer
	cfg         *config.Config
	color       bool
	sourceFiles []SourceFileRecord
	diags       []Diagnostic
}

// NewReporter writes to out. A nil out discards output but still records
// diagnostics.
func NewReporter(out io.Writer, cfg *config.Config) *Reporter {
	if out == nil {
		out = io.Discard
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := &Reporter{out: out, cfg: cfg}
	if f, ok := out.(*os.File); ok {
		r.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

// AddSourceFile registers a file for caret printing and returns the index
// tokens from it should carry.
func (r *Reporter) AddSourceFile(name, content string) int {
	r.sourceFiles = append(r.sourceFiles, SourceFileRecord{Name: name, Content: []rune(content)})
	return len(r.sourceFiles) - 1
}

func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

func (r *Reporter) Errors() []Diagnostic { return r.filter(SevError) }

func (r *Reporter) Warnings() []Diagnostic { return r.filter(SevWarning) }

func (r *Reporter) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (r *Reporter) filename(tok token.Token) string {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.sourceFiles) {
		return "unknown"
	}
	return r.sourceFiles[tok.FileIndex].Name
}

// printErrorLine prints the source line and a caret indicating the error position
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.sourceFiles) || tok.Line == 0 {
		return
	}

	content := r.sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, ch := range content {
		if lineNum <= 1 {
			break
		}
		if ch == '\n' {
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

	fmt.Fprintf(r.out, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	col := tok.Column - 1
	if col < 0 {
		col = 0
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", col), r.paint("32", caret))
}

// Error records and prints an error at tok.
func (r *Reporter) Error(tok token.Token, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.diags = append(r.diags, Diagnostic{Severity: SevError, Tok: tok, Message: msg})
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s\n", r.filename(tok), tok.Line, tok.Column, r.paint("31", "error:"), msg)
	r.printErrorLine(tok)
}

// Warn prints a warning if wt is enabled.
func (r *Reporter) Warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !r.cfg.IsWarningEnabled(wt) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.diags = append(r.diags, Diagnostic{Severity: SevWarning, Tok: tok, Message: msg, Warning: wt})
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s [-W%s]\n", r.filename(tok), tok.Line, tok.Column,
		r.paint("33", "warning:"), msg, r.cfg.Warnings[wt].Name)
	r.printErrorLine(tok)
}
