// Package compiler wires the lexer, parser and code generator into the
// pipeline a driver calls.
package compiler

import (
	"errors"
	"fmt"
	"io"

	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/lexer"
	"github.com/xplshn/tirc/pkg/parser"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/util"
)

// Options configures one compilation. Every field is optional.
type Options struct {
	Config   *config.Config
	Reporter *util.Reporter
	Filename string
	// Progress receives one line per pipeline stage when set.
	Progress io.Writer
}

func (o Options) normalize() Options {
	if o.Config == nil {
		o.Config = config.NewConfig()
	}
	if o.Reporter == nil {
		o.Reporter = util.NewReporter(nil, o.Config)
	}
	if o.Filename == "" {
		o.Filename = "<input>"
	}
	return o
}

func (o Options) stage(format string, args ...interface{}) {
	if o.Progress != nil {
		fmt.Fprintf(o.Progress, format+"\n", args...)
	}
}

// Unit is a parsed compilation unit, ready for code generation.
type Unit struct {
	Functions []*ast.Node
	Addresses ast.AddressTable
	Tokens    int
}

// Compile lexes and parses src.
func Compile(src string, opts Options) (*Unit, error) {
	opts = opts.normalize()
	fileIndex := opts.Reporter.AddSourceFile(opts.Filename, src)

	opts.stage("Tokenizing...")
	toks, err := lexer.Lex(src, fileIndex, opts.Config, opts.Reporter)
	if err != nil {
		return nil, err
	}

	opts.stage("Parsing %d tokens...", len(toks))
	funcs, table, err := parser.NewParser(toks, opts.Config, opts.Reporter).Parse()
	if err != nil {
		return nil, err
	}
	return &Unit{Functions: funcs, Addresses: table, Tokens: len(toks)}, nil
}

// Build generates code for every function of unit, in declaration order.
func Build(unit *Unit, opts Options) ([]codegen.Symbol, error) {
	opts = opts.normalize()
	opts.stage("Generating code for %d function(s)...", len(unit.Functions))
	return codegen.NewContext(unit.Addresses, opts.Config, opts.Reporter).Generate(unit.Functions)
}

// Assemble runs Compile and Build back to back.
func Assemble(src string, opts Options) ([]codegen.Symbol, *Unit, error) {
	opts = opts.normalize()
	unit, err := Compile(src, opts)
	if err != nil {
		return nil, nil, err
	}
	syms, err := Build(unit, opts)
	if err != nil {
		return nil, unit, err
	}
	return syms, unit, nil
}

// Report prints err through rep. Lexical errors were already printed
// while scanning; positional errors get a caret; the rest are returned as
// plain text for the caller to print.
func Report(rep *util.Reporter, err error) string {
	var serr *lexer.SyntaxError
	if errors.As(err, &serr) {
		return ""
	}
	var terr *token.Error
	if errors.As(err, &terr) {
		rep.Error(terr.Tok, "%v", terr.Err)
		return ""
	}
	return err.Error()
}
