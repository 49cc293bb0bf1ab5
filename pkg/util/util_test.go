package util

import (
	"bytes"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/token"
)

const src = "@fn main\n  @lod %a0, 1\n@endfn\n"

func TestError(t *testing.T) {
	var out bytes.Buffer
	rep := NewReporter(&out, nil)
	idx := rep.AddSourceFile("a.tir", src)
	be.Equal(t, idx, 0)

	tok := token.Token{FileIndex: idx, Line: 2, Column: 3, Len: 4}
	rep.Error(tok, "unrecognized lexeme '%s'", "@lod")

	be.Equal(t, out.String(), "a.tir:2:3: error: unrecognized lexeme '@lod'\n"+
		"    @lod %a0, 1\n"+
		"    ^~~~\n")
	be.Equal(t, len(rep.Errors()), 1)
	be.Equal(t, rep.Errors()[0].String(), "2:3: error: unrecognized lexeme '@lod'")
	be.Equal(t, len(rep.Warnings()), 0)
}

func TestErrorUnknownFile(t *testing.T) {
	var out bytes.Buffer
	rep := NewReporter(&out, nil)
	rep.Error(token.Token{FileIndex: 3, Line: 1, Column: 1}, "oops")
	be.Equal(t, out.String(), "unknown:1:1: error: oops\n")
}

func TestWarn(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUnreachable, false)

	var out bytes.Buffer
	rep := NewReporter(&out, cfg)
	rep.AddSourceFile("a.tir", src)
	tok := token.Token{Line: 1, Column: 1, Len: 8}

	rep.Warn(config.WarnUnreachable, tok, "unreachable instruction")
	be.Equal(t, out.Len(), 0)
	be.Equal(t, len(rep.Diagnostics()), 0)

	rep.Warn(config.WarnEmptyFn, tok, "function '%s' has no instructions", "main")
	be.Equal(t, out.String(), "a.tir:1:1: warning: function 'main' has no instructions [-Wempty-fn]\n"+
		"  @fn main\n"+
		"  ^~~~~~~~\n")
	w := rep.Warnings()
	be.Equal(t, len(w), 1)
	be.Equal(t, w[0].Warning, config.WarnEmptyFn)
	be.Equal(t, w[0].Severity, SevWarning)
}

func TestNilWriter(t *testing.T) {
	rep := NewReporter(nil, nil)
	rep.Error(token.Token{Line: 1, Column: 1}, "recorded")
	be.Equal(t, len(rep.Diagnostics()), 1)
}
