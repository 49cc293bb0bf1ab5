package parser

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/lexer"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/types"
	"github.com/xplshn/tirc/pkg/util"
)

func parse(t *testing.T, src string, cfg *config.Config) ([]*ast.Node, ast.AddressTable, *util.Reporter, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	rep := util.NewReporter(nil, cfg)
	toks, err := lexer.Lex(src, 0, cfg, rep)
	be.Err(t, err, nil)
	funcs, table, err := NewParser(toks, cfg, rep).Parse()
	return funcs, table, rep, err
}

func fn(name string) token.Token { return token.Token{Type: token.Fn, Name: name} }
func tok(typ token.Type) token.Token { return token.Token{Type: typ} }

func TestAddressTable(t *testing.T) {
	src := `
@fn main
	@load %a0, 1
	@go exit
@endfn
@fn exit
	@load %a7, 93
	@syscall
@endfn`
	funcs, table, _, err := parse(t, src, nil)
	be.Err(t, err, nil)
	be.Equal(t, len(funcs), 2)
	be.Equal(t, table["main"], uint64(0))
	be.Equal(t, table["exit"], uint64(8))
	be.Equal(t, table.Names(), []string{"main", "exit"})

	body := funcs[0].Data.(ast.FunctionNode).Body
	be.Equal(t, body[1].Type, ast.Go)
	be.Equal(t, body[1].Data.(ast.GoNode).Origin, uint64(4))
	be.Equal(t, body[1].Parent, funcs[0])
}

func TestProgramCounterSequence(t *testing.T) {
	src := `@fn f
	@nop
	@sum i32, %a0, 5, 7, %zero, %t0
	@sum i64, %a1, %t0, %t1, 3
	@ret
@endfn
@fn g
	@nop
@endfn`
	funcs, table, _, err := parse(t, src, nil)
	be.Err(t, err, nil)

	var addrs []uint64
	for _, n := range funcs[0].Data.(ast.FunctionNode).Body {
		addrs = append(addrs, n.Addr)
	}
	// 4 per node, 4+k after a sum with k deferred registers.
	be.Equal(t, addrs, []uint64{0, 4, 9, 15})
	be.Equal(t, table["g"], uint64(19))
}

func TestWordSumAdvance(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatWordSumAdvance, true)
	src := `@fn f
	@sum i32, %a0, 5, %t0, %t1
	@ret
@endfn
@fn g
	@nop
@endfn`
	funcs, table, _, err := parse(t, src, cfg)
	be.Err(t, err, nil)
	be.Equal(t, funcs[0].Data.(ast.FunctionNode).Body[1].Addr, uint64(12))
	be.Equal(t, table["g"], uint64(16))
}

func TestStructuralErrors(t *testing.T) {
	sum1 := token.Token{Type: token.Sum, Kind: types.I8, Dist: "a0", Operands: []types.Operand{types.Reg("t0")}}
	tests := []struct {
		name string
		toks []token.Token
		want error
	}{
		{"nested", []token.Token{fn("a"), fn("b"), tok(token.EndFn)}, ErrNestedFunction},
		{"not closed", []token.Token{fn("a"), tok(token.Nop)}, ErrFnNotClosed},
		{"outside", []token.Token{tok(token.Nop), fn("a"), tok(token.EndFn)}, ErrOutsideOfFunction},
		{"endfn without fn", []token.Token{tok(token.EndFn)}, ErrEndFnWithoutFn},
		{"too few operands", []token.Token{fn("a"), sum1, tok(token.EndFn)}, ErrTooFewOperands},
		{"duplicate", []token.Token{fn("a"), tok(token.EndFn), fn("a"), tok(token.EndFn)}, ErrDuplicateFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			funcs, table, err := NewParser(tt.toks, nil, nil).Parse()
			be.Err(t, err, tt.want)
			be.Equal(t, len(funcs), 0)
			be.Equal(t, len(table), 0)

			var terr *token.Error
			be.True(t, errors.As(err, &terr))
		})
	}
}

func TestFnNotClosedPointsAtFn(t *testing.T) {
	_, _, _, err := parse(t, "@fn open\n@nop\n", nil)
	var terr *token.Error
	be.True(t, errors.As(err, &terr))
	be.Equal(t, terr.Tok.Line, 1)
	be.Equal(t, terr.Tok.Name, "open")
}

func TestGlobalVisibility(t *testing.T) {
	src := `@fn a
@nop
@endfn
$global
@fn b
@nop
@endfn
@fn c
$global
@nop
@endfn
@fn d
@nop
@endfn`
	funcs, _, rep, err := parse(t, src, nil)
	be.Err(t, err, nil)
	var vis []ast.Visibility
	for _, f := range funcs {
		vis = append(vis, f.Data.(ast.FunctionNode).Visibility)
	}
	be.Equal(t, vis, []ast.Visibility{ast.Private, ast.Global, ast.Global, ast.Private})
	be.Equal(t, len(rep.Warnings()), 0)
}

func TestGlobalDoesNotLeakBetweenParses(t *testing.T) {
	_, _, rep, err := parse(t, "@fn a\n@nop\n@endfn\n$global", nil)
	be.Err(t, err, nil)
	be.Equal(t, len(rep.Warnings()), 1)
	be.Equal(t, rep.Warnings()[0].Warning, config.WarnDanglingGlobal)

	funcs, _, _, err := parse(t, "@fn b\n@nop\n@endfn", nil)
	be.Err(t, err, nil)
	be.Equal(t, funcs[0].Data.(ast.FunctionNode).Visibility, ast.Private)
}

func TestWarnings(t *testing.T) {
	src := `$global
$global
@fn a
@endfn
@fn b
@ret
@nop
@nop
@endfn`
	_, _, rep, err := parse(t, src, nil)
	be.Err(t, err, nil)

	var got []config.Warning
	for _, d := range rep.Warnings() {
		got = append(got, d.Warning)
	}
	be.Equal(t, got, []config.Warning{config.WarnRedundantGlobal, config.WarnEmptyFn, config.WarnUnreachable})

	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)
	_, _, rep, err = parse(t, src, cfg)
	be.Err(t, err, nil)
	be.Equal(t, len(rep.Warnings()), 0)
}

func TestCallFallsThrough(t *testing.T) {
	src := `@fn main
	@go helper
	@load %a7, 93
	@syscall
@endfn
@fn helper
	@ret
@endfn`
	funcs, _, rep, err := parse(t, src, nil)
	be.Err(t, err, nil)
	be.Equal(t, len(funcs), 2)
	be.Equal(t, len(rep.Warnings()), 0)
}

func TestParseTwice(t *testing.T) {
	src := "@fn a\n@nop\n@endfn\n@fn b\n@sum i32, %a0, 1, %t0\n@endfn"
	rep := util.NewReporter(nil, nil)
	toks, err := lexer.Lex(src, 0, nil, rep)
	be.Err(t, err, nil)

	p := NewParser(toks, nil, rep)
	first, table1, err := p.Parse()
	be.Err(t, err, nil)
	second, table2, err := p.Parse()
	be.Err(t, err, nil)

	be.Equal(t, len(second), len(first))
	be.Equal(t, table2, table1)
	be.Equal(t, table2["b"], uint64(4))
	be.Equal(t, second[1].Data.(ast.FunctionNode).Body[0].Addr, uint64(4))
}
